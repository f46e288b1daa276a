// Package duids tracks the set of generator unit identifiers ever seen
// by the SCADA feed, so newly commissioned units trigger a notification.
package duids

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Registry is the known-DUID set, persisted as one DUID per line. The
// set grows monotonically; the artifact is rewritten whole on change.
type Registry struct {
	mu    sync.Mutex
	path  string
	known map[string]bool
}

// Load reads the registry artifact. A missing file starts empty: on a
// fresh deployment the first SCADA batch seeds the set.
func Load(path string) (*Registry, error) {
	r := &Registry{path: path, known: make(map[string]bool)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, err
	}
	for _, line := range strings.Split(string(data), "\n") {
		if duid := strings.TrimSpace(line); duid != "" {
			r.known[duid] = true
		}
	}
	return r, nil
}

// Len returns the number of known DUIDs.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.known)
}

// Observe diffs a batch of observed DUIDs against the known set. New
// entries are unioned in and the artifact rewritten; the sorted list of
// new DUIDs is returned so the caller can raise one alert per cycle.
func (r *Registry) Observe(observed map[string]bool) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var fresh []string
	for duid := range observed {
		if !r.known[duid] {
			r.known[duid] = true
			fresh = append(fresh, duid)
		}
	}
	if len(fresh) == 0 {
		return nil, nil
	}
	sort.Strings(fresh)

	if err := r.save(); err != nil {
		return fresh, fmt.Errorf("save registry: %w", err)
	}
	return fresh, nil
}

func (r *Registry) save() error {
	all := make([]string, 0, len(r.known))
	for duid := range r.known {
		all = append(all, duid)
	}
	sort.Strings(all)

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return err
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(strings.Join(all, "\n")+"\n"), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, r.path)
}
