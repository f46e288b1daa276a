package alerting

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Throttle is a persistent suppression store: an alert with the same
// (source, title) is delivered at most once per window, across process
// restarts.
type Throttle struct {
	db     *sql.DB
	window time.Duration
}

const throttleSchema = `
CREATE TABLE IF NOT EXISTS alert_log (
    source  TEXT NOT NULL,
    title   TEXT NOT NULL,
    sent_at INTEGER NOT NULL,
    PRIMARY KEY (source, title)
);`

// OpenThrottle opens (creating if needed) the sqlite throttle store.
func OpenThrottle(path string, window time.Duration) (*Throttle, error) {
	if window <= 0 {
		window = 60 * time.Minute
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open throttle db: %w", err)
	}
	if _, err := db.Exec(throttleSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init throttle db: %w", err)
	}
	return &Throttle{db: db, window: window}, nil
}

// Allow reports whether an alert with this identity may be sent now, and
// records the send when it may.
func (t *Throttle) Allow(source, title string, now time.Time) (bool, error) {
	var sentAt int64
	err := t.db.QueryRow(
		`SELECT sent_at FROM alert_log WHERE source = ? AND title = ?`,
		source, title,
	).Scan(&sentAt)
	switch {
	case err == sql.ErrNoRows:
		// first occurrence
	case err != nil:
		return false, err
	default:
		if now.Sub(time.Unix(sentAt, 0)) < t.window {
			return false, nil
		}
	}

	_, err = t.db.Exec(
		`INSERT INTO alert_log (source, title, sent_at) VALUES (?, ?, ?)
		 ON CONFLICT (source, title) DO UPDATE SET sent_at = excluded.sent_at`,
		source, title, now.Unix(),
	)
	if err != nil {
		return false, err
	}
	return true, nil
}

// Close releases the underlying database.
func (t *Throttle) Close() error { return t.db.Close() }
