package collector

import (
	"context"
	"log"
	"sync"
	"time"

	"nemscan/internal/derive"
	"nemscan/internal/eventbus"
)

// CycleSummary is the structured record of one polling cycle, published
// on the event bus and retained for the ops API.
type CycleSummary struct {
	Cycle      int             `json:"cycle"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Datasets   []DatasetResult `json:"datasets"`
}

// Service is the single-process scheduler. Collectors run sequentially
// within a cycle; the SCADA 30-minute aggregation always runs after this
// cycle's SCADA 5-minute merge, so it observes the fresh samples.
type Service struct {
	env        *Env
	collectors []Collector
	interval   time.Duration

	mu    sync.Mutex
	last  *CycleSummary
	cycle int
}

func NewService(env *Env) *Service {
	return &Service{
		env: env,
		collectors: []Collector{
			NewDispatchCollector(env),
			NewScadaCollector(env),
			NewNextDayCollector(env),
			NewTradingCollector(env),
			NewRooftopCollector(env),
			NewDemandCollector(env),
		},
		interval: env.Cfg.UpdateInterval(),
	}
}

// LastSummary returns the most recent cycle summary, or nil before the
// first cycle completes.
func (s *Service) LastSummary() *CycleSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Start runs the cycle loop until the context is cancelled. The current
// cycle always completes its in-flight merge before the loop exits. An
// overlong cycle starts the next one immediately.
func (s *Service) Start(ctx context.Context) {
	log.Printf("[scheduler] starting (interval %s, %d collectors)", s.interval, len(s.collectors))
	for {
		started := time.Now()
		s.runCycle(ctx)

		wait := s.interval - time.Since(started)
		if wait <= 0 {
			wait = time.Millisecond
		}
		select {
		case <-ctx.Done():
			log.Println("[scheduler] stopping")
			return
		case <-time.After(wait):
		}
	}
}

func (s *Service) runCycle(ctx context.Context) {
	s.cycle++
	summary := &CycleSummary{Cycle: s.cycle, StartedAt: time.Now()}

	for _, c := range s.collectors {
		if ctx.Err() != nil {
			break
		}
		summary.Datasets = append(summary.Datasets, c.Collect(ctx)...)
	}

	// Derived jobs. SCADA 30-minute aggregation must see this cycle's
	// scada5 merge; collectors above ran sequentially, so it does.
	if ctx.Err() == nil {
		summary.Datasets = append(summary.Datasets,
			deriveResult("scada30", func() (int, int, error) {
				r, err := derive.RunScadaThirtyMin(s.env.Cfg.DataPath)
				return r.Added, r.Rows, err
			}),
			deriveResult("rooftop5", func() (int, int, error) {
				r, err := derive.RunRooftopFiveMin(s.env.Cfg.DataPath)
				return r.Added, r.Rows, err
			}),
		)
	}

	summary.FinishedAt = time.Now()
	s.report(summary)
}

func deriveResult(dataset string, run func() (added, rows int, err error)) DatasetResult {
	res := DatasetResult{Dataset: dataset}
	added, rows, err := run()
	if err != nil {
		log.Printf("[%s] derive failed: %v", dataset, err)
		res.Error = err.Error()
		return res
	}
	res.OK = true
	res.RowDelta = added
	res.Rows = rows
	return res
}

func (s *Service) report(summary *CycleSummary) {
	s.mu.Lock()
	s.last = summary
	s.mu.Unlock()

	var okCount, delta int
	for _, d := range summary.Datasets {
		if d.OK {
			okCount++
		}
		delta += d.RowDelta
	}
	log.Printf("[scheduler] cycle %d done in %s: %d/%d datasets ok, %+d rows",
		summary.Cycle, summary.FinishedAt.Sub(summary.StartedAt).Truncate(time.Millisecond),
		okCount, len(summary.Datasets), delta)

	if s.env.Bus != nil {
		s.env.Bus.Publish(eventbus.Event{
			Type:      eventbus.TypeCycleSummary,
			Timestamp: summary.FinishedAt,
			Data:      summary,
		})
	}
}
