// Package alerting carries pipeline notifications to external channels.
// Channels (email, SMS, dashboards) implement Sender; delivery failures
// are logged and never fail the cycle that raised the alert.
package alerting

import (
	"log"
	"time"
)

// Alert is one notification. (Source, Title) is the throttling identity.
type Alert struct {
	Source  string
	Title   string
	Message string
	Time    time.Time
}

// Sender delivers an alert to one channel.
type Sender interface {
	Send(alert Alert) error
}

// LogSender writes alerts to the process log. Always configured, so
// every alert leaves at least one trace even with no channels enabled.
type LogSender struct{}

func (LogSender) Send(a Alert) error {
	log.Printf("[alert] %s: %s: %s", a.Source, a.Title, a.Message)
	return nil
}

// Dispatcher fans an alert out to all senders, consulting the throttle
// first so repeated (source, title) pairs stay quiet within the window.
type Dispatcher struct {
	senders  []Sender
	throttle *Throttle
}

func NewDispatcher(throttle *Throttle, senders ...Sender) *Dispatcher {
	if len(senders) == 0 {
		senders = []Sender{LogSender{}}
	}
	return &Dispatcher{senders: senders, throttle: throttle}
}

// Notify delivers the alert unless throttled. Errors are logged only.
func (d *Dispatcher) Notify(a Alert) {
	if a.Time.IsZero() {
		a.Time = time.Now()
	}
	if d.throttle != nil {
		ok, err := d.throttle.Allow(a.Source, a.Title, a.Time)
		if err != nil {
			log.Printf("[alert] throttle check failed: %v", err)
		} else if !ok {
			return
		}
	}
	for _, s := range d.senders {
		if err := s.Send(a); err != nil {
			log.Printf("[alert] delivery failed: %v", err)
		}
	}
}
