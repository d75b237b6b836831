// Package schedule issues wake requests on cron specs.
package schedule

import (
	"fmt"
	"log"
	"time"

	"gopkg.in/robfig/cron.v2"
)

// Scheduler runs wake jobs.
type Scheduler struct {
	cron    *cron.Cron
	entries []cron.EntryID
}

// New parses every spec and registers wake for each. Specs use the
// six-field cron.v2 format (seconds first) or descriptors like "@daily".
// Nothing runs until Start.
func New(specs []string, wake func()) (*Scheduler, error) {
	s := &Scheduler{cron: cron.New()}
	for _, spec := range specs {
		spec := spec
		id, err := s.cron.AddFunc(spec, func() {
			log.Printf("schedule: %q fired", spec)
			wake()
		})
		if err != nil {
			return nil, fmt.Errorf("schedule %q: %w", spec, err)
		}
		s.entries = append(s.entries, id)
	}
	return s, nil
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler. Running jobs are not interrupted.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// Len returns the number of registered specs.
func (s *Scheduler) Len() int {
	return len(s.entries)
}

// Next returns the next activation time per spec, in registration order.
func (s *Scheduler) Next() []string {
	out := make([]string, 0, len(s.entries))
	for _, id := range s.entries {
		e := s.cron.Entry(id)
		if e.Next.IsZero() {
			out = append(out, "")
			continue
		}
		out = append(out, e.Next.Format(time.RFC3339))
	}
	return out
}
