// Package budget tracks a soft, process-local estimate of daily AI spend.
// It never reconciles against actual provider billing.
package budget

import (
	"sync"
	"time"
)

// Status reports today's usage against the configured cap.
type Status struct {
	DayKey            string  `json:"dayKey"`
	Calls             int     `json:"calls"`
	EstimatedSpendUSD float64 `json:"estimatedSpendUsd"`
	CapUSD            float64 `json:"capUsd"`
	WithinBudget      bool    `json:"withinBudget"`
}

type dayRecord struct {
	calls             int
	estimatedSpendUSD float64
}

// Tracker is a process-wide daily spend counter keyed by UTC calendar day.
// Day rollover resets implicitly: a new day has no entry and counts as zero.
// Old day records are never deleted; the process restarts before that matters.
type Tracker struct {
	mu   sync.Mutex
	days map[string]dayRecord

	capUSD         float64
	costPerCallUSD float64
	now            func() time.Time
}

// NewTracker builds a tracker with the given daily cap and per-call estimate.
func NewTracker(capUSD, costPerCallUSD float64) *Tracker {
	return &Tracker{
		days:           make(map[string]dayRecord),
		capUSD:         capUSD,
		costPerCallUSD: costPerCallUSD,
		now:            time.Now,
	}
}

func (t *Tracker) dayKey() string {
	return t.now().UTC().Format("2006-01-02")
}

// Status returns today's call count and estimated spend.
func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := t.dayKey()
	record := t.days[key]
	return Status{
		DayKey:            key,
		Calls:             record.calls,
		EstimatedSpendUSD: record.estimatedSpendUSD,
		CapUSD:            t.capUSD,
		WithinBudget:      record.estimatedSpendUSD < t.capUSD,
	}
}

// CanSpend reports whether one more estimated call still fits under the cap.
// This is the pre-check evaluated before attempting an external call.
func (t *Tracker) CanSpend() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	record := t.days[t.dayKey()]
	return record.estimatedSpendUSD+t.costPerCallUSD <= t.capUSD
}

// Consume charges one estimated call against today. Call exactly once per
// actually-attempted external call; spend is charged on intent, not success.
func (t *Tracker) Consume() Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := t.dayKey()
	record := t.days[key]
	record.calls++
	record.estimatedSpendUSD += t.costPerCallUSD
	t.days[key] = record

	return Status{
		DayKey:            key,
		Calls:             record.calls,
		EstimatedSpendUSD: record.estimatedSpendUSD,
		CapUSD:            t.capUSD,
		WithinBudget:      record.estimatedSpendUSD < t.capUSD,
	}
}
