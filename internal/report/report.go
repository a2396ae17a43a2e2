// Package report records what an ingestion run did, per unit, and renders
// it for operators.
package report

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"schooldir/internal/school"
)

type Status string

const (
	StatusOK      Status = "ok"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

const (
	WarnStructuralDrift = "structural_drift"
	WarnAmbiguousMatch  = "ambiguous_match"
)

// MaxSamples caps the rejected or unparseable blocks kept per unit.
const MaxSamples = 5

type Warning struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type Sample struct {
	Reason  string `json:"reason"`
	Name    string `json:"name,omitempty"`
	Offset  int    `json:"offset"`
	Excerpt string `json:"excerpt"`
}

type Unit struct {
	District string `json:"district"`
	URL      string `json:"url"`
	Status   Status `json:"status"`
	// Parsed counts the blocks segmented from the page.
	Parsed      int       `json:"parsed"`
	Rejected    int       `json:"rejected"`
	Unparseable int       `json:"unparseable"`
	Inserted    int       `json:"inserted"`
	Updated     int       `json:"updated"`
	Skipped     int       `json:"skipped"`
	Errors      int       `json:"errors"`
	Warnings    []Warning `json:"warnings,omitempty"`
	Samples     []Sample  `json:"samples,omitempty"`
	Error       string    `json:"error,omitempty"`
}

func (u *Unit) Warn(kind, format string, args ...any) {
	u.Warnings = append(u.Warnings, Warning{Kind: kind, Message: fmt.Sprintf(format, args...)})
}

// AddSample keeps the first MaxSamples samples.
func (u *Unit) AddSample(s Sample) {
	if len(u.Samples) < MaxSamples {
		u.Samples = append(u.Samples, s)
	}
}

func (u *Unit) Fail(err error) {
	u.Status = StatusFailed
	u.Errors++
	u.Error = err.Error()
}

// Accepted counts the blocks that became records.
func (u *Unit) Accepted() int {
	return u.Parsed - u.Rejected - u.Unparseable
}

// HasDrift reports whether any structural drift was detected.
func (u *Unit) HasDrift() bool {
	for _, w := range u.Warnings {
		if w.Kind == WarnStructuralDrift {
			return true
		}
	}
	return false
}

type Run struct {
	ID         string         `json:"id"`
	Source     string         `json:"source"`
	Trust      string         `json:"trust"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Units      []*Unit        `json:"units"`
	Buckets    map[string]int `json:"buckets"`
}

func NewRun(source string, trust school.Trust, startedAt time.Time) *Run {
	return &Run{
		ID:        uuid.NewString(),
		Source:    source,
		Trust:     trust.String(),
		StartedAt: startedAt.UTC(),
		Buckets:   make(map[string]int),
	}
}

// AddUnit starts a unit in the ok state.
func (r *Run) AddUnit(district, url string) *Unit {
	u := &Unit{District: district, URL: url, Status: StatusOK}
	r.Units = append(r.Units, u)
	return u
}

func (r *Run) Count(rec school.Record) {
	r.Buckets[rec.Bucket()]++
}

// Totals sums the counters of every unit.
func (r *Run) Totals() Unit {
	var t Unit
	for _, u := range r.Units {
		t.Parsed += u.Parsed
		t.Rejected += u.Rejected
		t.Unparseable += u.Unparseable
		t.Inserted += u.Inserted
		t.Updated += u.Updated
		t.Skipped += u.Skipped
		t.Errors += u.Errors
		t.Warnings = append(t.Warnings, u.Warnings...)
	}
	return t
}

func (r *Run) StatusCounts() map[Status]int {
	counts := make(map[Status]int)
	for _, u := range r.Units {
		counts[u.Status]++
	}
	return counts
}

func (r *Run) JSON() ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal run report: %w", err)
	}
	return data, nil
}

func Decode(data []byte) (*Run, error) {
	var r Run
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse run report: %w", err)
	}
	return &r, nil
}
