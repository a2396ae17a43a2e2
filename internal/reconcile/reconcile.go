// Package reconcile decides whether a parsed record is new or names a school
// already in the store.
package reconcile

import (
	"context"
	"fmt"
	"sort"

	"schooldir/internal/school"
	"schooldir/internal/store"
)

type Action int

const (
	Insert Action = iota + 1
	Update
)

func (a Action) String() string {
	switch a {
	case Insert:
		return "insert"
	case Update:
		return "update"
	default:
		return "unknown"
	}
}

// Confidence of each matching tier.
const (
	ConfidenceNameDistrict = 1.0
	ConfidenceNameLevel    = 0.8
	ConfidenceCode         = 0.6
)

type Decision struct {
	Action     Action
	Existing   *store.School
	Match      string
	Confidence float64
	// Candidates is the number of rows the winning tier matched.
	Candidates int
}

func (d Decision) ExistingID() int64 {
	if d.Existing == nil {
		return 0
	}
	return d.Existing.ID
}

// Ambiguous reports whether the match had to pick between several rows.
func (d Decision) Ambiguous() bool {
	return d.Candidates > 1
}

// Lookup is the read surface the reconciler needs. *store.Queries
// satisfies it.
type Lookup interface {
	SchoolsByName(ctx context.Context, key string) ([]store.School, error)
	SchoolsByCode(ctx context.Context, code string) ([]store.School, error)
}

type Reconciler struct{}

// Reconcile finds the row a record refers to, trying the most specific
// identity first. Names and districts compare case-folded with collapsed
// whitespace; nothing fuzzier. A record carrying a school code never
// matches a row holding a different code: sites of one school share a name
// and district but not a location id.
func (Reconciler) Reconcile(ctx context.Context, lookup Lookup, rec school.Record) (Decision, error) {
	named, err := lookup.SchoolsByName(ctx, school.NormalizeKey(rec.Name))
	if err != nil {
		return Decision{}, fmt.Errorf("failed to look up %q: %w", rec.Name, err)
	}
	if rec.ExternalCode != "" {
		named = filter(named, func(s store.School) bool {
			return s.SchoolCode.String == "" || s.SchoolCode.String == rec.ExternalCode
		})
	}

	district := school.NormalizeKey(rec.District)
	if district != "" {
		if m := filter(named, func(s store.School) bool {
			return school.NormalizeKey(s.District.String) == district
		}); len(m) > 0 {
			return pick(m, "name_district", ConfidenceNameDistrict), nil
		}
	}

	level := string(rec.Level)
	if m := filter(named, func(s store.School) bool {
		if s.Level.String != level {
			return false
		}
		return district == "" || school.NormalizeKey(s.District.String) == ""
	}); len(m) > 0 {
		return pick(m, "name_level", ConfidenceNameLevel), nil
	}

	if rec.ExternalCode != "" {
		coded, err := lookup.SchoolsByCode(ctx, rec.ExternalCode)
		if err != nil {
			return Decision{}, fmt.Errorf("failed to look up code %q: %w", rec.ExternalCode, err)
		}
		if len(coded) > 0 {
			return pick(coded, "school_code", ConfidenceCode), nil
		}
	}

	return Decision{Action: Insert}, nil
}

func filter(rows []store.School, keep func(store.School) bool) []store.School {
	var out []store.School
	for _, r := range rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// pick prefers the most recently updated row, then the lowest id.
func pick(rows []store.School, match string, confidence float64) Decision {
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].UpdatedAt.Equal(rows[j].UpdatedAt) {
			return rows[i].UpdatedAt.After(rows[j].UpdatedAt)
		}
		return rows[i].ID < rows[j].ID
	})
	best := rows[0]
	return Decision{
		Action:     Update,
		Existing:   &best,
		Match:      match,
		Confidence: confidence,
		Candidates: len(rows),
	}
}
