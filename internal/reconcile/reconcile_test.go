package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"schooldir/internal/school"
	"schooldir/internal/store"
)

type fakeLookup struct {
	rows []store.School
	err  error
}

func (f *fakeLookup) SchoolsByName(_ context.Context, key string) ([]store.School, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []store.School
	for _, r := range f.rows {
		if school.NormalizeKey(r.Name) == key {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeLookup) SchoolsByCode(_ context.Context, code string) ([]store.School, error) {
	var out []store.School
	for _, r := range f.rows {
		if r.SchoolCode.String == code {
			out = append(out, r)
		}
	}
	return out, nil
}

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func row(id int64, name, district, level string, updated time.Time) store.School {
	return store.School{
		ID:        id,
		Name:      name,
		District:  store.NullString(district),
		Level:     store.NullString(level),
		UpdatedAt: updated,
	}
}

func record(name, district string, level school.Level) school.Record {
	return school.Record{
		Identity: school.Identity{Name: name, District: district},
		Level:    level,
	}
}

func TestReconcile(t *testing.T) {
	coded := row(7, "OLD NAME COLLEGE", "Wan Chai", "secondary", t0)
	coded.SchoolCode = store.NullString("123456 / 1")

	lookup := &fakeLookup{rows: []store.School{
		row(1, "CENTRAL SECONDARY SCHOOL", "Central & Western", "secondary", t0),
		row(2, "Riverside Primary School", "", "primary", t0),
		row(3, "TWIN SCHOOL", "Sha Tin", "primary", t0),
		row(4, "TWIN SCHOOL", "sha  tin", "primary", t0.Add(time.Hour)),
		row(5, "TIE SCHOOL", "Tai Po", "primary", t0),
		row(6, "TIE SCHOOL", "Tai Po", "primary", t0),
		coded,
	}}

	testCases := []struct {
		name       string
		rec        school.Record
		action     Action
		id         int64
		match      string
		candidates int
	}{
		{"name and district", record("central  secondary school", "CENTRAL & WESTERN", school.Secondary), Update, 1, "name_district", 1},
		{"different district is a new school", record("CENTRAL SECONDARY SCHOOL", "Sha Tin", school.Secondary), Insert, 0, "", 0},
		{"name and level against districtless row", record("RIVERSIDE PRIMARY SCHOOL", "Southern", school.Primary), Update, 2, "name_level", 1},
		{"unknown district matches by level", record("CENTRAL SECONDARY SCHOOL", "", school.Secondary), Update, 1, "name_level", 1},
		{"level mismatch", record("RIVERSIDE PRIMARY SCHOOL", "", school.Secondary), Insert, 0, "", 0},
		{"most recently updated wins", record("TWIN SCHOOL", "Sha Tin", school.Primary), Update, 4, "name_district", 2},
		{"tie broken by lowest id", record("TIE SCHOOL", "Tai Po", school.Primary), Update, 5, "name_district", 2},
		{"new school", record("NEW SCHOOL", "Tai Po", school.Primary), Insert, 0, "", 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := Reconciler{}.Reconcile(context.Background(), lookup, tc.rec)
			require.NoError(t, err)
			require.Equal(t, tc.action, d.Action)
			require.Equal(t, tc.id, d.ExistingID())
			require.Equal(t, tc.match, d.Match)
			require.Equal(t, tc.candidates, d.Candidates)
			require.Equal(t, tc.candidates > 1, d.Ambiguous())
		})
	}

	t.Run("external code", func(t *testing.T) {
		rec := record("QUEEN'S COLLEGE", "Wan Chai", school.Secondary)
		rec.ExternalCode = "123456 / 1"
		d, err := Reconciler{}.Reconcile(context.Background(), lookup, rec)
		require.NoError(t, err)
		require.Equal(t, Update, d.Action)
		require.Equal(t, int64(7), d.ExistingID())
		require.Equal(t, ConfidenceCode, d.Confidence)
	})
}

func TestReconcileKeepsSitesApart(t *testing.T) {
	site := func(id int64, code string) store.School {
		r := row(id, "SUNSHINE KINDERGARTEN", "Yuen Long", "kindergarten", t0)
		r.SchoolCode = store.NullString(code)
		return r
	}
	uncoded := row(3, "MOONLIGHT KINDERGARTEN", "Yuen Long", "kindergarten", t0)
	lookup := &fakeLookup{rows: []store.School{site(1, "500001 / 1"), site(2, "500001 / 2"), uncoded}}

	testCases := []struct {
		name   string
		school string
		code   string
		action Action
		id     int64
		match  string
	}{
		{"same site", "SUNSHINE KINDERGARTEN", "500001 / 2", Update, 2, "name_district"},
		{"new site of a known school", "SUNSHINE KINDERGARTEN", "500001 / 3", Insert, 0, ""},
		{"no code matches any site", "SUNSHINE KINDERGARTEN", "", Update, 1, "name_district"},
		{"row without a code takes the code", "MOONLIGHT KINDERGARTEN", "500002 / 1", Update, 3, "name_district"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := record(tc.school, "Yuen Long", school.Kindergarten)
			rec.ExternalCode = tc.code
			d, err := Reconciler{}.Reconcile(context.Background(), lookup, rec)
			require.NoError(t, err)
			require.Equal(t, tc.action, d.Action)
			require.Equal(t, tc.id, d.ExistingID())
			require.Equal(t, tc.match, d.Match)
		})
	}
}

func TestReconcileLookupError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Reconciler{}.Reconcile(context.Background(), &fakeLookup{err: boom}, record("X SCHOOL", "", school.Primary))
	require.ErrorIs(t, err, boom)
}
