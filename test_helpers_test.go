package main

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"schooldir/internal/report"
	"schooldir/internal/school"
	"schooldir/internal/store"
)

var seededAt = time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC)

// SetupTestStore opens an in-memory store seeded with three schools and one
// ingestion run.
func SetupTestStore(t *testing.T) (*store.Store, func()) {
	t.Helper()

	st, err := store.Open(store.DriverDuckDB, "", nil)
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}

	ctx := context.Background()
	for _, s := range []*store.School{
		MockSchool("CENTRAL SECONDARY SCHOOL", "Central & Western", "secondary", "government"),
		MockSchool("HARBOUR KINDERGARTEN", "Wan Chai", "kindergarten", "private"),
		MockSchool("RIVERSIDE PRIMARY SCHOOL", "Sha Tin", "primary", "aided"),
	} {
		if _, err := st.InsertSchool(ctx, s); err != nil {
			t.Fatalf("failed to seed %s: %v", s.Name, err)
		}
	}

	run := MockRun()
	data, err := run.JSON()
	if err != nil {
		t.Fatalf("failed to encode run: %v", err)
	}
	if err := st.SaveRun(ctx, store.RunRecord{
		ID:         run.ID,
		Source:     run.Source,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Report:     string(data),
	}); err != nil {
		t.Fatalf("failed to seed run: %v", err)
	}

	cleanup := func() {
		st.Close()
	}

	return st, cleanup
}

// MockSchool creates a store.School row for testing
func MockSchool(name, district, level, funding string) *store.School {
	return &store.School{
		Name:        name,
		Region:      store.NullString("Hong Kong"),
		Country:     store.NullString("China"),
		City:        store.NullString("Hong Kong"),
		District:    store.NullString(district),
		Level:       store.NullString(level),
		FinanceType: store.NullString(funding),
		Gender:      store.NullString("coed"),
		Address:     store.NullString("1 TEST ROAD"),
		Phone:       store.NullString("26001234"),
		SchoolCode:  store.NullString("100001 / 1"),
		Source:      store.NullString("edb"),
		SourceTrust: sql.NullInt64{Int64: int64(school.TrustRegistry), Valid: true},
		CreatedAt:   seededAt,
		UpdatedAt:   seededAt,
	}
}

// MockRun creates a finished run with one ok and one failed unit
func MockRun() *report.Run {
	run := report.NewRun("edb", school.TrustRegistry, seededAt)
	ok := run.AddUnit("Sha Tin", "https://example.test/school-list-st.html")
	ok.Parsed, ok.Inserted = 3, 3
	run.Buckets["primary/aided"] = 2
	run.Buckets["secondary/government"] = 1
	failed := run.AddUnit("Islands", "https://example.test/school-list-is.html")
	failed.Fail(errors.New("HTTP 503 fetching https://example.test/school-list-is.html"))
	run.FinishedAt = seededAt.Add(2 * time.Second)
	return run
}
