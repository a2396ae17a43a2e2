package report

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"schooldir/internal/school"
)

func sampleRun() *Run {
	start := time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC)
	r := NewRun("edb", school.TrustRegistry, start)

	u := r.AddUnit("Wan Chai", "https://example.test/wch")
	u.Parsed = 4
	u.Rejected = 1
	u.Unparseable = 1
	u.Inserted = 2
	u.AddSample(Sample{Reason: "non_school", Name: "WAN CHAI TUTORIAL CENTRE", Offset: 120, Excerpt: "<td>`x`</td>"})
	r.Count(school.Record{Level: school.Secondary, Funding: school.Government})
	r.Count(school.Record{Level: school.Primary, Funding: school.Aided})

	f := r.AddUnit("Sha Tin", "https://example.test/st")
	f.Fail(errors.New("fetch https://example.test/st: unexpected status 503"))

	s := r.AddUnit("Tai Po", "https://example.test/tp")
	s.Status = StatusSkipped
	s.Warn(WarnStructuralDrift, "no blocks found on %s", s.URL)

	r.FinishedAt = start.Add(90 * time.Second)
	return r
}

func TestUnitCounters(t *testing.T) {
	r := sampleRun()
	require.Equal(t, 2, r.Units[0].Accepted())
	require.Equal(t, StatusFailed, r.Units[1].Status)
	require.Equal(t, 1, r.Units[1].Errors)
	require.True(t, r.Units[2].HasDrift())
	require.False(t, r.Units[0].HasDrift())

	tot := r.Totals()
	require.Equal(t, 4, tot.Parsed)
	require.Equal(t, 2, tot.Inserted)
	require.Equal(t, 1, tot.Errors)
	require.Len(t, tot.Warnings, 1)

	require.Equal(t, map[Status]int{StatusOK: 1, StatusFailed: 1, StatusSkipped: 1}, r.StatusCounts())
	require.Equal(t, map[string]int{"secondary/government": 1, "primary/aided": 1}, r.Buckets)
}

func TestSamplesAreCapped(t *testing.T) {
	u := &Unit{}
	for i := 0; i < MaxSamples+3; i++ {
		u.AddSample(Sample{Reason: "missing_name", Offset: i})
	}
	require.Len(t, u.Samples, MaxSamples)
	require.Equal(t, 0, u.Samples[0].Offset)
}

func TestJSON(t *testing.T) {
	r := sampleRun()
	data, err := r.JSON()
	require.NoError(t, err)
	require.Contains(t, string(data), `"status": "skipped"`)

	back, err := Decode(data)
	require.NoError(t, err)
	require.Equal(t, r.ID, back.ID)
	require.Len(t, back.Units, 3)
	require.Equal(t, "WAN CHAI TUTORIAL CENTRE", back.Units[0].Samples[0].Name)

	_, err = Decode([]byte("{"))
	require.Error(t, err)
}

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	Table(&buf, sampleRun())
	out := buf.String()
	for _, want := range []string{"Wan Chai", "failed", "Total", "secondary/government"} {
		require.True(t, strings.Contains(out, want), "table missing %q:\n%s", want, out)
	}
}

func TestMarkdown(t *testing.T) {
	md := Markdown(sampleRun())
	testCases := []string{
		"# Ingest run",
		"| Wan Chai | ok | 4 | 2 | 0 | 0 | 2 | 0 |",
		"**Sha Tin** failed",
		"`structural_drift`",
		"## Samples for review",
		"(WAN CHAI TUTORIAL CENTRE): `<td>'x'</td>`",
		"| primary/aided | 1 |",
		fmt.Sprintf("- **Duration:** %s", 90*time.Second),
	}
	for _, want := range testCases {
		t.Run(want, func(t *testing.T) {
			require.Contains(t, md, want)
		})
	}
}
