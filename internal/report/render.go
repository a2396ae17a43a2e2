package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Table writes the per-unit counters and bucket totals as terminal tables.
func Table(w io.Writer, r *Run) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(fmt.Sprintf("%s run %s", r.Source, r.ID))
	t.AppendHeader(table.Row{"District", "Status", "Parsed", "Rejected", "Unparseable", "Inserted", "Updated", "Skipped", "Errors", "Warnings"})
	for _, u := range r.Units {
		t.AppendRow(table.Row{
			unitName(u), u.Status, u.Parsed, u.Rejected, u.Unparseable,
			u.Inserted, u.Updated, u.Skipped, u.Errors, len(u.Warnings),
		})
	}
	tot := r.Totals()
	t.AppendFooter(table.Row{
		"Total", "", tot.Parsed, tot.Rejected, tot.Unparseable,
		tot.Inserted, tot.Updated, tot.Skipped, tot.Errors, len(tot.Warnings),
	})
	t.SetStyle(table.StyleRounded)
	t.Render()

	if len(r.Buckets) == 0 {
		return
	}
	b := table.NewWriter()
	b.SetOutputMirror(w)
	b.AppendHeader(table.Row{"Level/Funding", "Records"})
	for _, k := range sortedKeys(r.Buckets) {
		b.AppendRow(table.Row{k, r.Buckets[k]})
	}
	b.SetStyle(table.StyleRounded)
	b.Render()
}

// Markdown renders the run for glamour.
func Markdown(r *Run) string {
	var sb strings.Builder
	tot := r.Totals()

	fmt.Fprintf(&sb, "# Ingest run `%s`\n\n", r.ID)
	fmt.Fprintf(&sb, "- **Source:** %s (%s)\n", r.Source, r.Trust)
	fmt.Fprintf(&sb, "- **Started:** %s\n", r.StartedAt.Format("2006-01-02 15:04:05 MST"))
	if !r.FinishedAt.IsZero() {
		fmt.Fprintf(&sb, "- **Duration:** %s\n", r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	}
	fmt.Fprintf(&sb, "- **Totals:** %d parsed, %d inserted, %d updated, %d skipped, %d rejected, %d errors\n\n",
		tot.Parsed, tot.Inserted, tot.Updated, tot.Skipped, tot.Rejected+tot.Unparseable, tot.Errors)

	sb.WriteString("## Units\n\n")
	sb.WriteString("| District | Status | Parsed | Inserted | Updated | Skipped | Rejected | Errors |\n")
	sb.WriteString("|---|---|---:|---:|---:|---:|---:|---:|\n")
	for _, u := range r.Units {
		fmt.Fprintf(&sb, "| %s | %s | %d | %d | %d | %d | %d | %d |\n",
			unitName(u), u.Status, u.Parsed, u.Inserted, u.Updated, u.Skipped, u.Rejected+u.Unparseable, u.Errors)
	}

	if len(r.Buckets) > 0 {
		sb.WriteString("\n## Buckets\n\n| Level/Funding | Records |\n|---|---:|\n")
		for _, k := range sortedKeys(r.Buckets) {
			fmt.Fprintf(&sb, "| %s | %d |\n", k, r.Buckets[k])
		}
	}

	var issues strings.Builder
	for _, u := range r.Units {
		if u.Error != "" {
			fmt.Fprintf(&issues, "- **%s** failed: %s\n", unitName(u), u.Error)
		}
		for _, w := range u.Warnings {
			fmt.Fprintf(&issues, "- **%s** `%s`: %s\n", unitName(u), w.Kind, w.Message)
		}
	}
	if issues.Len() > 0 {
		sb.WriteString("\n## Warnings\n\n")
		sb.WriteString(issues.String())
	}

	var samples strings.Builder
	for _, u := range r.Units {
		for _, s := range u.Samples {
			fmt.Fprintf(&samples, "- **%s** `%s` at offset %d", unitName(u), s.Reason, s.Offset)
			if s.Name != "" {
				fmt.Fprintf(&samples, " (%s)", s.Name)
			}
			fmt.Fprintf(&samples, ": `%s`\n", strings.ReplaceAll(s.Excerpt, "`", "'"))
		}
	}
	if samples.Len() > 0 {
		sb.WriteString("\n## Samples for review\n\n")
		sb.WriteString(samples.String())
	}

	return sb.String()
}

func unitName(u *Unit) string {
	if u.District != "" {
		return u.District
	}
	return u.URL
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
