package main

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"schooldir/internal/report"
)

// BarChart creates a horizontal bar chart
func BarChart(label string, value, limit float64, width int, color lipgloss.Color) string {
	if limit == 0 {
		limit = value
	}

	percentage := 0.0
	if limit > 0 {
		percentage = math.Min(value/limit, 1)
	}

	filledWidth := int(float64(width) * percentage)
	if filledWidth < 0 {
		filledWidth = 0
	}

	filled := strings.Repeat("█", filledWidth)
	empty := strings.Repeat("░", width-filledWidth)

	barStyle := lipgloss.NewStyle().Foreground(color)
	emptyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	return fmt.Sprintf("%s %s%s %.0f",
		label,
		barStyle.Render(filled),
		emptyStyle.Render(empty),
		value,
	)
}

// InfoBox creates a styled info box with a value
func InfoBox(label string, value string, color lipgloss.Color) string {
	labelStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("240")).
		Width(12).
		Align(lipgloss.Left)

	valueStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(color).
		Width(8).
		Align(lipgloss.Right)

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Padding(0, 1)

	return boxStyle.Render(lipgloss.JoinHorizontal(
		lipgloss.Top,
		labelStyle.Render(label),
		valueStyle.Render(value),
	))
}

// BucketChart draws one bar per level/funding bucket, largest first
func BucketChart(buckets map[string]int, width int) string {
	if len(buckets) == 0 {
		return "No records accepted"
	}

	keys := make([]string, 0, len(buckets))
	labelWidth, top := 0, 0
	for k, v := range buckets {
		keys = append(keys, k)
		labelWidth = max(labelWidth, len(k))
		top = max(top, v)
	}
	sort.Slice(keys, func(i, j int) bool {
		if buckets[keys[i]] != buckets[keys[j]] {
			return buckets[keys[i]] > buckets[keys[j]]
		}
		return keys[i] < keys[j]
	})

	var b strings.Builder
	for _, k := range keys {
		label := k + strings.Repeat(" ", labelWidth-len(k))
		b.WriteString(BarChart(label, float64(buckets[k]), float64(top), width, lipgloss.Color("33")))
		b.WriteString("\n")
	}
	return b.String()
}

var statusColors = map[report.Status]lipgloss.Color{
	report.StatusOK:      lipgloss.Color("82"),
	report.StatusFailed:  lipgloss.Color("196"),
	report.StatusSkipped: lipgloss.Color("226"),
}

// StatusBar shows the share of ok, failed and skipped units in one bar
func StatusBar(counts map[report.Status]int, width int) string {
	total := 0
	for _, n := range counts {
		total += n
	}
	if total == 0 {
		return "No units"
	}

	var bar strings.Builder
	remaining := width
	order := []report.Status{report.StatusOK, report.StatusFailed, report.StatusSkipped}
	for i, status := range order {
		segWidth := int(math.Round(float64(counts[status]) / float64(total) * float64(width)))

		// Last segment fills what rounding left over
		if i == len(order)-1 {
			segWidth = remaining
		}
		if segWidth > remaining {
			segWidth = remaining
		}

		style := lipgloss.NewStyle().Foreground(statusColors[status])
		bar.WriteString(style.Render(strings.Repeat("█", segWidth)))
		remaining -= segWidth
	}

	return fmt.Sprintf("%s  ok %d | failed %d | skipped %d",
		bar.String(), counts[report.StatusOK], counts[report.StatusFailed], counts[report.StatusSkipped])
}
