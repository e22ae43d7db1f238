// Package exporter renders statistics as downloadable CSV and plain text
// reports.
package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spec-kit/helpdesk-stats/internal/domain"
	"github.com/spec-kit/helpdesk-stats/internal/service"
)

const timestampLayout = "2006-01-02 15:04:05"

var ageHeaders = []string{"Age <24h", "Age 24-48h", "Age 48-72h", "Age 72-96h", "Age >96h"}

func ageCells(h domain.AgeHistogram) []string {
	cells := make([]string, 0, len(domain.AgeBuckets))
	for _, r := range domain.AgeBuckets {
		cells = append(cells, strconv.Itoa(h.Count(r.Bucket)))
	}
	return cells
}

// Filename builds "<base>_YYYYMMDD_HHMMSS.<ext>".
func Filename(base, ext string, at time.Time) string {
	return fmt.Sprintf("%s_%s.%s", base, at.Format("20060102_150405"), ext)
}

// WriteExecutionLogs writes one CSV row per ledger run. Timestamps are
// rendered in loc.
func WriteExecutionLogs(w io.Writer, logs []domain.ExecutionLogEntry, loc *time.Location) error {
	cw := csv.NewWriter(w)
	header := []string{"Execution Time", "Statistic Date", "Opening Balance", "New Tickets", "Resolved Tickets", "Closing Balance"}
	header = append(header, ageHeaders...)
	header = append(header, "Total Open", "Status", "Error Message")
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, entry := range logs {
		message := ""
		if entry.Error != nil {
			message = *entry.Error
		}
		record := []string{
			entry.ExecutedAt.In(loc).Format(timestampLayout),
			domain.FormatDay(entry.Date),
			strconv.Itoa(entry.Opening),
			strconv.Itoa(entry.New),
			strconv.Itoa(entry.Resolved),
			strconv.Itoa(entry.Closing),
		}
		record = append(record, ageCells(entry.Ages)...)
		record = append(record, strconv.Itoa(entry.OpenTotal), string(entry.Status), message)
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteOwnerBreakdown writes the per-owner summary and, for day, week and
// month reports, a second table with one row per period separated by an
// empty line.
func WriteOwnerBreakdown(w io.Writer, report *service.OwnerBreakdown) error {
	cw := csv.NewWriter(w)
	header := append([]string{"Owner", "Total", "Open"}, ageHeaders...)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, owner := range report.Owners {
		record := []string{owner, strconv.Itoa(report.Totals[owner]), strconv.Itoa(report.Open[owner])}
		record = append(record, ageCells(report.AgeDistribution[owner])...)
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	if report.Period != domain.PeriodTotal {
		if err := cw.Write([]string{}); err != nil {
			return err
		}
		header := append([]string{"Period"}, report.Owners...)
		header = append(header, "Total")
		if err := cw.Write(header); err != nil {
			return err
		}
		for _, group := range report.Groups {
			record := []string{group.Key}
			for _, owner := range report.Owners {
				record = append(record, strconv.Itoa(group.Counts[owner]))
			}
			record = append(record, strconv.Itoa(group.Total))
			if err := cw.Write(record); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteOverviewText renders the overview as a sectioned plain-text report.
// Daily rows are newest first; distributions are sorted by name.
func WriteOverviewText(w io.Writer, overview *domain.Overview, generatedAt time.Time) error {
	var b strings.Builder
	rule := strings.Repeat("=", 60)
	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "HELPDESK TICKET STATISTICS REPORT")
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "Generated: %s\n\n", generatedAt.Format(timestampLayout))

	section(&b, "SUMMARY")
	fmt.Fprintf(&b, "Total Records: %d\n", overview.TotalRecords)
	fmt.Fprintf(&b, "Current Open Tickets: %d\n", overview.OpenCount)
	fmt.Fprintf(&b, "Empty FirstResponse: %d\n\n", overview.EmptyFirstResponseCount)

	days := make(map[string]struct{}, len(overview.DailyNew)+len(overview.DailyClosed))
	for day := range overview.DailyNew {
		days[day] = struct{}{}
	}
	for day := range overview.DailyClosed {
		days[day] = struct{}{}
	}
	if len(days) > 0 {
		ordered := make([]string, 0, len(days))
		for day := range days {
			ordered = append(ordered, day)
		}
		sort.Sort(sort.Reverse(sort.StringSlice(ordered)))
		section(&b, "DAILY STATISTICS")
		for _, day := range ordered {
			fmt.Fprintf(&b, "%s: New=%d, Closed=%d, Open=%d\n", day, overview.DailyNew[day], overview.DailyClosed[day], overview.DailyOpen[day])
		}
		b.WriteByte('\n')
	}

	distribution(&b, "PRIORITY DISTRIBUTION", overview.PriorityDistribution)
	distribution(&b, "STATE DISTRIBUTION", overview.StateDistribution)

	_, err := io.WriteString(w, b.String())
	return err
}

func section(b *strings.Builder, title string) {
	fmt.Fprintln(b, title)
	fmt.Fprintln(b, strings.Repeat("-", 40))
}

func distribution(b *strings.Builder, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	section(b, title)
	for _, k := range keys {
		fmt.Fprintf(b, "%s: %d\n", k, counts[k])
	}
	b.WriteByte('\n')
}
