package main

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/kurihiro0119/worktime-metrics/internal/domain"
	"github.com/kurihiro0119/worktime-metrics/internal/payroll"
)

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatHours(ms int64) string {
	return formatHoursFloat(float64(ms) / domain.MsPerHour)
}

func formatHoursFloat(h float64) string {
	return payroll.FormatHours(h)
}

func formatMoney(amount float64) string {
	return payroll.FormatMoney(amount)
}

func periodHeader(w io.Writer, title string, p domain.Period) {
	fmt.Fprintf(w, "\n%s\n", title)
	fmt.Fprintf(w, "Period: %s (%s to %s)\n\n", p.Selector, p.Start.Format("2006-01-02"), p.End.Format("2006-01-02"))
}

func renderMembers(w io.Writer, members []*domain.Member) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Name", "Email", "Hourly Rate"})
	for _, m := range members {
		table.Append([]string{m.ID, m.Name, m.Email, formatMoney(m.HourlyRate)})
	}
	table.Render()
}

func renderSummary(w io.Writer, s *domain.MemberSummary) {
	periodHeader(w, "Summary: "+s.OwnerID, s.Period)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Metric", "Value"})
	table.Append([]string{"Total Hours", formatHours(s.Summary.TotalDurationMs)})
	for _, c := range domain.KnownCategories() {
		table.Append([]string{string(c) + " Hours", formatHours(s.Summary.ByCategory[c])})
	}
	for _, c := range slices.Sorted(maps.Keys(s.Summary.ByCategory)) {
		if !c.IsKnown() {
			table.Append([]string{string(c) + " Hours", formatHours(s.Summary.ByCategory[c])})
		}
	}
	table.Append([]string{"Productivity Score", strconv.Itoa(s.Summary.ProductivityScore)})
	table.Append([]string{"Records", strconv.Itoa(s.Summary.RecordCount)})
	if s.Summary.MalformedCount > 0 {
		table.Append([]string{"Malformed Records", strconv.Itoa(s.Summary.MalformedCount)})
	}
	table.Render()
}

func renderDaily(w io.Writer, report *domain.DailyReport) {
	periodHeader(w, "Daily Breakdown: "+report.OwnerID, report.Period)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Date", "Hours", "Productive", "Neutral", "Unproductive", "Inactive", "Score"})
	for _, d := range report.Days {
		s := d.Summary
		table.Append([]string{
			d.Date,
			formatHours(s.TotalDurationMs),
			formatHours(s.ByCategory[domain.CategoryProductive]),
			formatHours(s.ByCategory[domain.CategoryNeutral]),
			formatHours(s.ByCategory[domain.CategoryUnproductive]),
			formatHours(s.ByCategory[domain.CategoryInactive]),
			strconv.Itoa(s.ProductivityScore),
		})
	}
	table.Render()
	if report.MalformedCount > 0 {
		fmt.Fprintf(w, "%d record(s) without a usable start time were skipped\n", report.MalformedCount)
	}
}

func renderPayroll(w io.Writer, lines []*payroll.Line) {
	if len(lines) > 0 {
		r := lines[0].Result
		fmt.Fprintf(w, "\nPayroll: %s (%s to %s)\n\n", r.PeriodID, r.Start.Format("2006-01-02"), r.End.Format("2006-01-02"))
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Member", "Hours", "Rate", "Total", "Outstanding", "Status"})
	for _, l := range lines {
		table.Append([]string{
			l.Member.Name,
			formatHoursFloat(l.Result.TotalHours),
			formatMoney(l.Result.HourlyRate),
			formatMoney(l.Result.TotalPayment),
			formatMoney(l.Result.OutstandingPayment),
			l.Result.Status(),
		})
	}
	table.Render()
}
