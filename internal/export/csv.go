// Package export renders payroll projections for spreadsheets.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/kurihiro0119/worktime-metrics/internal/payroll"
)

var payrollHeader = []string{"Name", "Email", "Hours", "Rate", "Total", "Status"}

// WritePayrollCSV writes one row per payroll line
func WritePayrollCSV(w io.Writer, lines []*payroll.Line) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(payrollHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, line := range lines {
		if line == nil || line.Member == nil || line.Result == nil {
			continue
		}
		row := []string{
			line.Member.Name,
			line.Member.Email,
			payroll.FormatHours(line.Result.TotalHours),
			payroll.FormatMoney(line.Result.HourlyRate),
			payroll.FormatMoney(line.Result.TotalPayment),
			line.Result.Status(),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row for %s: %w", line.Member.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
