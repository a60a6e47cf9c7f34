// Package export renders weekly logs as spreadsheets.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"activitylog/internal/domain/duration"
	"activitylog/internal/domain/week"
	"activitylog/internal/domain/weeklylog"
)

// SheetName is the single worksheet of an export.
const SheetName = "Weekly Logs"

// ContentType is the MIME type of WriteXLSX output.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Header is the column row written at the top of the sheet.
var Header = []any{"Client", "Log Type", "Week", "Date", "Start", "End", "Minutes", "Duration", "Description", "Notes"}

// WeeklyLogsWorkbook builds a workbook with one section per weekly log: a title row,
// one row per activity and a subtotal row. owners maps owner IDs to display names;
// unknown owners are written by ID.
// POST: caller owns the returned file and must Close it
func WeeklyLogsWorkbook(logs []weeklylog.WeeklyLog, owners map[string]string) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		f.Close()
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, err
	}

	row := 1
	if err := writeRow(f, row, Header, bold); err != nil {
		f.Close()
		return nil, err
	}
	row += 2

	for _, log := range logs {
		title := []any{fmt.Sprintf("%s: %s", log.LogType, log.Label)}
		if err := writeRow(f, row, title, bold); err != nil {
			f.Close()
			return nil, err
		}
		row++

		for _, a := range log.Activities {
			owner := owners[a.OwnerID]
			if owner == "" {
				owner = a.OwnerID
			}
			values := []any{
				owner,
				string(a.LogType),
				week.FormatDate(log.WeekStart),
				week.FormatDate(a.Date),
				a.StartTime,
				a.EndTime,
				a.Minutes(),
				duration.Format(a.Minutes()),
				a.Description,
				a.Notes,
			}
			if err := writeRow(f, row, values, 0); err != nil {
				f.Close()
				return nil, err
			}
			row++
		}

		total := []any{"", "", "", "", "", "Total", log.TotalDurationMinutes, log.TotalFormatted}
		if err := writeRow(f, row, total, bold); err != nil {
			f.Close()
			return nil, err
		}
		row += 2
	}

	for col, width := range map[string]float64{"A": 24, "B": 22, "I": 48, "J": 48} {
		if err := f.SetColWidth(SheetName, col, col, width); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

// WriteXLSX streams the workbook for logs to w.
func WriteXLSX(w io.Writer, logs []weeklylog.WeeklyLog, owners map[string]string) error {
	f, err := WeeklyLogsWorkbook(logs, owners)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

func writeRow(f *excelize.File, row int, values []any, style int) error {
	start, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(SheetName, start, &values); err != nil {
		return err
	}
	if style == 0 {
		return nil
	}
	end, err := excelize.CoordinatesToCellName(len(values), row)
	if err != nil {
		return err
	}
	return f.SetCellStyle(SheetName, start, end, style)
}
