// Package export renders attendance data as spreadsheets.
package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"attendance/models"
)

var ErrNoData = errors.New("no data to export")

const (
	AttendanceSheet = "All Attendance Logs"
	LeaveSheet      = "All Leave Records"
	DailySheet      = "Attendance"

	NoLeavesNote = "No Leaves Recorded"
)

type column struct {
	title string
	width float64
}

var attendanceColumns = []column{
	{"Date", 15},
	{"Time", 15},
	{"Employee ID", 15},
	{"Employee Name", 25},
	{"Action", 20},
	{"Details", 30},
}

var leaveColumns = []column{
	{"Employee ID", 15},
	{"Employee Name", 25},
	{"From", 15},
	{"To", 15},
	{"Reason", 30},
	{"Applied On", 15},
	{"Status", 12},
}

var dailyColumns = []column{
	{"Date", 12},
	{"Employee ID", 12},
	{"Name", 25},
	{"Clock In", 12},
	{"Clock Out", 12},
	{"Total Hours", 12},
	{"Tea Break", 10},
	{"Lunch Break", 12},
	{"Evening Break", 14},
	{"Breather", 10},
	{"Breather Overruns", 18},
	{"Notes", 40},
}

// Workbook renders the consolidated report: every attendance log entry on
// one sheet and every leave on another. It returns ErrNoData when both are
// empty.
func Workbook(entries []models.AttendanceLogEntry, leaves []models.LeaveLogEntry) (*bytes.Buffer, error) {
	if len(entries) == 0 && len(leaves) == 0 {
		return nil, ErrNoData
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", AttendanceSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(LeaveSheet); err != nil {
		return nil, err
	}

	rows := make([][]any, len(entries))
	for i, e := range entries {
		rows[i] = []any{e.Date, e.Time, e.EmployeeID, e.EmployeeName, string(e.Action), e.Details}
	}
	if err := writeSheet(f, AttendanceSheet, attendanceColumns, rows); err != nil {
		return nil, err
	}

	if len(leaves) == 0 {
		if err := writeSheet(f, LeaveSheet, []column{{"Note", 25}}, [][]any{{NoLeavesNote}}); err != nil {
			return nil, err
		}
	} else {
		rows = make([][]any, len(leaves))
		for i, lv := range leaves {
			rows[i] = []any{lv.EmployeeID, lv.EmployeeName, lv.From, lv.To, lv.Reason, lv.AppliedOn, string(lv.Status)}
		}
		if err := writeSheet(f, LeaveSheet, leaveColumns, rows); err != nil {
			return nil, err
		}
	}

	return write(f)
}

// DailyWorkbook renders one day's records with the break totals in minutes.
func DailyWorkbook(records []models.AttendanceRecord) (*bytes.Buffer, error) {
	if len(records) == 0 {
		return nil, ErrNoData
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", DailySheet); err != nil {
		return nil, err
	}
	rows := make([][]any, len(records))
	for i := range records {
		rows[i] = dailyRow(&records[i])
	}
	if err := writeSheet(f, DailySheet, dailyColumns, rows); err != nil {
		return nil, err
	}
	return write(f)
}

// WriteDailyCSV writes the same columns as DailyWorkbook.
func WriteDailyCSV(w io.Writer, records []models.AttendanceRecord) error {
	if len(records) == 0 {
		return ErrNoData
	}

	writer := csv.NewWriter(w)
	header := make([]string, len(dailyColumns))
	for i, c := range dailyColumns {
		header[i] = c.title
	}
	writer.Write(header)

	for i := range records {
		row := dailyRow(&records[i])
		out := make([]string, len(row))
		for j, v := range row {
			switch v := v.(type) {
			case int:
				out[j] = strconv.Itoa(v)
			default:
				out[j] = fmt.Sprint(v)
			}
		}
		writer.Write(out)
	}
	writer.Flush()
	return writer.Error()
}

// ReportFilename names the consolidated report for dateKey.
func ReportFilename(org, dateKey string) string {
	return fmt.Sprintf("%s_Attendance_Report_All_%s.xlsx", fileSafe(org), dateKey)
}

// DailyFilename names a daily export; ext is "xlsx" or "csv".
func DailyFilename(org, dateKey, ext string) string {
	return fmt.Sprintf("%s_Attendance_%s.%s", fileSafe(org), dateKey, ext)
}

func dailyRow(r *models.AttendanceRecord) []any {
	return []any{
		r.Date,
		r.EmployeeID,
		r.EmployeeName,
		r.ClockIn,
		r.ClockOut,
		r.TotalHours,
		r.TeaMinutes,
		r.LunchMinutes,
		r.EveningMinutes,
		r.BreatherMinutes,
		r.BreatherOverruns,
		r.Notes,
	}
}

func writeSheet(f *excelize.File, sheet string, columns []column, rows [][]any) error {
	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c.title
		name := colName(i)
		if err := f.SetColWidth(sheet, name, name, c.width); err != nil {
			return err
		}
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(columns), 1)
	if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
		return err
	}

	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func write(f *excelize.File) (*bytes.Buffer, error) {
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf, nil
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

// fileSafe keeps ASCII letters, digits, dots and dashes; everything else
// becomes an underscore.
func fileSafe(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			return r
		}
		return '_'
	}, strings.TrimSpace(s))
	if s == "" {
		return "export"
	}
	return s
}
