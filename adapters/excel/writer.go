package excel

import (
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"ndsphere/internal/sweep"

	"github.com/xuri/excelize/v2"
)

// SweepWriter exports sweep results as an .xlsx workbook or a .csv table
type SweepWriter struct {
	filePath string
	fileType string // "xlsx" or "csv"
}

// NewSweepWriter picks the format from the file extension
func NewSweepWriter(filePath string) *SweepWriter {
	fileType := "xlsx"
	if strings.ToLower(filepath.Ext(filePath)) == ".csv" {
		fileType = "csv"
	}
	return &SweepWriter{filePath: filePath, fileType: fileType}
}

// Write stores res at the writer's path
func (w *SweepWriter) Write(res *sweep.Result) error {
	start := time.Now()
	var err error
	switch w.fileType {
	case "csv":
		err = w.writeCSV(res)
	default:
		err = w.writeExcel(res)
	}
	if err != nil {
		return err
	}
	log.Printf("[SweepWriter] %s written in %.2fms (%d series)",
		w.filePath, float64(time.Since(start).Nanoseconds())/1e6, len(res.Series))
	return nil
}

// WriteSweep is a shorthand for NewSweepWriter(path).Write(res)
func WriteSweep(res *sweep.Result, path string) error {
	return NewSweepWriter(path).Write(res)
}

func (w *SweepWriter) writeExcel(res *sweep.Result) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return fmt.Errorf("failed to name summary sheet: %w", err)
	}
	if err := setRow(f, SummarySheet, 1, toCells(SummaryHeaders)); err != nil {
		return err
	}

	for i, s := range res.Series {
		if err := setRow(f, SummarySheet, i+2, summaryRow(res, s)); err != nil {
			return err
		}

		sheet := SeriesSheet(s.Dim)
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
		}
		if err := setRow(f, sheet, 1, toCells(SeriesHeaders)); err != nil {
			return err
		}
		for j, p := range s.Points {
			if err := setRow(f, sheet, j+2, pointRow(p)); err != nil {
				return err
			}
		}
	}

	if err := f.SaveAs(w.filePath); err != nil {
		return fmt.Errorf("failed to save Excel file: %w", err)
	}
	return nil
}

// writeCSV flattens every series into one table with a leading d column
func (w *SweepWriter) writeCSV(res *sweep.Result) error {
	file, err := os.Create(w.filePath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(append([]string{"d"}, SeriesHeaders...)); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, s := range res.Series {
		for _, p := range s.Points {
			record := []string{strconv.Itoa(s.Dim)}
			for _, cell := range pointRow(p) {
				record = append(record, fmt.Sprint(cell))
			}
			if err := writer.Write(record); err != nil {
				return fmt.Errorf("failed to write CSV row: %w", err)
			}
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV file: %w", err)
	}
	return file.Close()
}

func setRow(f *excelize.File, sheet string, row int, cells []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("failed to write %s!%s: %w", sheet, cell, err)
	}
	return nil
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}

func pointRow(p sweep.Point) []interface{} {
	return []interface{}{
		p.N,
		p.SqrtN,
		cellFloat(p.RelError),
		cellFloat(p.RelErrorSpread),
		cellFloat(p.StdErr),
		cellFloat(p.Volume),
		cellFloat(p.TrueVolume),
	}
}

func summaryRow(res *sweep.Result, s sweep.Series) []interface{} {
	return []interface{}{
		res.RunID.String(),
		s.Dim,
		len(s.Points),
		cellFloat(s.RelErrorFit.Slope),
		cellFloat(s.RelErrorFit.RSquared),
		cellFloat(s.StdErrFit.Slope),
		cellFloat(s.StdErrFit.RSquared),
		cellFloat(s.Coverage.Observed),
		cellFloat(s.Coverage.Expected),
		cellFloat(s.NormalityP),
	}
}

// cellFloat leaves NaN and Inf cells empty; the workbook format has no
// representation for them.
func cellFloat(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return v
}
