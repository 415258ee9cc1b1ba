package excel

import (
	"fmt"
	"log"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"

	"ndsphere/domain/core"
	"ndsphere/internal/errors"
	"ndsphere/internal/sweep"

	"github.com/xuri/excelize/v2"
)

// DataReader reads sheets of a sweep workbook
type DataReader struct {
	filePath string
}

// NewDataReader creates a reader for an .xlsx workbook
func NewDataReader(filePath string) *DataReader {
	return &DataReader{filePath: filePath}
}

// ReadSheet reads one sheet into structured format
func (r *DataReader) ReadSheet(sheet string) (*ExcelData, error) {
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("XLSX file not found: %s", r.filePath)
	}

	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", sheet, err)
	}
	if len(rows) < 1 {
		return nil, fmt.Errorf("sheet %s has no header row", sheet)
	}

	data := processRows(rows)
	log.Printf("[DataReader] %s!%s read (%d columns, %d rows)", r.filePath, sheet, len(data.Headers), len(data.Rows))
	return data, nil
}

// ReadSeries reads the sheet of dimension d back into sweep points.
// Per-repeat results are not stored and come back empty. Empty cells, which
// the writer uses for NaN and Inf, read back as NaN.
func (r *DataReader) ReadSeries(d int) ([]sweep.Point, error) {
	data, err := r.ReadSheet(SeriesSheet(d))
	if err != nil {
		return nil, err
	}
	if !slices.Equal(data.Headers, SeriesHeaders) {
		return nil, errors.ValidationError(fmt.Sprintf("sheet %s has headers %v, want %v", SeriesSheet(d), data.Headers, SeriesHeaders))
	}

	points := make([]sweep.Point, 0, len(data.Rows))
	for i, row := range data.Rows {
		var p sweep.Point
		var n float64
		fields := []*float64{&n, &p.SqrtN, &p.RelError, &p.RelErrorSpread, &p.StdErr, &p.Volume, &p.TrueVolume}
		for j, header := range SeriesHeaders {
			v, err := parseCell(row[header])
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", i+2, header, err)
			}
			*fields[j] = v
		}
		p.N = int(n)
		points = append(points, p)
	}
	return points, nil
}

// ReadRunID returns the run identifier stamped on the summary sheet.
func (r *DataReader) ReadRunID() (core.RunID, error) {
	data, err := r.ReadSheet(SummarySheet)
	if err != nil {
		return "", err
	}
	if len(data.Rows) == 0 {
		return "", errors.ValidationError("summary sheet has no rows")
	}
	return core.ParseRunID(data.Rows[0][SummaryHeaders[0]])
}

func parseCell(s string) (float64, error) {
	if s == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

// ReadSweepSheet is a shorthand for NewDataReader(path).ReadSeries(d)
func ReadSweepSheet(path string, d int) ([]sweep.Point, error) {
	return NewDataReader(path).ReadSeries(d)
}

func processRows(rows [][]string) *ExcelData {
	headers := make([]string, len(rows[0]))
	for i, header := range rows[0] {
		headers[i] = strings.TrimSpace(header)
	}

	var dataRows []RawRowData
	for _, row := range rows[1:] {
		rowData := make(RawRowData)
		for j, cell := range row {
			if j < len(headers) {
				rowData[headers[j]] = strings.TrimSpace(cell)
			}
		}
		dataRows = append(dataRows, rowData)
	}

	return &ExcelData{Headers: headers, Rows: dataRows}
}
