package excel

import "strconv"

// Sheet and column names of a sweep workbook.
const (
	SummarySheet = "summary"
)

// SeriesHeaders are the columns of a per-dimension sheet.
var SeriesHeaders = []string{
	"N",
	"sqrt(N)",
	"relative error",
	"relative error spread",
	"stat uncertainty",
	"volume",
	"true volume",
}

// SummaryHeaders are the columns of the summary sheet.
var SummaryHeaders = []string{
	"run id",
	"d",
	"points",
	"relative error slope",
	"relative error r2",
	"stat uncertainty slope",
	"stat uncertainty r2",
	"coverage",
	"expected coverage",
	"normality p",
}

// RawRowData represents a single row keyed by header
type RawRowData map[string]string

// ExcelData holds a sheet read back from disk
type ExcelData struct {
	Headers []string
	Rows    []RawRowData
}

// SeriesSheet names the sheet holding dimension d.
func SeriesSheet(d int) string {
	return "d=" + strconv.Itoa(d)
}
