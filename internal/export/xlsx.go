package export

import (
	"io"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/suburb-insights/internal/model"
)

// WriteXLSX writes a workbook with Ranked, Unranked and Coverage sheets.
// Numeric cells are stored as numbers.
func WriteXLSX(w io.Writer, run model.Run) error {
	f := xlsx.NewFile()

	ranked, err := f.AddSheet("Ranked")
	if err != nil {
		return eris.Wrap(err, "export: add ranked sheet")
	}
	addHeader(ranked, Columns())
	for _, r := range run.Result.Ranked {
		addCells(ranked.AddRow(), rankedRow(r), codeColumn)
	}

	unranked, err := f.AddSheet("Unranked")
	if err != nil {
		return eris.Wrap(err, "export: add unranked sheet")
	}
	addHeader(unranked, Columns())
	for _, j := range run.Result.Unranked {
		addCells(unranked.AddRow(), unrankedRow(j), codeColumn)
	}

	coverage, err := f.AddSheet("Coverage")
	if err != nil {
		return eris.Wrap(err, "export: add coverage sheet")
	}
	addHeader(coverage, coverageColumns)
	for _, row := range coverageRows(run.Result.Diagnostics) {
		addCells(coverage.AddRow(), row, 0, 1)
	}

	return eris.Wrap(f.Write(w), "export: write xlsx")
}

func addHeader(sheet *xlsx.Sheet, cols []string) {
	row := sheet.AddRow()
	for _, c := range cols {
		row.AddCell().SetString(c)
	}
}

// codeColumn is the index of sa2_code in Columns.
const codeColumn = 1

// addCells writes values, storing anything that parses as a number as one
// except in the text columns.
func addCells(row *xlsx.Row, values []string, text ...int) {
	for i, v := range values {
		cell := row.AddCell()
		if isText(i, text) {
			cell.SetString(v)
			continue
		}
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			cell.SetFloat(n)
			continue
		}
		cell.SetString(v)
	}
}

func isText(i int, text []int) bool {
	for _, t := range text {
		if t == i {
			return true
		}
	}
	return false
}
