package loader

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/artifact"
	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/integrity"
)

// ExcelAdapter lays each worksheet out as one page on a fixed grid.
type ExcelAdapter struct{}

// NewExcelAdapter creates a spreadsheet adapter.
func NewExcelAdapter() *ExcelAdapter {
	return &ExcelAdapter{}
}

func (a *ExcelAdapter) Load(report *integrity.Report, opts Options) (*Result, error) {
	f, err := excelize.OpenFile(report.Path, excelize.Options{Password: report.Password})
	if err != nil {
		if errors.Is(err, excelize.ErrWorkbookPassword) {
			return nil, &integrity.PasswordRequiredError{Path: report.Path}
		}
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	limit, truncated := opts.pageLimit(len(sheets))
	res := &Result{TotalPages: len(sheets), Truncated: truncated}

	for i, sheet := range sheets[:limit] {
		pageNo := i + 1
		rows, err := f.GetRows(sheet)
		if err != nil {
			res.Skipped = append(res.Skipped, PageError{Page: pageNo, Err: fmt.Errorf("sheet %q: %w", sheet, err)})
			continue
		}
		res.Pages = append(res.Pages, gridPage(pageNo, rows))
	}
	return res, nil
}

// gridPage positions every non-empty cell at x = col*CellWidth,
// y = row*CellHeight and keeps the raw grid as the page's table.
func gridPage(pageNo int, rows [][]string) *artifact.PageArtifact {
	page := artifact.NewPage(pageNo)
	table := make(artifact.Table, 0, len(rows))
	for r, row := range rows {
		cells := make([]string, len(row))
		for c, value := range row {
			value = strings.TrimSpace(value)
			cells[c] = value
			if value == "" {
				continue
			}
			page.AddWord(artifact.NewWord(value, syntheticBox(c, r), 1))
		}
		table = append(table, cells)
	}
	page.Tables = append(page.Tables, table)
	return page
}
