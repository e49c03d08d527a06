package render

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"clinicore/internal/dataset"
	"clinicore/internal/shared/clock"
)

const sheetName = "Relatório"

// ExcelRenderer produces the spreadsheet artifact.
type ExcelRenderer struct {
	clock clock.Clock
}

// NewExcelRenderer creates the spreadsheet renderer.
func NewExcelRenderer(c clock.Clock) *ExcelRenderer {
	if c == nil {
		c = clock.System()
	}
	return &ExcelRenderer{clock: c}
}

func (r *ExcelRenderer) Format() string { return FormatExcel }

// Render implements Renderer.
func (r *ExcelRenderer) Render(ds *dataset.Dataset, title string, fields []string) (*Artifact, error) {
	headers, rows := tabulate(ds, fields)

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}

	titleStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	if err != nil {
		return nil, fmt.Errorf("title style: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#E6E6E6"}},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}

	// Title and generation timestamp above the table.
	f.SetCellValue(sheetName, "A1", title)
	f.SetCellStyle(sheetName, "A1", "A1", titleStyle)
	f.SetCellValue(sheetName, "A2", fmt.Sprintf("Gerado em %s", r.clock.Now().Format("02/01/2006 15:04")))

	const headerRow = 4
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, headerRow)
		if err != nil {
			return nil, fmt.Errorf("header cell: %w", err)
		}
		f.SetCellValue(sheetName, cell, h)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for ri, row := range rows {
		for ci, cell := range row {
			name, err := excelize.CoordinatesToCellName(ci+1, headerRow+1+ri)
			if err != nil {
				return nil, fmt.Errorf("data cell: %w", err)
			}
			f.SetCellValue(sheetName, name, cell)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return &Artifact{
		Bytes:       buf.Bytes(),
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Extension:   "xlsx",
	}, nil
}
