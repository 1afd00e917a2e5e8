package charts

import (
	"fmt"

	"llmboundary/internal/models"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Chart"

// excelChartTypes maps chart types to native Excel charts. polarArea has no
// Excel equivalent and exports as data only.
var excelChartTypes = map[models.ChartType]excelize.ChartType{
	models.ChartBar:      excelize.Col,
	models.ChartLine:     excelize.Line,
	models.ChartArea:     excelize.Area,
	models.ChartPie:      excelize.Pie,
	models.ChartDoughnut: excelize.Doughnut,
	models.ChartScatter:  excelize.Scatter,
	models.ChartBubble:   excelize.Bubble,
	models.ChartRadar:    excelize.Radar,
}

// ExportXLSX writes the chart's data to a workbook and, where Excel has a
// matching chart type, adds a native chart next to it.
func ExportXLSX(spec *models.ChartSpec) ([]byte, error) {
	if spec == nil {
		return nil, fmt.Errorf("chart cannot be exported: no chart")
	}
	if dropped := validate(spec); dropped != nil {
		return nil, fmt.Errorf("chart cannot be exported: %s", dropped.Detail)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	var (
		series  []excelize.ChartSeries
		lastCol int
		err     error
	)
	if spec.Type.IsCoordinate() {
		series, lastCol, err = writeCoordinateTable(f, spec)
	} else {
		series, lastCol, err = writeLabelledTable(f, spec)
	}
	if err != nil {
		return nil, err
	}

	if chartType, ok := excelChartTypes[spec.Type]; ok && len(series) > 0 {
		if chartType == excelize.Pie || chartType == excelize.Doughnut {
			series = series[:1]
		}
		chart := &excelize.Chart{Type: chartType, Series: series}
		if spec.Title != "" {
			chart.Title = []excelize.RichTextRun{{Text: spec.Title}}
		}
		anchor, _ := excelize.CoordinatesToCellName(lastCol+2, 1)
		if err := f.AddChart(exportSheet, anchor, chart); err != nil {
			return nil, fmt.Errorf("failed to add chart: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// writeLabelledTable writes labels down column A and one column per dataset
func writeLabelledTable(f *excelize.File, spec *models.ChartSpec) ([]excelize.ChartSeries, int, error) {
	header := []interface{}{"Label"}
	rows := len(spec.Labels)
	for _, ds := range spec.Datasets {
		header = append(header, ds.Label)
		if len(ds.Data) > rows {
			rows = len(ds.Data)
		}
	}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return nil, 0, fmt.Errorf("failed to write header: %w", err)
	}

	for r := 0; r < rows; r++ {
		row := []interface{}{""}
		if r < len(spec.Labels) {
			row[0] = spec.Labels[r]
		}
		for _, ds := range spec.Datasets {
			row = append(row, cellValue(ds.Data, r))
		}
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, 0, fmt.Errorf("failed to write row %d: %w", r+2, err)
		}
	}

	series := make([]excelize.ChartSeries, 0, len(spec.Datasets))
	for i := range spec.Datasets {
		col := i + 2
		series = append(series, excelize.ChartSeries{
			Name:       cellRef(col, 1),
			Categories: rangeRef(1, 2, rows+1),
			Values:     rangeRef(col, 2, rows+1),
		})
	}
	return series, len(spec.Datasets) + 1, nil
}

// writeCoordinateTable writes x, y (and r for bubbles) columns per dataset
func writeCoordinateTable(f *excelize.File, spec *models.ChartSpec) ([]excelize.ChartSeries, int, error) {
	width := 2
	if spec.Type == models.ChartBubble {
		width = 3
	}

	series := make([]excelize.ChartSeries, 0, len(spec.Datasets))
	for i, ds := range spec.Datasets {
		col := i*width + 1
		header := []interface{}{ds.Label + " x", ds.Label + " y"}
		if width == 3 {
			header = append(header, ds.Label+" r")
		}
		cell, _ := excelize.CoordinatesToCellName(col, 1)
		if err := f.SetSheetRow(exportSheet, cell, &header); err != nil {
			return nil, 0, fmt.Errorf("failed to write header: %w", err)
		}

		for r, p := range ds.Data {
			row := make([]interface{}, width)
			if p.Valid && p.X != nil {
				row[0], row[1] = *p.X, p.Y
				if width == 3 && p.R != nil {
					row[2] = *p.R
				}
			}
			cell, _ := excelize.CoordinatesToCellName(col, r+2)
			if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
				return nil, 0, fmt.Errorf("failed to write row %d: %w", r+2, err)
			}
		}

		last := len(ds.Data) + 1
		s := excelize.ChartSeries{
			Name:       cellRef(col+1, 1),
			Categories: rangeRef(col, 2, last),
			Values:     rangeRef(col+1, 2, last),
		}
		if width == 3 {
			s.Sizes = rangeRef(col+2, 2, last)
		}
		series = append(series, s)
	}
	return series, len(spec.Datasets) * width, nil
}

func cellValue(data []models.DataPoint, i int) interface{} {
	if i >= len(data) || !data[i].Valid {
		return nil
	}
	return data[i].Y
}

func cellRef(col, row int) string {
	cell, _ := excelize.CoordinatesToCellName(col, row, true)
	return exportSheet + "!" + cell
}

func rangeRef(col, fromRow, toRow int) string {
	from, _ := excelize.CoordinatesToCellName(col, fromRow, true)
	to, _ := excelize.CoordinatesToCellName(col, toRow, true)
	return exportSheet + "!" + from + ":" + to
}
