package charts

import (
	"bytes"
	"testing"

	"llmboundary/internal/models"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"
)

func readExport(t *testing.T, data []byte) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(exportSheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	return rows
}

func TestExportXLSX_Labelled(t *testing.T) {
	spec := &models.ChartSpec{
		Type:   models.ChartBar,
		Title:  "Revenue",
		Labels: []string{"a", "b"},
		Datasets: []models.Dataset{
			{Label: "s1", Data: []models.DataPoint{models.Num(1), models.Num(2)}},
			{Label: "s2", Data: []models.DataPoint{models.Num(3), models.Num(4.5)}},
		},
	}

	data, err := ExportXLSX(spec)
	if err != nil {
		t.Fatalf("ExportXLSX: %v", err)
	}
	want := [][]string{
		{"Label", "s1", "s2"},
		{"a", "1", "3"},
		{"b", "2", "4.5"},
	}
	if diff := cmp.Diff(want, readExport(t, data)); diff != "" {
		t.Errorf("rows (-want +got):\n%s", diff)
	}
}

func TestExportXLSX_Coordinates(t *testing.T) {
	spec := &models.ChartSpec{
		Type:     models.ChartScatter,
		Labels:   []string{},
		Datasets: []models.Dataset{{Label: "pts", Data: []models.DataPoint{models.Coord(1, 2), models.Coord(3, 4)}}},
	}
	data, err := ExportXLSX(spec)
	if err != nil {
		t.Fatalf("ExportXLSX: %v", err)
	}
	want := [][]string{
		{"pts x", "pts y"},
		{"1", "2"},
		{"3", "4"},
	}
	if diff := cmp.Diff(want, readExport(t, data)); diff != "" {
		t.Errorf("rows (-want +got):\n%s", diff)
	}
}

func TestExportXLSX_PolarAreaIsDataOnly(t *testing.T) {
	spec := &models.ChartSpec{
		Type:     models.ChartPolarArea,
		Labels:   []string{"n", "s"},
		Datasets: []models.Dataset{{Label: "wind", Data: []models.DataPoint{models.Num(5), models.Num(7)}}},
	}
	data, err := ExportXLSX(spec)
	if err != nil {
		t.Fatalf("ExportXLSX: %v", err)
	}
	if rows := readExport(t, data); len(rows) != 3 {
		t.Errorf("rows = %v", rows)
	}
}

func TestExportXLSX_RejectsInvalidSpec(t *testing.T) {
	for _, spec := range []*models.ChartSpec{
		nil,
		{Type: models.ChartBar},
		{Type: models.ChartBar, Datasets: []models.Dataset{{Data: []models.DataPoint{models.Num(1)}}}},
	} {
		if _, err := ExportXLSX(spec); err == nil {
			t.Errorf("expected error for %+v", spec)
		}
	}
}
