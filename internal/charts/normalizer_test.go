package charts

import (
	"encoding/json"
	"strings"
	"testing"

	"llmboundary/internal/models"

	"github.com/google/go-cmp/cmp"
)

func normalize(t *testing.T, body string) (*models.ChartSpec, *DroppedBlock) {
	t.Helper()
	fields, dropped := ParseBlock(body)
	if dropped != nil {
		return nil, dropped
	}
	return Normalize(fields, DefaultTheme())
}

func mustNormalize(t *testing.T, body string) *models.ChartSpec {
	t.Helper()
	spec, dropped := normalize(t, body)
	if dropped != nil {
		t.Fatalf("unexpected drop %s: %s", dropped.Reason, dropped.Detail)
	}
	return spec
}

func TestNormalize_ShapeInvariance(t *testing.T) {
	want := &models.ChartSpec{
		Type:   models.ChartBar,
		Labels: []string{"a", "b"},
		Datasets: []models.Dataset{{
			Label:            "s",
			Data:             []models.DataPoint{models.Num(1), models.Num(2)},
			BackgroundColor:  "rgba(59, 130, 246, 0.8)",
			BorderColor:      "#3B82F6",
			BorderWidth:      2,
			PointRadius:      3,
			PointHoverRadius: 5,
		}},
	}

	shapes := map[string]string{
		"canonical":   `{"type":"bar","data":{"labels":["a","b"],"datasets":[{"label":"s","data":[1,2]}]}}`,
		"series":      `{"type":"bar","labels":["a","b"],"series":[{"name":"s","data":[1,2]}]}`,
		"series x/y":  `{"type":"bar","x":["a","b"],"series":[{"name":"s","y":[1,2]}]}`,
		"legacy flat": `{"type":"bar","labels":["a","b"],"datasets":[{"label":"s","data":[1,2]}]}`,
	}
	for name, body := range shapes {
		t.Run(name, func(t *testing.T) {
			got := mustNormalize(t, body)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("ChartSpec mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNormalize_CanonicalShapeWins(t *testing.T) {
	spec := mustNormalize(t, `{
		"type": "bar",
		"data": {"labels": ["a"], "datasets": [{"label": "canonical", "data": [1]}]},
		"labels": ["z"],
		"series": [{"name": "series", "data": [9]}]
	}`)
	if spec.Datasets[0].Label != "canonical" || spec.Labels[0] != "a" {
		t.Errorf("canonical shape should take priority, got %+v", spec)
	}
}

func TestNormalize_Styling(t *testing.T) {
	t.Run("line family", func(t *testing.T) {
		spec := mustNormalize(t, `{"type":"line","labels":["a"],"datasets":[{"data":[1]},{"data":[2]}]}`)
		ds := spec.Datasets[1]
		if ds.BorderColor != "#10B981" || ds.BackgroundColor != "rgba(16, 185, 129, 0.2)" {
			t.Errorf("second line dataset colors = %s / %s", ds.BorderColor, ds.BackgroundColor)
		}
		if ds.Tension != 0.4 {
			t.Errorf("tension = %v, want 0.4", ds.Tension)
		}
		if ds.Fill {
			t.Error("line chart should not fill unless requested")
		}
		if ds.Label != "Series 2" {
			t.Errorf("default label = %q", ds.Label)
		}
	})

	t.Run("area fills", func(t *testing.T) {
		spec := mustNormalize(t, `{"type":"area","labels":["a"],"datasets":[{"data":[1]}]}`)
		if !spec.Datasets[0].Fill || spec.Datasets[0].Tension != 0.4 {
			t.Errorf("area dataset = %+v", spec.Datasets[0])
		}
	})

	t.Run("fill requested", func(t *testing.T) {
		spec := mustNormalize(t, `{"type":"bar","labels":["a"],"datasets":[
			{"data":[1],"fill":true},{"data":[1],"fill":"origin"},{"data":[1],"fill":false}]}`)
		got := []bool{spec.Datasets[0].Fill, spec.Datasets[1].Fill, spec.Datasets[2].Fill}
		if diff := cmp.Diff([]bool{true, true, false}, got); diff != "" {
			t.Errorf("fill flags (-want +got):\n%s", diff)
		}
		if spec.Datasets[0].Tension != 0 {
			t.Error("bar datasets get no tension")
		}
	})

	t.Run("palette cycles", func(t *testing.T) {
		sets := strings.TrimSuffix(strings.Repeat(`{"data":[1]},`, 9), ",")
		spec := mustNormalize(t, `{"type":"bar","labels":["a"],"datasets":[`+sets+`]}`)
		if spec.Datasets[8].BorderColor != spec.Datasets[0].BorderColor {
			t.Errorf("dataset 8 color = %s, want %s", spec.Datasets[8].BorderColor, spec.Datasets[0].BorderColor)
		}
	})

	t.Run("scatter points are larger", func(t *testing.T) {
		spec := mustNormalize(t, `{"type":"scatter","datasets":[{"data":[{"x":1,"y":2}]}]}`)
		if spec.Datasets[0].PointRadius != 6 || spec.Datasets[0].PointHoverRadius != 8 {
			t.Errorf("scatter radii = %v/%v", spec.Datasets[0].PointRadius, spec.Datasets[0].PointHoverRadius)
		}
	})
}

func TestNormalize_Points(t *testing.T) {
	t.Run("numeric strings and gaps", func(t *testing.T) {
		spec := mustNormalize(t, `{"type":"bar","labels":["a","b","c","d","e"],
			"datasets":[{"data":["1,200","$3.5","12%",null,"abc"]}]}`)
		want := []models.DataPoint{models.Num(1200), models.Num(3.5), models.Num(12), models.Gap(), models.Gap()}
		if diff := cmp.Diff(want, spec.Datasets[0].Data); diff != "" {
			t.Errorf("points (-want +got):\n%s", diff)
		}
	})

	t.Run("coordinates", func(t *testing.T) {
		spec := mustNormalize(t, `{"type":"scatter","datasets":[{"label":"pts","data":[{"x":1,"y":2},[3,4],{"x":"5"}]}]}`)
		want := []models.DataPoint{models.Coord(1, 2), models.Coord(3, 4), models.Gap()}
		if diff := cmp.Diff(want, spec.Datasets[0].Data); diff != "" {
			t.Errorf("points (-want +got):\n%s", diff)
		}
		if spec.Labels == nil || len(spec.Labels) != 0 {
			t.Errorf("labels = %#v, want empty non-nil", spec.Labels)
		}
		out, _ := json.Marshal(spec)
		if !strings.Contains(string(out), `"labels":[]`) {
			t.Errorf("labels should encode as an empty array: %s", out)
		}
	})

	t.Run("bubble radius", func(t *testing.T) {
		spec := mustNormalize(t, `{"type":"bubble","data":{"datasets":[{"data":[{"x":1,"y":2,"r":3},[4,5,6]]}]}}`)
		want := []models.DataPoint{models.Bubble(1, 2, 3), models.Bubble(4, 5, 6)}
		if diff := cmp.Diff(want, spec.Datasets[0].Data); diff != "" {
			t.Errorf("points (-want +got):\n%s", diff)
		}
	})

	t.Run("scatter zips numeric labels", func(t *testing.T) {
		spec := mustNormalize(t, `{"type":"scatter","labels":[0.5,"1,000","n/a"],"datasets":[{"data":[7,8,9]}]}`)
		want := []models.DataPoint{models.Coord(0.5, 7), models.Coord(1000, 8), models.Coord(2, 9)}
		if diff := cmp.Diff(want, spec.Datasets[0].Data); diff != "" {
			t.Errorf("points (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]string{"0.5", "1,000", "n/a"}, spec.Labels); diff != "" {
			t.Errorf("labels (-want +got):\n%s", diff)
		}
	})
}

func TestNormalize_TypeAliases(t *testing.T) {
	tests := map[string]models.ChartType{
		"column":        models.ChartBar,
		"HorizontalBar": models.ChartBar,
		"Donut":         models.ChartDoughnut,
		"polarArea":     models.ChartPolarArea,
		" radar ":       models.ChartRadar,
	}
	for alias, want := range tests {
		spec := mustNormalize(t, `{"type":"`+alias+`","labels":["a"],"datasets":[{"data":[1]}]}`)
		if spec.Type != want {
			t.Errorf("type %q normalized to %s, want %s", alias, spec.Type, want)
		}
	}
}

func TestNormalize_Title(t *testing.T) {
	base := `"labels":["a"],"datasets":[{"data":[1]}]`
	tests := []struct {
		name string
		body string
		want string
	}{
		{"string", `{"type":"bar","title":"Revenue",` + base + `}`, "Revenue"},
		{"object", `{"type":"bar","title":{"text":"Revenue"},` + base + `}`, "Revenue"},
		{"plugins", `{"type":"bar","options":{"plugins":{"title":{"display":true,"text":"Plugin"}}},` + base + `}`, "Plugin"},
		{"options lines", `{"type":"bar","options":{"title":{"text":["Two","lines"]}},` + base + `}`, "Two lines"},
		{"none", `{"type":"bar",` + base + `}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mustNormalize(t, tt.body).Title; got != tt.want {
				t.Errorf("title = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalize_Drops(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		reason DropReason
	}{
		{"pie without datasets", `{"type":"pie"}`, DropSchemaMismatch},
		{"trailing comma only", `{"type":"bar",}`, DropSchemaMismatch},
		{"unknown type", `{"type":"sankey","labels":["a"],"datasets":[{"data":[1]}]}`, DropSchemaMismatch},
		{"labels not an array", `{"type":"bar","labels":"a,b","datasets":[{"data":[1]}]}`, DropSchemaMismatch},
		{"data is a list", `{"type":"bar","data":[1,2,3]}`, DropSchemaMismatch},
		{"no datasets", `{"type":"bar","labels":["a"],"datasets":[]}`, DropValidationFailed},
		{"datasets not objects", `{"type":"bar","labels":["a"],"datasets":[[1,2]]}`, DropValidationFailed},
		{"no numeric value", `{"type":"bar","labels":["a","b"],"datasets":[{"data":[null,"x"]}]}`, DropValidationFailed},
		{"labels missing", `{"type":"bar","datasets":[{"data":[1,2]}]}`, DropValidationFailed},
		{"empty labels", `{"type":"line","data":{"labels":[],"datasets":[{"data":[1]}]}}`, DropValidationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, dropped := normalize(t, tt.body)
			if spec != nil {
				t.Fatalf("expected no spec, got %+v", spec)
			}
			if dropped == nil || dropped.Reason != tt.reason {
				t.Errorf("dropped = %+v, want reason %s", dropped, tt.reason)
			}
		})
	}
}
