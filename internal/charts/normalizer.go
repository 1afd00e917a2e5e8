package charts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"llmboundary/internal/models"
)

// chartTypeAliases maps the spellings models produce to canonical chart types
var chartTypeAliases = map[string]models.ChartType{
	"bar":            models.ChartBar,
	"column":         models.ChartBar,
	"horizontalbar":  models.ChartBar,
	"horizontal_bar": models.ChartBar,
	"line":           models.ChartLine,
	"area":           models.ChartArea,
	"pie":            models.ChartPie,
	"doughnut":       models.ChartDoughnut,
	"donut":          models.ChartDoughnut,
	"scatter":        models.ChartScatter,
	"bubble":         models.ChartBubble,
	"radar":          models.ChartRadar,
	"polararea":      models.ChartPolarArea,
	"polar":          models.ChartPolarArea,
}

// rawDataset is a dataset before styling, whichever shape it came from
type rawDataset struct {
	Label string
	Data  []json.RawMessage
	Fill  bool
}

// decodedShape is the common result of the three shape decoders
type decodedShape struct {
	Labels   []json.RawMessage
	Datasets []rawDataset
}

// shapeDecoders are tried in order; the first structural match wins
var shapeDecoders = []func(BlockFields) (*decodedShape, bool){
	decodeCanonical,
	decodeSeries,
	decodeLegacy,
}

// Normalize converts a parsed chart block into a styled, validated ChartSpec.
// A nil spec is always accompanied by the reason the block was dropped.
func Normalize(fields BlockFields, theme Theme) (*models.ChartSpec, *DroppedBlock) {
	var rawType string
	if err := json.Unmarshal(fields["type"], &rawType); err != nil {
		return nil, &DroppedBlock{Reason: DropMissingType, Detail: "type is not a string"}
	}
	chartType, ok := chartTypeAliases[strings.ToLower(strings.TrimSpace(rawType))]
	if !ok {
		return nil, &DroppedBlock{Reason: DropSchemaMismatch, Detail: fmt.Sprintf("unsupported chart type %q", rawType)}
	}

	var shape *decodedShape
	for _, decode := range shapeDecoders {
		if s, matched := decode(fields); matched {
			shape = s
			break
		}
	}
	if shape == nil {
		return nil, &DroppedBlock{Reason: DropSchemaMismatch, Detail: "no labels/datasets or series found"}
	}

	spec := &models.ChartSpec{
		Type:     chartType,
		Title:    decodeTitle(fields),
		Labels:   make([]string, 0, len(shape.Labels)),
		Datasets: make([]models.Dataset, 0, len(shape.Datasets)),
	}
	for _, l := range shape.Labels {
		spec.Labels = append(spec.Labels, labelString(l))
	}
	for i, raw := range shape.Datasets {
		spec.Datasets = append(spec.Datasets, styleDataset(i, raw, chartType, shape.Labels, theme))
	}

	if dropped := validate(spec); dropped != nil {
		return nil, dropped
	}
	return spec, nil
}

func validate(spec *models.ChartSpec) *DroppedBlock {
	if len(spec.Datasets) == 0 {
		return &DroppedBlock{Reason: DropValidationFailed, Detail: "chart has no datasets"}
	}
	if !spec.HasRenderableData() {
		return &DroppedBlock{Reason: DropValidationFailed, Detail: "no dataset has a numeric value"}
	}
	if len(spec.Labels) == 0 && !spec.Type.IsCoordinate() {
		return &DroppedBlock{Reason: DropValidationFailed, Detail: fmt.Sprintf("%s chart needs labels", spec.Type)}
	}
	return nil
}

// decodeCanonical matches {"data": {"labels": [...], "datasets": [...]}}
func decodeCanonical(fields BlockFields) (*decodedShape, bool) {
	var data map[string]json.RawMessage
	if !decodeObject(fields["data"], &data) {
		return nil, false
	}
	datasets, ok := decodeArray(data["datasets"])
	if !ok {
		return nil, false
	}
	labels, ok := optionalArray(data["labels"])
	if !ok {
		return nil, false
	}
	return &decodedShape{Labels: labels, Datasets: decodeDatasets(datasets, "data")}, true
}

// decodeSeries matches {"x"|"labels": [...], "series": [{"name", "data"|"y"}]}
func decodeSeries(fields BlockFields) (*decodedShape, bool) {
	series, ok := decodeArray(fields["series"])
	if !ok {
		return nil, false
	}
	labelsRaw := fields["x"]
	if len(labelsRaw) == 0 {
		labelsRaw = fields["labels"]
	}
	labels, ok := optionalArray(labelsRaw)
	if !ok {
		return nil, false
	}
	return &decodedShape{Labels: labels, Datasets: decodeDatasets(series, "data", "y")}, true
}

// decodeLegacy matches {"labels": [...], "datasets": [...]}
func decodeLegacy(fields BlockFields) (*decodedShape, bool) {
	datasets, ok := decodeArray(fields["datasets"])
	if !ok {
		return nil, false
	}
	labels, ok := optionalArray(fields["labels"])
	if !ok {
		return nil, false
	}
	return &decodedShape{Labels: labels, Datasets: decodeDatasets(datasets, "data")}, true
}

// decodeDatasets reads dataset objects, taking values from the first data key present.
// Elements that are not objects are skipped.
func decodeDatasets(items []json.RawMessage, dataKeys ...string) []rawDataset {
	out := make([]rawDataset, 0, len(items))
	for _, item := range items {
		var obj map[string]json.RawMessage
		if !decodeObject(item, &obj) {
			continue
		}
		ds := rawDataset{Label: firstString(obj, "label", "name")}
		for _, key := range dataKeys {
			if arr, ok := decodeArray(obj[key]); ok {
				ds.Data = arr
				break
			}
		}
		ds.Fill = fillRequested(obj["fill"])
		out = append(out, ds)
	}
	return out
}

func styleDataset(index int, raw rawDataset, chartType models.ChartType, labels []json.RawMessage, theme Theme) models.Dataset {
	color := theme.Color(index)
	opacity := theme.BarOpacity
	if chartType.IsLineFamily() {
		opacity = theme.LineOpacity
	}

	ds := models.Dataset{
		Label:            raw.Label,
		Data:             make([]models.DataPoint, 0, len(raw.Data)),
		BackgroundColor:  RGBA(color, opacity),
		BorderColor:      color,
		BorderWidth:      theme.BorderWidth,
		Fill:             chartType == models.ChartArea || raw.Fill,
		PointRadius:      theme.PointRadius,
		PointHoverRadius: theme.PointHoverRadius,
	}
	if ds.Label == "" {
		ds.Label = fmt.Sprintf("Series %d", index+1)
	}
	if chartType.IsLineFamily() {
		ds.Tension = theme.LineTension
	}
	if chartType.IsCoordinate() {
		ds.PointRadius = theme.ScatterPointRadius
		ds.PointHoverRadius = theme.ScatterHoverRadius
	}

	for i, rawPoint := range raw.Data {
		p := decodePoint(rawPoint)
		if chartType.IsCoordinate() && p.Valid && !p.IsCoordinate() {
			x := float64(i)
			if i < len(labels) {
				if lx, ok := coerceNumber(labels[i]); ok {
					x = lx
				}
			}
			p = models.Coord(x, p.Y)
		}
		ds.Data = append(ds.Data, p)
	}
	return ds
}

// decodePoint accepts a number, a numeric string, {x,y,r} or [x,y,r]; anything else is a gap
func decodePoint(raw json.RawMessage) models.DataPoint {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return models.Gap()
	}
	switch raw[0] {
	case '{':
		var obj map[string]json.RawMessage
		if !decodeObject(raw, &obj) {
			return models.Gap()
		}
		x, xok := coerceNumber(obj["x"])
		y, yok := coerceNumber(obj["y"])
		if !yok {
			return models.Gap()
		}
		if !xok {
			return models.Num(y)
		}
		if r, rok := coerceNumber(obj["r"]); rok {
			return models.Bubble(x, y, r)
		}
		return models.Coord(x, y)
	case '[':
		arr, _ := decodeArray(raw)
		nums := make([]float64, 0, 3)
		for _, el := range arr {
			v, ok := coerceNumber(el)
			if !ok {
				return models.Gap()
			}
			nums = append(nums, v)
		}
		switch len(nums) {
		case 1:
			return models.Num(nums[0])
		case 2:
			return models.Coord(nums[0], nums[1])
		case 3:
			return models.Bubble(nums[0], nums[1], nums[2])
		}
		return models.Gap()
	}
	if v, ok := coerceNumber(raw); ok {
		return models.Num(v)
	}
	return models.Gap()
}

var numberCleaner = strings.NewReplacer(",", "", "$", "", "%", "", "€", "", "£", "", " ", "", "_", "")

// coerceNumber reads a JSON number or a numeric string such as "1,200" or "12.5%"
func coerceNumber(raw json.RawMessage) (float64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, false
	}
	var v float64
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		s = numberCleaner.Replace(strings.TrimSpace(s))
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		v = f
	} else if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func labelString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return string(raw)
}

// decodeTitle reads "title" as a string or {"text"}, then falls back to the
// Chart.js options locations.
func decodeTitle(fields BlockFields) string {
	if t := titleText(fields["title"]); t != "" {
		return t
	}
	var opts struct {
		Plugins struct {
			Title json.RawMessage `json:"title"`
		} `json:"plugins"`
		Title json.RawMessage `json:"title"`
	}
	if len(fields["options"]) == 0 || json.Unmarshal(fields["options"], &opts) != nil {
		return ""
	}
	if t := titleText(opts.Plugins.Title); t != "" {
		return t
	}
	return titleText(opts.Title)
}

func titleText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	switch raw[0] {
	case '"':
		return strings.TrimSpace(labelString(raw))
	case '{':
		var obj map[string]json.RawMessage
		if decodeObject(raw, &obj) {
			return titleText(obj["text"])
		}
	case '[':
		var lines []string
		if json.Unmarshal(raw, &lines) == nil {
			return strings.TrimSpace(strings.Join(lines, " "))
		}
	}
	return ""
}

func fillRequested(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return false
	}
	var b bool
	if json.Unmarshal(raw, &b) == nil {
		return b
	}
	// Chart.js fill modes ("origin", "start", "-1") all mean filled
	var s string
	if json.Unmarshal(raw, &s) == nil {
		s = strings.ToLower(strings.TrimSpace(s))
		return s != "" && s != "false"
	}
	return false
}

func firstString(obj map[string]json.RawMessage, keys ...string) string {
	for _, k := range keys {
		var s string
		if json.Unmarshal(obj[k], &s) == nil && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func decodeObject(raw json.RawMessage, dst *map[string]json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

func decodeArray(raw json.RawMessage) ([]json.RawMessage, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, false
	}
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err != nil {
		return nil, false
	}
	return arr, true
}

// optionalArray treats a missing field as an empty array; a present non-array is a mismatch
func optionalArray(raw json.RawMessage) ([]json.RawMessage, bool) {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, true
	}
	return decodeArray(raw)
}
