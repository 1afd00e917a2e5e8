package charts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"llmboundary/internal/models"

	"github.com/leonid-shevtsov/telegold"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/util"
)

// maxSummaryPoints caps how many values a text summary lists per dataset
const maxSummaryPoints = 12

var (
	htmlMarkdown     = goldmark.New(goldmark.WithExtensions(extension.GFM))
	telegramMarkdown = goldmark.New(goldmark.WithRenderer(telegold.NewRenderer()))
)

// RenderHTML renders woven segments to HTML. Charts become mount points carrying
// the ChartSpec as JSON for the charting UI; a chart with nothing to draw gets a
// neutral empty state.
func RenderHTML(segments []Segment) (string, error) {
	var buf bytes.Buffer
	for _, seg := range segments {
		switch seg.Kind {
		case SegmentText:
			if strings.TrimSpace(seg.Text) == "" {
				continue
			}
			if err := htmlMarkdown.Convert([]byte(seg.Text), &buf); err != nil {
				return "", fmt.Errorf("failed to render markdown: %w", err)
			}
		case SegmentChart:
			if err := writeChartMount(&buf, seg.Chart); err != nil {
				return "", err
			}
		}
	}
	return buf.String(), nil
}

func writeChartMount(buf *bytes.Buffer, spec *models.ChartSpec) error {
	if !spec.HasRenderableData() {
		buf.WriteString(`<div class="chart chart-empty">No data to display</div>` + "\n")
		return nil
	}
	payload, err := json.Marshal(spec)
	if err != nil {
		return fmt.Errorf("failed to encode chart: %w", err)
	}
	fmt.Fprintf(buf, `<div class="chart" data-chart-type="%s" data-chart="%s"></div>`+"\n",
		util.EscapeHTML([]byte(spec.Type)), util.EscapeHTML(payload))
	return nil
}

// RenderTelegram renders woven segments as Telegram HTML. Telegram cannot draw
// charts, so each one is replaced by its text summary.
func RenderTelegram(segments []Segment) string {
	var out strings.Builder
	for _, seg := range segments {
		switch seg.Kind {
		case SegmentText:
			if strings.TrimSpace(seg.Text) == "" {
				continue
			}
			var buf bytes.Buffer
			if err := telegramMarkdown.Convert([]byte(seg.Text), &buf); err != nil {
				out.Write(util.EscapeHTML([]byte(seg.Text)))
				continue
			}
			out.Write(buf.Bytes())
		case SegmentChart:
			out.WriteString("<pre>")
			out.Write(util.EscapeHTML([]byte(SummarizeChart(seg.Chart))))
			out.WriteString("</pre>\n")
		}
	}
	return out.String()
}

// SummarizeChart describes a chart in plain text for channels that cannot draw it
func SummarizeChart(spec *models.ChartSpec) string {
	if !spec.HasRenderableData() {
		return "📊 No data to display"
	}

	kind := string(spec.Type)
	if kind == "" {
		kind = "unknown"
	}
	var b strings.Builder
	b.WriteString("📊 ")
	if spec.Title != "" {
		fmt.Fprintf(&b, "%s (%s chart)", spec.Title, kind)
	} else {
		fmt.Fprintf(&b, "%s chart", strings.ToUpper(kind[:1])+kind[1:])
	}

	for _, ds := range spec.Datasets {
		fmt.Fprintf(&b, "\n• %s: ", ds.Label)
		shown := 0
		for i, p := range ds.Data {
			if shown == maxSummaryPoints {
				fmt.Fprintf(&b, ", … (+%d more)", len(ds.Data)-i)
				break
			}
			if shown > 0 {
				b.WriteString(", ")
			}
			b.WriteString(describePoint(p, i, spec.Labels))
			shown++
		}
	}
	return b.String()
}

func describePoint(p models.DataPoint, i int, labels []string) string {
	if !p.Valid {
		return "n/a"
	}
	if p.IsCoordinate() {
		if p.R != nil {
			return fmt.Sprintf("(%s, %s, r=%s)", formatNumber(*p.X), formatNumber(p.Y), formatNumber(*p.R))
		}
		return fmt.Sprintf("(%s, %s)", formatNumber(*p.X), formatNumber(p.Y))
	}
	if i < len(labels) && labels[i] != "" {
		return labels[i] + " " + formatNumber(p.Y)
	}
	return formatNumber(p.Y)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
