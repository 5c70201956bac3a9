package chart

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"math"

	"github.com/passbi/bikeshare_insights/internal/models"
	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ContentType of every rendered chart
const ContentType = "image/png"

const (
	defaultWidth  = 800
	defaultHeight = 600
	// horizontal space taken by the Y axis and paddings
	axisAllowance = 120
)

var barColor = drawing.ColorFromHex("5b9bd5")

// Renderer turns summary tables into PNG bar charts
type Renderer struct {
	Width  int
	Height int
}

// NewRenderer returns a renderer with the given panel size. Non-positive
// dimensions fall back to 800x600.
func NewRenderer(width, height int) *Renderer {
	if width <= 0 {
		width = defaultWidth
	}
	if height <= 0 {
		height = defaultHeight
	}
	return &Renderer{Width: width, Height: height}
}

// Bar renders one summary table as a bar chart
func (r *Renderer) Bar(table models.SummaryTable) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.barChart(table).Render(gochart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", table.Name, err)
	}
	return buf.Bytes(), nil
}

// Grid renders each table and lays the panels out row by row, cols per row
func (r *Renderer) Grid(tables []models.SummaryTable, cols int) ([]byte, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("no tables to render")
	}
	if cols <= 0 {
		cols = 1
	}
	rows := (len(tables) + cols - 1) / cols

	canvas := image.NewRGBA(image.Rect(0, 0, cols*r.Width, rows*r.Height))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)

	for i, table := range tables {
		panel, err := r.Bar(table)
		if err != nil {
			return nil, err
		}

		img, err := png.Decode(bytes.NewReader(panel))
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s panel: %w", table.Name, err)
		}

		origin := image.Pt((i%cols)*r.Width, (i/cols)*r.Height)
		draw.Draw(canvas, img.Bounds().Add(origin), img, img.Bounds().Min, draw.Src)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("failed to encode grid: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) barChart(table models.SummaryTable) gochart.BarChart {
	bars := make([]gochart.Value, 0, len(table.Rows))
	maxCount := 0
	for _, row := range table.Rows {
		bars = append(bars, gochart.Value{
			Label: row.Label,
			Value: float64(row.Count),
			Style: gochart.Style{FillColor: barColor, StrokeColor: barColor},
		})
		if row.Count > maxCount {
			maxCount = row.Count
		}
	}

	// go-chart refuses to draw a chart without bars
	if len(bars) == 0 {
		bars = append(bars, gochart.Value{Label: "no data", Value: 0})
	}

	yMax := 1.0
	if maxCount > 0 {
		yMax = math.Ceil(float64(maxCount) * 1.1)
	}

	barWidth, spacing := barGeometry(r.Width, len(bars))

	return gochart.BarChart{
		Title:  table.Title,
		Width:  r.Width,
		Height: r.Height,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 40, Left: 10, Right: 10, Bottom: 10},
		},
		BarWidth:   barWidth,
		BarSpacing: spacing,
		XAxis:      gochart.Style{FontSize: axisFontSize(len(bars))},
		YAxis: gochart.YAxis{
			Name:           table.YLabel,
			Range:          &gochart.ContinuousRange{Min: 0, Max: yMax},
			ValueFormatter: gochart.IntValueFormatter,
		},
		Bars: bars,
	}
}

// barGeometry splits the plot width between n bars, 70% bar and 30% gap
func barGeometry(width, n int) (barWidth, spacing int) {
	slot := (width - axisAllowance) / n
	return max(2, slot*7/10), max(1, slot*3/10)
}

func axisFontSize(n int) float64 {
	switch {
	case n > 40:
		return 6
	case n > 15:
		return 8
	default:
		return 10
	}
}
