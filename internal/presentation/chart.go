package presentation

import (
	"errors"
	"fmt"
	"io"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/trailview/service-routes/internal/domain/profile"
)

// ErrNotEnoughSamples is returned when a profile has too few samples to plot.
var ErrNotEnoughSamples = errors.New("profile needs at least two samples to plot")

// ChartOptions sizes the profile image. Highlight marks one sample, -1 for none.
type ChartOptions struct {
	Title     string
	Width     int
	Height    int
	Highlight int
}

// DefaultChartOptions returns the detail-panel size.
func DefaultChartOptions() ChartOptions {
	return ChartOptions{Width: 800, Height: 240, Highlight: -1}
}

func profileStyle() chart.Style {
	return chart.Style{
		StrokeColor: drawing.ColorFromHex("2e7d32"),
		FillColor:   drawing.ColorFromHex("2e7d32").WithAlpha(64),
		StrokeWidth: 2,
	}
}

// RenderProfilePNG draws distance against elevation as a filled line chart.
func RenderProfilePNG(w io.Writer, series profile.Series, opts ChartOptions) error {
	if series.Len() < 2 {
		return ErrNotEnoughSamples
	}

	xs := series.Distances()
	ys := series.Elevations()
	plotted := []chart.Series{
		chart.ContinuousSeries{Name: "elevation", XValues: xs, YValues: ys, Style: profileStyle()},
	}
	if opts.Highlight >= 0 && opts.Highlight < len(xs) {
		plotted = append(plotted, chart.AnnotationSeries{
			Annotations: []chart.Value2{{
				XValue: xs[opts.Highlight],
				YValue: ys[opts.Highlight],
				Label:  fmt.Sprintf("%.0f m", ys[opts.Highlight]),
			}},
		})
	}

	stats := series.Summarize()
	minM, maxM := stats.MinM, stats.MaxM
	if maxM-minM < 1 {
		minM--
		maxM++
	}
	maxKm := stats.TotalKm
	if maxKm <= 0 {
		return ErrNotEnoughSamples
	}
	ch := chart.Chart{
		Title:      opts.Title,
		Width:      opts.Width,
		Height:     opts.Height,
		Background: chart.Style{Padding: chart.Box{Top: 20, Left: 16, Right: 16, Bottom: 12}},
		XAxis:      chart.XAxis{Name: "km", Range: &chart.ContinuousRange{Min: 0, Max: maxKm}},
		YAxis:      chart.YAxis{Name: "m", Range: &chart.ContinuousRange{Min: minM, Max: maxM}},
		Series:     plotted,
	}
	if err := ch.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("failed to render profile chart: %w", err)
	}
	return nil
}
