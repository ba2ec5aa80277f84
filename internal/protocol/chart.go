package protocol

import (
	"bytes"
	"errors"

	chart "github.com/wcharczuk/go-chart/v2"
)

const (
	chartWidth  = 900
	chartHeight = 420
)

var errEmptyTimeline = errors.New("no timeline rows to chart")

// ChartPNG renders the timeline as a PNG: MFC A and MFC B on the primary
// axis, the much smaller MFC C trace flow on the secondary axis. Rows sharing
// a time value draw the setpoint steps as vertical segments. A timeline with
// no exposure rows plots the two air channels only; go-chart rejects a series
// whose value range is zero.
func ChartPNG(rows []Row) ([]byte, error) {
	if len(rows) == 0 {
		return nil, errEmptyTimeline
	}

	xs := make([]float64, len(rows))
	as := make([]float64, len(rows))
	bs := make([]float64, len(rows))
	cs := make([]float64, len(rows))
	hasTrace := false
	for i, r := range rows {
		xs[i] = float64(r.TimeSec)
		as[i] = r.A
		bs[i] = r.B
		cs[i] = r.C
		if r.C != 0 {
			hasTrace = true
		}
	}

	series := []chart.Series{
		chart.ContinuousSeries{
			Name:    "MFC A (dry air)",
			XValues: xs,
			YValues: as,
			Style:   chart.Style{StrokeColor: chart.ColorBlue, StrokeWidth: 2},
		},
		chart.ContinuousSeries{
			Name:    "MFC B (humid air)",
			XValues: xs,
			YValues: bs,
			Style:   chart.Style{StrokeColor: chart.ColorGreen, StrokeWidth: 2},
		},
	}
	if hasTrace {
		series = append(series, chart.ContinuousSeries{
			Name:    "MFC C (trace gas)",
			XValues: xs,
			YValues: cs,
			YAxis:   chart.YAxisSecondary,
			Style:   chart.Style{StrokeColor: chart.ColorRed, StrokeWidth: 2},
		})
	}

	graph := chart.Chart{
		Width:  chartWidth,
		Height: chartHeight,
		XAxis:  chart.XAxis{Name: "Time (s)"},
		YAxis:  chart.YAxis{Name: "MFC A / MFC B (SLPM)"},
		YAxisSecondary: chart.YAxis{
			Name: "MFC C (SLPM)",
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
