package dashboard

import (
	"fmt"
	"io"
	"math"

	"github.com/KaramelBytes/tripboard/internal/pipeline"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const chartHeight = "380px"

func initOpts(title, assetsHost string) charts.GlobalOpts {
	return charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "100%", Height: chartHeight, AssetsHost: assetsHost})
}

func tooltip() charts.GlobalOpts {
	return charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"})
}

// Charts builds the eight dashboard charts for a view, in display order.
func Charts(v *pipeline.ViewResult, assetsHost string) []components.Charter {
	sub := "Brand: " + v.Selection
	return []components.Charter{
		countLine("Trips Over Time", sub, "trips", v.TripsByDate, assetsHost),
		valueBar("Revenue by Car Model", sub, "revenue", v.RevenueByModel, assetsHost),
		cumulativeArea(v, assetsHost),
		countBar("Number of Trips per Car Model", sub, "trips", v.TripsByModel, assetsHost),
		valueBar("Average Trip Distance by City", sub, "avg km", v.AvgDistanceByCity, assetsHost),
		valueBar("Revenue by City", sub, "revenue", v.RevenueByCity, assetsHost),
		hourBar(v, assetsHost),
		trendScatter(v, assetsHost),
	}
}

// RenderPage writes a standalone HTML page with every chart of the view.
func RenderPage(w io.Writer, v *pipeline.ViewResult, assetsHost string) error {
	page := components.NewPage()
	page.PageTitle = "Car Sharing Charts"
	page.SetAssetsHost(assetsHost)
	page.AddCharts(Charts(v, assetsHost)...)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render charts: %w", err)
	}
	return nil
}

func countLine(title, sub, series string, cs []pipeline.Count, assetsHost string) *charts.Line {
	x := make([]string, len(cs))
	y := make([]opts.LineData, len(cs))
	for i, c := range cs {
		x[i] = c.Key
		y[i] = opts.LineData{Value: c.Count}
	}
	line := charts.NewLine()
	line.SetGlobalOptions(
		initOpts(title, assetsHost),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: sub}),
		tooltip(),
	)
	line.SetXAxis(x).AddSeries(series, y)
	return line
}

func cumulativeArea(v *pipeline.ViewResult, assetsHost string) *charts.Line {
	x := make([]string, len(v.CumulativeRevenue))
	y := make([]opts.LineData, len(v.CumulativeRevenue))
	for i, c := range v.CumulativeRevenue {
		x[i] = c.Key
		y[i] = opts.LineData{Value: round2(c.Value)}
	}
	line := charts.NewLine()
	line.SetGlobalOptions(
		initOpts("Cumulative Revenue", assetsHost),
		charts.WithTitleOpts(opts.Title{Title: "Cumulative Revenue Growth Over Time", Subtitle: "Brand: " + v.Selection}),
		tooltip(),
	)
	line.SetXAxis(x).AddSeries("cumulative revenue", y, charts.WithAreaStyleOpts(opts.AreaStyle{}))
	return line
}

func valueBar(title, sub, series string, vs []pipeline.Value, assetsHost string) *charts.Bar {
	x := make([]string, len(vs))
	y := make([]opts.BarData, len(vs))
	for i, v := range vs {
		x[i] = v.Key
		y[i] = opts.BarData{Value: round2(v.Value)}
	}
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		initOpts(title, assetsHost),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: sub}),
		tooltip(),
	)
	bar.SetXAxis(x).AddSeries(series, y)
	return bar
}

func countBar(title, sub, series string, cs []pipeline.Count, assetsHost string) *charts.Bar {
	x := make([]string, len(cs))
	y := make([]opts.BarData, len(cs))
	for i, c := range cs {
		x[i] = c.Key
		y[i] = opts.BarData{Value: c.Count}
	}
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		initOpts(title, assetsHost),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: sub}),
		tooltip(),
	)
	bar.SetXAxis(x).AddSeries(series, y, charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}))
	return bar
}

func hourBar(v *pipeline.ViewResult, assetsHost string) *charts.Bar {
	x := make([]string, len(v.RevenueByHour))
	y := make([]opts.BarData, len(v.RevenueByHour))
	for i, h := range v.RevenueByHour {
		x[i] = fmt.Sprintf("%02d:00", h.Hour)
		y[i] = opts.BarData{Value: round2(h.Value)}
	}
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		initOpts("Revenue by Hour", assetsHost),
		charts.WithTitleOpts(opts.Title{Title: "Revenue by Hour of Day", Subtitle: "Brand: " + v.Selection}),
		tooltip(),
	)
	bar.SetXAxis(x).AddSeries("revenue", y)
	return bar
}

// trendScatter plots revenue against distance and overlays the fitted line
// across the observed distance range when a trend exists.
func trendScatter(v *pipeline.ViewResult, assetsHost string) *charts.Scatter {
	pts := make([]opts.ScatterData, len(v.Scatter))
	minX, maxX := 0.0, 0.0
	for i, p := range v.Scatter {
		pts[i] = opts.ScatterData{Value: []interface{}{p[0], p[1]}}
		if i == 0 || p[0] < minX {
			minX = p[0]
		}
		if i == 0 || p[0] > maxX {
			maxX = p[0]
		}
	}
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		initOpts("Revenue vs Distance", assetsHost),
		charts.WithTitleOpts(opts.Title{Title: "Revenue vs. Trip Distance", Subtitle: "Brand: " + v.Selection}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "Distance (km)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "Revenue"}),
	)
	scatter.AddSeries("trips", pts, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}))
	if v.Trend != nil {
		line := charts.NewLine()
		line.AddSeries("trend", []opts.LineData{
			{Value: []interface{}{minX, round2(v.Trend.At(minX))}},
			{Value: []interface{}{maxX, round2(v.Trend.At(maxX))}},
		})
		scatter.Overlap(line)
	}
	return scatter
}

func round2(x float64) float64 { return math.Round(x*100) / 100 }
