package dashboard

import (
	"fmt"
	"html/template"
	"net/url"

	"github.com/KaramelBytes/tripboard/internal/pipeline"
)

type brandOption struct {
	Value    string
	Selected bool
}

type previewRow struct {
	TripID, Pickup, Dropoff, Brand, Model, City, Date string
	Distance, Revenue                                 string
	Hour                                              int
}

type indexData struct {
	Brands        []brandOption
	Selection     string
	Empty         bool
	TotalTrips    string
	TopModel      string
	TotalDistance string
	Preview       []previewRow
	ChartsURL     string
	Warnings      []string
}

func newIndexData(v *pipeline.ViewResult) indexData {
	d := indexData{
		Selection:     v.Selection,
		Empty:         v.Empty,
		TotalTrips:    pipeline.FormatCount(v.Summary.TotalTrips),
		TopModel:      v.Summary.TopModelLabel(),
		TotalDistance: pipeline.FormatDistance(v.Summary.TotalDistance),
		ChartsURL:     "/charts?brand=" + url.QueryEscape(v.Selection),
		Warnings:      v.Warnings,
	}
	for _, b := range v.Brands {
		d.Brands = append(d.Brands, brandOption{Value: b, Selected: b == v.Selection})
	}
	for _, r := range v.Preview {
		pr := previewRow{
			TripID:   r.TripID,
			Pickup:   r.PickupTime.Format("2006-01-02 15:04:05"),
			Dropoff:  "—",
			Brand:    "—",
			Model:    "—",
			City:     "—",
			Date:     r.PickupDate,
			Hour:     r.Hour,
			Distance: fmt.Sprintf("%.2f", r.Distance),
			Revenue:  fmt.Sprintf("%.2f", r.Revenue),
		}
		if !r.DropoffTime.IsZero() {
			pr.Dropoff = r.DropoffTime.Format("2006-01-02 15:04:05")
		}
		if r.HasCar {
			pr.Brand, pr.Model = r.Brand, r.Model
		}
		if r.HasCity {
			pr.City = r.CityName
		}
		d.Preview = append(d.Preview, pr)
	}
	return d
}

var indexTemplate = template.Must(template.New("index").Parse(`<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>Car Sharing Dashboard</title>
<style>
body{font-family:sans-serif;margin:0;display:flex}
aside{width:220px;padding:1.5rem;background:#f4f5f7;min-height:100vh}
main{flex:1;padding:1.5rem}
.metrics{display:flex;gap:2rem;margin-bottom:1.5rem}
.metric{flex:1}.metric .label{color:#555;font-size:.9rem}.metric .value{font-size:1.8rem}
table{border-collapse:collapse;font-size:.85rem}td,th{border:1px solid #ddd;padding:4px 8px}
iframe{width:100%;height:3200px;border:0}
.notice{color:#8a6d3b}
</style>
</head>
<body>
<aside>
<h3>Filters</h3>
<form method="get" action="/">
<label for="brand">Select Car Brand</label>
<select id="brand" name="brand" onchange="this.form.submit()">
{{range .Brands}}<option value="{{.Value}}"{{if .Selected}} selected{{end}}>{{.Value}}</option>
{{end}}</select>
<noscript><button type="submit">Apply</button></noscript>
</form>
</aside>
<main>
<h1>🚗 Car Sharing Dashboard</h1>
<div class="metrics">
<div class="metric"><div class="label">Total Trips</div><div class="value">{{.TotalTrips}}</div></div>
<div class="metric"><div class="label">Top Car Model by Revenue</div><div class="value">{{.TopModel}}</div></div>
<div class="metric"><div class="label">Total Distance (km)</div><div class="value">{{.TotalDistance}}</div></div>
</div>
{{if .Empty}}<p class="notice">No trips match brand "{{.Selection}}".</p>{{end}}
{{range .Warnings}}<p class="notice">{{.}}</p>{{end}}
<h3>Preview of the Trips Data</h3>
<table>
<tr><th>trip_id</th><th>pickup_time</th><th>dropoff_time</th><th>distance</th><th>revenue</th><th>brand</th><th>model</th><th>city_name</th><th>pickup_date</th><th>hour_of_day</th></tr>
{{range .Preview}}<tr><td>{{.TripID}}</td><td>{{.Pickup}}</td><td>{{.Dropoff}}</td><td>{{.Distance}}</td><td>{{.Revenue}}</td><td>{{.Brand}}</td><td>{{.Model}}</td><td>{{.City}}</td><td>{{.Date}}</td><td>{{.Hour}}</td></tr>
{{end}}</table>
<h3>Charts</h3>
<iframe src="{{.ChartsURL}}" title="charts"></iframe>
</main>
</body>
</html>`))
