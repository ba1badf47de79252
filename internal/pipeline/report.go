package pipeline

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var numberPrinter = message.NewPrinter(language.English)

// FormatDistance renders a distance with thousands separators and two
// decimals, e.g. 1234.5 -> "1,234.50".
func FormatDistance(km float64) string {
	return numberPrinter.Sprintf("%.2f", km)
}

// FormatCount renders an integer with thousands separators.
func FormatCount(n int) string {
	return numberPrinter.Sprintf("%d", n)
}

// TopModelLabel is the display text for the top model metric.
func (s Summary) TopModelLabel() string {
	if s.TopModel == "" {
		return "N/A"
	}
	return s.TopModel
}

// Markdown renders the view as a compact text report.
func (v *ViewResult) Markdown() string {
	var b strings.Builder
	b.WriteString("[TRIP SUMMARY]\n")
	b.WriteString(fmt.Sprintf("Brand: %s\n", v.Selection))
	b.WriteString(fmt.Sprintf("Total trips: %s\n", FormatCount(v.Summary.TotalTrips)))
	b.WriteString(fmt.Sprintf("Top car model by revenue: %s\n", v.Summary.TopModelLabel()))
	b.WriteString(fmt.Sprintf("Total distance (km): %s\n", FormatDistance(v.Summary.TotalDistance)))
	if v.Empty {
		b.WriteString("No trips match this selection.\n")
	}

	b.WriteString("\n[BRANDS]\n")
	b.WriteString(strings.Join(v.Brands, ", "))
	b.WriteString("\n")

	writeCounts(&b, "TRIPS BY DATE", v.TripsByDate)
	writeValues(&b, "REVENUE BY MODEL", v.RevenueByModel)
	writeValues(&b, "CUMULATIVE REVENUE BY DATE", v.CumulativeRevenue)
	writeCounts(&b, "TRIPS BY MODEL", v.TripsByModel)
	writeValues(&b, "AVERAGE DISTANCE BY CITY", v.AvgDistanceByCity)
	writeValues(&b, "REVENUE BY CITY", v.RevenueByCity)
	if len(v.RevenueByHour) > 0 {
		b.WriteString("\n[REVENUE BY HOUR]\n")
		for _, h := range v.RevenueByHour {
			b.WriteString(fmt.Sprintf("- %02d:00: %.2f\n", h.Hour, h.Value))
		}
	}
	b.WriteString("\n[REVENUE VS DISTANCE]\n")
	if v.Trend != nil {
		b.WriteString(fmt.Sprintf("revenue ≈ %.4g × distance + %.4g (n=%d)\n", v.Trend.Slope, v.Trend.Intercept, v.Trend.Points))
	} else {
		b.WriteString("(not enough variation to fit a trend)\n")
	}

	if len(v.Preview) > 0 {
		b.WriteString("\n[PREVIEW]\n")
		b.WriteString("| trip_id | pickup_time | dropoff_time | distance | revenue | brand | model | city_name | pickup_date | hour_of_day |\n")
		b.WriteString("| --- | --- | --- | --- | --- | --- | --- | --- | --- | --- |\n")
		for _, r := range v.Preview {
			cells := []string{
				r.TripID,
				r.PickupTime.Format("2006-01-02 15:04:05"),
				formatOptionalTime(r),
				fmt.Sprintf("%.2f", r.Distance),
				fmt.Sprintf("%.2f", r.Revenue),
				nullable(r.Brand, r.HasCar),
				nullable(r.Model, r.HasCar),
				nullable(r.CityName, r.HasCity),
				r.PickupDate,
				fmt.Sprintf("%d", r.Hour),
			}
			for i := range cells {
				cells[i] = safeVal(cells[i])
			}
			b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
		}
	}
	if len(v.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range v.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func writeCounts(b *strings.Builder, title string, cs []Count) {
	if len(cs) == 0 {
		return
	}
	b.WriteString("\n[" + title + "]\n")
	for _, c := range cs {
		b.WriteString(fmt.Sprintf("- %s: %d\n", safeVal(c.Key), c.Count))
	}
}

func writeValues(b *strings.Builder, title string, vs []Value) {
	if len(vs) == 0 {
		return
	}
	b.WriteString("\n[" + title + "]\n")
	for _, v := range vs {
		b.WriteString(fmt.Sprintf("- %s: %.2f\n", safeVal(v.Key), v.Value))
	}
}

func formatOptionalTime(r Row) string {
	if r.DropoffTime.IsZero() {
		return "—"
	}
	return r.DropoffTime.Format("2006-01-02 15:04:05")
}

func nullable(s string, ok bool) string {
	if !ok {
		return "—"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
