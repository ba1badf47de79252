package pipeline

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/KaramelBytes/tripboard/internal/dataset"
	"github.com/google/go-cmp/cmp"
)

func sampleSources() *dataset.Sources {
	return &dataset.Sources{
		Session: "test",
		Trips: []dataset.Trip{
			{ID: "1", CarID: "1", CityID: "1", PickupTime: "2024-01-01 08:00:00", DropoffTime: "2024-01-01 08:40:00", Distance: 10, Revenue: 100},
			{ID: "2", CarID: "2", CityID: "2", PickupTime: "2024-01-01 17:30:00", Distance: 25, Revenue: 180},
			{ID: "3", CarID: "3", CityID: "1", PickupTime: "2024-01-02T09:05", Distance: 5, Revenue: 40},
			{ID: "4", CarID: "1", CityID: "3", PickupTime: "2024-01-03 08:10:00", Distance: 40, Revenue: 260},
			{ID: "5", CarID: "9", CityID: "2", PickupTime: "2024-01-03 22:00:00", Distance: 12, Revenue: 90},
		},
		Cars: []dataset.Car{
			{ID: "1", Brand: "Toyota", Model: "Corolla"},
			{ID: "2", Brand: "BMW", Model: "X5"},
			{ID: "3", Brand: "Toyota", Model: "Yaris"},
		},
		Cities: []dataset.City{
			{ID: "1", Name: "Cairo"},
			{ID: "2", Name: "Giza"},
		},
	}
}

func mustDerive(t *testing.T, src *dataset.Sources) []Row {
	t.Helper()
	rows, err := DeriveTimes(Join(src))
	if err != nil {
		t.Fatalf("DeriveTimes: %v", err)
	}
	return rows
}

func TestJoin_PreservesTripCardinality(t *testing.T) {
	src := sampleSources()
	rows := Join(src)
	if len(rows) != len(src.Trips) {
		t.Fatalf("rows = %d, want %d", len(rows), len(src.Trips))
	}
	// Trip 5 references an unknown car, trip 4 an unknown city.
	if rows[4].HasCar || rows[4].Brand != "" {
		t.Fatalf("expected missing car marker on trip 5, got %+v", rows[4])
	}
	if rows[3].HasCity || rows[3].CityName != "" {
		t.Fatalf("expected missing city marker on trip 4, got %+v", rows[3])
	}
	if !rows[0].HasCar || rows[0].Model != "Corolla" || rows[0].CityName != "Cairo" {
		t.Fatalf("unexpected first row: %+v", rows[0])
	}
}

func TestJoin_DuplicateKeysDoNotFanOut(t *testing.T) {
	src := sampleSources()
	src.Cars = append(src.Cars, dataset.Car{ID: "1", Brand: "Ford", Model: "Focus"})
	src.Cities = append(src.Cities, dataset.City{ID: "1", Name: "Alexandria"})
	rows := Join(src)
	if len(rows) != len(src.Trips) {
		t.Fatalf("rows = %d, want %d", len(rows), len(src.Trips))
	}
	if rows[0].Brand != "Toyota" || rows[0].CityName != "Cairo" {
		t.Fatalf("expected first occurrence to win, got %+v", rows[0])
	}
}

func TestDeriveTimes_DateAndHour(t *testing.T) {
	rows := mustDerive(t, sampleSources())
	if rows[0].PickupDate != "2024-01-01" || rows[0].Hour != 8 {
		t.Fatalf("unexpected derived fields: %s %d", rows[0].PickupDate, rows[0].Hour)
	}
	if rows[2].PickupDate != "2024-01-02" || rows[2].Hour != 9 {
		t.Fatalf("unexpected derived fields for ISO minute layout: %s %d", rows[2].PickupDate, rows[2].Hour)
	}
	if !rows[1].DropoffTime.IsZero() {
		t.Fatalf("expected zero dropoff for open trip")
	}
}

func TestDeriveTimes_BadTimestampIsParseError(t *testing.T) {
	src := sampleSources()
	src.Trips[2].PickupTime = "yesterday-ish"
	_, err := DeriveTimes(Join(src))
	var pe *dataset.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %T: %v", err, err)
	}
	if pe.Row != 3 || pe.Column != "pickup_time" {
		t.Fatalf("unexpected parse error detail: %+v", pe)
	}

	src = sampleSources()
	src.Trips[0].DropoffTime = "31/31/2024"
	if _, err := DeriveTimes(Join(src)); !errors.As(err, &pe) || pe.Column != "dropoff_time" {
		t.Fatalf("expected dropoff ParseError, got %v", err)
	}
}

func TestBrandsAndFilterPartition(t *testing.T) {
	rows := mustDerive(t, sampleSources())
	brands := Brands(rows)
	if diff := cmp.Diff([]string{"All", "BMW", "Toyota"}, brands); diff != "" {
		t.Fatalf("brands mismatch (-want +got):\n%s", diff)
	}
	if got := len(Filter(rows, AllBrands)); got != len(rows) {
		t.Fatalf("All filter = %d rows, want %d", got, len(rows))
	}
	sum := 0
	for _, b := range brands[1:] {
		sum += len(Filter(rows, b))
	}
	withCar := 0
	for _, r := range rows {
		if r.HasCar {
			withCar++
		}
	}
	if sum != withCar {
		t.Fatalf("brand partition covers %d rows, want %d", sum, withCar)
	}
	if got := Filter(rows, "Lada"); got == nil || len(got) != 0 {
		t.Fatalf("unknown brand should yield empty non-nil view, got %v", got)
	}
}

func TestTopModelByRevenue_TieBreak(t *testing.T) {
	rows := []Row{
		{Model: "Yaris", HasCar: true, Revenue: 50},
		{Model: "Corolla", HasCar: true, Revenue: 20},
		{Model: "Corolla", HasCar: true, Revenue: 30},
	}
	got, err := TopModelByRevenue(rows)
	if err != nil {
		t.Fatalf("TopModelByRevenue: %v", err)
	}
	if got != "Corolla" {
		t.Fatalf("tie should go to smallest model name, got %q", got)
	}
	if _, err := TopModelByRevenue(nil); !errors.Is(err, ErrEmptyView) {
		t.Fatalf("expected ErrEmptyView, got %v", err)
	}
}

func TestAggregates(t *testing.T) {
	rows := mustDerive(t, sampleSources())

	if diff := cmp.Diff([]Count{{"2024-01-01", 2}, {"2024-01-02", 1}, {"2024-01-03", 2}}, TripsByDate(rows)); diff != "" {
		t.Fatalf("TripsByDate (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]Value{{"Corolla", 360}, {"X5", 180}, {"Yaris", 40}}, RevenueByModel(rows)); diff != "" {
		t.Fatalf("RevenueByModel (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]Value{{"2024-01-01", 280}, {"2024-01-02", 320}, {"2024-01-03", 670}}, CumulativeRevenueByDate(rows)); diff != "" {
		t.Fatalf("CumulativeRevenueByDate (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]Count{{"Corolla", 2}, {"X5", 1}, {"Yaris", 1}}, TripsByModel(rows)); diff != "" {
		t.Fatalf("TripsByModel (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]Value{{"Giza", 18.5}, {"Cairo", 7.5}}, AvgDistanceByCity(rows)); diff != "" {
		t.Fatalf("AvgDistanceByCity (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]Value{{"Giza", 270}, {"Cairo", 140}}, RevenueByCity(rows)); diff != "" {
		t.Fatalf("RevenueByCity (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]HourValue{{8, 360}, {9, 40}, {17, 180}, {22, 90}}, RevenueByHour(rows)); diff != "" {
		t.Fatalf("RevenueByHour (-want +got):\n%s", diff)
	}
}

func TestCumulativeRevenue_NonDecreasingAndEndsAtTotal(t *testing.T) {
	rows := mustDerive(t, sampleSources())
	cum := CumulativeRevenueByDate(rows)
	total := 0.0
	for _, r := range rows {
		total += r.Revenue
	}
	for i := 1; i < len(cum); i++ {
		if cum[i].Value < cum[i-1].Value {
			t.Fatalf("cumulative revenue decreased at %s", cum[i].Key)
		}
	}
	if last := cum[len(cum)-1].Value; math.Abs(last-total) > 1e-9 {
		t.Fatalf("last cumulative = %v, want %v", last, total)
	}
}

func TestRevenueDistanceTrend(t *testing.T) {
	rows := []Row{{Distance: 1, Revenue: 12}, {Distance: 2, Revenue: 14}, {Distance: 3, Revenue: 16}}
	tr, ok := RevenueDistanceTrend(rows)
	if !ok {
		t.Fatalf("expected a trend")
	}
	if math.Abs(tr.Slope-2) > 1e-9 || math.Abs(tr.Intercept-10) > 1e-9 || tr.Points != 3 {
		t.Fatalf("unexpected trend: %+v", tr)
	}
	if got := tr.At(4); math.Abs(got-18) > 1e-9 {
		t.Fatalf("At(4) = %v, want 18", got)
	}
	if _, ok := RevenueDistanceTrend(rows[:1]); ok {
		t.Fatalf("expected no trend for a single point")
	}
	flat := []Row{{Distance: 5, Revenue: 1}, {Distance: 5, Revenue: 9}}
	if _, ok := RevenueDistanceTrend(flat); ok {
		t.Fatalf("expected no trend for zero distance variance")
	}
}

func TestComputeView_SingleTripExample(t *testing.T) {
	src := &dataset.Sources{
		Trips:  []dataset.Trip{{ID: "1", CarID: "1", CityID: "1", PickupTime: "2024-01-01T08:00", Distance: 10, Revenue: 100}},
		Cars:   []dataset.Car{{ID: "1", Brand: "Toyota", Model: "Corolla"}},
		Cities: []dataset.City{{ID: "1", Name: "Cairo"}},
	}
	v, err := ComputeView(src, AllBrands, Options{})
	if err != nil {
		t.Fatalf("ComputeView: %v", err)
	}
	if len(v.Preview) != 1 || v.Preview[0].Brand != "Toyota" {
		t.Fatalf("unexpected preview: %+v", v.Preview)
	}
	want := Summary{TotalTrips: 1, TotalDistance: 10, TopModel: "Corolla"}
	if diff := cmp.Diff(want, v.Summary); diff != "" {
		t.Fatalf("summary (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]HourValue{{Hour: 8, Value: 100}}, v.RevenueByHour); diff != "" {
		t.Fatalf("RevenueByHour (-want +got):\n%s", diff)
	}
	if v.Trend != nil {
		t.Fatalf("expected no trend for a single trip")
	}
}

func TestComputeView_AbsentBrandDegrades(t *testing.T) {
	v, err := ComputeView(sampleSources(), "Lada", Options{})
	if err != nil {
		t.Fatalf("ComputeView: %v", err)
	}
	if !v.Empty || v.Summary.TotalTrips != 0 || v.Summary.TotalDistance != 0 || v.Summary.TopModel != "" {
		t.Fatalf("unexpected summary for absent brand: %+v", v.Summary)
	}
	if len(v.TripsByDate) != 0 || len(v.RevenueByHour) != 0 || v.Trend != nil {
		t.Fatalf("expected empty aggregates, got %+v", v)
	}
	if len(v.Brands) != 3 {
		t.Fatalf("brand options should come from the unfiltered view, got %v", v.Brands)
	}
	if !strings.Contains(v.Markdown(), "Top car model by revenue: N/A") {
		t.Fatalf("markdown should show N/A for empty view:\n%s", v.Markdown())
	}
}

func TestComputeView_FilterAndPreview(t *testing.T) {
	src := sampleSources()
	v, err := ComputeView(src, "Toyota", Options{PreviewRows: 2})
	if err != nil {
		t.Fatalf("ComputeView: %v", err)
	}
	if v.Summary.TotalTrips != 3 || v.Summary.TotalDistance != 55 || v.Summary.TopModel != "Corolla" {
		t.Fatalf("unexpected summary: %+v", v.Summary)
	}
	if len(v.Preview) != 2 {
		t.Fatalf("preview rows = %d, want 2", len(v.Preview))
	}
	if len(v.Scatter) != 3 || v.Trend == nil {
		t.Fatalf("expected scatter points and trend, got %d / %v", len(v.Scatter), v.Trend)
	}
	// Sources are shared across recomputes and must stay untouched.
	if src.Trips[0].PickupTime != "2024-01-01 08:00:00" || len(src.Trips) != 5 {
		t.Fatalf("sources mutated: %+v", src.Trips[0])
	}
}

func TestComputeView_ParseErrorAborts(t *testing.T) {
	src := sampleSources()
	src.Trips[1].PickupTime = ""
	_, err := ComputeView(src, AllBrands, Options{})
	var pe *dataset.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %T: %v", err, err)
	}
}

func TestFormatDistance(t *testing.T) {
	cases := map[float64]string{0: "0.00", 10: "10.00", 1234.5: "1,234.50", 1234567.891: "1,234,567.89"}
	for in, want := range cases {
		if got := FormatDistance(in); got != want {
			t.Fatalf("FormatDistance(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestMarkdownSections(t *testing.T) {
	v, err := ComputeView(sampleSources(), AllBrands, Options{PreviewRows: 1})
	if err != nil {
		t.Fatalf("ComputeView: %v", err)
	}
	md := v.Markdown()
	for _, want := range []string{"[TRIP SUMMARY]", "Total trips: 5", "Total distance (km): 92.00", "[REVENUE BY HOUR]", "- 08:00: 360.00", "[PREVIEW]", "| 1 | 2024-01-01 08:00:00"} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
}
