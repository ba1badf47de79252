// Package pipeline turns the loaded trips, cars and cities into the merged
// trip view and computes the dashboard metrics over it.
package pipeline

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/KaramelBytes/tripboard/internal/dataset"
)

// AllBrands is the selector value that disables brand filtering.
const AllBrands = "All"

// Row is one trip of the merged view. HasCar and HasCity are false when the
// left join found no match; the corresponding fields are then empty.
type Row struct {
	TripID      string    `json:"trip_id" yaml:"trip_id"`
	PickupTime  time.Time `json:"pickup_time" yaml:"pickup_time"`
	DropoffTime time.Time `json:"dropoff_time" yaml:"dropoff_time,omitempty"`
	PickupDate  string    `json:"pickup_date" yaml:"pickup_date"`
	Hour        int       `json:"hour_of_day" yaml:"hour_of_day"`
	Distance    float64   `json:"distance" yaml:"distance"`
	Revenue     float64   `json:"revenue" yaml:"revenue"`
	Brand       string    `json:"brand,omitempty" yaml:"brand,omitempty"`
	Model       string    `json:"model,omitempty" yaml:"model,omitempty"`
	CityName    string    `json:"city_name,omitempty" yaml:"city_name,omitempty"`
	HasCar      bool      `json:"has_car" yaml:"has_car"`
	HasCity     bool      `json:"has_city" yaml:"has_city"`

	pickupRaw  string
	dropoffRaw string
}

// Join left-joins every trip to its car and city. The result has exactly
// one row per trip, in trip order. Timestamps are not parsed yet; see
// DeriveTimes.
func Join(src *dataset.Sources) []Row {
	if src == nil {
		return nil
	}
	cars := make(map[string]dataset.Car, len(src.Cars))
	for _, c := range src.Cars {
		if _, ok := cars[c.ID]; !ok {
			cars[c.ID] = c
		}
	}
	cities := make(map[string]dataset.City, len(src.Cities))
	for _, c := range src.Cities {
		if _, ok := cities[c.ID]; !ok {
			cities[c.ID] = c
		}
	}
	rows := make([]Row, len(src.Trips))
	for i, t := range src.Trips {
		r := Row{
			TripID:     t.ID,
			Distance:   t.Distance,
			Revenue:    t.Revenue,
			pickupRaw:  t.PickupTime,
			dropoffRaw: t.DropoffTime,
		}
		if c, ok := cars[t.CarID]; ok && t.CarID != "" {
			r.Brand, r.Model, r.HasCar = c.Brand, c.Model, true
		}
		if c, ok := cities[t.CityID]; ok && t.CityID != "" {
			r.CityName, r.HasCity = c.Name, true
		}
		rows[i] = r
	}
	return rows
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"2006-01-02",
}

// ParseTime parses a pickup or dropoff value using the accepted layouts.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, l := range timeLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

var errBadTime = errors.New("not a recognizable date-time")

// DeriveTimes parses pickup and dropoff timestamps and fills PickupDate and
// Hour. It returns a new slice; rows is left untouched. An empty dropoff is
// allowed (trip still open); an empty or unparseable pickup is not.
func DeriveTimes(rows []Row) ([]Row, error) {
	out := make([]Row, len(rows))
	for i, r := range rows {
		pt, ok := ParseTime(r.pickupRaw)
		if !ok {
			return nil, &dataset.ParseError{Row: i + 1, Column: "pickup_time", Value: r.pickupRaw, Err: errBadTime}
		}
		r.PickupTime = pt
		r.PickupDate = pt.Format("2006-01-02")
		r.Hour = pt.Hour()
		if strings.TrimSpace(r.dropoffRaw) != "" {
			dt, ok := ParseTime(r.dropoffRaw)
			if !ok {
				return nil, &dataset.ParseError{Row: i + 1, Column: "dropoff_time", Value: r.dropoffRaw, Err: errBadTime}
			}
			r.DropoffTime = dt
		}
		out[i] = r
	}
	return out, nil
}

// Brands returns the selector options: AllBrands followed by the distinct
// non-null brands in ascending order.
func Brands(rows []Row) []string {
	seen := map[string]bool{}
	var names []string
	for _, r := range rows {
		if !r.HasCar || r.Brand == "" || seen[r.Brand] {
			continue
		}
		seen[r.Brand] = true
		names = append(names, r.Brand)
	}
	sort.Strings(names)
	return append([]string{AllBrands}, names...)
}

// Filter returns the rows whose brand equals brand. AllBrands (or an empty
// selection) returns rows unchanged. An unknown brand yields an empty,
// non-nil slice.
func Filter(rows []Row, brand string) []Row {
	if brand == "" || brand == AllBrands {
		return rows
	}
	out := make([]Row, 0)
	for _, r := range rows {
		if r.HasCar && r.Brand == brand {
			out = append(out, r)
		}
	}
	return out
}
