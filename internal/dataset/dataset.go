// Package dataset loads the trips, cars and cities tables that feed the
// dashboard and keeps them cached for the lifetime of the process.
package dataset

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Trip is one rental as recorded in the trips file. Timestamps are kept as
// raw text; they are parsed when the merged view is derived.
type Trip struct {
	ID          string  `json:"trip_id" yaml:"trip_id"`
	CarID       string  `json:"car_id" yaml:"car_id"`
	CityID      string  `json:"city_id" yaml:"city_id"`
	CustomerID  string  `json:"customer_id" yaml:"customer_id"`
	PickupTime  string  `json:"pickup_time" yaml:"pickup_time"`
	DropoffTime string  `json:"dropoff_time" yaml:"dropoff_time"`
	Distance    float64 `json:"distance" yaml:"distance"`
	Revenue     float64 `json:"revenue" yaml:"revenue"`
}

// Car is a fleet vehicle.
type Car struct {
	ID    string `json:"id" yaml:"id"`
	Brand string `json:"brand" yaml:"brand"`
	Model string `json:"model" yaml:"model"`
}

// City is an operating city.
type City struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"city_name" yaml:"city_name"`
}

// Sources holds the three loaded collections. A Sources value is never
// modified after Load returns it.
type Sources struct {
	Trips    []Trip
	Cars     []Car
	Cities   []City
	Session  string
	LoadedAt time.Time
	Warnings []string
}

// Files names the three source files.
type Files struct {
	Trips  string
	Cars   string
	Cities string
}

// DefaultFiles returns the conventional layout under dir.
func DefaultFiles(dir string) Files {
	return Files{
		Trips:  filepath.Join(dir, "datasets", "trips.csv"),
		Cars:   filepath.Join(dir, "datasets", "cars.csv"),
		Cities: filepath.Join(dir, "datasets", "cities.csv"),
	}
}

func (f Files) paths() []string { return []string{f.Trips, f.Cars, f.Cities} }

// Options controls how source files are read.
type Options struct {
	// Delimiter for all three files. If 0, '\t' for .tsv and ',' otherwise.
	Delimiter rune
	// DecimalSeparator for measures; ',' selects continental notation.
	DecimalSeparator rune
	// Sheet selects the worksheet of .xlsx sources by name; empty means the first sheet.
	Sheet string
}

// Load reads all three files. A missing or malformed file yields a
// *FileAccessError; a non-numeric measure yields a *ParseError.
func Load(files Files, opt Options) (*Sources, error) {
	trips, err := loadTrips(files.Trips, opt)
	if err != nil {
		return nil, err
	}
	cars, carDups, err := loadCars(files.Cars, opt)
	if err != nil {
		return nil, err
	}
	cities, cityDups, err := loadCities(files.Cities, opt)
	if err != nil {
		return nil, err
	}
	src := &Sources{
		Trips:    trips,
		Cars:     cars,
		Cities:   cities,
		Session:  uuid.NewString(),
		LoadedAt: time.Now(),
	}
	if carDups > 0 {
		src.Warnings = append(src.Warnings, fmt.Sprintf("%s: %d duplicate car id(s) ignored (first occurrence kept)", filepath.Base(files.Cars), carDups))
	}
	if cityDups > 0 {
		src.Warnings = append(src.Warnings, fmt.Sprintf("%s: %d duplicate city id(s) ignored (first occurrence kept)", filepath.Base(files.Cities), cityDups))
	}
	return src, nil
}

func loadTrips(path string, opt Options) ([]Trip, error) {
	t, err := readTable(path, opt)
	if err != nil {
		return nil, err
	}
	idCol, err := t.column("trip_id", "id")
	if err != nil {
		return nil, err
	}
	carCol, err := t.column("car_id")
	if err != nil {
		return nil, err
	}
	cityCol, err := t.column("city_id")
	if err != nil {
		return nil, err
	}
	pickCol, err := t.column("pickup_time")
	if err != nil {
		return nil, err
	}
	distCol, err := t.column("distance")
	if err != nil {
		return nil, err
	}
	revCol, err := t.column("revenue")
	if err != nil {
		return nil, err
	}
	dropCol := t.optionalColumn("dropoff_time")
	custCol := t.optionalColumn("customer_id")

	trips := make([]Trip, 0, len(t.rows))
	for i, rec := range t.rows {
		dist, err := parseMeasure(cell(rec, distCol), opt.DecimalSeparator)
		if err != nil {
			return nil, &ParseError{Path: path, Row: i + 1, Column: "distance", Value: cell(rec, distCol), Err: err}
		}
		rev, err := parseMeasure(cell(rec, revCol), opt.DecimalSeparator)
		if err != nil {
			return nil, &ParseError{Path: path, Row: i + 1, Column: "revenue", Value: cell(rec, revCol), Err: err}
		}
		trips = append(trips, Trip{
			ID:          cell(rec, idCol),
			CarID:       cell(rec, carCol),
			CityID:      cell(rec, cityCol),
			CustomerID:  cell(rec, custCol),
			PickupTime:  cell(rec, pickCol),
			DropoffTime: cell(rec, dropCol),
			Distance:    dist,
			Revenue:     rev,
		})
	}
	return trips, nil
}

func loadCars(path string, opt Options) ([]Car, int, error) {
	t, err := readTable(path, opt)
	if err != nil {
		return nil, 0, err
	}
	idCol, err := t.column("id", "car_id")
	if err != nil {
		return nil, 0, err
	}
	brandCol, err := t.column("brand")
	if err != nil {
		return nil, 0, err
	}
	modelCol, err := t.column("model")
	if err != nil {
		return nil, 0, err
	}
	seen := make(map[string]bool, len(t.rows))
	cars := make([]Car, 0, len(t.rows))
	dups := 0
	for _, rec := range t.rows {
		id := cell(rec, idCol)
		if seen[id] {
			dups++
			continue
		}
		seen[id] = true
		cars = append(cars, Car{ID: id, Brand: cell(rec, brandCol), Model: cell(rec, modelCol)})
	}
	return cars, dups, nil
}

func loadCities(path string, opt Options) ([]City, int, error) {
	t, err := readTable(path, opt)
	if err != nil {
		return nil, 0, err
	}
	idCol, err := t.column("city_id", "id")
	if err != nil {
		return nil, 0, err
	}
	nameCol, err := t.column("city_name", "name")
	if err != nil {
		return nil, 0, err
	}
	seen := make(map[string]bool, len(t.rows))
	cities := make([]City, 0, len(t.rows))
	dups := 0
	for _, rec := range t.rows {
		id := cell(rec, idCol)
		if seen[id] {
			dups++
			continue
		}
		seen[id] = true
		cities = append(cities, City{ID: id, Name: cell(rec, nameCol)})
	}
	return cities, dups, nil
}
