package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func fixtureFiles(t *testing.T) Files {
	t.Helper()
	dir := t.TempDir()
	return Files{
		Trips: writeFixture(t, dir, "trips.csv",
			"id,car_id,city_id,customer_id,pickup_time,dropoff_time,distance,revenue\n"+
				"1,1,1,501,2024-01-01 08:00:00,2024-01-01 08:30:00,10,100\n"+
				"2,2,1,502,2024-01-02 09:15:00,2024-01-02 10:00:00,\"1,250.5\",80.25\n"),
		Cars: writeFixture(t, dir, "cars.csv",
			"id,brand,model\n1,Toyota,Corolla\n2,BMW,X5\n2,BMW,X3\n"),
		Cities: writeFixture(t, dir, "cities.csv",
			"city_id,city_name\n1,Cairo\n"),
	}
}

func TestLoad_ReadsAllThreeTables(t *testing.T) {
	files := fixtureFiles(t)
	src, err := Load(files, Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	wantTrips := []Trip{
		{ID: "1", CarID: "1", CityID: "1", CustomerID: "501", PickupTime: "2024-01-01 08:00:00", DropoffTime: "2024-01-01 08:30:00", Distance: 10, Revenue: 100},
		{ID: "2", CarID: "2", CityID: "1", CustomerID: "502", PickupTime: "2024-01-02 09:15:00", DropoffTime: "2024-01-02 10:00:00", Distance: 1250.5, Revenue: 80.25},
	}
	if diff := cmp.Diff(wantTrips, src.Trips); diff != "" {
		t.Fatalf("trips mismatch (-want +got):\n%s", diff)
	}
	wantCars := []Car{{ID: "1", Brand: "Toyota", Model: "Corolla"}, {ID: "2", Brand: "BMW", Model: "X5"}}
	if diff := cmp.Diff(wantCars, src.Cars); diff != "" {
		t.Fatalf("cars mismatch (-want +got):\n%s", diff)
	}
	if len(src.Cities) != 1 || src.Cities[0].Name != "Cairo" {
		t.Fatalf("unexpected cities: %+v", src.Cities)
	}
	if len(src.Warnings) != 1 {
		t.Fatalf("expected one duplicate-id warning, got %v", src.Warnings)
	}
	if src.Session == "" {
		t.Fatalf("expected a session id")
	}
}

func TestLoad_MissingFileIsFileAccessError(t *testing.T) {
	files := fixtureFiles(t)
	files.Cities = filepath.Join(t.TempDir(), "nope.csv")
	_, err := Load(files, Options{})
	var fae *FileAccessError
	if !errors.As(err, &fae) {
		t.Fatalf("expected FileAccessError, got %T: %v", err, err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected wrapped ErrNotExist, got %v", err)
	}
}

func TestLoad_MissingColumnIsFileAccessError(t *testing.T) {
	files := fixtureFiles(t)
	files.Cars = writeFixture(t, t.TempDir(), "cars.csv", "id,make\n1,Toyota\n")
	_, err := Load(files, Options{})
	var fae *FileAccessError
	if !errors.As(err, &fae) {
		t.Fatalf("expected FileAccessError, got %T: %v", err, err)
	}
}

func TestLoad_EmptyFileIsFileAccessError(t *testing.T) {
	files := fixtureFiles(t)
	files.Trips = writeFixture(t, t.TempDir(), "trips.csv", "")
	_, err := Load(files, Options{})
	var fae *FileAccessError
	if !errors.As(err, &fae) {
		t.Fatalf("expected FileAccessError, got %T: %v", err, err)
	}
}

func TestLoad_NonNumericMeasureIsParseError(t *testing.T) {
	cases := []struct {
		row, column, value string
	}{
		{"1,1,1,501,2024-01-01 08:00:00,,ten,100", "distance", "ten"},
		{"1,1,1,501,2024-01-01 08:00:00,,NaN,100", "distance", "NaN"},
		{"1,1,1,501,2024-01-01 08:00:00,,10,Inf", "revenue", "Inf"},
		{"1,1,1,501,2024-01-01 08:00:00,,-Infinity,100", "distance", "-Infinity"},
	}
	for _, tc := range cases {
		files := fixtureFiles(t)
		files.Trips = writeFixture(t, t.TempDir(), "trips.csv",
			"id,car_id,city_id,customer_id,pickup_time,dropoff_time,distance,revenue\n"+tc.row+"\n")
		_, err := Load(files, Options{})
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("%s: expected ParseError, got %T: %v", tc.value, err, err)
		}
		if pe.Row != 1 || pe.Column != tc.column || pe.Value != tc.value {
			t.Fatalf("%s: unexpected parse error detail: %+v", tc.value, pe)
		}
	}
}

func TestLoad_TSVAndContinentalDecimals(t *testing.T) {
	dir := t.TempDir()
	files := Files{
		Trips: writeFixture(t, dir, "trips.tsv",
			"trip_id\tcar_id\tcity_id\tpickup_time\tdistance\trevenue\n"+
				"7\t1\t1\t2024-03-01T10:00\t1.234,5\t12,75\n"),
		Cars:   writeFixture(t, dir, "cars.tsv", "id\tbrand\tmodel\n1\tKia\tRio\n"),
		Cities: writeFixture(t, dir, "cities.tsv", "city_id\tcity_name\n1\tGiza\n"),
	}
	src, err := Load(files, Options{DecimalSeparator: ','})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := src.Trips[0]; got.Distance != 1234.5 || got.Revenue != 12.75 || got.ID != "7" {
		t.Fatalf("unexpected trip: %+v", got)
	}
}

func TestCache_SessionPolicyIgnoresDiskChanges(t *testing.T) {
	files := fixtureFiles(t)
	c := NewCache(PolicySession, Options{})
	first, err := c.Get(files)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	// Rewrite cars and bump the mtime; the session cache must not notice.
	if err := os.WriteFile(files.Cars, []byte("id,brand,model\n1,Ford,Focus\n"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	future := time.Now().Add(time.Hour)
	_ = os.Chtimes(files.Cars, future, future)
	second, err := c.Get(files)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if first != second {
		t.Fatalf("expected identical cached Sources")
	}
	if second.Cars[0].Brand != "Toyota" {
		t.Fatalf("expected stale cached brand, got %q", second.Cars[0].Brand)
	}
	if c.Loads() != 1 {
		t.Fatalf("expected 1 load, got %d", c.Loads())
	}
}

func TestCache_ModTimePolicyReloads(t *testing.T) {
	files := fixtureFiles(t)
	c := NewCache(PolicyModTime, Options{})
	first, err := c.Get(files)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	again, err := c.Get(files)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if first != again {
		t.Fatalf("expected cache hit while files are unchanged")
	}
	if err := os.WriteFile(files.Cars, []byte("id,brand,model\n1,Ford,Focus\n"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(files.Cars, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	second, err := c.Get(files)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if second == first || second.Cars[0].Brand != "Ford" {
		t.Fatalf("expected reload after mtime change, got %+v", second.Cars)
	}
	if c.Loads() != 2 {
		t.Fatalf("expected 2 loads, got %d", c.Loads())
	}
}

func TestCache_FailedLoadIsNotCached(t *testing.T) {
	files := fixtureFiles(t)
	missing := files.Cities
	if err := os.Remove(missing); err != nil {
		t.Fatalf("remove: %v", err)
	}
	c := NewCache(PolicySession, Options{})
	if _, err := c.Get(files); err == nil {
		t.Fatalf("expected error for missing cities file")
	}
	writeFixture(t, filepath.Dir(missing), filepath.Base(missing), "city_id,city_name\n1,Cairo\n")
	if _, err := c.Get(files); err != nil {
		t.Fatalf("expected recovery after file restored: %v", err)
	}
}

func TestParsePolicy(t *testing.T) {
	cases := map[string]Policy{"": PolicySession, "session": PolicySession, "MTIME": PolicyModTime}
	for in, want := range cases {
		got, err := ParsePolicy(in)
		if err != nil || got != want {
			t.Fatalf("ParsePolicy(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParsePolicy("weekly"); err == nil {
		t.Fatalf("expected error for unknown policy")
	}
}
