package pipeline

import (
	"errors"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// ErrEmptyView is returned by statistics that have no value on a view with
// no (eligible) rows. It is not fatal: ComputeView degrades to empty values.
var ErrEmptyView = errors.New("view has no trips")

// Count is a grouped row count.
type Count struct {
	Key   string `json:"key" yaml:"key"`
	Count int    `json:"count" yaml:"count"`
}

// Value is a grouped numeric measure (sum, mean or running total).
type Value struct {
	Key   string  `json:"key" yaml:"key"`
	Value float64 `json:"value" yaml:"value"`
}

// HourValue is revenue summed per hour of day.
type HourValue struct {
	Hour  int     `json:"hour" yaml:"hour"`
	Value float64 `json:"value" yaml:"value"`
}

// Trend is a least-squares line revenue = Slope*distance + Intercept.
type Trend struct {
	Slope     float64 `json:"slope" yaml:"slope"`
	Intercept float64 `json:"intercept" yaml:"intercept"`
	Points    int     `json:"points" yaml:"points"`
}

// At evaluates the line at x.
func (t Trend) At(x float64) float64 { return t.Slope*x + t.Intercept }

// TotalDistance sums distance over rows; 0 for an empty view.
func TotalDistance(rows []Row) float64 {
	total := 0.0
	for _, r := range rows {
		total += r.Distance
	}
	return total
}

// TopModelByRevenue returns the model with the highest summed revenue. Ties
// go to the lexicographically smallest model name.
func TopModelByRevenue(rows []Row) (string, error) {
	byModel := RevenueByModel(rows)
	if len(byModel) == 0 {
		return "", ErrEmptyView
	}
	return byModel[0].Key, nil
}

// TripsByDate counts trips per pickup date, oldest first.
func TripsByDate(rows []Row) []Count {
	out := countBy(rows, func(r Row) (string, bool) { return r.PickupDate, true })
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// RevenueByModel sums revenue per car model, highest first.
func RevenueByModel(rows []Row) []Value {
	out := sumBy(rows, modelKey, func(r Row) float64 { return r.Revenue })
	sortValuesDesc(out)
	return out
}

// CumulativeRevenueByDate sums revenue per pickup date and returns the
// running total in date order.
func CumulativeRevenueByDate(rows []Row) []Value {
	out := sumBy(rows, func(r Row) (string, bool) { return r.PickupDate, true }, func(r Row) float64 { return r.Revenue })
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	running := 0.0
	for i := range out {
		running += out[i].Value
		out[i].Value = running
	}
	return out
}

// TripsByModel counts trips per car model, most first.
func TripsByModel(rows []Row) []Count {
	out := countBy(rows, modelKey)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// AvgDistanceByCity averages trip distance per city, longest first.
func AvgDistanceByCity(rows []Row) []Value {
	sums := sumBy(rows, cityKey, func(r Row) float64 { return r.Distance })
	counts := countBy(rows, cityKey)
	n := make(map[string]int, len(counts))
	for _, c := range counts {
		n[c.Key] = c.Count
	}
	for i := range sums {
		sums[i].Value /= float64(n[sums[i].Key])
	}
	sortValuesDesc(sums)
	return sums
}

// RevenueByCity sums revenue per city, highest first.
func RevenueByCity(rows []Row) []Value {
	out := sumBy(rows, cityKey, func(r Row) float64 { return r.Revenue })
	sortValuesDesc(out)
	return out
}

// RevenueByHour sums revenue per pickup hour for the hours that occur,
// earliest first.
func RevenueByHour(rows []Row) []HourValue {
	var sums [24]float64
	var seen [24]bool
	for _, r := range rows {
		if r.Hour < 0 || r.Hour > 23 {
			continue
		}
		sums[r.Hour] += r.Revenue
		seen[r.Hour] = true
	}
	out := make([]HourValue, 0, 24)
	for h := 0; h < 24; h++ {
		if seen[h] {
			out = append(out, HourValue{Hour: h, Value: sums[h]})
		}
	}
	return out
}

// RevenueDistanceTrend fits revenue against distance. It reports false when
// there are fewer than two points or every distance is the same.
func RevenueDistanceTrend(rows []Row) (Trend, bool) {
	if len(rows) < 2 {
		return Trend{}, false
	}
	xs := make([]float64, len(rows))
	ys := make([]float64, len(rows))
	for i, r := range rows {
		xs[i], ys[i] = r.Distance, r.Revenue
	}
	if stat.Variance(xs, nil) == 0 {
		return Trend{}, false
	}
	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	return Trend{Slope: beta, Intercept: alpha, Points: len(rows)}, true
}

func modelKey(r Row) (string, bool) { return r.Model, r.HasCar }
func cityKey(r Row) (string, bool)  { return r.CityName, r.HasCity }

// countBy and sumBy keep groups in first-seen order; callers sort.
func countBy(rows []Row, key func(Row) (string, bool)) []Count {
	idx := map[string]int{}
	out := make([]Count, 0)
	for _, r := range rows {
		k, ok := key(r)
		if !ok {
			continue
		}
		i, seen := idx[k]
		if !seen {
			i = len(out)
			idx[k] = i
			out = append(out, Count{Key: k})
		}
		out[i].Count++
	}
	return out
}

func sumBy(rows []Row, key func(Row) (string, bool), measure func(Row) float64) []Value {
	idx := map[string]int{}
	out := make([]Value, 0)
	for _, r := range rows {
		k, ok := key(r)
		if !ok {
			continue
		}
		i, seen := idx[k]
		if !seen {
			i = len(out)
			idx[k] = i
			out = append(out, Value{Key: k})
		}
		out[i].Value += measure(r)
	}
	return out
}

func sortValuesDesc(vs []Value) {
	sort.Slice(vs, func(i, j int) bool {
		if vs[i].Value != vs[j].Value {
			return vs[i].Value > vs[j].Value
		}
		return vs[i].Key < vs[j].Key
	})
}
