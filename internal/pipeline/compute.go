package pipeline

import (
	"errors"
	"fmt"

	"github.com/KaramelBytes/tripboard/internal/dataset"
	"golang.org/x/sync/errgroup"
)

// Options controls the parts of a view that are sized for display.
type Options struct {
	// PreviewRows is how many leading rows of the view to include; 0 means
	// DefaultPreviewRows, negative means none.
	PreviewRows int
}

// DefaultPreviewRows is the preview size when Options leaves it unset.
const DefaultPreviewRows = 10

// Summary holds the headline metrics of a view.
type Summary struct {
	TotalTrips    int     `json:"total_trips" yaml:"total_trips"`
	TotalDistance float64 `json:"total_distance" yaml:"total_distance"`
	// TopModel is empty when the view has no trip with a known car.
	TopModel string `json:"top_car_by_revenue" yaml:"top_car_by_revenue"`
}

// ViewResult is everything the dashboard displays for one brand selection.
type ViewResult struct {
	Session   string   `json:"session" yaml:"session"`
	Selection string   `json:"selection" yaml:"selection"`
	Brands    []string `json:"brands" yaml:"brands"`
	Empty     bool     `json:"empty" yaml:"empty"`
	Summary   Summary  `json:"summary" yaml:"summary"`
	Preview   []Row    `json:"preview" yaml:"preview"`

	TripsByDate       []Count     `json:"trips_count_by_date" yaml:"trips_count_by_date"`
	RevenueByModel    []Value     `json:"revenue_sum_by_model" yaml:"revenue_sum_by_model"`
	CumulativeRevenue []Value     `json:"cumulative_revenue_by_date" yaml:"cumulative_revenue_by_date"`
	TripsByModel      []Count     `json:"trips_count_by_model" yaml:"trips_count_by_model"`
	AvgDistanceByCity []Value     `json:"avg_distance_by_city" yaml:"avg_distance_by_city"`
	RevenueByCity     []Value     `json:"revenue_sum_by_city" yaml:"revenue_sum_by_city"`
	RevenueByHour     []HourValue `json:"revenue_sum_by_hour" yaml:"revenue_sum_by_hour"`
	// Trend is nil when no line can be fitted.
	Trend *Trend `json:"trend,omitempty" yaml:"trend,omitempty"`
	// Scatter holds the (distance, revenue) points the trend is fitted to.
	Scatter [][2]float64 `json:"scatter" yaml:"scatter"`

	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// ComputeView runs the whole pipeline for one selection: join, time
// derivation, brand filter, summary and grouped aggregates. It never
// modifies src. A parse failure aborts the computation; an empty view does
// not.
func ComputeView(src *dataset.Sources, selection string, opt Options) (*ViewResult, error) {
	if src == nil {
		return nil, errors.New("no data loaded")
	}
	if selection == "" {
		selection = AllBrands
	}
	rows, err := DeriveTimes(Join(src))
	if err != nil {
		return nil, fmt.Errorf("derive times: %w", err)
	}
	view := Filter(rows, selection)

	res := &ViewResult{
		Session:   src.Session,
		Selection: selection,
		Brands:    Brands(rows),
		Empty:     len(view) == 0,
		Preview:   preview(view, opt.PreviewRows),
		Warnings:  append([]string(nil), src.Warnings...),
	}
	res.Summary.TotalTrips = len(view)

	// Each aggregate reads the same immutable slice and writes its own field.
	var g errgroup.Group
	g.Go(func() error {
		res.Summary.TotalDistance = TotalDistance(view)
		return nil
	})
	g.Go(func() error {
		top, err := TopModelByRevenue(view)
		if err != nil && !errors.Is(err, ErrEmptyView) {
			return err
		}
		res.Summary.TopModel = top
		return nil
	})
	g.Go(func() error { res.TripsByDate = TripsByDate(view); return nil })
	g.Go(func() error { res.RevenueByModel = RevenueByModel(view); return nil })
	g.Go(func() error { res.CumulativeRevenue = CumulativeRevenueByDate(view); return nil })
	g.Go(func() error { res.TripsByModel = TripsByModel(view); return nil })
	g.Go(func() error { res.AvgDistanceByCity = AvgDistanceByCity(view); return nil })
	g.Go(func() error { res.RevenueByCity = RevenueByCity(view); return nil })
	g.Go(func() error { res.RevenueByHour = RevenueByHour(view); return nil })
	g.Go(func() error {
		res.Scatter = make([][2]float64, len(view))
		for i, r := range view {
			res.Scatter[i] = [2]float64{r.Distance, r.Revenue}
		}
		if tr, ok := RevenueDistanceTrend(view); ok {
			res.Trend = &tr
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}

func preview(rows []Row, n int) []Row {
	if n == 0 {
		n = DefaultPreviewRows
	}
	if n < 0 {
		n = 0
	}
	if n > len(rows) {
		n = len(rows)
	}
	out := make([]Row, n)
	copy(out, rows[:n])
	return out
}
