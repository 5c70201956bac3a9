package stats

import (
	"sort"

	"github.com/passbi/bikeshare_insights/internal/models"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DurationSummary returns the spread of trip durations, or nil for an empty
// table. The standard deviation is the sample (n-1) estimate.
func (d *Dataset) DurationSummary() *models.DurationSummary {
	if len(d.trips) == 0 {
		return nil
	}

	durations := make([]float64, len(d.trips))
	for i, t := range d.trips {
		durations[i] = t.TripDuration
	}
	sort.Float64s(durations)

	mean, std := stat.MeanStdDev(durations, nil)
	if len(durations) == 1 {
		std = 0
	}

	return &models.DurationSummary{
		Mean:   mean,
		StdDev: std,
		Median: stat.Quantile(0.5, stat.Empirical, durations, nil),
		P95:    stat.Quantile(0.95, stat.Empirical, durations, nil),
		Max:    floats.Max(durations),
	}
}
