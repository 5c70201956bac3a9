package stats

import (
	"errors"

	"github.com/passbi/bikeshare_insights/internal/models"
)

// ErrUnknownChart is returned for chart names the service does not serve
var ErrUnknownChart = errors.New("unknown chart")

// RankingSize is the number of stations in the top and bottom rankings
const RankingSize = 10

// Chart names, also used as URL paths
const (
	ChartCustomerType = "customer-type-distribution"
	ChartGender       = "gender-distribution"
	ChartAge          = "age-distribution"
	ChartDateTime     = "date-time-distribution"
	ChartMostUsed     = "most-used-distribution"
	ChartLeastUsed    = "least-used-distribution"
)

// Charts lists every chart in display order
var Charts = []string{
	ChartCustomerType,
	ChartGender,
	ChartAge,
	ChartDateTime,
	ChartMostUsed,
	ChartLeastUsed,
}

// Service answers chart requests from one canonical dataset. Station rankings
// are derived once from the full partition; grouped tables are recomputed on
// every call. Safe for concurrent use.
type Service struct {
	dataset     *Dataset
	topStations []models.StationCount
	lowStations []models.StationCount
}

// NewService prepares the rankings for the dataset
func NewService(dataset *Dataset) *Service {
	ranking := dataset.StationCounts()
	return &Service{
		dataset:     dataset,
		topStations: TopN(ranking, RankingSize),
		lowStations: BottomN(ranking, RankingSize),
	}
}

// Dataset returns the canonical dataset behind the service
func (s *Service) Dataset() *Dataset {
	return s.dataset
}

// Overview describes the loaded dataset
func (s *Service) Overview() models.DatasetOverview {
	return s.dataset.Overview()
}

// TopStations returns the precomputed top-10 ranking
func (s *Service) TopStations() []models.StationCount {
	return append([]models.StationCount(nil), s.topStations...)
}

// BottomStations returns the precomputed bottom-10 ranking
func (s *Service) BottomStations() []models.StationCount {
	return append([]models.StationCount(nil), s.lowStations...)
}

// Summary returns the summary tables behind a chart. The date-time chart
// has four panels (month, day, weekday, hour); every other chart has one.
func (s *Service) Summary(chart string) ([]models.SummaryTable, error) {
	const trips = "# trips"
	const stationTrips = "Number of Trips Originating from Station"

	switch chart {
	case ChartCustomerType:
		return []models.SummaryTable{{
			Name:   chart,
			Title:  "Distribution of user types",
			XLabel: "User type",
			YLabel: trips,
			Rows:   s.dataset.UserTypeCounts(),
		}}, nil

	case ChartGender:
		return []models.SummaryTable{{
			Name:   chart,
			Title:  "Distribution of genders",
			XLabel: "Gender",
			YLabel: trips,
			Rows:   s.dataset.GenderCounts(),
		}}, nil

	case ChartAge:
		return []models.SummaryTable{{
			Name:   chart,
			Title:  "Distribution of birth years",
			XLabel: "Birth year",
			YLabel: trips,
			Rows:   s.dataset.BirthYearCounts(),
		}}, nil

	case ChartDateTime:
		dist := s.dataset.DateTimeCounts()
		return []models.SummaryTable{
			{Name: chart + "/month", Title: "Distribution of # trips by month", XLabel: "Month", YLabel: trips, Rows: dist.ByMonth},
			{Name: chart + "/day", Title: "Distribution of # trips by day", XLabel: "Day", YLabel: trips, Rows: dist.ByDay},
			{Name: chart + "/weekday", Title: "Distribution of # trips by day of the week", XLabel: "Day of the week", YLabel: trips, Rows: dist.ByWeekday},
			{Name: chart + "/hour", Title: "Distribution of # trips by hour", XLabel: "Hour", YLabel: trips, Rows: dist.ByHour},
		}, nil

	case ChartMostUsed:
		return []models.SummaryTable{{
			Name:   chart,
			Title:  "Most Popular Bike Stations",
			XLabel: "Station Names",
			YLabel: stationTrips,
			Rows:   models.StationBuckets(s.topStations),
		}}, nil

	case ChartLeastUsed:
		return []models.SummaryTable{{
			Name:   chart,
			Title:  "Least Popular Bike Stations",
			XLabel: "Station Names",
			YLabel: stationTrips,
			Rows:   models.StationBuckets(s.lowStations),
		}}, nil
	}

	return nil, ErrUnknownChart
}
