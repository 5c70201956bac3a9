package stats

import (
	"fmt"
	"testing"
	"time"

	"github.com/passbi/bikeshare_insights/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func year(y int) *int {
	return &y
}

func trip(id string, start time.Time, station, userType, gender string, birthYear *int) models.Trip {
	return models.Trip{
		TripID:          id,
		StartTime:       start,
		StopTime:        start.Add(10 * time.Minute),
		TripDuration:    600,
		FromStationName: station,
		ToStationName:   "Elsewhere",
		UserType:        userType,
		Gender:          gender,
		BirthYear:       birthYear,
	}
}

// sampleTrips is deliberately out of chronological order
func sampleTrips() []models.Trip {
	return []models.Trip{
		// Sunday
		trip("1", time.Date(2017, 7, 2, 17, 5, 0, 0, time.UTC), "Clark St & Elm St", "Subscriber", "Male", year(1985)),
		// Monday
		trip("2", time.Date(2017, 7, 3, 8, 30, 0, 0, time.UTC), "Canal St & Adams St", "Subscriber", "Female", year(1990)),
		// Saturday
		trip("3", time.Date(2017, 1, 14, 8, 0, 0, 0, time.UTC), "Clark St & Elm St", "Customer", "", nil),
		// Wednesday
		trip("4", time.Date(2017, 12, 27, 23, 59, 0, 0, time.UTC), "Streeter Dr & Grand Ave", "Subscriber", "Male", year(1962)),
		// Tuesday
		trip("5", time.Date(2017, 7, 4, 8, 15, 0, 0, time.UTC), "Clark St & Elm St", "Customer", "", year(1990)),
	}
}

func sumCounts(rows []models.Bucket) int {
	total := 0
	for _, r := range rows {
		total += r.Count
	}
	return total
}

func TestNewDataset(t *testing.T) {
	input := sampleTrips()
	d := NewDataset(input)

	t.Run("Load order is kept", func(t *testing.T) {
		ids := []string{}
		for _, tr := range d.Trips() {
			ids = append(ids, tr.TripID)
		}
		assert.Equal(t, []string{"1", "2", "3", "4", "5"}, ids)
	})

	t.Run("Chronological view", func(t *testing.T) {
		ids := []string{}
		for _, tr := range d.Chronological() {
			ids = append(ids, tr.TripID)
		}
		assert.Equal(t, []string{"3", "1", "2", "5", "4"}, ids)
	})

	t.Run("Input slice is copied", func(t *testing.T) {
		input[0].UserType = "Dependent"
		assert.Equal(t, "Subscriber", d.Trips()[0].UserType)
	})

	t.Run("Returned views are copies", func(t *testing.T) {
		view := d.Chronological()
		view[0].FromStationName = "Mutated"
		assert.Equal(t, "Clark St & Elm St", d.Chronological()[0].FromStationName)
	})

	t.Run("Domains", func(t *testing.T) {
		assert.Equal(t, []string{"Customer", "Subscriber"}, d.UserTypes())
		assert.Equal(t, []string{"Female", "Male"}, d.Genders())
	})
}

func TestUserTypeCounts(t *testing.T) {
	t.Run("Lexicographic order", func(t *testing.T) {
		d := NewDataset([]models.Trip{
			trip("1", time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC), "A", "Subscriber", "", nil),
			trip("2", time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC), "A", "Subscriber", "", nil),
			trip("3", time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC), "A", "Customer", "", nil),
		})

		rows := d.UserTypeCounts()
		assert.Equal(t, []models.Bucket{
			{Label: "Customer", Key: 0, Count: 1},
			{Label: "Subscriber", Key: 1, Count: 2},
		}, rows)
		assert.Equal(t, 3, sumCounts(rows))
	})

	t.Run("Sum equals record count", func(t *testing.T) {
		d := NewDataset(sampleTrips())
		assert.Equal(t, d.Len(), sumCounts(d.UserTypeCounts()))
	})

	t.Run("Declared label without trips has zero count", func(t *testing.T) {
		d := NewDataset(sampleTrips()).WithDomains([]string{"Dependent"}, nil)
		assert.Equal(t, []models.Bucket{
			{Label: "Customer", Key: 0, Count: 2},
			{Label: "Dependent", Key: 1, Count: 0},
			{Label: "Subscriber", Key: 2, Count: 3},
		}, d.UserTypeCounts())
	})
}

func TestGenderCounts(t *testing.T) {
	d := NewDataset(sampleTrips())
	rows := d.GenderCounts()

	assert.True(t, ExcludeMissingGender)
	assert.Equal(t, []models.Bucket{
		{Label: "Female", Key: 0, Count: 1},
		{Label: "Male", Key: 1, Count: 2},
	}, rows)

	t.Run("Missing gender is excluded, not bucketed", func(t *testing.T) {
		withGender := 0
		for _, tr := range d.Trips() {
			if tr.HasGender() {
				withGender++
			}
		}
		assert.Equal(t, withGender, sumCounts(rows))
		assert.Less(t, sumCounts(rows), d.Len())
		for _, r := range rows {
			assert.NotEmpty(t, r.Label)
		}
	})
}

func TestBirthYearCounts(t *testing.T) {
	d := NewDataset(sampleTrips())
	rows := d.BirthYearCounts()

	assert.Equal(t, []models.Bucket{
		{Label: "1962", Key: 1962, Count: 1},
		{Label: "1985", Key: 1985, Count: 1},
		{Label: "1990", Key: 1990, Count: 2},
	}, rows)

	t.Run("Ascending without duplicates", func(t *testing.T) {
		for i := 1; i < len(rows); i++ {
			assert.Less(t, rows[i-1].Key, rows[i].Key)
		}
	})

	t.Run("Unknown birth year is excluded", func(t *testing.T) {
		assert.Equal(t, 4, sumCounts(rows))
	})
}

func TestDateTimeCounts(t *testing.T) {
	d := NewDataset(sampleTrips())
	dist := d.DateTimeCounts()

	t.Run("Month", func(t *testing.T) {
		assert.Equal(t, []models.Bucket{
			{Label: "1", Key: 1, Count: 1},
			{Label: "7", Key: 7, Count: 3},
			{Label: "12", Key: 12, Count: 1},
		}, dist.ByMonth)
	})

	t.Run("Day", func(t *testing.T) {
		assert.Equal(t, []models.Bucket{
			{Label: "2", Key: 2, Count: 1},
			{Label: "3", Key: 3, Count: 1},
			{Label: "4", Key: 4, Count: 1},
			{Label: "14", Key: 14, Count: 1},
			{Label: "27", Key: 27, Count: 1},
		}, dist.ByDay)
	})

	t.Run("Weekday", func(t *testing.T) {
		assert.Equal(t, []models.Bucket{
			{Label: "Monday", Key: 0, Count: 1},
			{Label: "Tuesday", Key: 1, Count: 1},
			{Label: "Wednesday", Key: 2, Count: 1},
			{Label: "Saturday", Key: 5, Count: 1},
			{Label: "Sunday", Key: 6, Count: 1},
		}, dist.ByWeekday)
	})

	t.Run("Hour", func(t *testing.T) {
		assert.Equal(t, []models.Bucket{
			{Label: "8", Key: 8, Count: 3},
			{Label: "17", Key: 17, Count: 1},
			{Label: "23", Key: 23, Count: 1},
		}, dist.ByHour)
	})

	t.Run("Empty buckets are omitted", func(t *testing.T) {
		assert.True(t, OmitEmptyCalendarBuckets)
		for _, rows := range [][]models.Bucket{dist.ByMonth, dist.ByDay, dist.ByWeekday, dist.ByHour} {
			assert.Equal(t, d.Len(), sumCounts(rows))
			for _, r := range rows {
				assert.Positive(t, r.Count)
			}
		}
	})
}

func TestWeekdayOrderIsFixed(t *testing.T) {
	// One trip per day of a week, in reverse calendar order
	trips := []models.Trip{}
	for i := 0; i < 7; i++ {
		start := time.Date(2018, 4, 8-i+6, 12, 0, 0, 0, time.UTC) // Apr 14 (Sat) down to Apr 8 (Sun)
		trips = append(trips, trip(fmt.Sprint(i), start, "A", "Subscriber", "", nil))
	}

	rows := NewDataset(trips).WeekdayCounts()
	require.Len(t, rows, 7)
	for i, r := range rows {
		assert.Equal(t, WeekdayNames[i], r.Label)
		assert.Equal(t, i, r.Key)
		assert.Equal(t, 1, r.Count)
	}
	assert.Equal(t, "Monday", rows[0].Label)
	assert.Equal(t, "Sunday", rows[6].Label)
}

func stationTrips(counts map[string]int, order []string) []models.Trip {
	trips := []models.Trip{}
	start := time.Date(2017, 6, 1, 9, 0, 0, 0, time.UTC)
	for _, name := range order {
		for i := 0; i < counts[name]; i++ {
			trips = append(trips, trip(fmt.Sprintf("%s-%d", name, i), start, name, "Subscriber", "", nil))
		}
	}
	return trips
}

func TestStationRanking(t *testing.T) {
	counts := map[string]int{"A": 50, "B": 3, "C": 3, "D": 100}
	d := NewDataset(stationTrips(counts, []string{"D", "C", "B", "A"}))

	t.Run("Full partition in station name order", func(t *testing.T) {
		assert.Equal(t, []models.StationCount{
			{StationName: "A", RidesBooked: 50},
			{StationName: "B", RidesBooked: 3},
			{StationName: "C", RidesBooked: 3},
			{StationName: "D", RidesBooked: 100},
		}, d.StationCounts())
	})

	t.Run("Top 2", func(t *testing.T) {
		assert.Equal(t, []models.StationCount{
			{StationName: "D", RidesBooked: 100},
			{StationName: "A", RidesBooked: 50},
		}, d.TopStations(2))
	})

	t.Run("Bottom 2 breaks ties by station name", func(t *testing.T) {
		assert.Equal(t, []models.StationCount{
			{StationName: "B", RidesBooked: 3},
			{StationName: "C", RidesBooked: 3},
		}, d.BottomStations(2))
	})

	t.Run("Top keeps tie order too", func(t *testing.T) {
		assert.Equal(t, []models.StationCount{
			{StationName: "D", RidesBooked: 100},
			{StationName: "A", RidesBooked: 50},
			{StationName: "B", RidesBooked: 3},
			{StationName: "C", RidesBooked: 3},
		}, d.TopStations(10))
	})

	t.Run("Non-positive n", func(t *testing.T) {
		assert.Empty(t, d.TopStations(0))
		assert.Empty(t, d.BottomStations(-1))
	})
}

func TestStationRankingDisjoint(t *testing.T) {
	counts := map[string]int{}
	order := []string{}
	for i := 0; i < 25; i++ {
		name := fmt.Sprintf("Station %02d", i)
		counts[name] = (i*7)%25 + 1
		order = append(order, name)
	}
	d := NewDataset(stationTrips(counts, order))

	top := d.TopStations(RankingSize)
	bottom := d.BottomStations(RankingSize)
	require.Len(t, top, RankingSize)
	require.Len(t, bottom, RankingSize)

	seen := map[string]bool{}
	for _, s := range top {
		seen[s.StationName] = true
	}
	for _, s := range bottom {
		assert.False(t, seen[s.StationName], "%s in both rankings", s.StationName)
	}

	for i := 1; i < RankingSize; i++ {
		assert.GreaterOrEqual(t, top[i-1].RidesBooked, top[i].RidesBooked)
		assert.LessOrEqual(t, bottom[i-1].RidesBooked, bottom[i].RidesBooked)
	}
}

func TestTopNDoesNotModifyInput(t *testing.T) {
	ranking := []models.StationCount{
		{StationName: "A", RidesBooked: 1},
		{StationName: "B", RidesBooked: 2},
	}
	TopN(ranking, 1)
	assert.Equal(t, "A", ranking[0].StationName)
}

func TestAggregationsAreIdempotent(t *testing.T) {
	d := NewDataset(sampleTrips())

	assert.Equal(t, d.UserTypeCounts(), d.UserTypeCounts())
	assert.Equal(t, d.GenderCounts(), d.GenderCounts())
	assert.Equal(t, d.BirthYearCounts(), d.BirthYearCounts())
	assert.Equal(t, d.DateTimeCounts(), d.DateTimeCounts())
	assert.Equal(t, d.TopStations(10), d.TopStations(10))
	assert.Equal(t, d.BottomStations(10), d.BottomStations(10))
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, func() []string {
		ids := []string{}
		for _, tr := range d.Trips() {
			ids = append(ids, tr.TripID)
		}
		return ids
	}())
}

func TestEmptyDataset(t *testing.T) {
	d := NewDataset(nil)

	assert.Equal(t, 0, d.Len())
	assert.Empty(t, d.UserTypeCounts())
	assert.Empty(t, d.GenderCounts())
	assert.Empty(t, d.BirthYearCounts())
	dist := d.DateTimeCounts()
	assert.Empty(t, dist.ByMonth)
	assert.Empty(t, dist.ByDay)
	assert.Empty(t, dist.ByWeekday)
	assert.Empty(t, dist.ByHour)
	assert.Empty(t, d.StationCounts())
	assert.Empty(t, d.TopStations(10))

	overview := d.Overview()
	assert.Equal(t, 0, overview.Records)
	assert.Nil(t, overview.FirstStartAt)
}

func TestConcurrentAggregation(t *testing.T) {
	d := NewDataset(sampleTrips())
	want := d.DateTimeCounts()

	done := make(chan models.DateTimeDistribution, 8)
	for i := 0; i < 8; i++ {
		go func() {
			d.UserTypeCounts()
			d.TopStations(10)
			done <- d.DateTimeCounts()
		}()
	}
	for i := 0; i < 8; i++ {
		assert.Equal(t, want, <-done)
	}
}
