package stats

import (
	"sort"
	"strconv"

	"github.com/passbi/bikeshare_insights/internal/models"
)

// Bucket policies. Both are fixed; tests pin them.
const (
	// ExcludeMissingGender drops trips without a gender from GenderCounts
	// instead of reporting them as an "unknown" bucket.
	ExcludeMissingGender = true
	// OmitEmptyCalendarBuckets drops months/days/weekdays/hours with no trips
	// from the date-time breakdowns instead of emitting zero counts.
	OmitEmptyCalendarBuckets = true
)

// WeekdayNames labels weekday buckets, Monday first
var WeekdayNames = [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// UserTypeCounts partitions the table by user type. Every label of the
// user-type domain is reported, in lexicographic order.
func (d *Dataset) UserTypeCounts() []models.Bucket {
	counts := make(map[string]int, len(d.userTypes))
	for _, trip := range d.chronological {
		counts[trip.UserType]++
	}
	return domainBuckets(d.userTypes, counts)
}

// GenderCounts partitions the table by gender, skipping trips without one
func (d *Dataset) GenderCounts() []models.Bucket {
	counts := make(map[string]int, len(d.genders))
	for _, trip := range d.chronological {
		if !trip.HasGender() && ExcludeMissingGender {
			continue
		}
		counts[trip.Gender]++
	}
	return domainBuckets(d.genders, counts)
}

// BirthYearCounts partitions trips with a known birth year by that year,
// oldest year first
func (d *Dataset) BirthYearCounts() []models.Bucket {
	counts := make(map[int]int)
	for _, trip := range d.chronological {
		if trip.HasBirthYear() {
			counts[*trip.BirthYear]++
		}
	}

	years := make([]int, 0, len(counts))
	for year := range counts {
		years = append(years, year)
	}
	sort.Ints(years)

	rows := make([]models.Bucket, len(years))
	for i, year := range years {
		rows[i] = models.Bucket{Label: strconv.Itoa(year), Key: year, Count: counts[year]}
	}
	return rows
}

// MonthCounts counts trips by start month (1-12)
func (d *Dataset) MonthCounts() []models.Bucket {
	return d.calendarCounts(12, 1, func(c calendarFields) int { return c.month }, numberLabel)
}

// DayCounts counts trips by start day of month (1-31)
func (d *Dataset) DayCounts() []models.Bucket {
	return d.calendarCounts(31, 1, func(c calendarFields) int { return c.day }, numberLabel)
}

// WeekdayCounts counts trips by start weekday, Monday (0) to Sunday (6)
func (d *Dataset) WeekdayCounts() []models.Bucket {
	return d.calendarCounts(7, 0, func(c calendarFields) int { return c.weekday }, func(k int) string {
		return WeekdayNames[k]
	})
}

// HourCounts counts trips by start hour (0-23)
func (d *Dataset) HourCounts() []models.Bucket {
	return d.calendarCounts(24, 0, func(c calendarFields) int { return c.hour }, numberLabel)
}

// DateTimeCounts returns the four calendar breakdowns of start times
func (d *Dataset) DateTimeCounts() models.DateTimeDistribution {
	return models.DateTimeDistribution{
		ByMonth:   d.MonthCounts(),
		ByDay:     d.DayCounts(),
		ByWeekday: d.WeekdayCounts(),
		ByHour:    d.HourCounts(),
	}
}

// calendarCounts tallies size buckets keyed first..first+size-1
func (d *Dataset) calendarCounts(size, first int, field func(calendarFields) int, label func(int) string) []models.Bucket {
	counts := make([]int, size)
	for _, c := range d.calendar {
		counts[field(c)-first]++
	}

	rows := make([]models.Bucket, 0, size)
	for i, count := range counts {
		if count == 0 && OmitEmptyCalendarBuckets {
			continue
		}
		key := i + first
		rows = append(rows, models.Bucket{Label: label(key), Key: key, Count: count})
	}
	return rows
}

// StationCounts partitions the table by origin station. The result is the
// full ranking in its natural order: station name ascending.
func (d *Dataset) StationCounts() []models.StationCount {
	counts := make(map[string]int)
	for _, trip := range d.trips {
		counts[trip.FromStationName]++
	}

	ranking := make([]models.StationCount, 0, len(counts))
	for name, rides := range counts {
		ranking = append(ranking, models.StationCount{StationName: name, RidesBooked: rides})
	}
	sort.Slice(ranking, func(i, j int) bool {
		return ranking[i].StationName < ranking[j].StationName
	})
	return ranking
}

// TopStations returns the n busiest stations, busiest first
func (d *Dataset) TopStations(n int) []models.StationCount {
	return TopN(d.StationCounts(), n)
}

// BottomStations returns the n quietest stations, quietest first
func (d *Dataset) BottomStations(n int) []models.StationCount {
	return BottomN(d.StationCounts(), n)
}

// TopN sorts a full ranking by rides descending and keeps the first n.
// Ties keep the ranking's order. The input is not modified.
func TopN(ranking []models.StationCount, n int) []models.StationCount {
	return rankStations(ranking, n, func(a, b models.StationCount) bool {
		return a.RidesBooked > b.RidesBooked
	})
}

// BottomN sorts a full ranking by rides ascending and keeps the first n.
// Ties keep the ranking's order. The input is not modified.
func BottomN(ranking []models.StationCount, n int) []models.StationCount {
	return rankStations(ranking, n, func(a, b models.StationCount) bool {
		return a.RidesBooked < b.RidesBooked
	})
}

func rankStations(ranking []models.StationCount, n int, less func(a, b models.StationCount) bool) []models.StationCount {
	sorted := append([]models.StationCount(nil), ranking...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return less(sorted[i], sorted[j])
	})

	if n < 0 {
		n = 0
	}
	if n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}

func domainBuckets(domain []string, counts map[string]int) []models.Bucket {
	rows := make([]models.Bucket, len(domain))
	for i, label := range domain {
		rows[i] = models.Bucket{Label: label, Key: i, Count: counts[label]}
	}
	return rows
}

func numberLabel(k int) string {
	return strconv.Itoa(k)
}
