package stats

import (
	"log"
	"sort"
	"time"

	"github.com/passbi/bikeshare_insights/internal/models"
)

// Dataset holds the canonical trip table in memory together with the views
// the aggregations read from. It is never modified after NewDataset returns,
// so any number of goroutines may aggregate over it without locking.
type Dataset struct {
	trips         []models.Trip // load order
	chronological []models.Trip // stable copy sorted by start time
	calendar      []calendarFields
	userTypes     []string
	genders       []string
}

// calendarFields are the start-time components of one trip.
// weekday is Monday=0 ... Sunday=6.
type calendarFields struct {
	month   int
	day     int
	weekday int
	hour    int
}

// NewDataset builds the canonical table and its derived views. The input
// slice is copied; the caller may reuse it.
func NewDataset(trips []models.Trip) *Dataset {
	startTime := time.Now()

	d := &Dataset{
		trips: append([]models.Trip(nil), trips...),
	}

	d.chronological = append([]models.Trip(nil), d.trips...)
	sort.SliceStable(d.chronological, func(i, j int) bool {
		return d.chronological[i].StartTime.Before(d.chronological[j].StartTime)
	})

	d.calendar = make([]calendarFields, len(d.chronological))
	for i, trip := range d.chronological {
		d.calendar[i] = calendarOf(trip.StartTime)
	}

	userTypes := make(map[string]struct{})
	genders := make(map[string]struct{})
	for _, trip := range d.trips {
		userTypes[trip.UserType] = struct{}{}
		if trip.HasGender() {
			genders[trip.Gender] = struct{}{}
		}
	}
	d.userTypes = sortedKeys(userTypes)
	d.genders = sortedKeys(genders)

	log.Printf("Dataset indexed in %v (%d trips, %d user types, %d genders)",
		time.Since(startTime), len(d.trips), len(d.userTypes), len(d.genders))

	return d
}

// WithDomains returns a copy of the dataset whose categorical domains are the
// given labels merged with the observed ones. Declared labels that never occur
// show up in aggregations with a zero count.
func (d *Dataset) WithDomains(userTypes, genders []string) *Dataset {
	clone := *d
	clone.userTypes = mergeDomain(d.userTypes, userTypes)
	clone.genders = mergeDomain(d.genders, genders)
	return &clone
}

// Len returns the number of trips in the canonical table
func (d *Dataset) Len() int {
	return len(d.trips)
}

// Trips returns a copy of the canonical table in load order
func (d *Dataset) Trips() []models.Trip {
	return append([]models.Trip(nil), d.trips...)
}

// Chronological returns a copy of the table sorted by start time. Trips that
// start at the same instant keep their load order.
func (d *Dataset) Chronological() []models.Trip {
	return append([]models.Trip(nil), d.chronological...)
}

// UserTypes returns the user-type domain in lexicographic order
func (d *Dataset) UserTypes() []string {
	return append([]string(nil), d.userTypes...)
}

// Genders returns the gender domain in lexicographic order, without the
// missing label
func (d *Dataset) Genders() []string {
	return append([]string(nil), d.genders...)
}

// Overview summarises the table for the dataset endpoint
func (d *Dataset) Overview() models.DatasetOverview {
	overview := models.DatasetOverview{
		Records:   len(d.trips),
		Stations:  len(d.StationCounts()),
		UserTypes: d.UserTypes(),
		Genders:   d.Genders(),
	}

	if n := len(d.chronological); n > 0 {
		first := d.chronological[0].StartTime
		last := d.chronological[n-1].StartTime
		overview.FirstStartAt = &first
		overview.LastStartAt = &last
	}
	overview.TripDuration = d.DurationSummary()

	return overview
}

func calendarOf(t time.Time) calendarFields {
	return calendarFields{
		month:   int(t.Month()),
		day:     t.Day(),
		weekday: (int(t.Weekday()) + 6) % 7,
		hour:    t.Hour(),
	}
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func mergeDomain(observed, declared []string) []string {
	set := make(map[string]struct{}, len(observed)+len(declared))
	for _, label := range observed {
		set[label] = struct{}{}
	}
	for _, label := range declared {
		if label != "" {
			set[label] = struct{}{}
		}
	}
	return sortedKeys(set)
}
