package models

import "time"

// Trip represents one row of the bike-share trip dataset
type Trip struct {
	TripID          string
	StartTime       time.Time
	StopTime        time.Time
	TripDuration    float64 // seconds
	FromStationName string
	ToStationName   string
	UserType        string
	Gender          string // empty when missing
	BirthYear       *int   // nil when missing
}

// HasGender reports whether the trip carries a gender label
func (t Trip) HasGender() bool {
	return t.Gender != ""
}

// HasBirthYear reports whether the trip carries a birth year
func (t Trip) HasBirthYear() bool {
	return t.BirthYear != nil
}

// Bucket is one (label, count) pair of a summary table.
// Key holds the numeric bucket for numeric groupings (year, month, hour...).
type Bucket struct {
	Label string `json:"label"`
	Key   int    `json:"key"`
	Count int    `json:"count"`
}

// SummaryTable is the output of one aggregation, ready for rendering
type SummaryTable struct {
	Name   string   `json:"name"`
	Title  string   `json:"title"`
	XLabel string   `json:"x_label"`
	YLabel string   `json:"y_label"`
	Rows   []Bucket `json:"rows"`
}

// Total returns the sum of counts across all rows
func (s SummaryTable) Total() int {
	total := 0
	for _, r := range s.Rows {
		total += r.Count
	}
	return total
}

// StationCount is the number of rides booked from one station
type StationCount struct {
	StationName string `json:"station_name"`
	RidesBooked int    `json:"rides_booked"`
}

// StationBuckets converts a station ranking into summary rows
func StationBuckets(ranking []StationCount) []Bucket {
	rows := make([]Bucket, len(ranking))
	for i, s := range ranking {
		rows[i] = Bucket{Label: s.StationName, Key: i, Count: s.RidesBooked}
	}
	return rows
}

// DateTimeDistribution holds the four calendar breakdowns of trip start times
type DateTimeDistribution struct {
	ByMonth   []Bucket `json:"by_month"`
	ByDay     []Bucket `json:"by_day"`
	ByWeekday []Bucket `json:"by_weekday"`
	ByHour    []Bucket `json:"by_hour"`
}

// DatasetOverview describes the loaded canonical table
type DatasetOverview struct {
	Records      int        `json:"records"`
	Stations     int        `json:"stations"`
	UserTypes    []string   `json:"user_types"`
	Genders      []string   `json:"genders"`
	FirstStartAt *time.Time `json:"first_start_at,omitempty"`
	LastStartAt  *time.Time `json:"last_start_at,omitempty"`

	TripDuration *DurationSummary `json:"trip_duration,omitempty"`
}

// DurationSummary describes the trip duration column, in seconds
type DurationSummary struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Median float64 `json:"median"`
	P95    float64 `json:"p95"`
	Max    float64 `json:"max"`
}
