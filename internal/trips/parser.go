package trips

import (
	"archive/zip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/passbi/bikeshare_insights/internal/models"
)

var (
	// ErrMissingColumn is returned when a required column has no matching header
	ErrMissingColumn = errors.New("missing column")
	// ErrMalformedTimestamp is returned when a start/stop time cannot be parsed
	ErrMalformedTimestamp = errors.New("malformed timestamp")
	// ErrMalformedNumber is returned when a numeric field cannot be coerced
	ErrMalformedNumber = errors.New("malformed number")
)

// Canonical column names
const (
	ColTripID          = "trip_id"
	ColStartTime       = "start_time"
	ColStopTime        = "stop_time"
	ColTripDuration    = "trip_duration"
	ColFromStationName = "from_station_name"
	ColToStationName   = "to_station_name"
	ColUserType        = "user_type"
	ColGender          = "gender"
	ColBirthYear       = "birth_year"
)

// columnAliases lists the header names accepted for each canonical column.
// Matching is case-insensitive; spaces and dashes are folded to underscores.
var columnAliases = []struct {
	name    string
	aliases []string
}{
	{ColTripID, []string{"trip_id", "tripid", "id"}},
	{ColStartTime, []string{"start_time", "starttime", "started_at"}},
	{ColStopTime, []string{"stop_time", "stoptime", "end_time", "ended_at"}},
	{ColTripDuration, []string{"trip_duration", "tripduration", "duration"}},
	{ColFromStationName, []string{"from_station_name", "start_station_name"}},
	{ColToStationName, []string{"to_station_name", "end_station_name"}},
	{ColUserType, []string{"user_type", "usertype", "member_type"}},
	{ColGender, []string{"gender"}},
	{ColBirthYear, []string{"birth_year", "birthyear"}},
}

// missingMarkers are the null spellings CSV exports use for an absent value
var missingMarkers = map[string]struct{}{
	"":     {},
	"na":   {},
	"n/a":  {},
	"nan":  {},
	"null": {},
	"none": {},
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	time.RFC3339,
}

// Options controls how the trip file is read
type Options struct {
	Delimiter rune
	Location  *time.Location // zone for timestamps without offset, UTC if nil
}

func (o Options) location() *time.Location {
	if o.Location == nil {
		return time.UTC
	}
	return o.Location
}

// Load reads the trip dataset at path. ZIP archives are read from their first
// CSV member; any other file is treated as delimited text.
func Load(path string, opts Options) ([]models.Trip, error) {
	if strings.EqualFold(filepath.Ext(path), ".zip") {
		return loadZip(path, opts)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file, opts)
}

func loadZip(zipPath string, opts Options) ([]models.Trip, error) {
	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open zip: %w", err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		if file.FileInfo().IsDir() || !strings.EqualFold(filepath.Ext(file.Name), ".csv") {
			continue
		}
		// macOS archives carry resource forks next to the real file
		if strings.HasPrefix(file.Name, "__MACOSX/") {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()

		log.Printf("Reading %s from %s", file.Name, filepath.Base(zipPath))
		return Parse(rc, opts)
	}

	return nil, fmt.Errorf("no csv file found in %s", zipPath)
}

// Parse reads trip records from a delimited stream with a header row
func Parse(reader io.Reader, opts Options) ([]models.Trip, error) {
	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true
	if opts.Delimiter != 0 {
		csvReader.Comma = opts.Delimiter
	}

	header, err := csvReader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	colMap, err := resolveColumns(header)
	if err != nil {
		return nil, err
	}

	loc := opts.location()
	labels := newInterner()
	trips := []models.Trip{}
	row := 1

	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			log.Printf("Warning: skipping malformed trip row %d: %v", row, err)
			continue
		}

		trip, err := parseTrip(record, colMap, loc, labels)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}

		trips = append(trips, trip)
	}

	return trips, nil
}

func parseTrip(record []string, colMap map[string]int, loc *time.Location, labels *interner) (models.Trip, error) {
	startTime, err := parseTimestamp(getField(record, colMap, ColStartTime), loc)
	if err != nil {
		return models.Trip{}, fmt.Errorf("%s: %w", ColStartTime, err)
	}

	stopTime, err := parseTimestamp(getField(record, colMap, ColStopTime), loc)
	if err != nil {
		return models.Trip{}, fmt.Errorf("%s: %w", ColStopTime, err)
	}

	duration, err := parseDuration(getField(record, colMap, ColTripDuration))
	if err != nil {
		return models.Trip{}, fmt.Errorf("%s: %w", ColTripDuration, err)
	}

	birthYear, err := parseBirthYear(getField(record, colMap, ColBirthYear))
	if err != nil {
		return models.Trip{}, fmt.Errorf("%s: %w", ColBirthYear, err)
	}

	return models.Trip{
		TripID:          strings.Clone(getField(record, colMap, ColTripID)),
		StartTime:       startTime,
		StopTime:        stopTime,
		TripDuration:    duration,
		FromStationName: labels.intern(getField(record, colMap, ColFromStationName)),
		ToStationName:   labels.intern(getField(record, colMap, ColToStationName)),
		UserType:        labels.intern(optionalField(record, colMap, ColUserType)),
		Gender:          labels.intern(optionalField(record, colMap, ColGender)),
		BirthYear:       birthYear,
	}, nil
}

func parseTimestamp(value string, loc *time.Location) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedTimestamp, value)
}

func parseDuration(value string) (float64, error) {
	if isMissing(value) {
		return 0, nil
	}

	seconds, err := strconv.ParseFloat(strings.ReplaceAll(value, ",", ""), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedNumber, value)
	}
	return seconds, nil
}

// parseBirthYear accepts "1985" and the float form "1985.0" written by
// spreadsheet exports. Missing markers mean unknown.
func parseBirthYear(value string) (*int, error) {
	if isMissing(value) {
		return nil, nil
	}

	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) || f != math.Trunc(f) {
		return nil, fmt.Errorf("%w: %q", ErrMalformedNumber, value)
	}

	year := int(f)
	return &year, nil
}

// Helper functions

func normalizeHeader(col string) string {
	col = strings.TrimPrefix(col, "\ufeff")
	col = strings.ToLower(strings.TrimSpace(col))
	col = strings.NewReplacer(" ", "_", "-", "_").Replace(col)
	return col
}

// resolveColumns maps every canonical column to its index in the header
func resolveColumns(header []string) (map[string]int, error) {
	positions := make(map[string]int, len(header))
	for i, col := range header {
		key := normalizeHeader(col)
		if _, seen := positions[key]; !seen {
			positions[key] = i
		}
	}

	colMap := make(map[string]int, len(columnAliases))
	for _, col := range columnAliases {
		for _, alias := range col.aliases {
			if idx, ok := positions[alias]; ok {
				colMap[col.name] = idx
				break
			}
		}
		if _, ok := colMap[col.name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col.name)
		}
	}

	return colMap, nil
}

func getField(record []string, colMap map[string]int, fieldName string) string {
	if idx, ok := colMap[fieldName]; ok && idx < len(record) {
		return strings.TrimSpace(record[idx])
	}
	return ""
}

// optionalField returns the field, or "" when it holds a missing marker
func optionalField(record []string, colMap map[string]int, fieldName string) string {
	value := getField(record, colMap, fieldName)
	if isMissing(value) {
		return ""
	}
	return value
}

func isMissing(value string) bool {
	_, ok := missingMarkers[strings.ToLower(value)]
	return ok
}

// interner keeps one copy of each repeated label so categorical columns share
// their backing strings.
type interner struct {
	seen map[string]string
}

func newInterner() *interner {
	return &interner{seen: make(map[string]string)}
}

func (in *interner) intern(s string) string {
	if v, ok := in.seen[s]; ok {
		return v
	}
	// csv fields are substrings of the whole row
	s = strings.Clone(s)
	in.seen[s] = s
	return s
}
