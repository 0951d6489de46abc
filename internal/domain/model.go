package domain

import (
	"errors"
	"time"

	"github.com/paulmach/orb"
)

var (
	// ErrUnknownMetric is returned when a metric key is not in the catalog.
	ErrUnknownMetric = errors.New("unknown metric")

	// ErrUnknownLabel is returned when no catalog entry carries the label.
	ErrUnknownLabel = errors.New("unknown metric label")

	// ErrMissingSourceData marks an absent or corrupt geometry or series
	// input. It is fatal at startup.
	ErrMissingSourceData = errors.New("missing source data")
)

// DateLayout is the calendar date format used in snapshot output.
const DateLayout = "2006-01-02"

// Property keys that are always present on a snapshot feature.
const (
	PropFIPS   = "fips"
	PropName   = "name"
	PropCounty = "County"
	PropDay    = "Day"
	PropDate   = "Date"
)

// DefaultFields are the numeric series columns every snapshot carries,
// whether or not the loaded series has them.
var DefaultFields = []string{
	"Confirmed",
	"Deaths",
	"Recovered",
	"Active",
	"Fatality_Rate",
	"nConfirmed_Change",
	"nDeaths_Change",
	"nRecovered_Change",
	"pConfirmed_Change",
	"pDeaths_Change",
	"pRecovered_Change",
}

// CountyGeometry is a county boundary from the reference boundary dataset.
type CountyGeometry struct {
	FIPS     int
	Name     string
	Geometry orb.Geometry // orb.Polygon or orb.MultiPolygon
}

// DailyMetric is one row of the per-county time series.
type DailyMetric struct {
	FIPS   int
	County string
	Day    int
	Date   time.Time // zero when the source row had no date
	Values map[string]float64
}

// MetricDescriptor describes how a metric is displayed.
type MetricDescriptor struct {
	Key      string  `json:"key"`
	MinRange float64 `json:"min_range"`
	MaxRange float64 `json:"max_range"`
	Format   string  `json:"format"`
	Label    string  `json:"label"`
}
