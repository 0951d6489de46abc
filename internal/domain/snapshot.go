package domain

import (
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// SnapshotRecord is one county of a Snapshot.
type SnapshotRecord struct {
	FIPS     int
	Name     string
	County   string
	Geometry orb.Geometry
	Day      int
	Date     time.Time
	Values   map[string]float64

	// Matched is true when a metric row for the day joined this county.
	Matched bool
}

// Snapshot is the geometry-annotated record set for one day.
type Snapshot struct {
	Day     int
	Date    time.Time
	Fields  []string
	Records []SnapshotRecord
}

// MatchedCount reports how many records joined a metric row.
func (s Snapshot) MatchedCount() int {
	n := 0
	for i := range s.Records {
		if s.Records[i].Matched {
			n++
		}
	}
	return n
}

// Empty reports whether no metric row joined, i.e. every record is defaulted.
func (s Snapshot) Empty() bool {
	return s.MatchedCount() == 0
}

// FeatureCollection converts the snapshot into GeoJSON, one feature per
// record, carrying the identity properties and every snapshot field.
func (s Snapshot) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i := range s.Records {
		fc.Append(s.Records[i].Feature(s.Fields))
	}
	return fc
}

// MarshalJSON encodes the snapshot as a GeoJSON FeatureCollection.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	return s.FeatureCollection().MarshalJSON()
}

// Feature converts a record into a GeoJSON feature with the given fields.
func (r SnapshotRecord) Feature(fields []string) *geojson.Feature {
	f := geojson.NewFeature(r.Geometry)
	f.ID = r.FIPS
	f.Properties[PropFIPS] = r.FIPS
	f.Properties[PropName] = r.Name
	f.Properties[PropCounty] = r.County
	f.Properties[PropDay] = r.Day
	f.Properties[PropDate] = formatDate(r.Date)
	for _, field := range fields {
		f.Properties[field] = r.Values[field]
	}
	return f
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

type dayKey struct {
	day  int
	fips int
}

// SnapshotBuilder joins the static geometry and series tables per day. It
// never mutates its inputs and is safe for concurrent use.
type SnapshotBuilder struct {
	geoms      []CountyGeometry
	series     []DailyMetric
	rows       map[dayKey]int
	dates      map[int]time.Time
	fields     []string
	firstDay   int
	lastDay    int
	duplicates int
}

// NewSnapshotBuilder indexes the geometry and series tables. Both must be
// non-empty and geometry FIPS codes unique, otherwise the error wraps
// ErrMissingSourceData.
func NewSnapshotBuilder(geoms []CountyGeometry, series []DailyMetric) (*SnapshotBuilder, error) {
	if len(geoms) == 0 {
		return nil, fmt.Errorf("%w: geometry table is empty", ErrMissingSourceData)
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("%w: metric series is empty", ErrMissingSourceData)
	}

	seen := make(map[int]struct{}, len(geoms))
	for _, g := range geoms {
		if _, dup := seen[g.FIPS]; dup {
			return nil, fmt.Errorf("%w: duplicate geometry FIPS %05d", ErrMissingSourceData, g.FIPS)
		}
		seen[g.FIPS] = struct{}{}
	}

	b := &SnapshotBuilder{
		geoms:    geoms,
		series:   series,
		rows:     make(map[dayKey]int, len(series)),
		dates:    make(map[int]time.Time),
		firstDay: series[0].Day,
		lastDay:  series[0].Day,
	}

	extra := make(map[string]struct{})
	for i, m := range series {
		k := dayKey{day: m.Day, fips: m.FIPS}
		if _, dup := b.rows[k]; dup {
			b.duplicates++
			continue
		}
		b.rows[k] = i

		if _, ok := b.dates[m.Day]; !ok && !m.Date.IsZero() {
			b.dates[m.Day] = m.Date
		}
		b.firstDay = min(b.firstDay, m.Day)
		b.lastDay = max(b.lastDay, m.Day)

		for field := range m.Values {
			if !slices.Contains(DefaultFields, field) {
				extra[field] = struct{}{}
			}
		}
	}

	b.fields = append(b.fields, DefaultFields...)
	extraFields := make([]string, 0, len(extra))
	for field := range extra {
		extraFields = append(extraFields, field)
	}
	sort.Strings(extraFields)
	b.fields = append(b.fields, extraFields...)

	return b, nil
}

// BuildSnapshot returns the snapshot for day. Days with no metric rows,
// including days outside the observed range, yield a snapshot where every
// record is defaulted.
func (b *SnapshotBuilder) BuildSnapshot(day int) Snapshot {
	date := b.dates[day]
	snap := Snapshot{
		Day:     day,
		Date:    date,
		Fields:  b.Fields(),
		Records: make([]SnapshotRecord, 0, len(b.geoms)),
	}

	for _, g := range b.geoms {
		rec := SnapshotRecord{
			FIPS:     g.FIPS,
			Name:     g.Name,
			County:   g.Name,
			Geometry: g.Geometry,
			Day:      day,
			Date:     date,
			Values:   make(map[string]float64, len(b.fields)),
		}
		for _, field := range b.fields {
			rec.Values[field] = 0
		}

		if i, ok := b.rows[dayKey{day: day, fips: g.FIPS}]; ok {
			m := b.series[i]
			rec.Matched = true
			if m.County != "" {
				rec.County = m.County
			}
			if !m.Date.IsZero() {
				rec.Date = m.Date
			}
			for field, v := range m.Values {
				rec.Values[field] = v
			}
		}

		snap.Records = append(snap.Records, rec)
	}

	return snap
}

// Fields returns the recognized numeric fields: DefaultFields followed by any
// other series columns in name order.
func (b *SnapshotBuilder) Fields() []string {
	return slices.Clone(b.fields)
}

// DayRange returns the first and last observed day.
func (b *SnapshotBuilder) DayRange() (first, last int) {
	return b.firstDay, b.lastDay
}

// MostRecentDay returns the last observed day.
func (b *SnapshotBuilder) MostRecentDay() int {
	return b.lastDay
}

// DateOf returns the calendar date observed for day, if any.
func (b *SnapshotBuilder) DateOf(day int) (time.Time, bool) {
	d, ok := b.dates[day]
	return d, ok
}

// Counties returns the number of counties in the geometry table.
func (b *SnapshotBuilder) Counties() int {
	return len(b.geoms)
}

// Duplicates reports how many series rows were ignored because an earlier
// row had the same (FIPS, day) pair.
func (b *SnapshotBuilder) Duplicates() int {
	return b.duplicates
}
