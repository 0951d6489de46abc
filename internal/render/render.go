// Package render turns a (day, metric) selection into the payload a
// choropleth front end draws: the day's GeoJSON features with fill colours,
// plus colour bar, slider, dropdown and hover settings.
package render

import (
	"fmt"
	"slices"
	"time"

	"github.com/couchcryptid/county-choropleth/internal/domain"
	"github.com/paulmach/orb/geojson"
)

// PropFillColor is the feature property carrying the computed fill colour.
const PropFillColor = "fill_color"

// Tooltip is one hover line: a caption and the feature property it shows.
type Tooltip struct {
	Label string `json:"label"`
	Field string `json:"field"`
}

// DefaultTooltips are the hover lines shown for every county.
var DefaultTooltips = []Tooltip{
	{Label: "County", Field: domain.PropCounty},
	{Label: "# Cases", Field: "Confirmed"},
	{Label: "# Deaths", Field: "Deaths"},
	{Label: "% Fatality", Field: "Fatality_Rate"},
	{Label: "% Daily Change", Field: "pConfirmed_Change"},
}

// Tick is a labelled colour bar position.
type Tick struct {
	Value float64 `json:"value"`
	Label string  `json:"label"`
}

// ColorBar describes the legend of the selected metric.
type ColorBar struct {
	Low      float64  `json:"low"`
	High     float64  `json:"high"`
	Format   string   `json:"format"`
	Palette  []string `json:"palette"`
	LowColor string   `json:"low_color"`
	NaNColor string   `json:"nan_color"`
	Ticks    []Tick   `json:"ticks"`
}

// Slider describes the day selector.
type Slider struct {
	Title string `json:"title"`
	Start int    `json:"start"`
	End   int    `json:"end"`
	Step  int    `json:"step"`
	Value int    `json:"value"`
}

// Select describes the metric dropdown.
type Select struct {
	Title   string   `json:"title"`
	Value   string   `json:"value"`
	Options []string `json:"options"`
}

// Payload is everything a renderer needs to draw one frame.
type Payload struct {
	Title       string                     `json:"title"`
	Day         int                        `json:"day"`
	Date        string                     `json:"date"`
	Metric      domain.MetricDescriptor    `json:"metric"`
	ColorBar    ColorBar                   `json:"color_bar"`
	Slider      Slider                     `json:"slider"`
	Select      Select                     `json:"select"`
	Hover       []Tooltip                  `json:"hover"`
	Matched     int                        `json:"matched"`
	Features    *geojson.FeatureCollection `json:"features"`
	GeneratedAt time.Time                  `json:"generated_at"`
}

// Options configure a Renderer.
type Options struct {
	Title string
	// SliderStart is the first selectable day; negative selects the first
	// observed day.
	SliderStart int
}

// Renderer builds payloads from the static catalog and snapshot builder.
// Render holds no state between calls.
type Renderer struct {
	catalog *domain.Catalog
	builder *domain.SnapshotBuilder
	opts    Options
}

// NewRenderer creates a Renderer.
func NewRenderer(catalog *domain.Catalog, builder *domain.SnapshotBuilder, opts Options) *Renderer {
	return &Renderer{catalog: catalog, builder: builder, opts: opts}
}

// Catalog returns the metric catalog.
func (r *Renderer) Catalog() *domain.Catalog { return r.catalog }

// Snapshot builds the raw snapshot for day.
func (r *Renderer) Snapshot(day int) domain.Snapshot {
	return r.builder.BuildSnapshot(day)
}

// DayRange returns the selectable day range of the slider.
func (r *Renderer) DayRange() (start, end int) {
	first, last := r.builder.DayRange()
	start = first
	if r.opts.SliderStart >= 0 {
		start = r.opts.SliderStart
	}
	return start, last
}

// MostRecentDay returns the last observed day, the initial slider value.
func (r *Renderer) MostRecentDay() int {
	return r.builder.MostRecentDay()
}

// Render builds the payload for day and a metric key.
func (r *Renderer) Render(day int, metricKey string) (Payload, error) {
	desc, err := r.catalog.Describe(metricKey)
	if err != nil {
		return Payload{}, err
	}
	return r.render(day, desc), nil
}

// RenderByLabel builds the payload for day and a metric label.
func (r *Renderer) RenderByLabel(day int, label string) (Payload, error) {
	desc, err := r.catalog.DescribeByLabel(label)
	if err != nil {
		return Payload{}, err
	}
	return r.render(day, desc), nil
}

func (r *Renderer) render(day int, desc domain.MetricDescriptor) Payload {
	snap := r.builder.BuildSnapshot(day)
	mapper := NewColorMapper(desc.MinRange, desc.MaxRange)

	fc := geojson.NewFeatureCollection()
	for i := range snap.Records {
		rec := &snap.Records[i]
		f := rec.Feature(snap.Fields)
		f.Properties[PropFillColor] = mapper.ColorFor(rec.Values[desc.Key])
		fc.Append(f)
	}

	start, end := r.DayRange()
	date := ""
	if !snap.Date.IsZero() {
		date = snap.Date.Format(domain.DateLayout)
	}

	return Payload{
		Title:    r.opts.Title,
		Day:      day,
		Date:     date,
		Metric:   desc,
		ColorBar: colorBar(mapper, desc.Format),
		Slider: Slider{
			Title: "Day",
			Start: start,
			End:   end,
			Step:  1,
			Value: day,
		},
		Select: Select{
			Title:   "Select Criteria:",
			Value:   desc.Label,
			Options: r.catalog.Labels(),
		},
		Hover:       slices.Clone(DefaultTooltips),
		Matched:     snap.MatchedCount(),
		Features:    fc,
		GeneratedAt: clock.Now().UTC(),
	}
}

func colorBar(m ColorMapper, format string) ColorBar {
	bounds := m.Boundaries()
	ticks := make([]Tick, len(bounds))
	for i, v := range bounds {
		ticks[i] = Tick{Value: v, Label: FormatNumber(v, format)}
	}
	return ColorBar{
		Low:      m.Low,
		High:     m.High,
		Format:   format,
		Palette:  m.Palette,
		LowColor: m.LowColor,
		NaNColor: m.NaNColor,
		Ticks:    ticks,
	}
}

// String identifies a payload in logs.
func (p Payload) String() string {
	return fmt.Sprintf("day=%d metric=%s matched=%d", p.Day, p.Metric.Key, p.Matched)
}
