// Command genmock writes a synthetic county boundary and daily series for
// local development. Counties are laid out as a grid of unit squares and
// cases grow along a seeded random curve, so runs are reproducible.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  --boundary-out data/counties.geojson \
//	  --series-out data/county_cases.csv
package main

import (
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/couchcryptid/county-choropleth/internal/adapter/boundary"
	"github.com/couchcryptid/county-choropleth/internal/domain"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// stateFIPS prefixes every generated county code (13 = Georgia).
const stateFIPS = 13

var baseDate = time.Date(2020, time.March, 3, 0, 0, 0, 0, time.UTC)

type options struct {
	boundaryOut string
	seriesOut   string
	counties    int
	columns     int
	days        int
	seed        uint64
}

// county is a generated county with its running totals.
type county struct {
	fips      int
	name      string
	confirmed float64
	deaths    float64
	recovered float64
	growth    float64
	started   int
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	var opts options
	flag.StringVar(&opts.boundaryOut, "boundary-out", "", "output path for the boundary GeoJSON")
	flag.StringVar(&opts.seriesOut, "series-out", "", "output path for the series CSV")
	flag.IntVar(&opts.counties, "counties", 40, "number of counties to generate")
	flag.IntVar(&opts.columns, "columns", 8, "counties per grid row")
	flag.IntVar(&opts.days, "days", 45, "number of days to generate")
	flag.Uint64Var(&opts.seed, "seed", 2020, "random seed")
	flag.Parse()

	if opts.boundaryOut == "" || opts.seriesOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: --boundary-out, --series-out")
	}
	if opts.counties <= 0 || opts.columns <= 0 || opts.days <= 0 {
		return fmt.Errorf("--counties, --columns and --days must be positive")
	}

	rng := rand.New(rand.NewPCG(opts.seed, opts.seed^0x9e3779b97f4a7c15))
	counties := newCounties(rng, opts)

	if err := writeBoundary(opts.boundaryOut, counties, opts.columns); err != nil {
		return fmt.Errorf("writing boundary: %w", err)
	}
	log.Printf("wrote boundary: %s (%d counties)", opts.boundaryOut, len(counties))

	rows, err := writeSeries(opts.seriesOut, rng, counties, opts.days)
	if err != nil {
		return fmt.Errorf("writing series: %w", err)
	}
	log.Printf("wrote series: %s (%d rows, %d days)", opts.seriesOut, rows, opts.days)
	return nil
}

func newCounties(rng *rand.Rand, opts options) []*county {
	out := make([]*county, opts.counties)
	for i := range out {
		out[i] = &county{
			fips:    stateFIPS*1000 + 2*i + 1,
			name:    fmt.Sprintf("County %d", i+1),
			growth:  1.05 + rng.Float64()*0.25,
			started: rng.IntN(max(opts.days/2, 1)),
		}
	}
	return out
}

// writeBoundary lays counties out left to right, top to bottom.
func writeBoundary(path string, counties []*county, columns int) error {
	fields := boundary.DefaultOptions()
	fc := geojson.NewFeatureCollection()
	for i, c := range counties {
		x := float64(i % columns)
		y := -float64(i / columns)
		f := geojson.NewFeature(orb.Polygon{{{x, y}, {x + 1, y}, {x + 1, y + 1}, {x, y + 1}, {x, y}}})
		f.Properties[fields.FIPSField] = fmt.Sprintf("%05d", c.fips)
		f.Properties[fields.NameField] = c.name
		fc.Append(f)
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}

// writeSeries emits one row per county per day once the county's outbreak
// has started. The leading unnamed index column mirrors common exports.
func writeSeries(path string, rng *rand.Rand, counties []*county, days int) (int, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, err
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := append([]string{"", "fips", "County", "Day", "Date"}, domain.DefaultFields...)
	if err := w.Write(header); err != nil {
		return 0, err
	}

	rows := 0
	for day := range days {
		date := baseDate.AddDate(0, 0, day).Format(domain.DateLayout)
		for _, c := range counties {
			if day < c.started {
				continue
			}
			values := c.advance(rng)
			record := make([]string, 0, len(header))
			record = append(record, strconv.Itoa(rows), strconv.Itoa(c.fips), c.name, strconv.Itoa(day), date)
			for _, field := range domain.DefaultFields {
				record = append(record, strconv.FormatFloat(values[field], 'f', -1, 64))
			}
			if err := w.Write(record); err != nil {
				return rows, err
			}
			rows++
		}
	}

	w.Flush()
	return rows, w.Error()
}

// advance moves a county forward one day and returns its metric values.
func (c *county) advance(rng *rand.Rand) map[string]float64 {
	prevConfirmed, prevDeaths, prevRecovered := c.confirmed, c.deaths, c.recovered

	c.confirmed = math.Max(1, math.Round(c.confirmed*c.growth+rng.Float64()*3))
	c.deaths = math.Min(c.confirmed, math.Round(c.deaths+(c.confirmed-prevConfirmed)*rng.Float64()*0.05))
	c.recovered = math.Min(c.confirmed-c.deaths, math.Round(c.recovered+prevConfirmed*rng.Float64()*0.04))

	v := map[string]float64{
		"Confirmed":         c.confirmed,
		"Deaths":            c.deaths,
		"Recovered":         c.recovered,
		"Active":            c.confirmed - c.deaths - c.recovered,
		"Fatality_Rate":     round2(100 * c.deaths / c.confirmed),
		"nConfirmed_Change": c.confirmed - prevConfirmed,
		"nDeaths_Change":    c.deaths - prevDeaths,
		"nRecovered_Change": c.recovered - prevRecovered,
		"pConfirmed_Change": percentChange(prevConfirmed, c.confirmed),
		"pDeaths_Change":    percentChange(prevDeaths, c.deaths),
		"pRecovered_Change": percentChange(prevRecovered, c.recovered),
	}
	return v
}

func percentChange(prev, cur float64) float64 {
	if prev == 0 {
		return 0
	}
	return round2(100 * (cur - prev) / prev)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
