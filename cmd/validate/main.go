// Command validate checks the boundary and series inputs for the problems
// the left join silently papers over: series counties missing from the
// boundary, duplicate (fips, day) rows, days with no rows at all, and dates
// that disagree with the day index.
//
// Usage:
//
//	go run ./cmd/validate \
//	  --boundary data/counties.geojson \
//	  --series data/county_cases.csv
package main

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/couchcryptid/county-choropleth/internal/adapter/boundary"
	"github.com/couchcryptid/county-choropleth/internal/adapter/series"
	"github.com/couchcryptid/county-choropleth/internal/domain"
)

// maxListed caps how many offending keys a single message lists.
const maxListed = 10

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
	notes  []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) notef(format string, args ...any) {
	p.notes = append(p.notes, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	defaults := boundary.DefaultOptions()
	boundaryPath := flag.String("boundary", "", "path to the county boundary file (.shp or .geojson)")
	seriesPath := flag.String("series", "", "path to the per-county daily series CSV")
	fipsField := flag.String("fips-field", defaults.FIPSField, "boundary attribute holding the county FIPS code")
	nameField := flag.String("name-field", defaults.NameField, "boundary attribute holding the county name")
	flag.Parse()

	if *boundaryPath == "" || *seriesPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*boundaryPath, *seriesPath, boundary.Options{FIPSField: *fipsField, NameField: *nameField}); code != 0 {
		os.Exit(code)
	}
}

func run(boundaryPath, seriesPath string, opts boundary.Options) int {
	fmt.Println("=== County Data Integrity Validation ===")
	fmt.Println()

	geoms, err := boundary.Load(boundaryPath, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load boundary: %v\n", err)
		return 1
	}

	rows, err := series.LoadCSV(seriesPath, slog.Default())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load series: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateBoundary(geoms),
		validateCoverage(geoms, rows),
		validateDuplicates(rows),
		validateDayGaps(rows),
		validateDates(rows),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d counties, %d series rows\n", len(geoms), len(rows))

	for _, p := range phases {
		if p.passed() && len(p.notes) == 0 {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for _, n := range p.notes {
			fmt.Printf("  Note: %s\n", n)
		}
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: Boundary ──

func validateBoundary(geoms []domain.CountyGeometry) *phase {
	p := &phase{name: "Phase 1: Boundary geometry"}
	for _, g := range geoms {
		if g.FIPS <= 0 {
			p.errorf("county %q: non-positive FIPS %d", g.Name, g.FIPS)
		}
		if g.Name == "" {
			p.notef("FIPS %05d has no name", g.FIPS)
		}
		if g.Geometry == nil || g.Geometry.Bound().IsEmpty() {
			p.errorf("FIPS %05d: empty geometry", g.FIPS)
		}
	}
	return p
}

// ── Phase 2: FIPS coverage ──
// Series rows for unknown counties are dropped by the join; boundary counties
// without rows are always drawn with defaults.

func validateCoverage(geoms []domain.CountyGeometry, rows []domain.DailyMetric) *phase {
	p := &phase{name: "Phase 2: FIPS coverage (both ways)"}

	known := make(map[int]bool, len(geoms))
	for _, g := range geoms {
		known[g.FIPS] = true
	}

	seen := map[int]bool{}
	orphans := map[int]int{}
	for i := range rows {
		seen[rows[i].FIPS] = true
		if !known[rows[i].FIPS] {
			orphans[rows[i].FIPS]++
		}
	}
	for _, fips := range sortedKeys(orphans) {
		p.errorf("series FIPS %05d (%d rows) has no boundary geometry", fips, orphans[fips])
	}

	var uncovered []int
	for _, g := range geoms {
		if !seen[g.FIPS] {
			uncovered = append(uncovered, g.FIPS)
		}
	}
	if len(uncovered) > 0 {
		p.notef("%d boundary counties have no series rows and always render defaults: %s",
			len(uncovered), listFIPS(uncovered))
	}
	return p
}

// ── Phase 3: Duplicates ──

func validateDuplicates(rows []domain.DailyMetric) *phase {
	p := &phase{name: "Phase 3: Duplicate (fips, day) rows"}

	type key struct{ fips, day int }
	counts := map[key]int{}
	var order []key
	for i := range rows {
		k := key{fips: rows[i].FIPS, day: rows[i].Day}
		if counts[k] == 0 {
			order = append(order, k)
		}
		counts[k]++
	}
	for _, k := range order {
		if n := counts[k]; n > 1 {
			p.errorf("FIPS %05d day %d: %d rows (first row wins)", k.fips, k.day, n)
		}
	}
	return p
}

// ── Phase 4: Day gaps ──

func validateDayGaps(rows []domain.DailyMetric) *phase {
	p := &phase{name: "Phase 4: Day index gaps"}
	if len(rows) == 0 {
		p.errorf("series has no rows")
		return p
	}

	days := map[int]bool{}
	first, last := rows[0].Day, rows[0].Day
	for i := range rows {
		days[rows[i].Day] = true
		first = min(first, rows[i].Day)
		last = max(last, rows[i].Day)
	}
	for d := first; d <= last; d++ {
		if !days[d] {
			p.errorf("day %d has no rows; every county renders defaults", d)
		}
	}
	return p
}

// ── Phase 5: Date/day consistency ──
// Each day maps to one date and dates advance one calendar day per index.

func validateDates(rows []domain.DailyMetric) *phase {
	p := &phase{name: "Phase 5: Date/day consistency"}

	dates := map[int]time.Time{}
	var (
		epoch    time.Time
		epochDay int
	)
	for i := range rows {
		r := rows[i]
		if r.Date.IsZero() {
			continue
		}
		if prev, ok := dates[r.Day]; ok {
			if !prev.Equal(r.Date) {
				p.errorf("day %d: FIPS %05d dated %s, earlier row dated %s",
					r.Day, r.FIPS, r.Date.Format(domain.DateLayout), prev.Format(domain.DateLayout))
			}
			continue
		}
		dates[r.Day] = r.Date
		if epoch.IsZero() {
			epoch, epochDay = r.Date.AddDate(0, 0, -r.Day), r.Day
		}
	}

	if epoch.IsZero() {
		p.notef("series carries no dates")
		return p
	}

	for _, day := range sortedKeys(dates) {
		want := epoch.AddDate(0, 0, day)
		if !dates[day].Equal(want) {
			p.errorf("day %d dated %s; day %d implies %s",
				day, dates[day].Format(domain.DateLayout), epochDay, want.Format(domain.DateLayout))
		}
	}
	return p
}

// ── Helpers ──

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func listFIPS(fips []int) string {
	s := ""
	for i, f := range fips {
		if i == maxListed {
			return s + fmt.Sprintf(", ... (%d more)", len(fips)-maxListed)
		}
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%05d", f)
	}
	return s
}
