// Package domain models county-level outbreak data for choropleth rendering.
//
// # Data Sources
//
// Two static tables are loaded once at startup and never mutated:
//
//	County geometry: one boundary per county, keyed by FIPS code. Sourced from
//	a TIGER/Line style shapefile (GEOID10, NAME10 columns) or an equivalent
//	GeoJSON export.
//
//	Daily county metrics: one row per (county, day) pair with cumulative and
//	daily-change columns, e.g. Confirmed, Deaths, Fatality_Rate,
//	nConfirmed_Change, pConfirmed_Change.
//
// # Day Index
//
// Day is an integer offset from the first observed date of the outbreak.
// The slider control of a renderer walks this axis. Days outside the observed
// range are valid input and yield a snapshot with every metric defaulted.
//
// # Join Semantics
//
// A [Snapshot] is a left join with the geometry table on the left:
//
//	every county in the geometry table appears exactly once, in table order;
//	counties with no metric row for the day carry default values;
//	metric rows whose FIPS is not in the geometry table are dropped.
//
// Defaults:
//
//	numeric fields  0
//	Day             the requested day
//	Date            the calendar date observed for that day elsewhere in the
//	                series, or empty when the day was never observed
//
// # Metric Catalog
//
// A [Catalog] maps metric keys (series column names) to the colour bar range,
// numeral format and label shown to users. Lookup works in both directions so
// a dropdown can be driven by labels while the data layer speaks keys.
package domain
