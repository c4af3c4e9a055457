// Package domain models flood-monitoring records and the analytics applied to
// them before they reach dashboards and exports.
//
// # Input Shape
//
// Input is an arbitrary table: one header row and any number of string cells.
// Nothing about the column names is assumed. Roles are assigned by
// [ResolveColumn], which scans a role's keyword list in priority order and
// returns the first column whose lowercased name contains the keyword:
//
//	date:   date, datetime, time, day
//	water:  water, level, wl, depth, height
//	area:   barangay, brgy, area, location, sitio
//	flood:  flood, event, is_flood, flooded, occurrence
//
// A caller-supplied column name always wins when the table has it.
//
// # Dates
//
// Municipal logbooks often split the date across three columns. When Date,
// Day and Year are all present they are joined as "Date Day, Year" into the
// synthetic column [CombinedDateColumn]. When no date column resolves at all,
// consecutive daily dates starting 2000-01-01 are generated into
// [AutogenDateColumn]. Rows whose date cannot be parsed are dropped and the
// remainder is sorted (stable) by timestamp.
//
// # Water Level
//
// The water column is coerced to numbers and gaps are interpolated in both
// directions, so leading and trailing blanks take the nearest valid value.
// If no water column resolves, the first all-numeric column is used instead.
//
// # Flood Classification
//
// A z-score is computed against the population standard deviation. A record
// is an outlier when |z| exceeds the outlier threshold. Flood events come from
// an explicit occurrence column when one exists, otherwise from the rule
//
//	water >= mean + k*std(sample)  OR  |z| > flood z threshold
//
// # Damage
//
// Damage cells are free text such as "₱1,234.50". Every character that is not
// a digit, '.', or '-' is stripped before parsing; anything unparseable counts
// as zero. See [ParseLenientNumber].
package domain
