package domain

import "strings"

// Role keyword lists, in priority order.
var (
	DateKeywords  = []string{"date", "datetime", "time", "day"}
	WaterKeywords = []string{"water", "level", "wl", "depth", "height"}
	AreaKeywords  = []string{"barangay", "brgy", "area", "location", "sitio"}
	FloodKeywords = []string{"flood", "event", "is_flood", "flooded", "occurrence"}

	// DamageBuckets are resolved independently: infrastructure, agriculture, generic.
	DamageBuckets = [][]string{
		{"infrastruct", "infra", "building"},
		{"agri", "agriculture", "crop", "farm"},
		{"damage", "loss", "estimated_damage", "total_damage"},
	}
)

// ResolveColumn picks the column for a role. A non-empty override present in
// columns wins. Otherwise each keyword is tried in order against every column
// in original order, and the first column whose lowercased name contains the
// keyword is returned. Keyword priority beats column position.
func ResolveColumn(columns []string, override string, keywords []string) (string, bool) {
	if override != "" && containsColumn(columns, override) {
		return override, true
	}
	lower := make([]string, len(columns))
	for i, c := range columns {
		lower[i] = strings.ToLower(c)
	}
	for _, k := range keywords {
		for i, c := range lower {
			if strings.Contains(c, k) {
				return columns[i], true
			}
		}
	}
	return "", false
}

// ResolveSchema assigns roles to columns before any data is inspected. The
// date and water roles may be left empty here; NormalizeDates and CleanWater
// fill them in.
func ResolveSchema(columns []string, opts Options) Schema {
	var s Schema
	s.DateCol, _ = ResolveColumn(columns, opts.DateCol, DateKeywords)
	s.WaterCol, _ = ResolveColumn(columns, opts.WaterCol, WaterKeywords)
	s.AreaCol, _ = ResolveColumn(columns, opts.AreaCol, AreaKeywords)
	s.FloodCol, _ = ResolveColumn(columns, "", FloodKeywords)
	s.DamageCols = ResolveDamageColumns(columns, opts.DamageCols)
	return s
}

// ResolveDamageColumns keeps the explicit list filtered to present columns when
// one is given. Otherwise one column per damage bucket is resolved. The result
// is de-duplicated in first-seen order.
func ResolveDamageColumns(columns, explicit []string) []string {
	var candidates []string
	if len(explicit) > 0 {
		for _, c := range explicit {
			if containsColumn(columns, c) {
				candidates = append(candidates, c)
			}
		}
	} else {
		for _, bucket := range DamageBuckets {
			if c, ok := ResolveColumn(columns, "", bucket); ok {
				candidates = append(candidates, c)
			}
		}
	}

	seen := make(map[string]bool, len(candidates))
	out := candidates[:0]
	for _, c := range candidates {
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func containsColumn(columns []string, name string) bool {
	for _, c := range columns {
		if c == name {
			return true
		}
	}
	return false
}
