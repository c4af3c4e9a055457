package domain

// DamageResult holds cleaned damage values aligned with the records they came
// from, and the per-year sums.
type DamageResult struct {
	Columns []string
	Values  [][]float64
	PerYear map[int]map[string]float64
}

// AggregateDamage cleans every damage column with ParseLenientNumber and sums
// each column per calendar year. No columns yields an empty aggregate.
func AggregateDamage(records []Record, columns []string) DamageResult {
	res := DamageResult{
		Columns: columns,
		PerYear: make(map[int]map[string]float64),
	}
	if len(columns) == 0 {
		return res
	}

	res.Values = make([][]float64, len(records))
	for i := range records {
		year := records[i].Year
		sums, ok := res.PerYear[year]
		if !ok {
			sums = make(map[string]float64, len(columns))
			for _, c := range columns {
				sums[c] = 0
			}
			res.PerYear[year] = sums
		}

		vals := make([]float64, len(columns))
		for j, c := range columns {
			vals[j] = ParseLenientNumber(records[i].Source[c])
			sums[c] += vals[j]
		}
		res.Values[i] = vals
	}
	return res
}
