package domain

// Prepared is the output of the sequential stages: resolved schema and
// classified records ready for aggregation.
type Prepared struct {
	Schema  Schema
	Records []Record
	Dropped int
}

// Prepare runs column resolution, date normalization, water cleaning and
// classification on table. opts must already be validated.
func Prepare(table RawTable, opts Options) (Prepared, error) {
	schema := ResolveSchema(table.Columns, opts)

	frame, schema := NormalizeDates(table, schema)

	water, schema, err := CleanWater(frame, schema, table.Columns, opts.InterpMethod)
	if err != nil {
		return Prepared{Schema: schema, Dropped: frame.Dropped}, err
	}

	return Prepared{
		Schema:  schema,
		Records: Classify(frame, water, schema, opts),
		Dropped: frame.Dropped,
	}, nil
}
