package ml

import (
	"sort"
	"strconv"
)

const (
	prefixAirline    = "OPERA_"
	prefixFlightType = "TIPOVUELO_"
	prefixMonth      = "MES_"
)

// Vocabulary is the closed set of one-hot columns observed at fit time.
// Column names are sorted and stable, so encoding the same record twice
// yields identical vectors.
type Vocabulary struct {
	columns []string
	known   map[string]bool
}

// BuildVocabulary collects the distinct airline, flight-type and month
// values from a training set. Inference-time categories never extend it.
func BuildVocabulary(records []FlightRecord) *Vocabulary {
	known := make(map[string]bool)
	for _, rec := range records {
		known[airlineColumn(rec.Airline)] = true
		known[flightTypeColumn(rec.FlightType)] = true
		known[monthColumn(rec.Month)] = true
	}
	columns := make([]string, 0, len(known))
	for col := range known {
		columns = append(columns, col)
	}
	sort.Strings(columns)
	return &Vocabulary{columns: columns, known: known}
}

// Columns returns the encoded column names in their fixed order.
func (v *Vocabulary) Columns() []string {
	return append([]string(nil), v.columns...)
}

// Encode one-hot encodes a record against the vocabulary. Values not in
// the vocabulary leave their attribute's sub-vector at zero and are
// returned so callers can surface them; they are not an error.
func (v *Vocabulary) Encode(rec FlightRecord) (map[string]float64, []string) {
	wide := make(map[string]float64, len(v.columns))
	for _, col := range v.columns {
		wide[col] = 0
	}
	var unknown []string
	for _, col := range []string{
		airlineColumn(rec.Airline),
		flightTypeColumn(rec.FlightType),
		monthColumn(rec.Month),
	} {
		if v.known[col] {
			wide[col] = 1
		} else {
			unknown = append(unknown, col)
		}
	}
	return wide, unknown
}

func airlineColumn(airline string) string {
	return prefixAirline + airline
}

func flightTypeColumn(flightType string) string {
	return prefixFlightType + flightType
}

func monthColumn(month int) string {
	return prefixMonth + strconv.Itoa(month)
}
