package ml

import "fmt"

// FeatureSetWidth is the fixed width of every model input vector.
const FeatureSetWidth = 10

// FeatureSet is the versioned list of encoded columns the classifier
// consumes, in order. The column choice comes from offline
// feature-importance analysis and is configuration, not code.
type FeatureSet struct {
	Version string   `yaml:"version" json:"version"`
	Columns []string `yaml:"columns" json:"columns"`
}

// DefaultFeatureSet is the shipped top-10 column selection.
var DefaultFeatureSet = FeatureSet{
	Version: "top10-v1",
	Columns: []string{
		"OPERA_Latin American Wings",
		"MES_7",
		"MES_10",
		"OPERA_Grupo LATAM",
		"MES_12",
		"TIPOVUELO_I",
		"MES_4",
		"MES_11",
		"OPERA_Sky Airline",
		"OPERA_Copa Air",
	},
}

// Validate checks the fixed-width contract.
func (fs FeatureSet) Validate() error {
	if fs.Version == "" {
		return fmt.Errorf("feature set has no version")
	}
	if len(fs.Columns) != FeatureSetWidth {
		return fmt.Errorf("feature set %s has %d columns, want %d", fs.Version, len(fs.Columns), FeatureSetWidth)
	}
	seen := make(map[string]bool, len(fs.Columns))
	for _, col := range fs.Columns {
		if col == "" {
			return fmt.Errorf("feature set %s has an empty column name", fs.Version)
		}
		if seen[col] {
			return fmt.Errorf("feature set %s repeats column %s", fs.Version, col)
		}
		seen[col] = true
	}
	return nil
}

// Select restricts a wide encoded vector to the feature set's columns,
// in order. Columns absent from the input become explicit zeros, so the
// output width is always FeatureSetWidth.
func (fs FeatureSet) Select(wide map[string]float64) []float64 {
	vector := make([]float64, len(fs.Columns))
	for i, col := range fs.Columns {
		vector[i] = wide[col]
	}
	return vector
}
