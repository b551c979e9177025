// Package pipeline loads the bundled reference training dataset.
package pipeline

import (
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/jszwec/csvutil"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"

	"flightdelay/ml"
)

// flightRow mirrors the dataset CSV columns this service consumes.
// Extra columns in the file are ignored.
type flightRow struct {
	ScheduledTime string `csv:"Fecha-I"`
	ActualTime    string `csv:"Fecha-O"`
	Airline       string `csv:"OPERA"`
	FlightType    string `csv:"TIPOVUELO"`
	Month         int    `csv:"MES"`
}

// DatasetStats summarizes one load pass.
type DatasetStats struct {
	Loaded  int
	Skipped int
}

// LoadDataset reads training records from a CSV file. Airline names in
// the source data carry Spanish accents, so files that are not valid
// UTF-8 are decoded as Latin-1. Rows whose delay label cannot be derived
// (missing or malformed datetimes) are skipped and counted rather than
// defaulted, so the label path never sees a fabricated timestamp.
func LoadDataset(path string, log *zap.Logger) ([]ml.FlightRecord, DatasetStats, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, DatasetStats{}, fmt.Errorf("read dataset: %w", err)
	}
	if !utf8.Valid(raw) {
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
		if err != nil {
			return nil, DatasetStats{}, fmt.Errorf("decode dataset: %w", err)
		}
		raw = decoded
	}

	var rows []flightRow
	if err := csvutil.Unmarshal(raw, &rows); err != nil {
		return nil, DatasetStats{}, fmt.Errorf("parse dataset: %w", err)
	}

	records := make([]ml.FlightRecord, 0, len(rows))
	stats := DatasetStats{}
	for i, row := range rows {
		rec := ml.FlightRecord{
			Airline:       row.Airline,
			FlightType:    row.FlightType,
			Month:         row.Month,
			ScheduledTime: row.ScheduledTime,
			ActualTime:    row.ActualTime,
		}
		if rec.Airline == "" || rec.FlightType == "" || rec.Month < 1 || rec.Month > 12 {
			stats.Skipped++
			log.Warn("skipping dataset row with missing attributes", zap.Int("row", i))
			continue
		}
		if _, err := ml.DelayLabel(rec); err != nil {
			stats.Skipped++
			log.Warn("skipping dataset row without derivable label", zap.Int("row", i), zap.Error(err))
			continue
		}
		records = append(records, rec)
		stats.Loaded++
	}

	if stats.Skipped > 0 {
		log.Info("dataset loaded with skipped rows",
			zap.String("path", path),
			zap.Int("loaded", stats.Loaded),
			zap.Int("skipped", stats.Skipped))
	}
	return records, stats, nil
}
