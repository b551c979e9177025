package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func writeDataset(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flights.csv")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("writing dataset: %v", err)
	}
	return path
}

func TestLoadDataset(t *testing.T) {
	csv := "Fecha-I,Fecha-O,OPERA,TIPOVUELO,MES\n" +
		"2017-03-10 10:00:00,2017-03-10 10:40:00,Grupo LATAM,N,3\n" +
		"2017-07-10 09:00:00,2017-07-10 09:05:00,Sky Airline,I,7\n"
	path := writeDataset(t, []byte(csv))

	records, stats, err := LoadDataset(path, zap.NewNop())
	if err != nil {
		t.Fatalf("LoadDataset: %v", err)
	}
	if stats.Loaded != 2 || stats.Skipped != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if records[0].Airline != "Grupo LATAM" || records[0].Month != 3 {
		t.Errorf("unexpected first record: %+v", records[0])
	}
}

func TestLoadDatasetSkipsBadRows(t *testing.T) {
	csv := "Fecha-I,Fecha-O,OPERA,TIPOVUELO,MES\n" +
		"2017-03-10 10:00:00,2017-03-10 10:40:00,Grupo LATAM,N,3\n" +
		"not-a-date,2017-03-10 10:40:00,Sky Airline,I,7\n" + // malformed scheduled time
		"2017-05-10 10:00:00,,Copa Air,N,5\n" + // missing actual time, label underivable
		"2017-06-10 10:00:00,2017-06-10 10:20:00,,N,6\n" // missing airline
	path := writeDataset(t, []byte(csv))

	records, stats, err := LoadDataset(path, zap.NewNop())
	if err != nil {
		t.Fatalf("LoadDataset: %v", err)
	}
	if stats.Loaded != 1 || stats.Skipped != 3 {
		t.Fatalf("bad rows must be skipped and counted, got %+v", stats)
	}
	if len(records) != 1 || records[0].Airline != "Grupo LATAM" {
		t.Errorf("unexpected surviving records: %+v", records)
	}
}

func TestLoadDatasetLatin1Fallback(t *testing.T) {
	// "Aerolíneas Argentinas" with í as Latin-1 0xED; the file is not
	// valid UTF-8 and must be transparently decoded.
	row := append([]byte("Fecha-I,Fecha-O,OPERA,TIPOVUELO,MES\n2017-03-10 10:00:00,2017-03-10 10:40:00,Aerol"), 0xED)
	row = append(row, []byte("neas Argentinas,N,3\n")...)
	path := writeDataset(t, row)

	records, stats, err := LoadDataset(path, zap.NewNop())
	if err != nil {
		t.Fatalf("LoadDataset: %v", err)
	}
	if stats.Loaded != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if records[0].Airline != "Aerolíneas Argentinas" {
		t.Errorf("Latin-1 airline not decoded: %q", records[0].Airline)
	}
}

func TestLoadDatasetMissingFile(t *testing.T) {
	if _, _, err := LoadDataset(filepath.Join(t.TempDir(), "absent.csv"), zap.NewNop()); err == nil {
		t.Error("missing dataset file must fail")
	}
}
