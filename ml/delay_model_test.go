package ml

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
)

func makeTrainingSet() []FlightRecord {
	airlines := []string{"Grupo LATAM", "Sky Airline", "Copa Air", "Latin American Wings"}
	records := make([]FlightRecord, 0, 48)
	for i := 0; i < 48; i++ {
		month := i%12 + 1
		flightType := "N"
		if i%3 == 0 {
			flightType = "I"
		}
		actual := fmt.Sprintf("2017-%02d-10 10:05:00", month)
		if i%4 == 0 {
			actual = fmt.Sprintf("2017-%02d-10 10:40:00", month) // delayed
		}
		records = append(records, FlightRecord{
			Airline:       airlines[i%len(airlines)],
			FlightType:    flightType,
			Month:         month,
			ScheduledTime: fmt.Sprintf("2017-%02d-10 10:00:00", month),
			ActualTime:    actual,
		})
	}
	return records
}

func newTestModel(t *testing.T) *DelayModel {
	t.Helper()
	model, err := NewDelayModel(DefaultFeatureSet)
	if err != nil {
		t.Fatalf("NewDelayModel: %v", err)
	}
	return model
}

func TestPreprocessWithLabels(t *testing.T) {
	model := newTestModel(t)
	records := makeTrainingSet()
	vectors, labels, err := model.Preprocess(records, true)
	if err != nil {
		t.Fatalf("Preprocess: %v", err)
	}
	if len(vectors) != len(records) || len(labels) != len(records) {
		t.Fatalf("got %d vectors / %d labels for %d records", len(vectors), len(labels), len(records))
	}
	for i, vector := range vectors {
		if len(vector) != FeatureSetWidth {
			t.Fatalf("vector %d has width %d, want %d", i, len(vector), FeatureSetWidth)
		}
	}
	for i, label := range labels {
		want := 0
		if i%4 == 0 {
			want = 1
		}
		if label != want {
			t.Errorf("label %d = %d, want %d", i, label, want)
		}
	}
}

func TestPreprocessInferenceFixedWidth(t *testing.T) {
	model := newTestModel(t)
	if err := model.Fit(makeTrainingSet()); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	records := []FlightRecord{
		{Airline: "Grupo LATAM", FlightType: "N", Month: 3},
		{Airline: "Never Seen Air", FlightType: "N", Month: 3},
	}
	vectors, _, err := model.Preprocess(records, false)
	if err != nil {
		t.Fatalf("Preprocess: %v", err)
	}
	for i, vector := range vectors {
		if len(vector) != FeatureSetWidth {
			t.Errorf("vector %d has width %d, want %d", i, len(vector), FeatureSetWidth)
		}
	}
}

func TestPredictBeforeFitFailsFast(t *testing.T) {
	model := newTestModel(t)
	_, err := model.Predict([]FlightRecord{{Airline: "Grupo LATAM", FlightType: "N", Month: 3}})
	if !errors.Is(err, ErrModelNotReady) {
		t.Fatalf("expected ErrModelNotReady, got %v", err)
	}
	if model.Ready() {
		t.Error("model must not be ready before fit")
	}
}

func TestFitEmptyTrainingSet(t *testing.T) {
	model := newTestModel(t)
	var insufficient *InsufficientDataError
	if err := model.Fit(nil); !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientDataError, got %v", err)
	}
}

func TestFitSingleClass(t *testing.T) {
	model := newTestModel(t)
	records := []FlightRecord{
		{Airline: "Grupo LATAM", FlightType: "N", Month: 3, ScheduledTime: "2017-03-10 10:00:00", ActualTime: "2017-03-10 10:05:00"},
		{Airline: "Sky Airline", FlightType: "I", Month: 7, ScheduledTime: "2017-07-10 10:00:00", ActualTime: "2017-07-10 10:10:00"},
	}
	var insufficient *InsufficientDataError
	if err := model.Fit(records); !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientDataError for single-class set, got %v", err)
	}
	if model.Ready() {
		t.Error("failed fit must not install a trained model")
	}
}

func TestFitThenPredict(t *testing.T) {
	model := newTestModel(t)
	if err := model.Fit(makeTrainingSet()); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if !model.Ready() {
		t.Fatal("model should be ready after fit")
	}

	records := []FlightRecord{
		{Airline: "Grupo LATAM", FlightType: "N", Month: 3},
		{Airline: "Sky Airline", FlightType: "I", Month: 7},
	}
	predictions, err := model.Predict(records)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if len(predictions) != len(records) {
		t.Fatalf("got %d predictions for %d records", len(predictions), len(records))
	}
	for i, p := range predictions {
		if p.Label != 0 && p.Label != 1 {
			t.Errorf("prediction %d has non-binary label %d", i, p.Label)
		}
		if p.Probability < 0 || p.Probability > 1 {
			t.Errorf("prediction %d has probability %v", i, p.Probability)
		}
	}
}

func TestPredictUnknownAirline(t *testing.T) {
	model := newTestModel(t)
	var unknown []string
	model.OnUnknownCategory(func(column string) { unknown = append(unknown, column) })

	if err := model.Fit(makeTrainingSet()); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	predictions, err := model.Predict([]FlightRecord{{Airline: "Never Seen Air", FlightType: "N", Month: 3}})
	if err != nil {
		t.Fatalf("unknown airline must not fail prediction: %v", err)
	}
	if len(predictions) != 1 {
		t.Fatalf("got %d predictions, want 1", len(predictions))
	}
	if len(unknown) != 1 || unknown[0] != "OPERA_Never Seen Air" {
		t.Errorf("unknown category hook not invoked correctly: %v", unknown)
	}
}

func TestPredictDeterministic(t *testing.T) {
	model := newTestModel(t)
	if err := model.Fit(makeTrainingSet()); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	record := []FlightRecord{{Airline: "Grupo LATAM", FlightType: "I", Month: 12}}
	first, err := model.Predict(record)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := model.Predict(record)
		if err != nil {
			t.Fatalf("Predict: %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("prediction changed between identical calls: %v vs %v", first, again)
		}
	}
}

func TestPredictSchemaError(t *testing.T) {
	model := newTestModel(t)
	if err := model.Fit(makeTrainingSet()); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	_, err := model.Predict([]FlightRecord{{FlightType: "N"}})
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	if len(schemaErr.Missing) != 2 {
		t.Errorf("expected airline and month reported missing, got %v", schemaErr.Missing)
	}
}

func TestRefitReplacesModel(t *testing.T) {
	model := newTestModel(t)
	if err := model.Fit(makeTrainingSet()); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	before := model.Info()

	if err := model.Fit(makeTrainingSet()[:24]); err != nil {
		t.Fatalf("refit: %v", err)
	}
	after := model.Info()
	if after.Samples != 24 {
		t.Errorf("refit did not replace trained state: samples=%d", after.Samples)
	}
	if before.Samples == after.Samples {
		t.Errorf("expected sample count to change after refit")
	}
}

func TestFailedRefitKeepsPreviousModel(t *testing.T) {
	model := newTestModel(t)
	if err := model.Fit(makeTrainingSet()); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if err := model.Fit(nil); err == nil {
		t.Fatal("empty refit must fail")
	}
	if !model.Ready() {
		t.Error("failed refit must leave the previous model serving")
	}
	if _, err := model.Predict([]FlightRecord{{Airline: "Grupo LATAM", FlightType: "N", Month: 3}}); err != nil {
		t.Errorf("predict after failed refit: %v", err)
	}
}

func TestEnsureTrainedConcurrent(t *testing.T) {
	model := newTestModel(t)
	records := makeTrainingSet()

	fits := 0
	model.SetClassifierFactory(func() Classifier {
		fits++
		return NewLogisticRegression()
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := model.EnsureTrained(records); err != nil {
				t.Errorf("EnsureTrained: %v", err)
			}
		}()
	}
	wg.Wait()

	if !model.Ready() {
		t.Fatal("model should be ready")
	}
	if fits != 1 {
		t.Errorf("expected exactly one training pass, got %d", fits)
	}
}
