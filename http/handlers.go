package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"flightdelay/db"
	"flightdelay/ml"
	"flightdelay/monitoring"
)

type api struct {
	deps Deps
}

func newAPI(deps Deps) *api {
	return &api{deps: deps}
}

func (a *api) register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", a.handleHealth)
	mux.HandleFunc("GET /api/health", a.handleHealth)
	mux.HandleFunc("POST /predict", a.handlePredict)
	mux.HandleFunc("POST /api/train", a.handleTrain)
	mux.HandleFunc("GET /api/model", a.handleModel)
	mux.HandleFunc("GET /api/metrics", a.handleMetrics)
	mux.HandleFunc("GET /api/predictions/recent", a.handleRecent)
	if a.deps.Hub != nil {
		mux.HandleFunc("GET /api/ws/monitor", a.deps.Hub.HandleWebSocket)
	}
}

// flightPayload is one wire-format flight entry. MES is a pointer so a
// missing month is distinguishable from month zero.
type flightPayload struct {
	Airline    string `json:"OPERA"`
	FlightType string `json:"TIPOVUELO"`
	Month      *int   `json:"MES"`
}

type predictRequest struct {
	Flights []flightPayload `json:"flights"`
}

type predictionPayload struct {
	Delay       int     `json:"delay"`
	Probability float64 `json:"probability"`
}

type predictResponse struct {
	Predict     []int               `json:"predict"`
	Predictions []predictionPayload `json:"predictions"`
}

func (a *api) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handlePredict validates the whole batch before touching the model:
// every invalid field across every record is reported, and one invalid
// record rejects the entire batch.
func (a *api) handlePredict(w http.ResponseWriter, r *http.Request) {
	a.deps.Metrics.IncRequests()

	var req predictRequest
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&req); err != nil {
		a.deps.Metrics.IncValidationFailures()
		writeValidationError(w, []string{"body: malformed JSON"})
		return
	}

	if details := validateFlights(req.Flights); len(details) > 0 {
		a.deps.Metrics.IncValidationFailures()
		writeValidationError(w, details)
		return
	}

	records := make([]ml.FlightRecord, len(req.Flights))
	for i, flight := range req.Flights {
		records[i] = ml.FlightRecord{
			Airline:    flight.Airline,
			FlightType: flight.FlightType,
			Month:      *flight.Month,
		}
	}

	predictions, err := a.deps.Model.Predict(records)
	if err != nil {
		a.writeModelError(w, r, err)
		return
	}

	response := predictResponse{
		Predict:     make([]int, len(predictions)),
		Predictions: make([]predictionPayload, len(predictions)),
	}
	delayed := 0
	for i, p := range predictions {
		response.Predict[i] = p.Label
		response.Predictions[i] = predictionPayload{Delay: p.Label, Probability: p.Probability}
		if p.Label == 1 {
			delayed++
		}
	}
	a.deps.Metrics.AddPredictions(len(predictions), delayed)
	a.audit(records, predictions)

	writeJSON(w, http.StatusOK, response)
}

func (a *api) handleModel(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.deps.Model.Info())
}

func (a *api) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.deps.Metrics.Snapshot())
}

func (a *api) handleRecent(w http.ResponseWriter, r *http.Request) {
	if a.deps.Store == nil {
		if a.deps.Hub != nil {
			writeJSON(w, http.StatusOK, map[string]any{"predictions": a.deps.Hub.Recent()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"predictions": []db.PredictionRow{}})
		return
	}
	rows, err := a.deps.Store.RecentPredictions(50)
	if err != nil {
		a.deps.Log.Error("querying recent predictions", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"predictions": rows})
}

// audit persists served predictions and publishes them to observers.
// Both paths are best-effort and never fail the response.
func (a *api) audit(records []ml.FlightRecord, predictions []ml.Prediction) {
	if a.deps.Store == nil && a.deps.Hub == nil {
		return
	}
	now := time.Now().UTC()
	rows := make([]db.PredictionRow, len(records))
	for i, rec := range records {
		engineered, _ := ml.Engineer(rec)
		rows[i] = db.PredictionRow{
			Airline:     rec.Airline,
			FlightType:  rec.FlightType,
			Month:       rec.Month,
			PeriodDay:   engineered.PeriodDay,
			HighSeason:  engineered.HighSeason,
			Label:       predictions[i].Label,
			Probability: predictions[i].Probability,
			ServedAt:    now,
		}
		if a.deps.Hub != nil {
			a.deps.Hub.Publish(monitoring.PredictionEvent{
				Airline:     rec.Airline,
				FlightType:  rec.FlightType,
				Month:       rec.Month,
				PeriodDay:   engineered.PeriodDay,
				HighSeason:  engineered.HighSeason,
				Label:       predictions[i].Label,
				Probability: predictions[i].Probability,
				ServedAt:    now,
			})
		}
	}
	if a.deps.Store != nil {
		go func() {
			if err := a.deps.Store.SavePredictions(rows); err != nil {
				a.deps.Log.Warn("saving prediction audit rows", zap.Error(err))
			}
		}()
	}
}

// writeModelError maps model-layer failures to responses without leaking
// internals: not-ready is a 503, everything else an opaque 500.
func (a *api) writeModelError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ml.ErrModelNotReady) {
		a.deps.Log.Warn("prediction requested before training",
			zap.String("request_id", RequestID(r.Context())))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "model not ready"})
		return
	}
	a.deps.Log.Error("prediction failed",
		zap.String("request_id", RequestID(r.Context())),
		zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
}

// validateFlights checks the field contract for every record and returns
// every violation, not just the first.
func validateFlights(flights []flightPayload) []string {
	if len(flights) == 0 {
		return []string{"flights: must contain at least one entry"}
	}
	var details []string
	for i, flight := range flights {
		if flight.Airline == "" {
			details = append(details, fmt.Sprintf("flights[%d].OPERA: must be a non-empty string", i))
		}
		if flight.FlightType != "I" && flight.FlightType != "N" {
			details = append(details, fmt.Sprintf("flights[%d].TIPOVUELO: must be \"I\" or \"N\"", i))
		}
		if flight.Month == nil || *flight.Month < 1 || *flight.Month > 12 {
			details = append(details, fmt.Sprintf("flights[%d].MES: must be an integer between 1 and 12", i))
		}
	}
	return details
}

func writeValidationError(w http.ResponseWriter, details []string) {
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"error":   "validation failed",
		"details": details,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
