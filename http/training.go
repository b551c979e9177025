package http

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"flightdelay/ml"
)

// handleTrain retrains the model from the reference dataset. On success
// the trained state is swapped wholesale; on failure the previous model,
// if any, keeps serving.
func (a *api) handleTrain(w http.ResponseWriter, r *http.Request) {
	if a.deps.Dataset == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no training dataset configured"})
		return
	}

	a.deps.Metrics.IncTrainingRuns()
	records := a.deps.Dataset()

	if err := a.deps.Model.Fit(records); err != nil {
		a.deps.Metrics.IncTrainingFailures()

		var insufficient *ml.InsufficientDataError
		if errors.As(err, &insufficient) {
			a.deps.Log.Warn("training rejected", zap.Error(err))
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": insufficient.Error()})
			return
		}
		a.deps.Log.Error("training failed",
			zap.String("request_id", RequestID(r.Context())),
			zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	info := a.deps.Model.Info()
	a.deps.Log.Info("model retrained",
		zap.Int("samples", info.Samples),
		zap.Int("on_time", info.OnTime),
		zap.Int("delayed", info.Delayed))
	writeJSON(w, http.StatusOK, info)
}
