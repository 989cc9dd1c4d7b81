// Package http serves the prediction API.
package http

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"crimecast/monitoring"
	"crimecast/predict"
)

// Version is reported by the root endpoint.
const Version = "1.0.0"

// API bundles the handlers with their dependencies. It is assembled once
// at startup and handlers never mutate it.
type API struct {
	svc     *predict.Service
	monitor *monitoring.Monitor
	logger  *zap.Logger
}

func NewAPI(svc *predict.Service, monitor *monitoring.Monitor, logger *zap.Logger) *API {
	return &API{
		svc:     svc,
		monitor: monitor,
		logger:  logger,
	}
}

// Register attaches all routes to the mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", a.handleRoot)
	mux.HandleFunc("GET /health", a.handleHealth)
	mux.HandleFunc("GET /bairros", a.handleBairros)
	mux.HandleFunc("GET /predict", a.handlePredict)
	mux.HandleFunc("GET /stats", a.handleStats)
	mux.HandleFunc("GET /ws/monitor", a.handleMonitorWS)
}

func (a *API) handleRoot(w http.ResponseWriter, r *http.Request) {
	a.respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "API de Previsão de Tipos de Crime",
		"version": Version,
		"endpoints": map[string]string{
			"predict": "/predict?data=YYYY-MM-DD&bairro=NomeDoBairro",
			"bairros": "/bairros",
			"health":  "/health",
			"stats":   "/stats",
			"monitor": "/ws/monitor",
		},
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	a.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "healthy",
		"model_loaded": a.svc.ModelLoaded(),
		"model_name":   a.svc.ModelName(),
	})
}

func (a *API) handleBairros(w http.ResponseWriter, r *http.Request) {
	names := a.svc.Bairros()
	a.respondJSON(w, http.StatusOK, map[string]interface{}{
		"bairros_disponiveis": names,
		"total":               len(names),
	})
}

func (a *API) handlePredict(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	date := query.Get("data")
	bairro := query.Get("bairro")
	if date == "" || bairro == "" {
		a.monitor.RecordValidationError()
		a.respondError(w, http.StatusBadRequest,
			"Parâmetros obrigatórios: data (YYYY-MM-DD) e bairro.")
		return
	}

	result, err := a.svc.Predict(date, bairro)
	if err != nil {
		a.respondPredictError(w, err)
		return
	}

	a.monitor.RecordPrediction(monitoring.PredictionEvent{
		Data:              result.Data,
		Bairro:            result.Bairro,
		TipoCrimePrevisto: result.TipoCrimePrevisto,
		Probabilidade:     result.Probabilidade,
	})
	a.respondJSON(w, http.StatusOK, result)
}

// respondPredictError maps serving errors to status codes. Internal causes
// are logged here and never leak into the response body.
func (a *API) respondPredictError(w http.ResponseWriter, err error) {
	var validation *predict.ValidationError
	switch {
	case errors.Is(err, predict.ErrModelUnavailable):
		a.monitor.RecordUnavailable()
		a.respondError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &validation):
		a.monitor.RecordValidationError()
		a.respondError(w, http.StatusBadRequest, validation.Error())
	default:
		a.monitor.RecordInternalError()
		a.logger.Error("prediction failed", zap.Error(err))
		a.respondError(w, http.StatusInternalServerError, "Erro interno ao fazer previsão.")
	}
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	a.respondJSON(w, http.StatusOK, a.monitor.Snapshot())
}

func (a *API) handleMonitorWS(w http.ResponseWriter, r *http.Request) {
	a.monitor.HandleWebSocket(w, r)
}
