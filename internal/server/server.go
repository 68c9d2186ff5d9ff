package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/iwvelando/estimate-engine/internal/config"
	"github.com/iwvelando/estimate-engine/internal/engine"
	"github.com/iwvelando/estimate-engine/internal/valuation"
	"github.com/iwvelando/estimate-engine/pkg/constants"
	"github.com/iwvelando/estimate-engine/pkg/output"
	"go.uber.org/zap"
)

// RequestIDHeader carries the id assigned to every request.
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

type handler struct {
	logger        *zap.Logger
	engine        *engine.Engine
	maxUploadSize int64
	version       string
	metrics       *metrics
}

// NewHandler constructs the HTTP handler that serves the valuation API.
func NewHandler(logger *zap.Logger, eng *engine.Engine, maxUploadSize int64, version string) (http.Handler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if eng == nil {
		var err error
		eng, err = engine.New(logger, engine.DefaultCalibration())
		if err != nil {
			return nil, err
		}
	}

	if maxUploadSize <= 0 {
		maxUploadSize = constants.DefaultMaxUploadSizeBytes
	}

	trimmedVersion := strings.TrimSpace(version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	h := &handler{
		logger:        logger,
		engine:        eng,
		maxUploadSize: maxUploadSize,
		version:       trimmedVersion,
		metrics:       newMetrics(),
	}

	mux := http.NewServeMux()

	// Single property valuation (JSON request body)
	mux.HandleFunc("POST /api/valuation", h.handleValuation)

	// Request file valuation (multipart YAML upload)
	mux.HandleFunc("POST /api/valuation/batch", h.handleBatch)

	// Version endpoint for client metadata
	mux.HandleFunc("GET /api/version", h.handleVersion)

	mux.Handle("GET /metrics", h.metrics.handler())

	return h.withRequestID(mux), nil
}

// Run serves h on addr until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, logger *zap.Logger, addr string, h http.Handler) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			zap.String("op", "server.Run"),
			zap.String("address", addr),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("shutting down server", zap.String("op", "server.Run"))
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

func (h *handler) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func requestID(r *http.Request) string {
	id, _ := r.Context().Value(requestIDKey{}).(string)
	return id
}

type batchResponse struct {
	Properties []string        `json:"properties"`
	Results    []engine.Result `json:"results"`
	CSV        string          `json:"csv"`
	Warnings   []string        `json:"warnings,omitempty"`
	Duration   string          `json:"duration"`
}

func (h *handler) handleValuation(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleValuation"
	const endpoint = "valuation"
	start := time.Now()
	defer h.observeDuration(endpoint, start)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	var req engine.ValuationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondError(w, r, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request exceeds limit of %d bytes", h.maxUploadSize), op, endpoint)
			return
		}
		h.respondError(w, r, http.StatusBadRequest, fmt.Sprintf("failed to decode valuation request: %v", err), op, endpoint)
		return
	}

	result, err := h.engine.ComputeWithFixedTime(req, time.Now())
	if err != nil {
		h.respondError(w, r, statusFor(err), err.Error(), op, endpoint)
		return
	}
	h.record(endpoint, result)

	h.logger.Info("valuation computed",
		zap.String("op", op),
		zap.String("requestId", requestID(r)),
		zap.String("name", result.Name),
		zap.String("venalValue", result.ValueBreakdown.VenalValue.String()),
		zap.Int("warnings", len(result.Warnings)),
		zap.Duration("duration", time.Since(start)),
	)

	h.writeJSON(w, http.StatusOK, result)
}

func (h *handler) handleBatch(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleBatch"
	const endpoint = "batch"
	start := time.Now()
	defer h.observeDuration(endpoint, start)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondError(w, r, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds limit of %d bytes", h.maxUploadSize), op, endpoint)
			return
		}
		h.respondError(w, r, http.StatusBadRequest, fmt.Sprintf("failed to parse upload: %v", err), op, endpoint)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		h.respondError(w, r, http.StatusBadRequest, "missing request file", op, endpoint)
		return
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			h.logger.Warn("failed to close uploaded file",
				zap.String("op", op),
				zap.Error(closeErr),
			)
		}
	}()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		h.respondError(w, r, http.StatusInternalServerError, fmt.Sprintf("failed to read request file: %v", err), op, endpoint)
		return
	}

	cfg, err := config.LoadConfigurationFromReaderWithBase(&buf, h.engine.Calibration())
	if err != nil {
		h.respondError(w, r, http.StatusBadRequest, err.Error(), op, endpoint)
		return
	}

	eng, err := engine.New(h.logger.With(zap.String("requestId", requestID(r))), cfg.Calibration)
	if err != nil {
		h.respondError(w, r, http.StatusBadRequest, err.Error(), op, endpoint)
		return
	}

	now := time.Now()
	warnings := cfg.ValidateConfiguration(eng, now)
	results, err := eng.ComputeAll(cfg.Properties, now)
	if err != nil {
		h.respondError(w, r, statusFor(err), err.Error(), op, endpoint)
		return
	}

	csvData, err := output.CsvString(results)
	if err != nil {
		h.respondError(w, r, http.StatusInternalServerError, fmt.Sprintf("failed to render CSV: %v", err), op, endpoint)
		return
	}

	names := make([]string, 0, len(results))
	for _, result := range results {
		names = append(names, result.Name)
		h.record(endpoint, result)
	}
	if results == nil {
		results = []engine.Result{}
	}

	elapsed := time.Since(start)
	h.logger.Info("batch computed",
		zap.String("op", op),
		zap.String("requestId", requestID(r)),
		zap.Int("properties", len(results)),
		zap.Int("warnings", len(warnings)),
		zap.Duration("duration", elapsed),
	)

	h.writeJSON(w, http.StatusOK, batchResponse{
		Properties: names,
		Results:    results,
		CSV:        csvData,
		Warnings:   warnings,
		Duration:   elapsed.String(),
	})
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func (h *handler) record(endpoint string, result engine.Result) {
	h.metrics.computed.WithLabelValues(endpoint).Inc()
	h.metrics.warnings.WithLabelValues(endpoint).Add(float64(len(result.Warnings)))
	h.metrics.exposureScore.Observe(float64(result.ExposureCapital.Score))
	if result.IsPremiumRegister {
		h.metrics.premiumCount.Inc()
	}
}

func (h *handler) observeDuration(endpoint string, start time.Time) {
	h.metrics.duration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

// statusFor maps engine errors to HTTP statuses.
func statusFor(err error) int {
	var typeErr *valuation.InvalidPropertyTypeError
	if errors.As(err, &typeErr) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (h *handler) respondError(w http.ResponseWriter, r *http.Request, status int, msg, op, endpoint string) {
	h.metrics.failed.WithLabelValues(endpoint, fmt.Sprintf("%d", status)).Inc()
	h.logger.Error("valuation request failed",
		zap.String("op", op),
		zap.String("requestId", requestID(r)),
		zap.Int("status", status),
		zap.String("error", msg),
	)

	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}
