package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/iwvelando/grimcheck/internal/audit"
	"github.com/iwvelando/grimcheck/internal/config"
	"github.com/iwvelando/grimcheck/internal/tabular"
	"github.com/iwvelando/grimcheck/pkg/constants"
	"github.com/iwvelando/grimcheck/pkg/debit"
	"github.com/iwvelando/grimcheck/pkg/grim"
	"github.com/iwvelando/grimcheck/pkg/grimmer"
	"github.com/iwvelando/grimcheck/pkg/output"
	"github.com/iwvelando/grimcheck/pkg/simrank"
	"go.uber.org/zap"
)

type handler struct {
	logger        *zap.Logger
	maxUploadSize int64
	version       string
	defaults      *config.Configuration

	sampleTimeout time.Duration
	limits        SimrankLimits
}

// Option customizes the handler built by NewHandler.
type Option func(*handler)

// WithDefaults sets the check and sampler defaults that requests start from.
func WithDefaults(cfg *config.Configuration) Option {
	return func(h *handler) {
		if cfg != nil {
			h.defaults = cfg
		}
	}
}

// WithSampleTimeout cancels rank sampling requests that run longer than d.
func WithSampleTimeout(d time.Duration) Option {
	return func(h *handler) {
		if d > 0 {
			h.sampleTimeout = d
		}
	}
}

// WithSimrankLimits caps the trial budget and group sizes of rank sampling
// requests. Non-positive fields keep their defaults.
func WithSimrankLimits(limits SimrankLimits) Option {
	return func(h *handler) {
		if limits.MaxIter > 0 {
			h.limits.MaxIter = limits.MaxIter
		}
		if limits.MaxRanks > 0 {
			h.limits.MaxRanks = limits.MaxRanks
		}
	}
}

// NewHandler constructs the HTTP handler that serves the consistency check API.
func NewHandler(logger *zap.Logger, maxUploadSize int64, version string, opts ...Option) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
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
		maxUploadSize: maxUploadSize,
		version:       trimmedVersion,
		defaults:      config.Defaults(),
		sampleTimeout: constants.DefaultWriteTimeout,
		limits: SimrankLimits{
			MaxIter:  constants.DefaultMaxSimrankIter,
			MaxRanks: constants.DefaultMaxSimrankRanks,
		},
	}
	for _, opt := range opts {
		opt(h)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/grim", h.handleGrim)
		r.Post("/grimmer", h.handleGrimmer)
		r.Post("/debit", h.handleDebit)
		r.Post("/stats", h.handleStats)
		r.Post("/simrank", h.handleSimrank)
		r.Post("/audit", h.handleAudit)
		r.Get("/version", h.handleVersion)
	})

	return r
}

type grimRequest struct {
	X string `json:"x"`
	N uint   `json:"n"`
	grim.Options
}

type grimmerRequest struct {
	X  string `json:"x"`
	SD string `json:"sd"`
	N  uint   `json:"n"`
	grimmer.Options
}

type debitRequest struct {
	X  string `json:"x"`
	SD string `json:"sd"`
	N  uint   `json:"n"`
	debit.Options
}

type statsRequest struct {
	X       string `json:"x"`
	N       uint   `json:"n"`
	Items   uint   `json:"items"`
	Percent bool   `json:"percent"`
}

type statsResponse struct {
	Probability float64 `json:"probability"`
	Ratio       float64 `json:"ratio"`
	Total       float64 `json:"total"`
}

type simrankRequest struct {
	N1      int     `json:"n1"`
	N2      int     `json:"n2"`
	U       float64 `json:"u"`
	Length  int     `json:"length"`
	MaxIter int     `json:"maxIter"`
}

type simrankResponse struct {
	TargetRankSum int                 `json:"targetRankSum"`
	Partitions    []simrank.Partition `json:"partitions"`
	Duration      string              `json:"duration"`
}

func (h *handler) handleGrim(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleGrim"

	opts, err := h.defaults.GrimOptions()
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusInternalServerError, fmt.Sprintf("invalid defaults: %v", err), op)
		return
	}
	req := grimRequest{Options: opts}
	if !h.decode(w, r, &req, op) {
		return
	}

	result, err := grim.Scalar(req.X, req.N, req.Options)
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
		return
	}
	h.logResult(r, op, result.Consistent)
	h.writeJSON(w, http.StatusOK, result)
}

func (h *handler) handleGrimmer(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleGrimmer"

	opts, err := h.defaults.GrimmerOptions()
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusInternalServerError, fmt.Sprintf("invalid defaults: %v", err), op)
		return
	}
	req := grimmerRequest{Options: opts}
	if !h.decode(w, r, &req, op) {
		return
	}

	result, err := grimmer.Scalar(req.X, req.SD, req.N, req.Options)
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
		return
	}
	h.logResult(r, op, result.Consistent)
	h.writeJSON(w, http.StatusOK, result)
}

func (h *handler) handleDebit(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleDebit"

	opts, err := h.defaults.DebitOptions()
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusInternalServerError, fmt.Sprintf("invalid defaults: %v", err), op)
		return
	}
	req := debitRequest{Options: opts}
	if !h.decode(w, r, &req, op) {
		return
	}

	result, err := debit.Scalar(req.X, req.SD, req.N, req.Options)
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
		return
	}
	h.logResult(r, op, result.Consistent)
	h.writeJSON(w, http.StatusOK, result)
}

func (h *handler) handleStats(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleStats"

	req := statsRequest{Items: h.defaults.Checks.Items, Percent: h.defaults.Checks.Percent}
	if !h.decode(w, r, &req, op) {
		return
	}

	var resp statsResponse
	var err error
	if resp.Probability, err = grim.Probability(req.X, req.N, req.Items, req.Percent); err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
		return
	}
	if resp.Ratio, err = grim.Ratio(req.X, req.N, req.Items, req.Percent); err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
		return
	}
	if resp.Total, err = grim.Total(req.X, req.N, req.Items, req.Percent); err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *handler) handleSimrank(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleSimrank"
	start := time.Now()

	req := simrankRequest{
		Length:  h.defaults.Simrank.Length,
		MaxIter: min(h.defaults.Simrank.MaxIter, h.limits.MaxIter),
	}
	if !h.decode(w, r, &req, op) {
		return
	}

	if req.MaxIter > h.limits.MaxIter {
		h.respondErrorWithOp(w, r, http.StatusBadRequest,
			fmt.Sprintf("maxIter %d exceeds limit of %d", req.MaxIter, h.limits.MaxIter), op)
		return
	}
	if req.N1 > h.limits.MaxRanks || req.N2 > h.limits.MaxRanks || req.N1+req.N2 > h.limits.MaxRanks {
		h.respondErrorWithOp(w, r, http.StatusBadRequest,
			fmt.Sprintf("n1+n2 exceeds limit of %d ranks", h.limits.MaxRanks), op)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.sampleTimeout)
	defer cancel()

	sampler := simrank.NewSampler(
		simrank.WithWorkers(h.defaults.Simrank.Workers),
		simrank.WithLogger(h.logger),
	)
	partitions, err := sampler.Run(ctx, req.N1, req.N2, req.U, req.Length, req.MaxIter)
	if err != nil {
		status := http.StatusBadRequest
		if ctx.Err() != nil {
			status = http.StatusServiceUnavailable
		}
		h.respondErrorWithOp(w, r, status, err.Error(), op)
		return
	}
	if partitions == nil {
		partitions = []simrank.Partition{}
	}

	elapsed := time.Since(start)
	h.logger.Info("rank partitions sampled",
		zap.String("op", op),
		zap.String("requestID", middleware.GetReqID(r.Context())),
		zap.Int("partitions", len(partitions)),
		zap.Duration("duration", elapsed),
	)
	h.writeJSON(w, http.StatusOK, simrankResponse{
		TargetRankSum: simrank.TargetRankSum(req.N1, req.U),
		Partitions:    partitions,
		Duration:      elapsed.String(),
	})
}

func (h *handler) handleAudit(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleAudit"

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondErrorWithOp(w, r, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds limit of %d bytes", h.maxUploadSize), op)
			return
		}
		h.respondErrorWithOp(w, r, http.StatusBadRequest, fmt.Sprintf("failed to parse upload: %v", err), op)
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, "missing table file", op)
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

	format, err := tabular.FormatFromPath(fileHeader.Filename)
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
		return
	}
	table, err := tabular.Read(file, format)
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
		return
	}

	check, err := audit.ParseCheck(formValue(r, "check", string(audit.CheckGRIM)))
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
		return
	}
	cols, err := parseColumns(r, check)
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
		return
	}

	runner := audit.NewRunner(h.logger)
	var report *audit.Report
	switch check {
	case audit.CheckGRIM:
		var opts grim.Options
		if opts, err = h.defaults.GrimOptions(); err == nil {
			report, err = runner.RunGRIM(table, cols, opts)
		}
	case audit.CheckGRIMMER:
		var opts grimmer.Options
		if opts, err = h.defaults.GrimmerOptions(); err == nil {
			opts.ShowReason = true
			report, err = runner.RunGRIMMER(table, cols, opts)
		}
	case audit.CheckDEBIT:
		var opts debit.Options
		if opts, err = h.defaults.DebitOptions(); err == nil {
			report, err = runner.RunDEBIT(table, cols, opts)
		}
	}
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
		return
	}
	report.Warnings = append(h.defaults.ValidateConfiguration(), report.Warnings...)

	if formValue(r, "format", constants.OutputFormatJSON) == constants.OutputFormatCSV {
		w.Header().Set("Content-Type", "text/csv")
		w.WriteHeader(http.StatusOK)
		if err := output.CSV(w, report); err != nil {
			h.logger.Error("failed to write CSV response", zap.String("op", op), zap.Error(err))
		}
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

// parseColumns reads the column selectors of an audit upload. The defaults
// are the usual header names.
func parseColumns(r *http.Request, check audit.Check) (audit.Columns, error) {
	var cols audit.Columns
	var err error
	if cols.X, err = tabular.ParseColumnSpec(formValue(r, "x", "x")); err != nil {
		return cols, err
	}
	if cols.N, err = tabular.ParseColumnSpec(formValue(r, "n", "n")); err != nil {
		return cols, err
	}
	if check != audit.CheckGRIM {
		if cols.SD, err = tabular.ParseColumnSpec(formValue(r, "sd", "sd")); err != nil {
			return cols, err
		}
	}
	if items := r.FormValue("items"); items != "" {
		if cols.Items, err = tabular.ParseColumnSpec(items); err != nil {
			return cols, err
		}
	}
	return cols, nil
}

func formValue(r *http.Request, key, fallback string) string {
	if v := strings.TrimSpace(r.FormValue(key)); v != "" {
		return v
	}
	return fallback
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func (h *handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}, op string) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, fmt.Sprintf("failed to decode request: %v", err), op)
		return false
	}
	return true
}

func (h *handler) logResult(r *http.Request, op string, consistent bool) {
	h.logger.Info("check computed",
		zap.String("op", op),
		zap.String("requestID", middleware.GetReqID(r.Context())),
		zap.Bool("consistent", consistent),
	)
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, r *http.Request, status int, msg string, op string) {
	h.logger.Error("check request failed",
		zap.String("op", op),
		zap.String("requestID", middleware.GetReqID(r.Context())),
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
