package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "ccasscli/internal/errors"
	appmw "ccasscli/internal/middleware"
	api "ccasscli/pkg/contracts/api/v1"
)

// ShareholdingHandler serves shareholding views and exports
type ShareholdingHandler struct {
	service      ShareholdingServiceInterface
	binder       *appmw.RequestBinder
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewShareholdingHandler creates a new shareholding handler
func NewShareholdingHandler(service ShareholdingServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ShareholdingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if errorHandler == nil {
		errorHandler = apierrors.NewErrorHandler(logger, false)
	}
	return &ShareholdingHandler{
		service:      service,
		binder:       appmw.NewRequestBinder(),
		logger:       logger.With(slog.String("component", "shareholding_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the shareholding routes, mounted under /api/shareholding
func (h *ShareholdingHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{code}", h.GetShareholding)
	r.Get("/{code}/export", h.Export)
	return r
}

// GetShareholding handles GET /api/shareholding/{code}
func (h *ShareholdingHandler) GetShareholding(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.ShareholdingQueryRequest
	if err := h.binder.Bind(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	rng, err := h.service.Window(req.Start, req.End)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	var threshold float64
	if req.ThresholdPct != nil {
		threshold = *req.ThresholdPct
	} else {
		threshold = h.service.DefaultThreshold()
	}

	h.logger.InfoContext(ctx, "shareholding query",
		slog.String("request_id", middleware.GetReqID(ctx)),
		slog.Int("stock_code", req.StockCode),
		slog.Time("start", rng.Start),
		slog.Time("end", rng.End),
		slog.Float64("threshold_pct", threshold))

	view, err := h.service.Get(ctx, rng.Start, rng.End, req.StockCode, threshold)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, api.ShareholdingResponse{Status: "success", Data: view})
}

// Export handles GET /api/shareholding/{code}/export
func (h *ShareholdingHandler) Export(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.ExportRequest
	if err := h.binder.Bind(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	rng, err := h.service.Window(req.Start, req.End)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	dl, err := h.service.Export(ctx, rng.Start, rng.End, req.StockCode, req.Format)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", dl.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", dl.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(dl.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(dl.Data); err != nil {
		h.logger.WarnContext(ctx, "export write interrupted",
			slog.String("file", dl.FileName),
			slog.String("error", err.Error()))
	}
}

// Unavailable handles GET /api/unavailable
func (h *ShareholdingHandler) Unavailable(w http.ResponseWriter, r *http.Request) {
	codes := h.service.Unavailable()
	render.JSON(w, r, api.UnavailableResponse{Status: "success", Codes: codes, Count: len(codes)})
}
