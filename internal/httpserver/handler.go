package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/davidbz/draftlock/internal/domain"
	"github.com/davidbz/draftlock/internal/observability"
)

// TemplateLister lists the template library.
type TemplateLister interface {
	List(mode domain.DraftMode) []domain.Template
}

// Handler handles HTTP requests.
type Handler struct {
	transforms *domain.TransformService
	scheduler  *domain.EstimationScheduler
	feed       *domain.EstimateFeed
	usage      *domain.UsageService
	catalog    *domain.PricingCatalog
	calculator *domain.CostCalculator
	templates  TemplateLister
}

// NewHandler creates a new HTTP handler (DI constructor).
func NewHandler(
	transforms *domain.TransformService,
	scheduler *domain.EstimationScheduler,
	feed *domain.EstimateFeed,
	usage *domain.UsageService,
	catalog *domain.PricingCatalog,
	calculator *domain.CostCalculator,
	templates TemplateLister,
) *Handler {
	return &Handler{
		transforms: transforms,
		scheduler:  scheduler,
		feed:       feed,
		usage:      usage,
		catalog:    catalog,
		calculator: calculator,
		templates:  templates,
	}
}

// estimateView is the wire form of a live estimate.
type estimateView struct {
	domain.EstimationResult
	Display string `json:"display"`
}

func newEstimateView(result domain.EstimationResult) estimateView {
	display := "unavailable"
	if result.Available {
		display = domain.FormatCost(result.Cost, result.Currency)
	}
	return estimateView{EstimationResult: result, Display: display}
}

type usageView struct {
	domain.LedgerTotals
	Display string               `json:"display"`
	Records []domain.UsageRecord `json:"records,omitempty"`
}

type rateView struct {
	Model   string             `json:"model"`
	Applied domain.AppliedRate `json:"applied"`
}

// HandleTransform runs a transformation and records its usage.
func (h *Handler) HandleTransform(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	input, ok := decodeDraft(w, r)
	if !ok {
		return
	}

	ctx = observability.WithModel(ctx, input.Model)
	logger := observability.FromContext(ctx)
	logger.Info("transform request received", observability.String("mode", string(input.Mode)))

	outcome, err := h.transforms.Run(ctx, input)
	if err != nil {
		http.Error(w, err.Error(), transformStatus(err))
		return
	}

	writeJSON(w, r, http.StatusOK, outcome)
}

// HandleDraft feeds a draft change into the live estimate. The estimate
// arrives later on the stream endpoint.
func (h *Handler) HandleDraft(w http.ResponseWriter, r *http.Request) {
	input, ok := decodeDraft(w, r)
	if !ok {
		return
	}

	h.scheduler.Update(r.Context(), input)

	writeJSON(w, r, http.StatusAccepted, map[string]string{
		"state": h.scheduler.State().String(),
	})
}

// HandleEstimate prices a draft synchronously.
func (h *Handler) HandleEstimate(w http.ResponseWriter, r *http.Request) {
	input, ok := decodeDraft(w, r)
	if !ok {
		return
	}

	result := h.scheduler.EstimateNow(observability.WithModel(r.Context(), input.Model), input)
	writeJSON(w, r, http.StatusOK, newEstimateView(result))
}

// HandleLatestEstimate returns the most recent live estimate.
func (h *Handler) HandleLatestEstimate(w http.ResponseWriter, r *http.Request) {
	result, ok := h.feed.Latest()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, r, http.StatusOK, newEstimateView(result))
}

// HandleEstimateStream streams live estimates as server-sent events.
func (h *Handler) HandleEstimateStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.FromContext(ctx)

	flusher, ok := w.(http.Flusher)
	if !ok {
		logger.Error("streaming not supported")
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	// Set headers for SSE.
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	results, cancel := h.feed.Subscribe()
	defer cancel()

	logger.Info("estimate stream started")
	for {
		select {
		case <-ctx.Done():
			logger.Info("estimate stream closed")
			return
		case result, open := <-results:
			if !open {
				return
			}
			data, err := json.Marshal(newEstimateView(result))
			if err != nil {
				logger.Error("failed to encode estimate", observability.Error(err))
				return
			}
			fmt.Fprintf(w, "event: estimate\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}

// HandleUsage returns the usage totals, with records when ?records=true.
func (h *Handler) HandleUsage(w http.ResponseWriter, r *http.Request) {
	totals := h.usage.Totals()
	view := usageView{
		LedgerTotals: totals,
		Display:      domain.FormatCost(totals.Cost, totals.Currency),
	}

	if withRecords, _ := strconv.ParseBool(r.URL.Query().Get("records")); withRecords {
		view.Records = h.usage.Entries()
	}

	writeJSON(w, r, http.StatusOK, view)
}

// HandleResetUsage clears the usage ledger. It requires ?confirm=true.
func (h *Handler) HandleResetUsage(w http.ResponseWriter, r *http.Request) {
	if confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm")); !confirmed {
		http.Error(w, "reset requires confirm=true", http.StatusBadRequest)
		return
	}

	totals := h.usage.Reset(r.Context())
	writeJSON(w, r, http.StatusOK, usageView{
		LedgerTotals: totals,
		Display:      domain.FormatCost(totals.Cost, totals.Currency),
	})
}

// HandlePricing returns the loaded pricing snapshot.
func (h *Handler) HandlePricing(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.catalog.Load()
	if err != nil {
		observability.FromContext(r.Context()).Error("pricing unavailable", observability.Error(err))
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, r, http.StatusOK, snapshot)
}

// HandleModelRate resolves the rate applied to a model name.
func (h *Handler) HandleModelRate(w http.ResponseWriter, r *http.Request) {
	model := r.PathValue("model")

	applied, err := h.calculator.Rate(model)
	switch {
	case errors.Is(err, domain.ErrModelNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, r, http.StatusOK, rateView{Model: model, Applied: applied})
}

// HandleTemplates lists templates, optionally filtered by ?mode=.
func (h *Handler) HandleTemplates(w http.ResponseWriter, r *http.Request) {
	var mode domain.DraftMode
	if raw := r.URL.Query().Get("mode"); raw != "" {
		parsed, err := domain.ParseDraftMode(raw)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		mode = parsed
	}

	writeJSON(w, r, http.StatusOK, h.templates.List(mode))
}

// HandleHealth handles health check requests.
func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
	}); err != nil {
		// Already written status, can't change it.
		return
	}
}

// decodeDraft parses a DraftInput body. The mode defaults to chat.
func decodeDraft(w http.ResponseWriter, r *http.Request) (domain.DraftInput, bool) {
	var input domain.DraftInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return input, false
	}

	if input.Model == "" {
		http.Error(w, "model is required", http.StatusBadRequest)
		return input, false
	}

	if input.Mode == "" {
		input.Mode = domain.ModeChat
	}
	if _, err := domain.ParseDraftMode(string(input.Mode)); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return input, false
	}

	return input, true
}

func transformStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrEmptyInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrMissingCredential):
		return http.StatusPreconditionFailed
	case errors.Is(err, domain.ErrTransformInFlight):
		return http.StatusConflict
	case errors.Is(err, domain.ErrModelNotFound), errors.Is(err, domain.ErrTemplateNotFound):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrResourceMissing),
		errors.Is(err, domain.ErrDecodeFailed),
		errors.Is(err, domain.ErrUnsupportedSchema),
		errors.Is(err, domain.ErrInvalidSnapshot):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		observability.FromContext(r.Context()).Error("failed to encode response", observability.Error(err))
	}
}
