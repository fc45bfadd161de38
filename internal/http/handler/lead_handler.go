package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gulfsetup/crm-api/internal/domain"
	"github.com/gulfsetup/crm-api/internal/repository"
	"github.com/gulfsetup/crm-api/internal/service"
	"go.uber.org/zap"
)

// LeadHandler serves the operator-facing lead and track endpoints
type LeadHandler struct {
	leadService     *service.LeadService
	invoiceService  *service.InvoiceService
	activityService *service.ActivityService
	logger          *zap.Logger
}

func NewLeadHandler(
	leadService *service.LeadService,
	invoiceService *service.InvoiceService,
	activityService *service.ActivityService,
	logger *zap.Logger,
) *LeadHandler {
	return &LeadHandler{
		leadService:     leadService,
		invoiceService:  invoiceService,
		activityService: activityService,
		logger:          logger,
	}
}

// List handles GET /api/v1/leads
func (h *LeadHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	if pageSize < 1 {
		pageSize = 20
	}

	filters := &repository.LeadFilters{
		Search:    r.URL.Query().Get("search"),
		SetupType: domain.SetupType(r.URL.Query().Get("setupType")),
	}

	result, err := h.leadService.List(r.Context(), page, pageSize, filters)
	if err != nil {
		h.logger.Error("failed to list leads", zap.Error(err))
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Create handles POST /api/v1/leads
func (h *LeadHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondValidationError(w, err)
		return
	}

	lead, err := h.leadService.Create(r.Context(), &req)
	if err != nil {
		h.logger.Error("failed to create lead", zap.Error(err))
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, lead)
}

// Get handles GET /api/v1/leads/{id}
func (h *LeadHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.leadID(w, r)
	if !ok {
		return
	}
	lead, err := h.leadService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, lead)
}

// Update handles PATCH /api/v1/leads/{id}
func (h *LeadHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.leadID(w, r)
	if !ok {
		return
	}

	var req domain.UpdateLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	lead, err := h.leadService.Update(r.Context(), id, &req)
	if err != nil {
		h.logger.Error("failed to update lead", zap.String("lead_id", id.String()), zap.Error(err))
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, lead)
}

// Delete handles DELETE /api/v1/leads/{id}
func (h *LeadHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.leadID(w, r)
	if !ok {
		return
	}
	if err := h.leadService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// GetSLA handles GET /api/v1/leads/{id}/sla
func (h *LeadHandler) GetSLA(w http.ResponseWriter, r *http.Request) {
	id, ok := h.leadID(w, r)
	if !ok {
		return
	}
	report, err := h.leadService.GetSLA(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// ListActivities handles GET /api/v1/leads/{id}/activities
func (h *LeadHandler) ListActivities(w http.ResponseWriter, r *http.Request) {
	id, ok := h.leadID(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	activities, err := h.activityService.ListByLead(r.Context(), id, limit)
	if err != nil {
		h.logger.Error("failed to list activities", zap.String("lead_id", id.String()), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to list activities")
		return
	}
	respondJSON(w, http.StatusOK, activities)
}

// ListInvoices handles GET /api/v1/leads/{id}/invoices
func (h *LeadHandler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	id, ok := h.leadID(w, r)
	if !ok {
		return
	}
	track := domain.Track(r.URL.Query().Get("track"))
	revisions, err := h.invoiceService.ListByLead(r.Context(), id, track)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, revisions)
}

// ---------------------------------------------------------------------------
// Track transitions
// ---------------------------------------------------------------------------

// MarkAgentContacted handles POST /api/v1/leads/{id}/tracks/{track}/contacted
func (h *LeadHandler) MarkAgentContacted(w http.ResponseWriter, r *http.Request) {
	id, track, ok := h.leadTrack(w, r)
	if !ok {
		return
	}
	lead, err := h.leadService.MarkAgentContacted(r.Context(), id, track)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, lead)
}

// SetFeasibility handles POST /api/v1/leads/{id}/tracks/{track}/feasibility
func (h *LeadHandler) SetFeasibility(w http.ResponseWriter, r *http.Request) {
	id, track, ok := h.leadTrack(w, r)
	if !ok {
		return
	}
	var req domain.FeasibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondValidationError(w, err)
		return
	}

	lead, err := h.leadService.SetFeasibility(r.Context(), id, track, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, lead)
}

// SetQuoteAmount handles PUT /api/v1/leads/{id}/tracks/{track}/quote-amount
func (h *LeadHandler) SetQuoteAmount(w http.ResponseWriter, r *http.Request) {
	id, track, ok := h.leadTrack(w, r)
	if !ok {
		return
	}
	var req domain.QuoteAmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	lead, err := h.leadService.SetQuoteAmount(r.Context(), id, track, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, lead)
}

// SendQuote handles POST /api/v1/leads/{id}/tracks/{track}/send-quote
func (h *LeadHandler) SendQuote(w http.ResponseWriter, r *http.Request) {
	id, track, ok := h.leadTrack(w, r)
	if !ok {
		return
	}
	lead, err := h.leadService.SendQuote(r.Context(), id, track)
	if err != nil {
		h.logger.Error("failed to send quote",
			zap.String("lead_id", id.String()),
			zap.String("track", string(track)),
			zap.Error(err),
		)
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, lead)
}

// RecordDecision handles POST /api/v1/leads/{id}/tracks/{track}/decision
func (h *LeadHandler) RecordDecision(w http.ResponseWriter, r *http.Request) {
	id, track, ok := h.leadTrack(w, r)
	if !ok {
		return
	}
	var req domain.DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondValidationError(w, err)
		return
	}

	lead, err := h.leadService.RecordDecision(r.Context(), id, track, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, lead)
}

// SendInvoice handles POST /api/v1/leads/{id}/tracks/{track}/send-invoice
func (h *LeadHandler) SendInvoice(w http.ResponseWriter, r *http.Request) {
	id, track, ok := h.leadTrack(w, r)
	if !ok {
		return
	}
	var req domain.SendInvoiceRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	result, err := h.leadService.SendInvoice(r.Context(), id, track, &req)
	if err != nil {
		h.logger.Error("failed to send invoice",
			zap.String("lead_id", id.String()),
			zap.String("track", string(track)),
			zap.Error(err),
		)
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// MarkPaymentReceived handles POST /api/v1/leads/{id}/tracks/{track}/payment-received
func (h *LeadHandler) MarkPaymentReceived(w http.ResponseWriter, r *http.Request) {
	id, track, ok := h.leadTrack(w, r)
	if !ok {
		return
	}
	lead, err := h.leadService.MarkPaymentReceived(r.Context(), id, track)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, lead)
}

// MarkCompleted handles POST /api/v1/leads/{id}/tracks/{track}/complete
func (h *LeadHandler) MarkCompleted(w http.ResponseWriter, r *http.Request) {
	id, track, ok := h.leadTrack(w, r)
	if !ok {
		return
	}
	lead, err := h.leadService.MarkCompleted(r.Context(), id, track)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, lead)
}

// Reopen handles POST /api/v1/leads/{id}/tracks/{track}/reopen
func (h *LeadHandler) Reopen(w http.ResponseWriter, r *http.Request) {
	id, track, ok := h.leadTrack(w, r)
	if !ok {
		return
	}
	var req domain.ReopenRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	lead, err := h.leadService.Reopen(r.Context(), id, track, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, lead)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (h *LeadHandler) leadID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid lead ID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *LeadHandler) leadTrack(w http.ResponseWriter, r *http.Request) (uuid.UUID, domain.Track, bool) {
	id, ok := h.leadID(w, r)
	if !ok {
		return uuid.Nil, "", false
	}
	track := domain.Track(chi.URLParam(r, "track"))
	if !track.IsValid() {
		respondWithError(w, http.StatusBadRequest, "Invalid track")
		return uuid.Nil, "", false
	}
	return id, track, true
}
