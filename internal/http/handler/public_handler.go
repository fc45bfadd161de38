package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gulfsetup/crm-api/internal/domain"
	"github.com/gulfsetup/crm-api/internal/service"
	"github.com/gulfsetup/crm-api/internal/token"
	"go.uber.org/zap"
)

// PublicHandler serves the unauthenticated customer endpoints reached
// through signed token links. Every failure a customer can provoke is
// flattened to one generic message; the real reason only goes to the
// log.
type PublicHandler struct {
	leadService    *service.LeadService
	invoiceService *service.InvoiceService
	tokens         *token.Service
	logger         *zap.Logger
}

func NewPublicHandler(
	leadService *service.LeadService,
	invoiceService *service.InvoiceService,
	tokens *token.Service,
	logger *zap.Logger,
) *PublicHandler {
	return &PublicHandler{
		leadService:    leadService,
		invoiceService: invoiceService,
		tokens:         tokens,
		logger:         logger,
	}
}

// ViewQuote handles GET /public/quote?token=...
func (h *PublicHandler) ViewQuote(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.verifyToken(w, r)
	if !ok {
		return
	}
	quote, err := h.leadService.ViewQuoteByToken(r.Context(), claims)
	if err != nil {
		h.respondGeneric(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, quote)
}

// Decide handles POST /public/quote/decision?token=...
func (h *PublicHandler) Decide(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.verifyToken(w, r)
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

	quote, err := h.leadService.DecideByToken(r.Context(), claims, &req)
	if err != nil {
		h.respondGeneric(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, quote)
}

// ViewInvoice handles GET /public/invoice?token=...
func (h *PublicHandler) ViewInvoice(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.verifyToken(w, r)
	if !ok {
		return
	}
	invoice, err := h.invoiceService.ViewByToken(r.Context(), claims)
	if err != nil {
		h.respondGeneric(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, invoice)
}

// verifyToken pulls the token query parameter and verifies it. The
// response on failure never distinguishes expired from invalid.
func (h *PublicHandler) verifyToken(w http.ResponseWriter, r *http.Request) (*token.Claims, bool) {
	tokenString := r.URL.Query().Get("token")
	if tokenString == "" {
		respondWithError(w, http.StatusUnauthorized, domain.GenericLinkError)
		return nil, false
	}

	claims, err := h.tokens.Verify(tokenString)
	if err != nil {
		h.logger.Info("customer token rejected",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		respondWithError(w, http.StatusUnauthorized, domain.GenericLinkError)
		return nil, false
	}
	return claims, true
}

// respondGeneric hides business-level failures behind the same generic
// message used for bad tokens, except plain validation problems.
func (h *PublicHandler) respondGeneric(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, service.ErrInvalidInput) || errors.Is(err, service.ErrPaymentAlreadyReceived) {
		respondServiceError(w, err)
		return
	}
	h.logger.Info("customer view rejected",
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	respondWithError(w, http.StatusNotFound, domain.GenericLinkError)
}
