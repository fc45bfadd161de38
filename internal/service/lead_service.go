package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/gulfsetup/crm-api/internal/domain"
	"github.com/gulfsetup/crm-api/internal/email"
	"github.com/gulfsetup/crm-api/internal/mapper"
	"github.com/gulfsetup/crm-api/internal/repository"
	"github.com/gulfsetup/crm-api/internal/token"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// LeadService runs the per-track deal state machine. Each transition is
// an independent unit of work: load the lead, check the gate, mutate,
// persist. Company and bank tracks never influence each other.
type LeadService struct {
	leadRepo    *repository.LeadRepository
	invoiceSvc  *InvoiceService
	activitySvc *ActivityService
	notifier    *Notifier
	slaSvc      *SLAService
	tokens      *token.Service
	mailer      MailSender
	baseURL     string
	logger      *zap.Logger
}

// NewLeadService creates a new LeadService
func NewLeadService(
	leadRepo *repository.LeadRepository,
	invoiceSvc *InvoiceService,
	activitySvc *ActivityService,
	notifier *Notifier,
	slaSvc *SLAService,
	tokens *token.Service,
	mailer MailSender,
	baseURL string,
	logger *zap.Logger,
) *LeadService {
	return &LeadService{
		leadRepo:    leadRepo,
		invoiceSvc:  invoiceSvc,
		activitySvc: activitySvc,
		notifier:    notifier,
		slaSvc:      slaSvc,
		tokens:      tokens,
		mailer:      mailer,
		baseURL:     baseURL,
		logger:      logger,
	}
}

// Create registers a new inquiry. Both tracks start handed to agents,
// which is what the response SLA clock runs from.
func (s *LeadService) Create(ctx context.Context, req *domain.CreateLeadRequest) (*domain.LeadDTO, error) {
	now := time.Now().UTC()
	setupType := req.SetupType
	if setupType == "" {
		setupType = domain.SetupTypeMainland
	}

	lead := &domain.Lead{
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		CompanyName: req.CompanyName,
		Nationality: req.Nationality,
		SetupType:   setupType,
		Source:      req.Source,
		Notes:       req.Notes,
	}
	lead.CompanyTrack.SentToAgentAt = &now
	lead.BankTrack.SentToAgentAt = &now

	if err := s.leadRepo.Create(ctx, lead); err != nil {
		return nil, fmt.Errorf("failed to create lead: %w", err)
	}

	s.logger.Info("lead created",
		zap.String("lead_id", lead.ID.String()),
		zap.String("setup_type", string(lead.SetupType)),
	)

	return s.toDTO(lead), nil
}

// GetByID returns a lead with per-track SLA metrics
func (s *LeadService) GetByID(ctx context.Context, id uuid.UUID) (*domain.LeadDTO, error) {
	lead, err := s.loadLead(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.toDTO(lead), nil
}

// Update applies a partial update: only fields present in the request
// body are touched, an explicit null clears.
func (s *LeadService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateLeadRequest) (*domain.LeadDTO, error) {
	lead, err := s.loadLead(ctx, id)
	if err != nil {
		return nil, err
	}

	applyString := func(opt domain.Optional[string], dst *string) {
		if !opt.Set {
			return
		}
		if opt.Value == nil {
			*dst = ""
			return
		}
		*dst = *opt.Value
	}

	if req.Name.Set && req.Name.Value != nil {
		lead.Name = *req.Name.Value
	}
	if req.Email.Set && req.Email.Value != nil {
		lead.Email = *req.Email.Value
	}
	applyString(req.Phone, &lead.Phone)
	applyString(req.CompanyName, &lead.CompanyName)
	applyString(req.Nationality, &lead.Nationality)
	applyString(req.Source, &lead.Source)
	applyString(req.Notes, &lead.Notes)
	if req.SetupType.Set && req.SetupType.Value != nil {
		if !req.SetupType.Value.IsValid() {
			return nil, fmt.Errorf("%w: unknown setup type %q", ErrInvalidInput, *req.SetupType.Value)
		}
		lead.SetupType = *req.SetupType.Value
	}

	if err := s.leadRepo.Update(ctx, lead); err != nil {
		return nil, fmt.Errorf("failed to update lead: %w", err)
	}
	s.activitySvc.Record(ctx, lead.ID, domain.ActionLeadUpdated, "Lead details updated")

	return s.toDTO(lead), nil
}

// Delete removes a lead and all child records
func (s *LeadService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.loadLead(ctx, id); err != nil {
		return err
	}
	if err := s.leadRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete lead: %w", err)
	}
	s.logger.Info("lead deleted", zap.String("lead_id", id.String()))
	return nil
}

// List returns a page of leads
func (s *LeadService) List(ctx context.Context, page, pageSize int, filters *repository.LeadFilters) (*domain.PaginatedResponse, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	if filters != nil && filters.SetupType != "" && !filters.SetupType.IsValid() {
		return nil, fmt.Errorf("%w: unknown setup type %q", ErrInvalidInput, filters.SetupType)
	}

	leads, total, err := s.leadRepo.List(ctx, page, pageSize, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}

	dtos := make([]domain.LeadDTO, len(leads))
	for i := range leads {
		dtos[i] = *s.toDTO(&leads[i])
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return &domain.PaginatedResponse{
		Data:       dtos,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// GetSLA returns per-track SLA metrics for one lead
func (s *LeadService) GetSLA(ctx context.Context, id uuid.UUID) (map[domain.Track]*domain.SLAReport, error) {
	lead, err := s.loadLead(ctx, id)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return map[domain.Track]*domain.SLAReport{
		domain.TrackCompany: s.slaSvc.Report(&lead.CompanyTrack, now),
		domain.TrackBank:    s.slaSvc.Report(&lead.BankTrack, now),
	}, nil
}

// ---------------------------------------------------------------------------
// Track transitions
// ---------------------------------------------------------------------------

// MarkAgentContacted acknowledges the agent handoff. Idempotent: the
// first call stamps the time, later calls are no-ops.
func (s *LeadService) MarkAgentContacted(ctx context.Context, id uuid.UUID, track domain.Track) (*domain.LeadDTO, error) {
	lead, ts, err := s.loadTrack(ctx, id, track)
	if err != nil {
		return nil, err
	}

	if ts.AgentContactedAt == nil {
		now := time.Now().UTC()
		ts.AgentContactedAt = &now
		if err := s.leadRepo.Update(ctx, lead); err != nil {
			return nil, fmt.Errorf("failed to update lead: %w", err)
		}
		s.activitySvc.Record(ctx, lead.ID, domain.ActionAgentContacted,
			fmt.Sprintf("Agent contacted for %s track", track))
	}

	return s.toDTO(lead), nil
}

// SetFeasibility records the agent's verdict. A false verdict closes
// the track; true opens it for quoting.
func (s *LeadService) SetFeasibility(ctx context.Context, id uuid.UUID, track domain.Track, req *domain.FeasibilityRequest) (*domain.LeadDTO, error) {
	lead, ts, err := s.loadTrack(ctx, id, track)
	if err != nil {
		return nil, err
	}
	if ts.AgentContactedAt == nil {
		return nil, ErrAgentNotContacted
	}
	if ts.PaymentReceivedAt != nil {
		return nil, ErrPaymentAlreadyReceived
	}

	ts.Feasible = req.Feasible
	if ts.FeasibleAt == nil {
		now := time.Now().UTC()
		ts.FeasibleAt = &now
	}

	if err := s.leadRepo.Update(ctx, lead); err != nil {
		return nil, fmt.Errorf("failed to update lead: %w", err)
	}

	verdict := "not feasible"
	if *req.Feasible {
		verdict = "feasible"
	}
	msg := fmt.Sprintf("%s track marked %s", track.Prefix(), verdict)
	if req.Remarks != "" {
		msg += ": " + req.Remarks
	}
	s.activitySvc.Record(ctx, lead.ID, domain.ActionFeasibilitySet, msg)

	return s.toDTO(lead), nil
}

// SetQuoteAmount sets or clears the quoted amount for a track. Requires
// a feasible verdict; amounts must be finite and positive.
func (s *LeadService) SetQuoteAmount(ctx context.Context, id uuid.UUID, track domain.Track, req *domain.QuoteAmountRequest) (*domain.LeadDTO, error) {
	lead, ts, err := s.loadTrack(ctx, id, track)
	if err != nil {
		return nil, err
	}
	if ts.PaymentReceivedAt != nil {
		return nil, ErrPaymentAlreadyReceived
	}

	if !req.Amount.Set {
		return nil, fmt.Errorf("%w: amount is required", ErrInvalidInput)
	}
	if req.Amount.Value == nil {
		ts.QuotedAmount = nil
	} else {
		amount := *req.Amount.Value
		if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
			return nil, ErrInvalidAmount
		}
		if ts.Feasible == nil || !*ts.Feasible {
			return nil, ErrNotFeasible
		}
		ts.QuotedAmount = &amount
	}

	if err := s.leadRepo.Update(ctx, lead); err != nil {
		return nil, fmt.Errorf("failed to update lead: %w", err)
	}
	if ts.QuotedAmount != nil {
		s.activitySvc.Record(ctx, lead.ID, domain.ActionQuoteSet,
			fmt.Sprintf("%s quote set to AED %.2f", track.Prefix(), *ts.QuotedAmount))
	} else {
		s.activitySvc.Record(ctx, lead.ID, domain.ActionQuoteSet,
			fmt.Sprintf("%s quote cleared", track.Prefix()))
	}

	return s.toDTO(lead), nil
}

// SendQuote emails the customer their quote with an approval link. Any
// prior customer decision for this track is wiped first so a stale
// answer can never carry over to a new quote. Fails before any state
// change if the email cannot be delivered.
func (s *LeadService) SendQuote(ctx context.Context, id uuid.UUID, track domain.Track) (*domain.LeadDTO, error) {
	lead, ts, err := s.loadTrack(ctx, id, track)
	if err != nil {
		return nil, err
	}
	if ts.PaymentReceivedAt != nil {
		return nil, ErrPaymentAlreadyReceived
	}
	if ts.QuotedAmount == nil {
		return nil, ErrQuoteAmountMissing
	}
	if ts.InvoiceSentAt != nil {
		// An outstanding unpaid invoice must be explicitly reset before
		// re-quoting.
		return nil, ErrAlreadyInvoiced
	}

	approvalToken, err := s.tokens.Issue(lead.ID, track, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to issue approval token: %w", err)
	}
	link := fmt.Sprintf("%s/public/quote?token=%s", s.baseURL, url.QueryEscape(approvalToken))

	subject := email.QuoteSubject(track)
	body := email.QuoteBody(lead.Name, track, *ts.QuotedAmount, link)
	if err := s.mailer.Send(email.ChannelQuote, []string{lead.Email}, subject, body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmailDelivery, err)
	}

	now := time.Now().UTC()
	ts.QuoteSentAt = &now
	ts.QuoteViewedAt = nil
	ts.Approved = nil
	ts.QuoteApprovedAt = nil
	ts.ProceedConfirmedAt = nil
	ts.DeclinedAt = nil
	ts.DeclineReason = ""

	if err := s.leadRepo.Update(ctx, lead); err != nil {
		return nil, fmt.Errorf("failed to update lead: %w", err)
	}
	s.activitySvc.Record(ctx, lead.ID, domain.ActionQuoteSent,
		fmt.Sprintf("%s quote of AED %.2f sent to %s", track.Prefix(), *ts.QuotedAmount, lead.Email))
	s.activitySvc.Record(ctx, lead.ID, domain.ActionEmailSent,
		fmt.Sprintf("Quote email sent to %s", lead.Email))

	return s.toDTO(lead), nil
}

// RecordDecision stores the customer's approve/decline answer. The
// customer may change their mind; a later decision overwrites an
// earlier one until payment freezes the track.
func (s *LeadService) RecordDecision(ctx context.Context, id uuid.UUID, track domain.Track, req *domain.DecisionRequest) (*domain.LeadDTO, error) {
	lead, ts, err := s.loadTrack(ctx, id, track)
	if err != nil {
		return nil, err
	}
	if ts.QuoteSentAt == nil {
		return nil, ErrQuoteNotSent
	}
	if ts.PaymentReceivedAt != nil {
		return nil, ErrPaymentAlreadyReceived
	}

	now := time.Now().UTC()
	approved := *req.Approved
	ts.Approved = &approved
	if approved {
		ts.QuoteApprovedAt = &now
		ts.DeclinedAt = nil
		ts.DeclineReason = ""
	} else {
		ts.DeclinedAt = &now
		ts.DeclineReason = req.Reason
		ts.QuoteApprovedAt = nil
		ts.ProceedConfirmedAt = nil
	}

	if err := s.leadRepo.Update(ctx, lead); err != nil {
		return nil, fmt.Errorf("failed to update lead: %w", err)
	}

	if approved {
		s.activitySvc.Record(ctx, lead.ID, domain.ActionApproved,
			fmt.Sprintf("%s quote approved", track.Prefix()))
	} else {
		msg := fmt.Sprintf("%s quote declined", track.Prefix())
		if req.Reason != "" {
			msg += ": " + req.Reason
		}
		s.activitySvc.Record(ctx, lead.ID, domain.ActionDeclined, msg)
	}

	return s.toDTO(lead), nil
}

// SendInvoice issues the next invoice revision for a track and emails
// it to the customer. Delivery is mandatory: an SMTP failure aborts
// with no state change. Bookkeeping after a successful send is best
// effort and surfaces as a warning, never as failure, because the
// customer already has the invoice in hand.
func (s *LeadService) SendInvoice(ctx context.Context, id uuid.UUID, track domain.Track, req *domain.SendInvoiceRequest) (*domain.SendInvoiceResult, error) {
	lead, ts, err := s.loadTrack(ctx, id, track)
	if err != nil {
		return nil, err
	}
	if ts.PaymentReceivedAt != nil {
		return nil, ErrPaymentAlreadyReceived
	}
	if !ts.IsApproved() {
		return nil, ErrNotApproved
	}
	if ts.QuotedAmount == nil {
		return nil, ErrQuoteAmountMissing
	}

	paymentLink := req.PaymentLink
	if paymentLink == "" {
		paymentLink = ts.PaymentLink
	}
	if !validPaymentLink(paymentLink) {
		return nil, ErrInvalidPaymentLink
	}

	now := time.Now().UTC()
	amount := *ts.QuotedAmount
	version := s.invoiceSvc.NextVersion(ts)
	number := s.invoiceSvc.FormatNumber(lead, track, version, now)

	invoiceToken, err := s.tokens.Issue(lead.ID, track, version)
	if err != nil {
		return nil, fmt.Errorf("failed to issue invoice token: %w", err)
	}
	viewLink := fmt.Sprintf("%s/public/invoice?token=%s", s.baseURL, url.QueryEscape(invoiceToken))
	content := email.InvoiceBody(lead.Name, track, number, amount, viewLink, paymentLink)

	// Delivery first. No ledger or snapshot write happens on failure,
	// so the operation is safely retryable.
	subject := email.InvoiceSubject(number)
	if err := s.mailer.Send(email.ChannelInvoice, []string{lead.Email}, subject, content); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmailDelivery, err)
	}

	result := &domain.SendInvoiceResult{}

	rev := &domain.InvoiceRevision{
		LeadID:      lead.ID,
		Track:       track,
		Version:     version,
		Number:      number,
		Amount:      amount,
		PaymentLink: paymentLink,
		Content:     content,
		SentAt:      now,
	}
	if err := s.invoiceSvc.AppendRevision(ctx, rev); err != nil {
		s.logger.Error("invoice sent but ledger append failed",
			zap.String("lead_id", lead.ID.String()),
			zap.String("number", number),
			zap.Error(err),
		)
		result.Warning = "invoice was emailed but could not be recorded in the ledger"
	} else {
		dto := mapper.ToInvoiceRevisionDTO(rev)
		result.Revision = &dto
	}

	ts.InvoiceNumber = number
	ts.InvoiceVersion = version
	ts.InvoiceAmount = &amount
	ts.PaymentLink = paymentLink
	ts.InvoiceContent = content
	ts.InvoiceSentAt = &now
	if err := s.leadRepo.Update(ctx, lead); err != nil {
		s.logger.Error("invoice sent but snapshot update failed",
			zap.String("lead_id", lead.ID.String()),
			zap.String("number", number),
			zap.Error(err),
		)
		result.Warning = "invoice was emailed but the lead record could not be updated"
	}

	s.activitySvc.Record(ctx, lead.ID, domain.ActionInvoiceSent,
		fmt.Sprintf("Invoice %s (AED %.2f) sent to %s", number, amount, lead.Email))
	s.activitySvc.Record(ctx, lead.ID, domain.ActionEmailSent,
		fmt.Sprintf("Invoice email sent to %s", lead.Email))

	result.Lead = s.toDTO(lead)
	return result, nil
}

// MarkPaymentReceived records payment for a track. Idempotent; the
// notification fires only on the first transition.
func (s *LeadService) MarkPaymentReceived(ctx context.Context, id uuid.UUID, track domain.Track) (*domain.LeadDTO, error) {
	lead, ts, err := s.loadTrack(ctx, id, track)
	if err != nil {
		return nil, err
	}
	if ts.InvoiceSentAt == nil {
		return nil, ErrInvoiceNotSent
	}

	if ts.PaymentReceivedAt == nil {
		now := time.Now().UTC()
		ts.PaymentReceivedAt = &now
		if err := s.leadRepo.Update(ctx, lead); err != nil {
			return nil, fmt.Errorf("failed to update lead: %w", err)
		}
		amount := 0.0
		if ts.InvoiceAmount != nil {
			amount = *ts.InvoiceAmount
		}
		s.notifier.Notify(domain.EventPaymentReceived, lead.ID, track,
			fmt.Sprintf("Payment received for %s", ts.InvoiceNumber),
			fmt.Sprintf("%s paid AED %.2f on invoice %s.", lead.Name, amount, ts.InvoiceNumber))
	}

	return s.toDTO(lead), nil
}

// MarkCompleted closes out a paid track. Idempotent; notification and
// activity fire only on the first transition.
func (s *LeadService) MarkCompleted(ctx context.Context, id uuid.UUID, track domain.Track) (*domain.LeadDTO, error) {
	lead, ts, err := s.loadTrack(ctx, id, track)
	if err != nil {
		return nil, err
	}
	if ts.PaymentReceivedAt == nil {
		return nil, ErrPaymentNotReceived
	}

	if ts.CompletedAt == nil {
		now := time.Now().UTC()
		ts.CompletedAt = &now
		if err := s.leadRepo.Update(ctx, lead); err != nil {
			return nil, fmt.Errorf("failed to update lead: %w", err)
		}

		action := domain.ActionCompanyDone
		if track == domain.TrackBank {
			action = domain.ActionBankDone
		}
		s.activitySvc.Record(ctx, lead.ID, action,
			fmt.Sprintf("%s track completed", track.Prefix()))
		s.notifier.Notify(domain.EventTrackCompleted, lead.ID, track,
			fmt.Sprintf("%s track completed for %s", track.Prefix(), lead.Name),
			fmt.Sprintf("The %s track for %s is done.", track, lead.Name))
	}

	return s.toDTO(lead), nil
}

// Reopen clears a track's decline so work can resume. With
// ClearPayment it also wipes the invoice-sent, payment and completion
// stamps, which is the explicit operator escape hatch for re-quoting a
// paid or invoiced track.
func (s *LeadService) Reopen(ctx context.Context, id uuid.UUID, track domain.Track, req *domain.ReopenRequest) (*domain.LeadDTO, error) {
	lead, ts, err := s.loadTrack(ctx, id, track)
	if err != nil {
		return nil, err
	}

	ts.DeclinedAt = nil
	ts.DeclineReason = ""
	if req != nil && req.ClearPayment {
		ts.InvoiceSentAt = nil
		ts.PaymentReceivedAt = nil
		ts.CompletedAt = nil
	}

	if err := s.leadRepo.Update(ctx, lead); err != nil {
		return nil, fmt.Errorf("failed to update lead: %w", err)
	}
	s.activitySvc.Record(ctx, lead.ID, domain.ActionReopened,
		fmt.Sprintf("%s track reopened", track.Prefix()))

	return s.toDTO(lead), nil
}

// ---------------------------------------------------------------------------
// Customer token operations
// ---------------------------------------------------------------------------

// ViewQuoteByToken serves the customer quote page. The first view per
// quote stamps quoteViewedAt.
func (s *LeadService) ViewQuoteByToken(ctx context.Context, claims *token.Claims) (*domain.QuoteViewDTO, error) {
	lead, err := s.loadLead(ctx, claims.LeadID)
	if err != nil {
		return nil, err
	}
	ts := lead.TrackState(claims.Track)
	if ts.QuoteSentAt == nil || ts.QuotedAmount == nil {
		return nil, ErrQuoteNotSent
	}

	if ts.QuoteViewedAt == nil {
		now := time.Now().UTC()
		ts.QuoteViewedAt = &now
		if err := s.leadRepo.Update(ctx, lead); err != nil {
			s.logger.Error("failed to stamp quote view",
				zap.String("lead_id", lead.ID.String()),
				zap.Error(err),
			)
		} else {
			s.activitySvc.Record(ctx, lead.ID, domain.ActionQuoteViewed,
				fmt.Sprintf("%s quote viewed by customer", claims.Track.Prefix()))
		}
	}

	return &domain.QuoteViewDTO{
		LeadName:     lead.Name,
		Track:        claims.Track,
		SetupType:    lead.SetupType,
		Amount:       *ts.QuotedAmount,
		Currency:     invoiceCurrency,
		QuoteSentAt:  ts.QuoteSentAt,
		Approved:     ts.Approved,
		DeclinedAt:   ts.DeclinedAt,
		DecisionOpen: ts.PaymentReceivedAt == nil,
	}, nil
}

// DecideByToken records an approve/decline posted through a customer
// quote link.
func (s *LeadService) DecideByToken(ctx context.Context, claims *token.Claims, req *domain.DecisionRequest) (*domain.QuoteViewDTO, error) {
	if _, err := s.RecordDecision(ctx, claims.LeadID, claims.Track, req); err != nil {
		return nil, err
	}
	return s.ViewQuoteByToken(ctx, claims)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (s *LeadService) loadLead(ctx context.Context, id uuid.UUID) (*domain.Lead, error) {
	lead, err := s.leadRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}
	return lead, nil
}

func (s *LeadService) loadTrack(ctx context.Context, id uuid.UUID, track domain.Track) (*domain.Lead, *domain.TrackState, error) {
	if !track.IsValid() {
		return nil, nil, ErrInvalidTrack
	}
	lead, err := s.loadLead(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return lead, lead.TrackState(track), nil
}

func (s *LeadService) toDTO(lead *domain.Lead) *domain.LeadDTO {
	now := time.Now().UTC()
	dto := mapper.ToLeadDTO(lead,
		s.slaSvc.Report(&lead.CompanyTrack, now),
		s.slaSvc.Report(&lead.BankTrack, now),
	)
	return &dto
}

// validPaymentLink requires an absolute https URL with a host
func validPaymentLink(link string) bool {
	if link == "" {
		return false
	}
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	return u.Scheme == "https" && u.Host != ""
}
