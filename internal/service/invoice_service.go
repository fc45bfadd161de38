package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gulfsetup/crm-api/internal/domain"
	"github.com/gulfsetup/crm-api/internal/mapper"
	"github.com/gulfsetup/crm-api/internal/repository"
	"github.com/gulfsetup/crm-api/internal/token"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// invoiceCurrency is the only billing currency in use
const invoiceCurrency = "AED"

// InvoiceService owns the append-only invoice revision ledger and the
// customer-facing invoice read path.
type InvoiceService struct {
	leadRepo    *repository.LeadRepository
	invoiceRepo *repository.InvoiceRepository
	activitySvc *ActivityService
	notifier    *Notifier
	logger      *zap.Logger
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	leadRepo *repository.LeadRepository,
	invoiceRepo *repository.InvoiceRepository,
	activitySvc *ActivityService,
	notifier *Notifier,
	logger *zap.Logger,
) *InvoiceService {
	return &InvoiceService{
		leadRepo:    leadRepo,
		invoiceRepo: invoiceRepo,
		activitySvc: activitySvc,
		notifier:    notifier,
		logger:      logger,
	}
}

// NextVersion computes the version for the track's next revision:
// prior version plus one while an unpaid sent invoice is outstanding,
// otherwise 1.
func (s *InvoiceService) NextVersion(ts *domain.TrackState) int {
	if ts.InvoiceSentAt != nil && ts.PaymentReceivedAt == nil && ts.InvoiceVersion > 0 {
		return ts.InvoiceVersion + 1
	}
	return 1
}

// FormatNumber builds the deterministic invoice number. The layout
// {TRACK}-{YYYYMMDD}-{suffix}-R{version} is a reconciliation contract
// with downstream accounting; never change it.
func (s *InvoiceService) FormatNumber(lead *domain.Lead, track domain.Track, version int, at time.Time) string {
	return fmt.Sprintf("%s-%s-%s-R%d", track.Prefix(), at.Format("20060102"), lead.Suffix(), version)
}

// AppendRevision writes one ledger entry keyed on (lead, track,
// version). Retries of the same logical append land on the same row.
func (s *InvoiceService) AppendRevision(ctx context.Context, rev *domain.InvoiceRevision) error {
	if err := s.invoiceRepo.Upsert(ctx, rev); err != nil {
		return fmt.Errorf("failed to append invoice revision: %w", err)
	}
	return nil
}

// GetRevision returns one ledger entry by its natural key
func (s *InvoiceService) GetRevision(ctx context.Context, leadID uuid.UUID, track domain.Track, version int) (*domain.InvoiceRevisionDTO, error) {
	rev, err := s.invoiceRepo.GetRevision(ctx, leadID, track, version)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("failed to get invoice revision: %w", err)
	}
	dto := mapper.ToInvoiceRevisionDTO(rev)
	return &dto, nil
}

// ListByLead returns a lead's ledger entries, optionally narrowed to
// one track.
func (s *InvoiceService) ListByLead(ctx context.Context, leadID uuid.UUID, track domain.Track) ([]domain.InvoiceRevisionDTO, error) {
	if track != "" && !track.IsValid() {
		return nil, ErrInvalidTrack
	}
	revs, err := s.invoiceRepo.ListByLead(ctx, leadID, track)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoice revisions: %w", err)
	}
	dtos := make([]domain.InvoiceRevisionDTO, len(revs))
	for i := range revs {
		dtos[i] = mapper.ToInvoiceRevisionDTO(&revs[i])
	}
	return dtos, nil
}

// ViewByToken serves the customer invoice page. claims come from a
// verified invoice token; a version of 0 addresses the lead's current
// invoice. The first read of a revision stamps viewed_at and notifies
// operators exactly once; later reads are side-effect free.
func (s *InvoiceService) ViewByToken(ctx context.Context, claims *token.Claims) (*domain.InvoiceViewDTO, error) {
	lead, err := s.leadRepo.GetByID(ctx, claims.LeadID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}

	var rev *domain.InvoiceRevision
	if claims.Version > 0 {
		rev, err = s.invoiceRepo.GetRevision(ctx, claims.LeadID, claims.Track, claims.Version)
	} else {
		rev, err = s.invoiceRepo.GetLatestRevision(ctx, claims.LeadID, claims.Track)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("failed to get invoice revision: %w", err)
	}

	firstView, err := s.invoiceRepo.MarkViewed(ctx, rev.ID, time.Now().UTC())
	if err != nil {
		// The customer still gets their invoice; only the bookkeeping
		// of the view is lost.
		s.logger.Error("failed to mark invoice viewed",
			zap.String("lead_id", lead.ID.String()),
			zap.String("number", rev.Number),
			zap.Error(err),
		)
	}
	if firstView {
		s.activitySvc.Record(ctx, lead.ID, domain.ActionInvoiceViewed,
			fmt.Sprintf("Invoice %s viewed by customer", rev.Number))
		s.notifier.Notify(domain.EventInvoiceFirstViewed, lead.ID, claims.Track,
			fmt.Sprintf("Invoice %s viewed", rev.Number),
			fmt.Sprintf("%s opened invoice %s (AED %.2f).", lead.Name, rev.Number, rev.Amount))
	}

	ts := lead.TrackState(claims.Track)
	return &domain.InvoiceViewDTO{
		Number:      rev.Number,
		Version:     rev.Version,
		Track:       rev.Track,
		Amount:      rev.Amount,
		Currency:    invoiceCurrency,
		PaymentLink: rev.PaymentLink,
		Content:     rev.Content,
		SentAt:      rev.SentAt,
		Paid:        ts.PaymentReceivedAt != nil,
	}, nil
}
