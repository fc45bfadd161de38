package mapper

import (
	"github.com/gulfsetup/crm-api/internal/domain"
)

// ToTrackDTO converts one track's state to its API projection. sla may
// be nil when the caller does not want SLA metrics computed.
func ToTrackDTO(ts *domain.TrackState, sla *domain.SLAReport) domain.TrackDTO {
	return domain.TrackDTO{
		Status:             ts.Status(),
		SentToAgentAt:      ts.SentToAgentAt,
		AgentContactedAt:   ts.AgentContactedAt,
		Feasible:           ts.Feasible,
		FeasibleAt:         ts.FeasibleAt,
		QuotedAmount:       ts.QuotedAmount,
		QuoteSentAt:        ts.QuoteSentAt,
		QuoteViewedAt:      ts.QuoteViewedAt,
		Approved:           ts.Approved,
		QuoteApprovedAt:    ts.QuoteApprovedAt,
		ProceedConfirmedAt: ts.ProceedConfirmedAt,
		DeclinedAt:         ts.DeclinedAt,
		DeclineReason:      ts.DeclineReason,
		InvoiceNumber:      ts.InvoiceNumber,
		InvoiceVersion:     ts.InvoiceVersion,
		InvoiceAmount:      ts.InvoiceAmount,
		PaymentLink:        ts.PaymentLink,
		InvoiceSentAt:      ts.InvoiceSentAt,
		PaymentReceivedAt:  ts.PaymentReceivedAt,
		CompletedAt:        ts.CompletedAt,
		SLA:                sla,
	}
}

// ToLeadDTO converts a Lead to LeadDTO. SLA reports are attached per
// track when provided.
func ToLeadDTO(lead *domain.Lead, companySLA, bankSLA *domain.SLAReport) domain.LeadDTO {
	return domain.LeadDTO{
		ID:          lead.ID,
		Name:        lead.Name,
		Email:       lead.Email,
		Phone:       lead.Phone,
		CompanyName: lead.CompanyName,
		Nationality: lead.Nationality,
		SetupType:   lead.SetupType,
		Source:      lead.Source,
		Notes:       lead.Notes,
		Company:     ToTrackDTO(&lead.CompanyTrack, companySLA),
		Bank:        ToTrackDTO(&lead.BankTrack, bankSLA),
		CreatedAt:   lead.CreatedAt,
		UpdatedAt:   lead.UpdatedAt,
	}
}

// ToInvoiceRevisionDTO converts InvoiceRevision to InvoiceRevisionDTO.
// Content is deliberately omitted; the rendered invoice body is only
// served through the customer link.
func ToInvoiceRevisionDTO(rev *domain.InvoiceRevision) domain.InvoiceRevisionDTO {
	return domain.InvoiceRevisionDTO{
		ID:          rev.ID,
		LeadID:      rev.LeadID,
		Track:       rev.Track,
		Version:     rev.Version,
		Number:      rev.Number,
		Amount:      rev.Amount,
		PaymentLink: rev.PaymentLink,
		SentAt:      rev.SentAt,
		ViewedAt:    rev.ViewedAt,
		CreatedAt:   rev.CreatedAt,
	}
}

// ToActivityDTO converts ActivityRecord to ActivityDTO
func ToActivityDTO(record *domain.ActivityRecord) domain.ActivityDTO {
	return domain.ActivityDTO{
		ID:        record.ID,
		LeadID:    record.LeadID,
		Action:    record.Action,
		Message:   record.Message,
		CreatedAt: record.CreatedAt,
	}
}

// ToNotificationDTO converts Notification to NotificationDTO
func ToNotificationDTO(n *domain.Notification) domain.NotificationDTO {
	return domain.NotificationDTO{
		ID:        n.ID,
		Event:     n.Event,
		LeadID:    n.LeadID,
		Track:     n.Track,
		Title:     n.Title,
		Message:   n.Message,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
}
