package email

import (
	"fmt"
	"html"
	"strings"

	"github.com/gulfsetup/crm-api/internal/domain"
)

// trackLabel renders a track name for customer-facing copy
func trackLabel(track domain.Track) string {
	if track == domain.TrackBank {
		return "Bank Account Opening"
	}
	return "Company Formation"
}

// QuoteSubject builds the subject line for a quote email
func QuoteSubject(track domain.Track) string {
	return fmt.Sprintf("Your %s Quote from GulfSetup", trackLabel(track))
}

// QuoteBody renders the HTML body of a quote email. link points at the
// customer quote page carrying the signed token.
func QuoteBody(name string, track domain.Track, amount float64, link string) string {
	var b strings.Builder
	b.WriteString("<html><body style=\"font-family:Arial,sans-serif;color:#1a1a2e\">")
	fmt.Fprintf(&b, "<p>Dear %s,</p>", html.EscapeString(name))
	fmt.Fprintf(&b, "<p>Thank you for your interest in our %s services. Please find your quotation below.</p>", trackLabel(track))
	fmt.Fprintf(&b, "<p style=\"font-size:1.3em\"><strong>AED %.2f</strong></p>", amount)
	fmt.Fprintf(&b, "<p><a href=\"%s\" style=\"background:#0f3460;color:#fff;padding:10px 24px;text-decoration:none;border-radius:4px\">Review &amp; Respond</a></p>", link)
	b.WriteString("<p>The link above lets you review the quote and accept or decline. If you have any questions, just reply to this email.</p>")
	b.WriteString("<p>Best regards,<br>The GulfSetup Team</p>")
	b.WriteString("</body></html>")
	return b.String()
}

// InvoiceSubject builds the subject line for an invoice email
func InvoiceSubject(number string) string {
	return fmt.Sprintf("Invoice %s from GulfSetup", number)
}

// InvoiceBody renders the HTML body of an invoice email. The same body
// is persisted as the revision's content snapshot.
func InvoiceBody(name string, track domain.Track, number string, amount float64, viewLink, paymentLink string) string {
	var b strings.Builder
	b.WriteString("<html><body style=\"font-family:Arial,sans-serif;color:#1a1a2e\">")
	fmt.Fprintf(&b, "<p>Dear %s,</p>", html.EscapeString(name))
	fmt.Fprintf(&b, "<p>Please find your invoice for %s below.</p>", trackLabel(track))
	b.WriteString("<table style=\"border-collapse:collapse\">")
	fmt.Fprintf(&b, "<tr><td style=\"padding:4px 12px 4px 0\">Invoice number</td><td><strong>%s</strong></td></tr>", html.EscapeString(number))
	fmt.Fprintf(&b, "<tr><td style=\"padding:4px 12px 4px 0\">Amount due</td><td><strong>AED %.2f</strong></td></tr>", amount)
	b.WriteString("</table>")
	fmt.Fprintf(&b, "<p><a href=\"%s\" style=\"background:#0f3460;color:#fff;padding:10px 24px;text-decoration:none;border-radius:4px\">View Invoice</a>", viewLink)
	fmt.Fprintf(&b, " &nbsp; <a href=\"%s\" style=\"background:#16a34a;color:#fff;padding:10px 24px;text-decoration:none;border-radius:4px\">Pay Now</a></p>", paymentLink)
	b.WriteString("<p>Best regards,<br>The GulfSetup Team</p>")
	b.WriteString("</body></html>")
	return b.String()
}

// NotifyBody renders the HTML body of an operator notification email
func NotifyBody(title, message string) string {
	return fmt.Sprintf(
		"<html><body style=\"font-family:Arial,sans-serif;color:#1a1a2e\"><p><strong>%s</strong></p><p>%s</p></body></html>",
		html.EscapeString(title), html.EscapeString(message),
	)
}
