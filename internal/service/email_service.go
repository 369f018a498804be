package service

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/text/language"

	"github.com/courtierpro/brokerage-backend/internal/email"
	"github.com/courtierpro/brokerage-backend/internal/i18n"
	"github.com/courtierpro/brokerage-backend/internal/models"
)

// EmailService composes localized brokerage emails and hands them to
// the configured sender. Every method is fire-and-forget from the
// engines' perspective; failures are logged at the call site.
type EmailService struct {
	sender email.Sender
}

// NewEmailService creates the service.
func NewEmailService(sender email.Sender) *EmailService {
	return &EmailService{sender: sender}
}

func (s *EmailService) send(ctx context.Context, recipient *models.User, key string, args ...interface{}) error {
	locale := i18n.ResolveLocale(recipient.PreferredLanguage)
	subject := i18n.Message(key+".subject", locale, key)
	body := i18n.Message(key+".body", locale, key, args...)
	return s.sender.Send(ctx, []string{recipient.Email}, subject, body)
}

func formatTime(t time.Time, locale language.Tag) string {
	if locale == language.French {
		return t.Format("2006-01-02 à 15:04")
	}
	return t.Format("2006-01-02 at 15:04")
}

func formatAmount(amount float64) string {
	return fmt.Sprintf("$%.2f", amount)
}

// SendAppointmentRequested notifies the counterparty of a new proposal.
func (s *EmailService) SendAppointmentRequested(ctx context.Context, recipient *models.User, actorName string, appt *models.Appointment) error {
	locale := i18n.ResolveLocale(recipient.PreferredLanguage)
	return s.send(ctx, recipient, "appointment.requested",
		actorName, formatTime(appt.FromTime, locale), formatTime(appt.ToTime, locale))
}

// SendAppointmentConfirmed notifies the initiator of a confirmation.
func (s *EmailService) SendAppointmentConfirmed(ctx context.Context, recipient *models.User, actorName string, appt *models.Appointment) error {
	locale := i18n.ResolveLocale(recipient.PreferredLanguage)
	return s.send(ctx, recipient, "appointment.confirmed", actorName, formatTime(appt.FromTime, locale))
}

// SendAppointmentDeclined notifies the initiator of a refusal.
func (s *EmailService) SendAppointmentDeclined(ctx context.Context, recipient *models.User, actorName, reason string) error {
	return s.send(ctx, recipient, "appointment.declined", actorName, reason)
}

// SendAppointmentRescheduled notifies the counterparty of a new time.
func (s *EmailService) SendAppointmentRescheduled(ctx context.Context, recipient *models.User, actorName string, appt *models.Appointment) error {
	locale := i18n.ResolveLocale(recipient.PreferredLanguage)
	return s.send(ctx, recipient, "appointment.rescheduled",
		actorName, formatTime(appt.FromTime, locale), formatTime(appt.ToTime, locale))
}

// SendAppointmentCancelled notifies the other party of a cancellation.
func (s *EmailService) SendAppointmentCancelled(ctx context.Context, recipient *models.User, actorName string, appt *models.Appointment) error {
	locale := i18n.ResolveLocale(recipient.PreferredLanguage)
	return s.send(ctx, recipient, "appointment.cancelled", actorName, formatTime(appt.FromTime, locale))
}

// SendAppointmentReminder reminds a party of an upcoming appointment.
func (s *EmailService) SendAppointmentReminder(ctx context.Context, recipient *models.User, appt *models.Appointment) error {
	locale := i18n.ResolveLocale(recipient.PreferredLanguage)
	return s.send(ctx, recipient, "appointment.reminder", formatTime(appt.FromTime, locale))
}

// SendDocumentRequested notifies the client that a document is awaited.
func (s *EmailService) SendDocumentRequested(ctx context.Context, recipient *models.User, title string) error {
	return s.send(ctx, recipient, "document.requested", title)
}

// SendDocumentShared notifies the client that the broker shared a document.
func (s *EmailService) SendDocumentShared(ctx context.Context, recipient *models.User, title string) error {
	return s.send(ctx, recipient, "document.shared", title)
}

// SendDocumentSubmitted notifies the non-uploading party of a submission.
func (s *EmailService) SendDocumentSubmitted(ctx context.Context, recipient *models.User, uploaderName, title string) error {
	return s.send(ctx, recipient, "document.submitted", uploaderName, title)
}

// SendDocumentReviewed notifies the client of the broker's decision.
func (s *EmailService) SendDocumentReviewed(ctx context.Context, recipient *models.User, decision, title, comments string) error {
	switch decision {
	case models.ReviewDecisionApproved:
		return s.send(ctx, recipient, "document.approved", title)
	case models.ReviewDecisionRejected:
		return s.send(ctx, recipient, "document.rejected", title, comments)
	default:
		return s.send(ctx, recipient, "document.needs_revision", title, comments)
	}
}

// SendOfferReceived notifies the seller of a newly recorded offer.
func (s *EmailService) SendOfferReceived(ctx context.Context, recipient *models.User, buyerName string, amount float64) error {
	return s.send(ctx, recipient, "offer.received", formatAmount(amount), buyerName)
}

// SendOfferUpdated notifies the seller of a change on a received offer.
func (s *EmailService) SendOfferUpdated(ctx context.Context, recipient *models.User, buyerName string) error {
	return s.send(ctx, recipient, "offer.updated", buyerName)
}

// SendOfferDecision notifies the broker of the client's decision.
func (s *EmailService) SendOfferDecision(ctx context.Context, recipient *models.User, actorName, decision, buyerName string) error {
	return s.send(ctx, recipient, "offer.decision", actorName, decision, buyerName)
}

// SendPropertyOfferMade notifies the client that an offer round went out.
func (s *EmailService) SendPropertyOfferMade(ctx context.Context, recipient *models.User, address string, amount float64, round int) error {
	return s.send(ctx, recipient, "property_offer.made", formatAmount(amount), address, round)
}

// SendPropertyOfferCountered notifies the client of a counter-offer.
func (s *EmailService) SendPropertyOfferCountered(ctx context.Context, recipient *models.User, address string) error {
	return s.send(ctx, recipient, "property_offer.countered", address)
}

// SendConditionAdded notifies the client of a new condition.
func (s *EmailService) SendConditionAdded(ctx context.Context, recipient *models.User, title string) error {
	return s.send(ctx, recipient, "condition.added", title)
}
