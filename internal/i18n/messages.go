package i18n

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// Supported locales. French is served whenever the user's preferred
// language matches "fr" (any casing or region), English otherwise.
var matcher = language.NewMatcher([]language.Tag{
	language.English,
	language.French,
})

// ResolveLocale maps a user's preferred language string to a supported tag.
func ResolveLocale(preferred string) language.Tag {
	preferred = strings.TrimSpace(preferred)
	if preferred == "" {
		return language.English
	}

	tag, err := language.Parse(preferred)
	if err != nil {
		return language.English
	}

	_, index, _ := matcher.Match(tag)
	if index == 1 {
		return language.French
	}
	return language.English
}

var messages = map[string]map[language.Tag]string{
	"appointment.requested.subject": {
		language.English: "New appointment proposed",
		language.French:  "Nouveau rendez-vous proposé",
	},
	"appointment.requested.body": {
		language.English: "%s proposed an appointment from %s to %s.",
		language.French:  "%s a proposé un rendez-vous du %s au %s.",
	},
	"appointment.confirmed.subject": {
		language.English: "Appointment confirmed",
		language.French:  "Rendez-vous confirmé",
	},
	"appointment.confirmed.body": {
		language.English: "%s confirmed the appointment on %s.",
		language.French:  "%s a confirmé le rendez-vous du %s.",
	},
	"appointment.declined.subject": {
		language.English: "Appointment declined",
		language.French:  "Rendez-vous refusé",
	},
	"appointment.declined.body": {
		language.English: "%s declined the appointment: %s",
		language.French:  "%s a refusé le rendez-vous : %s",
	},
	"appointment.rescheduled.subject": {
		language.English: "Appointment rescheduled",
		language.French:  "Rendez-vous reporté",
	},
	"appointment.rescheduled.body": {
		language.English: "%s proposed a new time from %s to %s.",
		language.French:  "%s a proposé un nouveau créneau du %s au %s.",
	},
	"appointment.cancelled.subject": {
		language.English: "Appointment cancelled",
		language.French:  "Rendez-vous annulé",
	},
	"appointment.cancelled.body": {
		language.English: "%s cancelled the appointment on %s.",
		language.French:  "%s a annulé le rendez-vous du %s.",
	},
	"appointment.reminder.subject": {
		language.English: "Appointment reminder",
		language.French:  "Rappel de rendez-vous",
	},
	"appointment.reminder.body": {
		language.English: "Reminder: your appointment starts at %s.",
		language.French:  "Rappel : votre rendez-vous commence à %s.",
	},
	"document.requested.subject": {
		language.English: "Document requested",
		language.French:  "Document demandé",
	},
	"document.requested.body": {
		language.English: "Your broker requested the document \"%s\".",
		language.French:  "Votre courtier a demandé le document « %s ».",
	},
	"document.shared.subject": {
		language.English: "Document shared",
		language.French:  "Document partagé",
	},
	"document.shared.body": {
		language.English: "Your broker shared the document \"%s\" with you.",
		language.French:  "Votre courtier a partagé le document « %s » avec vous.",
	},
	"document.submitted.subject": {
		language.English: "Document submitted",
		language.French:  "Document soumis",
	},
	"document.submitted.body": {
		language.English: "%s submitted the document \"%s\".",
		language.French:  "%s a soumis le document « %s ».",
	},
	"document.approved.subject": {
		language.English: "Document approved",
		language.French:  "Document approuvé",
	},
	"document.approved.body": {
		language.English: "The document \"%s\" was approved.",
		language.French:  "Le document « %s » a été approuvé.",
	},
	"document.rejected.subject": {
		language.English: "Document rejected",
		language.French:  "Document rejeté",
	},
	"document.rejected.body": {
		language.English: "The document \"%s\" was rejected: %s",
		language.French:  "Le document « %s » a été rejeté : %s",
	},
	"document.needs_revision.subject": {
		language.English: "Document needs revision",
		language.French:  "Document à réviser",
	},
	"document.needs_revision.body": {
		language.English: "The document \"%s\" needs revision: %s",
		language.French:  "Le document « %s » doit être révisé : %s",
	},
	"offer.received.subject": {
		language.English: "New offer received",
		language.French:  "Nouvelle offre reçue",
	},
	"offer.received.body": {
		language.English: "An offer of %s from %s was recorded on your transaction.",
		language.French:  "Une offre de %s provenant de %s a été enregistrée sur votre transaction.",
	},
	"offer.updated.subject": {
		language.English: "Offer updated",
		language.French:  "Offre mise à jour",
	},
	"offer.updated.body": {
		language.English: "The offer from %s was updated.",
		language.French:  "L'offre de %s a été mise à jour.",
	},
	"offer.decision.subject": {
		language.English: "Client decision on offer",
		language.French:  "Décision du client sur l'offre",
	},
	"offer.decision.body": {
		language.English: "%s recorded the decision %s on the offer from %s.",
		language.French:  "%s a enregistré la décision %s sur l'offre de %s.",
	},
	"property_offer.made.subject": {
		language.English: "Offer made on property",
		language.French:  "Offre déposée sur une propriété",
	},
	"property_offer.made.body": {
		language.English: "An offer of %s was made on %s (round %d).",
		language.French:  "Une offre de %s a été déposée sur %s (ronde %d).",
	},
	"property_offer.countered.subject": {
		language.English: "Counter-offer received",
		language.French:  "Contre-offre reçue",
	},
	"property_offer.countered.body": {
		language.English: "The seller countered the offer on %s.",
		language.French:  "Le vendeur a fait une contre-offre sur %s.",
	},
	"condition.added.subject": {
		language.English: "Condition added",
		language.French:  "Condition ajoutée",
	},
	"condition.added.body": {
		language.English: "The condition \"%s\" was added to your transaction.",
		language.French:  "La condition « %s » a été ajoutée à votre transaction.",
	},
}

// Message returns the localized text for key, formatted with args. An
// unknown key returns defaultValue as-is; it is an identifier, not a
// format string.
func Message(key string, locale language.Tag, defaultValue string, args ...interface{}) string {
	byLocale, ok := messages[key]
	if !ok {
		return defaultValue
	}

	text, ok := byLocale[locale]
	if !ok {
		text = byLocale[language.English]
	}

	if len(args) > 0 {
		return fmt.Sprintf(text, args...)
	}
	return text
}
