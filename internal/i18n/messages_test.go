package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"
)

func TestResolveLocale(t *testing.T) {
	assert.Equal(t, language.English, ResolveLocale(""))
	assert.Equal(t, language.English, ResolveLocale("en"))
	assert.Equal(t, language.French, ResolveLocale("fr"))
	assert.Equal(t, language.French, ResolveLocale("fr-CA"))
	assert.Equal(t, language.English, ResolveLocale("not-a-locale"))
}

func TestMessage_LocalizedWithArgs(t *testing.T) {
	got := Message("appointment.declined.body", language.French, "appointment.declined", "Marie", "double booked")

	assert.Equal(t, "Marie a refusé le rendez-vous : double booked", got)
}

func TestMessage_FallsBackToEnglishForUnsupportedLocale(t *testing.T) {
	got := Message("appointment.declined.subject", language.German, "appointment.declined")

	assert.Equal(t, "Appointment declined", got)
}

func TestMessage_UnknownKeyReturnsDefaultUntouched(t *testing.T) {
	// The default value is an identifier; args must never be
	// interpolated into it.
	got := Message("appointment.vanished.body", language.English, "appointment.vanished", "Marie", "reason")

	assert.Equal(t, "appointment.vanished", got)
}
