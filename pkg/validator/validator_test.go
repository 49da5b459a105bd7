package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateChannel(t *testing.T) {
	assert.False(t, ValidateChannel("U12 Tigers", "team_chat").HasErrors())
	assert.False(t, ValidateChannel("Carpool", "").HasErrors())

	errs := ValidateChannel("  ", "team_chat")
	assert.Contains(t, errs, "name")

	errs = ValidateChannel(strings.Repeat("x", 101), "team_chat")
	assert.Contains(t, errs, "name")

	errs = ValidateChannel("ok", "smoke_signal")
	assert.Contains(t, errs, "type")
}

func TestValidateMessage(t *testing.T) {
	assert.False(t, ValidateMessage("hello", "text").HasErrors())
	assert.False(t, ValidateMessage("hello", "").HasErrors())

	// Media messages carry a reference, not text.
	assert.False(t, ValidateMessage("", "image").HasErrors())

	errs := ValidateMessage("   ", "text")
	assert.Contains(t, errs, "content")

	errs = ValidateMessage(strings.Repeat("x", 8001), "text")
	assert.Contains(t, errs, "content")

	errs = ValidateMessage("hello", "hologram")
	assert.Contains(t, errs, "type")
}
