package validator

import (
	"strings"
	"unicode/utf8"
)

type ValidationErrors map[string]string

func (v ValidationErrors) HasErrors() bool {
	return len(v) > 0
}

func (v ValidationErrors) Add(field, message string) {
	v[field] = message
}

var channelTypes = map[string]bool{
	"team_chat":           true,
	"player_chat":         true,
	"dm":                  true,
	"group_dm":            true,
	"league_announcement": true,
	"custom":              true,
}

var messageTypes = map[string]bool{
	"text":   true,
	"image":  true,
	"voice":  true,
	"gif":    true,
	"video":  true,
	"system": true,
}

func ValidateChannel(name, chType string) ValidationErrors {
	errs := make(ValidationErrors)

	name = strings.TrimSpace(name)
	if name == "" {
		errs.Add("name", "Channel name is required")
	} else if utf8.RuneCountInString(name) > 100 {
		errs.Add("name", "Channel name is too long")
	}

	if chType != "" && !channelTypes[chType] {
		errs.Add("type", "Unknown channel type")
	}

	return errs
}

func ValidateMessage(content, msgType string) ValidationErrors {
	errs := make(ValidationErrors)

	if msgType == "" {
		msgType = "text"
	}
	if !messageTypes[msgType] {
		errs.Add("type", "Unknown message type")
	}

	// Only text messages require content; media messages carry a reference.
	if msgType == "text" && strings.TrimSpace(content) == "" {
		errs.Add("content", "Message content is required")
	}
	if utf8.RuneCountInString(content) > 8000 {
		errs.Add("content", "Message content is too long")
	}

	return errs
}
