package validate

import (
	"fmt"
	"regexp"
)

// Field limits shared by the API handlers and the embed shell.
const (
	MaxIDLength          = 100
	MaxOptionTextLength  = 200
	MaxPayloadLength     = 2000
	MaxOptionsPerSet     = 20
	MaxChatMessageLength = 1000
	MaxWidgetNameLength  = 100
	MaxVideosPerWidget   = 50
	MaxVideoTitleLength  = 500
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

func checkLen(value string, max int, field string) string {
	if len(value) > max {
		return fmt.Sprintf("%s must be %d characters or fewer", field, max)
	}
	return ""
}

// ID checks identifiers that appear in URL paths (option sets, widgets).
func ID(s string, field string) string {
	if s == "" {
		return field + " is required"
	}
	if msg := checkLen(s, MaxIDLength, field); msg != "" {
		return msg
	}
	if !idPattern.MatchString(s) {
		return field + " may only contain letters, digits, '.', '_' and '-'"
	}
	return ""
}

func OptionText(s string) string  { return checkLen(s, MaxOptionTextLength, "option text") }
func Payload(s string) string     { return checkLen(s, MaxPayloadLength, "option payload") }
func ChatMessage(s string) string { return checkLen(s, MaxChatMessageLength, "chat message") }
func WidgetName(s string) string  { return checkLen(s, MaxWidgetNameLength, "widget name") }
func VideoTitle(s string) string  { return checkLen(s, MaxVideoTitleLength, "video title") }

func OptionCount(n int) string {
	if n > MaxOptionsPerSet {
		return fmt.Sprintf("an option set may hold at most %d options", MaxOptionsPerSet)
	}
	return ""
}

func VideoCount(n int) string {
	if n > MaxVideosPerWidget {
		return fmt.Sprintf("a widget may hold at most %d videos", MaxVideosPerWidget)
	}
	return ""
}

// FieldLimits returns a map of field names to max lengths for the /api/limits endpoint.
func FieldLimits() map[string]int {
	return map[string]int{
		"id":          MaxIDLength,
		"optionText":  MaxOptionTextLength,
		"payload":     MaxPayloadLength,
		"options":     MaxOptionsPerSet,
		"chatMessage": MaxChatMessageLength,
		"widgetName":  MaxWidgetNameLength,
		"videos":      MaxVideosPerWidget,
		"videoTitle":  MaxVideoTitleLength,
	}
}
