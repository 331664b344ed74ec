package reporter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Phrases the service puts in its error message when it refuses to finish
// a launch or an item that still has open descendants.
const (
	PhraseFinishLaunchNotAllowed = "Finish launch is not allowed."
	PhraseFinishItemNotAllowed   = "Finish test item is not allowed."
)

// CancelDescription is the description set on items cancelled by recovery.
const CancelDescription = "Cancelled due to error."

// ErrorResponse is the service's error body.
type ErrorResponse struct {
	ErrorCode int    `json:"error_code"`
	Message   string `json:"message"`
}

// Conflict describes a finish conflict reported by the service.
type Conflict struct {
	// Launch is true for a launch-level conflict, false for an item-level one.
	Launch bool
	// Message is the service message, or the raw body when it was not JSON.
	Message string
	// ErrorCode is the service error code, zero when unavailable.
	ErrorCode int
}

// DetectConflict inspects a response body for a finish conflict.
//
// A JSON error body is matched on its message field first. When the
// message carries no conflict phrase, or the body is not a JSON object,
// the raw text is searched instead and becomes the conflict message.
func DetectConflict(body []byte) (Conflict, bool) {
	var er ErrorResponse
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &er); err != nil {
			er = ErrorResponse{}
		}
	}

	for _, text := range []string{er.Message, string(body)} {
		if launch, ok := conflictKind(text); ok {
			return Conflict{Launch: launch, Message: text, ErrorCode: er.ErrorCode}, true
		}
	}
	return Conflict{}, false
}

// conflictKind reports whether text names a finish conflict and whether
// it is launch-level.
func conflictKind(text string) (launch, ok bool) {
	switch {
	case text == "":
		return false, false
	case strings.Contains(text, PhraseFinishLaunchNotAllowed):
		return true, true
	case strings.Contains(text, PhraseFinishItemNotAllowed):
		return false, true
	default:
		return false, false
	}
}

// ParseOrphanIDs extracts the item IDs the service embeds in a conflict
// message as a bracketed, comma-separated list, e.g.
//
//	Launch 'abc' has running items: [id1, id2, id3]
//
// Only the first list is read. Whitespace around entries is trimmed.
func ParseOrphanIDs(message string) ([]string, error) {
	open := strings.IndexByte(message, '[')
	if open < 0 {
		return nil, ErrNoIDList
	}
	rest := message[open+1:]
	end := strings.IndexByte(rest, ']')
	if end < 0 {
		return nil, fmt.Errorf("%w: unterminated list", ErrMalformedIDList)
	}

	inner := strings.TrimSpace(rest[:end])
	if inner == "" {
		return nil, fmt.Errorf("%w: empty list", ErrMalformedIDList)
	}

	parts := strings.Split(inner, ",")
	ids := make([]string, 0, len(parts))
	for i, p := range parts {
		id := strings.TrimSpace(p)
		if id == "" {
			return nil, fmt.Errorf("%w: empty entry at position %d", ErrMalformedIDList, i)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
