package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseSessions extracts sessions from a model response. It accepts a bare
// JSON array, an object with a "sessions" array, or either of those inside
// a ```json or plain ``` fence.
func ParseSessions(raw string) ([]Session, error) {
	raw = strings.TrimSpace(raw)

	candidates := []string{raw}
	if body, ok := fenced(raw, "```json"); ok {
		candidates = append(candidates, body)
	}
	if body, ok := fenced(raw, "```"); ok {
		candidates = append(candidates, body)
	}

	for _, c := range candidates {
		if sessions, ok := decodeSessions(c); ok {
			return sessions, nil
		}
	}
	return nil, fmt.Errorf("%w (first 200 chars: %s)", ErrInvalidResponse, firstN(raw, 200))
}

func decodeSessions(s string) ([]Session, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	switch s[0] {
	case '[':
		var sessions []Session
		if err := json.Unmarshal([]byte(s), &sessions); err != nil {
			return nil, false
		}
		return sessions, true
	case '{':
		var resp struct {
			Sessions *[]Session `json:"sessions"`
		}
		if err := json.Unmarshal([]byte(s), &resp); err != nil || resp.Sessions == nil {
			return nil, false
		}
		return *resp.Sessions, true
	}
	return nil, false
}

// fenced returns the text between the first marker and the next ``` fence.
func fenced(s, marker string) (string, bool) {
	start := strings.Index(s, marker)
	if start < 0 {
		return "", false
	}
	start += len(marker)
	end := strings.Index(s[start:], "```")
	if end <= 0 {
		return "", false
	}
	return strings.TrimSpace(s[start : start+end]), true
}

func firstN(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func truncateStr(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
