// Package models holds the server-side domain types shared by repositories,
// services and the HTTP layer.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ChatID is the canonical string form of a client-supplied chat identifier.
// Clients send either JSON numbers or strings; both are normalized so that
// 5, "5" and "05" address the same chat.
type ChatID string

// NormalizeChatID trims s and rewrites decimal integer literals into
// canonical form (no leading zeros, no "+", "-0" as "0"). Any other text is
// kept verbatim.
func NormalizeChatID(s string) ChatID {
	s = strings.TrimSpace(s)

	digits := s
	neg := false
	switch {
	case strings.HasPrefix(digits, "-"):
		neg = true
		digits = digits[1:]
	case strings.HasPrefix(digits, "+"):
		digits = digits[1:]
	}
	if digits == "" || strings.IndexFunc(digits, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
		return ChatID(s)
	}

	digits = strings.TrimLeft(digits, "0")
	if digits == "" {
		return "0"
	}
	if neg {
		return ChatID("-" + digits)
	}
	return ChatID(digits)
}

// String implements fmt.Stringer.
func (id ChatID) String() string {
	return string(id)
}

// IsZero reports whether the id is empty.
func (id ChatID) IsZero() bool {
	return id == ""
}

// UnmarshalJSON accepts a JSON string or number.
func (id *ChatID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = NormalizeChatID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("chat id must be a string or a number: %w", err)
	}
	*id = NormalizeChatID(n.String())
	return nil
}

// Chat is one conversation owned by a single user. Created and Messages are
// opaque client JSON stored and returned unmodified.
type Chat struct {
	ID         ChatID          `json:"id"`
	OwnerEmail string          `json:"user_email"`
	Title      string          `json:"title"`
	Created    json.RawMessage `json:"created"`
	Messages   json.RawMessage `json:"messages"`
}

// IsWelcome reports whether the chat carries the onboarding title.
func (c *Chat) IsWelcome(welcomeTitle string) bool {
	return c.Title == welcomeTitle
}

// Normalize fills JSON defaults so the chat can be stored: a null created
// value and an empty message list.
func (c *Chat) Normalize() {
	if len(bytes.TrimSpace(c.Created)) == 0 {
		c.Created = json.RawMessage("null")
	}
	if m := bytes.TrimSpace(c.Messages); len(m) == 0 || bytes.Equal(m, []byte("null")) {
		c.Messages = json.RawMessage("[]")
	}
}
