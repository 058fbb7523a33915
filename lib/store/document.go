package store

import (
	"bytes"
	"encoding/json"
	"time"
)

// Document is a single stored record. Data is opaque to the store and kept in
// compact JSON form, so two documents with structurally equal payloads have
// byte-equal Data.
type Document struct {
	ID        string          `json:"id"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	ExpiresAt *time.Time      `json:"expires_at,omitempty"`
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	c := d
	if d.Data != nil {
		c.Data = make(json.RawMessage, len(d.Data))
		copy(c.Data, d.Data)
	}
	if d.ExpiresAt != nil {
		exp := *d.ExpiresAt
		c.ExpiresAt = &exp
	}
	return c
}

// Expired reports whether the document has an expiry at or before now.
func (d Document) Expired(now time.Time) bool {
	return d.ExpiresAt != nil && !d.ExpiresAt.After(now)
}

// compactJSON validates raw and returns its compact form.
func compactJSON(raw []byte) (json.RawMessage, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, serializationError("empty payload", nil)
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, serializationError("payload is not valid JSON", err)
	}
	return json.RawMessage(buf.Bytes()), nil
}
