// Package realtime opens the authenticated realtime channel of a WhatsApp
// session and turns server-pushed frames into typed callbacks.
package realtime

import (
	"encoding/json"
	"strings"
	"time"
)

// Event names on the wire.
const (
	EventJoin           = "join"
	EventStatus         = "status"
	EventQR             = "qr"
	EventPairingCode    = "pairing_code"
	EventPairingError   = "pairing_error"
	EventSessionCleaned = "session_cleaned"
)

// Frame is the envelope of every message in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// JoinRequest scopes the connection to one session channel.
type JoinRequest struct {
	ClientID string `json:"clientId"`
}

// Me is the authenticated WhatsApp identity as pushed by the server.
type Me struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// StatusEvent mirrors the server session state.
type StatusEvent struct {
	Code   string `json:"code"`
	Reason string `json:"reason,omitempty"`
	Me     *Me    `json:"me,omitempty"`
}

// QREvent carries a scannable QR payload. Times are unix milliseconds.
type QREvent struct {
	QR               string `json:"qr"`
	ExpiresAt        int64  `json:"expiresAt"`
	Seq              int    `json:"seq"`
	ReplacesPrevious bool   `json:"replacesPrevious"`
	IssuedAt         int64  `json:"issuedAt"`
	TTLMs            int64  `json:"ttlMs"`
	QRID             string `json:"qrId"`
}

// Expiry returns ExpiresAt as a time, zero when the server sent none.
func (e QREvent) Expiry() time.Time {
	if e.ExpiresAt <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(e.ExpiresAt)
}

// Issued returns IssuedAt as a time, zero when the server sent none.
func (e QREvent) Issued() time.Time {
	if e.IssuedAt <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(e.IssuedAt)
}

// PairingCodeEvent carries a numeric pairing code for phone-number linking.
type PairingCodeEvent struct {
	Code  string `json:"code"`
	Raw   string `json:"raw,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// PairingErrorEvent reports a server-side pairing failure. The error field
// is either a string or an object with a message.
type PairingErrorEvent struct {
	Error json.RawMessage `json:"error"`
}

// Message returns a readable form of the error payload.
func (e PairingErrorEvent) Message() string {
	raw := strings.TrimSpace(string(e.Error))
	if raw == "" || raw == "null" {
		return "unknown pairing error"
	}

	var s string
	if err := json.Unmarshal(e.Error, &s); err == nil {
		if s == "" {
			return "unknown pairing error"
		}
		return s
	}

	var obj struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	}
	if err := json.Unmarshal(e.Error, &obj); err == nil && (obj.Message != "" || obj.Code != "") {
		if obj.Code != "" && obj.Message != "" {
			return obj.Code + ": " + obj.Message
		}
		if obj.Message != "" {
			return obj.Message
		}
		return obj.Code
	}

	return raw
}

// EncodeFrame builds a frame with data marshaled as JSON.
func EncodeFrame(event string, data interface{}) ([]byte, error) {
	f := Frame{Event: event}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		f.Data = raw
	}
	return json.Marshal(f)
}
