// Package session mirrors the server-pushed WhatsApp session status of one
// organization and exposes the commands that drive it.
package session

import (
	"fmt"
	"time"
)

// Code is the connection state pushed by the backend session manager.
type Code string

const (
	CodeConnecting    Code = "connecting"
	CodeWaitingQR     Code = "waiting_qr"
	CodeAuthenticated Code = "authenticated"
	CodeReady         Code = "ready"
	CodeDisconnected  Code = "disconnected"
	CodeAuthFailure   Code = "auth_failure"
	CodeReconnecting  Code = "reconnecting"
	CodeError         Code = "error"
)

// Reasons set locally rather than pushed by the server.
const (
	ReasonStatusFetchFailed = "status_fetch_failed"
	ReasonNotFound          = "not_found"
)

// Codes lists every known code.
var Codes = []Code{
	CodeConnecting,
	CodeWaitingQR,
	CodeAuthenticated,
	CodeReady,
	CodeDisconnected,
	CodeAuthFailure,
	CodeReconnecting,
	CodeError,
}

// ParseCode validates a code received from the server.
func ParseCode(s string) (Code, error) {
	for _, c := range Codes {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown session code %q", s)
}

func (c Code) String() string {
	return string(c)
}

// Account is the authenticated WhatsApp identity.
type Account struct {
	ID   string
	Name string
}

// QRPayload is a scannable pairing QR.
type QRPayload struct {
	Data             string
	ExpiresAt        time.Time
	Seq              int
	ReplacesPrevious bool
	IssuedAt         time.Time
	TTL              time.Duration
	ID               string
}

// PairingCode is a numeric code for linking by phone number.
type PairingCode struct {
	Code  string
	Raw   string
	Phone string
}

// Artifact holds at most one pairing artifact.
type Artifact struct {
	QR          *QRPayload
	PairingCode *PairingCode
}

// Empty reports whether no artifact is held.
func (a Artifact) Empty() bool {
	return a.QR == nil && a.PairingCode == nil
}

// ExpiresAt returns the expiry of the held QR, zero otherwise.
func (a Artifact) ExpiresAt() time.Time {
	if a.QR == nil {
		return time.Time{}
	}
	return a.QR.ExpiresAt
}

// Status is the observable connection status.
type Status struct {
	Code     Code
	Reason   string
	Account  *Account
	Artifact Artifact
}

// EmptyStatus is the state after logout or a cleaned session.
func EmptyStatus() Status {
	return Status{Code: CodeDisconnected}
}

// Snapshot is a copy of the status plus the signals derived from it.
type Snapshot struct {
	Status

	// TTL is the number of whole seconds until the QR expires, never negative.
	TTL int
	// Stuck is set when the session has been connecting for too long.
	Stuck bool

	OrgID           string
	ClientID        string
	ConnectingSince time.Time
	Live            bool
}

// Action returns the recommended primary action for the snapshot.
func (s Snapshot) Action(connect func(ConnectOptions)) *Action {
	return DecideAction(s.Code, s.Reason, s.TTL, s.Stuck, connect)
}
