package api

// Me is the authenticated WhatsApp identity reported by the backend.
type Me struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Status is the canonical session status, whatever shape the server used.
type Status struct {
	Found    bool
	Code     string
	Reason   string
	Me       *Me
	ClientID string
}

// ConnectRequest asks the backend to start (or resume) a session.
type ConnectRequest struct {
	ClientID     string `json:"clientId,omitempty"`
	PairingPhone string `json:"pairingPhone,omitempty"`
}

// WSInfo tells the client where and how to open the realtime channel.
type WSInfo struct {
	URL       string `json:"url"`
	Token     string `json:"token"`
	ExpiresIn int    `json:"expiresIn"`
}

// ConnectResponse is returned by the connect endpoint.
type ConnectResponse struct {
	ClientID string `json:"clientId"`
	WS       WSInfo `json:"ws"`
}

// SessionRequest identifies the session for restart and logout.
type SessionRequest struct {
	ClientID string `json:"clientId"`
}

// SendRequest is a test message.
type SendRequest struct {
	ClientID string `json:"clientId"`
	Phone    string `json:"phone"`
	Message  string `json:"message"`
}

// SendResponse is the backend acknowledgement of a test message.
type SendResponse struct {
	OK        bool   `json:"ok"`
	MessageID string `json:"messageId,omitempty"`
}
