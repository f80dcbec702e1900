package devserver

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wactl-dev/wactl/internal/realtime"
)

var (
	// ErrNoSession is returned when the organization has no session.
	ErrNoSession = errors.New("session not found")
	// ErrNothingToScan is returned by Scan when no pairing artifact is shown.
	ErrNothingToScan = errors.New("no QR or pairing code to scan")
)

// SentMessage is a test message accepted by the simulator.
type SentMessage struct {
	ID       string
	ClientID string
	Phone    string
	Message  string
	At       time.Time
}

type wsToken struct {
	orgID    string
	clientID string
	expires  time.Time
}

// orgSession is the simulated WhatsApp session of one organization. All
// fields are guarded by Server.mu.
type orgSession struct {
	orgID    string
	clientID string
	code     string
	reason   string
	me       *realtime.Me
	phone    string
	qr       *realtime.QREvent
	pairing  *realtime.PairingCodeEvent
	qrSeq    int
	peers    map[*peer]struct{}
	stop     chan struct{}
}

func newOrgSession(orgID, clientID string) *orgSession {
	return &orgSession{
		orgID:    orgID,
		clientID: clientID,
		code:     "disconnected",
		peers:    make(map[*peer]struct{}),
	}
}

func (o *orgSession) stopFlow() {
	if o.stop != nil {
		close(o.stop)
		o.stop = nil
	}
}

func (o *orgSession) closePeers() {
	for p := range o.peers {
		p.close()
	}
	o.peers = make(map[*peer]struct{})
}

func (o *orgSession) statusEvent() realtime.StatusEvent {
	return realtime.StatusEvent{Code: o.code, Reason: o.reason, Me: o.me}
}

// setStatusLocked updates the code and pushes it to every peer.
func (s *Server) setStatusLocked(sess *orgSession, code, reason string) {
	sess.code = code
	sess.reason = reason
	if code != "ready" {
		sess.me = nil
	}
	s.broadcastLocked(sess, realtime.EventStatus, sess.statusEvent())
}

func (s *Server) broadcastLocked(sess *orgSession, event string, data interface{}) {
	frame, err := realtime.EncodeFrame(event, data)
	if err != nil {
		s.logger.Error("failed to encode frame", zap.String("event", event), zap.Error(err))
		return
	}
	for p := range sess.peers {
		if err := p.send(frame); err != nil {
			s.logger.Debug("dropping peer", zap.Error(err))
			p.close()
			delete(sess.peers, p)
		}
	}
}

// startFlowLocked begins pairing: a pairing code when a phone is given,
// otherwise a rotating QR.
func (s *Server) startFlowLocked(sess *orgSession, pairingPhone string) {
	sess.stopFlow()
	sess.qr = nil
	sess.pairing = nil
	sess.qrSeq = 0
	sess.phone = pairingPhone
	s.setStatusLocked(sess, "connecting", "")

	stop := make(chan struct{})
	sess.stop = stop
	go s.runFlow(sess, stop, pairingPhone)
}

func (s *Server) runFlow(sess *orgSession, stop <-chan struct{}, pairingPhone string) {
	if pairingPhone != "" {
		s.withFlow(sess, stop, func() {
			sess.code = "waiting_qr"
			sess.reason = ""
			s.broadcastLocked(sess, realtime.EventStatus, sess.statusEvent())
			sess.pairing = &realtime.PairingCodeEvent{
				Code:  pairingCode(),
				Phone: pairingPhone,
			}
			sess.pairing.Raw = strings.ReplaceAll(sess.pairing.Code, "-", "")
			s.broadcastLocked(sess, realtime.EventPairingCode, sess.pairing)
		})
		return
	}

	for i := 0; i < s.cfg.QRRotations; i++ {
		if !s.withFlow(sess, stop, func() { s.emitQRLocked(sess) }) {
			return
		}
		select {
		case <-stop:
			return
		case <-time.After(s.cfg.QRTTL):
		}
	}

	s.withFlow(sess, stop, func() {
		sess.qr = nil
		sess.stopFlow()
		s.setStatusLocked(sess, "disconnected", "qr_timeout")
	})
}

// withFlow runs fn under the server lock if the flow is still current.
func (s *Server) withFlow(sess *orgSession, stop <-chan struct{}, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-stop:
		return false
	default:
	}
	fn()
	return true
}

func (s *Server) emitQRLocked(sess *orgSession) {
	now := s.now()
	sess.qrSeq++
	sess.pairing = nil
	sess.qr = &realtime.QREvent{
		QR:               fmt.Sprintf("2@%s,%s,%s", uuid.NewString(), uuid.NewString(), sess.clientID),
		ExpiresAt:        now.Add(s.cfg.QRTTL).UnixMilli(),
		Seq:              sess.qrSeq,
		ReplacesPrevious: sess.qrSeq > 1,
		IssuedAt:         now.UnixMilli(),
		TTLMs:            s.cfg.QRTTL.Milliseconds(),
		QRID:             uuid.NewString(),
	}
	sess.code = "waiting_qr"
	sess.reason = ""
	s.broadcastLocked(sess, realtime.EventQR, sess.qr)
}

func pairingCode() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return raw[:4] + "-" + raw[4:8]
}

// Scan completes pairing as if the phone had scanned the QR or entered the
// pairing code.
func (s *Server) Scan(orgID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[orgID]
	if !ok {
		return ErrNoSession
	}
	if sess.code == "ready" {
		return nil
	}
	if sess.qr == nil && sess.pairing == nil {
		return ErrNothingToScan
	}

	sess.stopFlow()
	sess.qr = nil
	sess.pairing = nil
	s.setStatusLocked(sess, "authenticated", "")

	number := sess.phone
	if number == "" {
		number = "34600000000"
	}
	sess.me = &realtime.Me{ID: number + "@s.whatsapp.net", Name: "Dev Business"}
	sess.code = "ready"
	s.broadcastLocked(sess, realtime.EventStatus, sess.statusEvent())
	s.logger.Info("session paired", zap.String("org", orgID))
	return nil
}

// Code returns the simulated session code of an organization.
func (s *Server) Code(orgID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[orgID]
	if !ok {
		return "", false
	}
	return sess.code, true
}

// Sent returns the test messages accepted for an organization.
func (s *Server) Sent(orgID string) []SentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SentMessage(nil), s.sent[orgID]...)
}

// issueTokenLocked mints a realtime token for the session.
func (s *Server) issueTokenLocked(sess *orgSession) (string, time.Duration) {
	token := uuid.NewString()
	s.tokens[token] = wsToken{
		orgID:    sess.orgID,
		clientID: sess.clientID,
		expires:  s.now().Add(s.cfg.TokenTTL),
	}
	return token, s.cfg.TokenTTL
}

func (s *Server) revokeTokensLocked(orgID string) {
	for t, info := range s.tokens {
		if info.orgID == orgID {
			delete(s.tokens, t)
		}
	}
}
