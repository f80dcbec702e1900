package devserver

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/wactl-dev/wactl/internal/realtime"
)

const (
	writeWait = 5 * time.Second
	joinWait  = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// peer is one realtime connection joined to a session.
type peer struct {
	conn *websocket.Conn
	once sync.Once
}

func (p *peer) send(frame []byte) error {
	_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return p.conn.WriteMessage(websocket.TextMessage, frame)
}

func (p *peer) close() {
	p.once.Do(func() {
		_ = p.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = p.conn.Close()
	})
}

func (s *Server) handleWS(c *gin.Context) {
	// Browsers cannot set headers on a websocket dial, so the query form is
	// accepted as a fallback.
	token := bearer(c.Request)
	if token == "" {
		token = c.Query("token")
	}

	s.mu.Lock()
	info, ok := s.tokens[token]
	s.mu.Unlock()
	if !ok || s.now().After(info.expires) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	p := &peer{conn: conn}
	defer p.close()

	_ = conn.SetReadDeadline(time.Now().Add(joinWait))
	var f realtime.Frame
	if err := conn.ReadJSON(&f); err != nil || f.Event != realtime.EventJoin {
		s.logger.Debug("peer did not join", zap.Error(err))
		return
	}
	var join realtime.JoinRequest
	_ = json.Unmarshal(f.Data, &join)
	_ = conn.SetReadDeadline(time.Time{})

	sess, ok := s.attach(info.orgID, p)
	if !ok {
		frame, _ := realtime.EncodeFrame(realtime.EventStatus, realtime.StatusEvent{Code: "disconnected", Reason: "not_found"})
		_ = p.send(frame)
		return
	}
	s.logger.Debug("peer joined", zap.String("org", info.orgID), zap.String("client_id", join.ClientID))

	// Reads only serve control frames; the client sends nothing after join.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.mu.Lock()
	delete(sess.peers, p)
	s.mu.Unlock()
}

// attach registers p with the organization's session and replays the current
// state to it.
func (s *Server) attach(orgID string, p *peer) (*orgSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[orgID]
	if !ok || s.closed {
		return nil, false
	}
	sess.peers[p] = struct{}{}

	replay := func(event string, data interface{}) {
		frame, err := realtime.EncodeFrame(event, data)
		if err == nil {
			_ = p.send(frame)
		}
	}
	replay(realtime.EventStatus, sess.statusEvent())
	if sess.qr != nil {
		replay(realtime.EventQR, sess.qr)
	}
	if sess.pairing != nil {
		replay(realtime.EventPairingCode, sess.pairing)
	}
	return sess, true
}
