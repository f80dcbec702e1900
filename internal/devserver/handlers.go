package devserver

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wactl-dev/wactl/internal/phone"
	"github.com/wactl-dev/wactl/internal/realtime"
)

type connectBody struct {
	ClientID     string `json:"clientId"`
	PairingPhone string `json:"pairingPhone"`
}

type sessionBody struct {
	ClientID string `json:"clientId"`
}

type sendBody struct {
	ClientID string `json:"clientId"`
	Phone    string `json:"phone" binding:"required"`
	Message  string `json:"message" binding:"required"`
}

func (s *Server) handleStatus(c *gin.Context) {
	orgID := c.Param("orgId")

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[orgID]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": ErrNoSession.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"found":    true,
		"clientId": sess.clientID,
		"waStatus": sess.statusEvent(),
	})
}

func (s *Server) handleConnect(c *gin.Context) {
	orgID := c.Param("orgId")
	var body connectBody
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pairingPhone := ""
	if body.PairingPhone != "" {
		p, err := phone.Normalize(body.PairingPhone, "")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		pairingPhone = p
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "server is shutting down"})
		return
	}

	sess, ok := s.sessions[orgID]
	if !ok {
		clientID := body.ClientID
		if clientID == "" {
			clientID = uuid.NewString()
		}
		sess = newOrgSession(orgID, clientID)
		s.sessions[orgID] = sess
	}
	if sess.code != "ready" {
		s.startFlowLocked(sess, pairingPhone)
	}

	token, ttl := s.issueTokenLocked(sess)
	s.logger.Info("session connect",
		zap.String("org", orgID),
		zap.String("client_id", sess.clientID),
		zap.Bool("pairing_code", pairingPhone != ""))

	c.JSON(http.StatusOK, gin.H{
		"clientId": sess.clientID,
		"ws": gin.H{
			"url":       "/ws",
			"token":     token,
			"expiresIn": int(ttl.Seconds()),
		},
	})
}

func (s *Server) handleRestart(c *gin.Context) {
	orgID := c.Param("orgId")

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[orgID]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": ErrNoSession.Error()})
		return
	}

	sess.stopFlow()
	sess.qr = nil
	sess.pairing = nil
	if sess.me != nil {
		me := sess.me
		s.setStatusLocked(sess, "reconnecting", "")
		sess.me = me
		sess.code = "ready"
		s.broadcastLocked(sess, realtime.EventStatus, sess.statusEvent())
	} else {
		s.setStatusLocked(sess, "disconnected", "restarted")
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleLogout(c *gin.Context) {
	orgID := c.Param("orgId")

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[orgID]
	if !ok {
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	sess.stopFlow()
	s.broadcastLocked(sess, realtime.EventSessionCleaned, nil)
	sess.closePeers()
	delete(s.sessions, orgID)
	s.revokeTokensLocked(orgID)
	s.logger.Info("session logged out", zap.String("org", orgID))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleSend(c *gin.Context) {
	orgID := c.Param("orgId")
	var body sendBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	to, err := phone.Normalize(body.Phone, "")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[orgID]
	if !ok || sess.code != "ready" {
		c.JSON(http.StatusConflict, gin.H{"error": "session not ready"})
		return
	}

	msg := SentMessage{
		ID:       uuid.NewString(),
		ClientID: body.ClientID,
		Phone:    to,
		Message:  body.Message,
		At:       s.now(),
	}
	s.sent[orgID] = append(s.sent[orgID], msg)
	s.logger.Info("test message accepted", zap.String("org", orgID), zap.String("to", phone.Mask(to)))
	c.JSON(http.StatusOK, gin.H{"ok": true, "messageId": msg.ID})
}

func (s *Server) handleScan(c *gin.Context) {
	err := s.Scan(c.Param("orgId"))
	switch {
	case errors.Is(err, ErrNoSession):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrNothingToScan):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}
