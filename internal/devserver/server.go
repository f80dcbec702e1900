// Package devserver is a local stand-in for the platform backend. It serves
// the organization WhatsApp endpoints and the realtime channel, and simulates
// a pairing session so the client can be exercised without a real phone.
package devserver

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Config configures the simulator.
type Config struct {
	Addr string
	// Token is the API token REST callers must present. Empty accepts any
	// non-empty bearer token.
	Token string
	// QRTTL is how long each simulated QR stays valid.
	QRTTL time.Duration
	// QRRotations bounds how many QRs are issued before the session gives up.
	QRRotations int
	// TokenTTL is the lifetime of realtime tokens.
	TokenTTL       time.Duration
	AllowedOrigins []string
}

// DefaultConfig returns the simulator defaults.
func DefaultConfig() Config {
	return Config{
		Addr:        "127.0.0.1:8787",
		QRTTL:       20 * time.Second,
		QRRotations: 5,
		TokenTTL:    10 * time.Minute,
	}
}

// Server is the simulated backend.
type Server struct {
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
	router *gin.Engine

	mu       sync.Mutex
	sessions map[string]*orgSession
	tokens   map[string]wsToken
	sent     map[string][]SentMessage
	closed   bool
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New creates a simulator. Zero config values fall back to DefaultConfig.
func New(cfg Config, opts ...Option) *Server {
	def := DefaultConfig()
	if cfg.QRTTL <= 0 {
		cfg.QRTTL = def.QRTTL
	}
	if cfg.QRRotations <= 0 {
		cfg.QRRotations = def.QRRotations
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = def.TokenTTL
	}
	if cfg.Addr == "" {
		cfg.Addr = def.Addr
	}

	s := &Server{
		cfg:      cfg,
		logger:   zap.NewNop(),
		now:      time.Now,
		sessions: make(map[string]*orgSession),
		tokens:   make(map[string]wsToken),
		sent:     make(map[string][]SentMessage),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler serving REST and realtime routes.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger(), s.corsMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/ws", s.handleWS)

	wa := r.Group("/organizations/:orgId/wa", s.requireToken())
	{
		wa.GET("/status", s.handleStatus)
		wa.POST("/connect", s.handleConnect)
		wa.POST("/restart", s.handleRestart)
		wa.POST("/logout", s.handleLogout)
		wa.POST("/send", s.handleSend)
		wa.POST("/dev/scan", s.handleScan)
	}
	return r
}

func (s *Server) corsMiddleware() gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Authorization", "Content-Type", "Accept", "Origin"},
		MaxAge:       12 * time.Hour,
	}
	if len(s.cfg.AllowedOrigins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = s.cfg.AllowedOrigins
	}
	return cors.New(cfg)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)))
	}
}

func (s *Server) requireToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearer(c.Request)
		if token == "" || (s.cfg.Token != "" && token != s.cfg.Token) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// Run serves on cfg.Addr until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("dev server listening", zap.String("addr", s.cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.Close()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// Close stops every simulated session and drops realtime peers.
func (s *Server) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for _, sess := range s.sessions {
		sess.stopFlow()
		sess.closePeers()
	}
	s.sessions = make(map[string]*orgSession)
	s.mu.Unlock()
}
