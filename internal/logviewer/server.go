// Package logviewer serves stored thread transcripts over HTTP.
package logviewer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"github.com/modmail-dev/modmail/internal/database/models"
	"github.com/modmail-dev/modmail/internal/database/types"
	"github.com/modmail-dev/modmail/internal/setup/config"
	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
)

// Server timeouts.
const (
	ReadHeaderTimeout = 5 * time.Second
	WriteTimeout      = 30 * time.Second
	ShutdownTimeout   = 10 * time.Second
)

const defaultPagination = 25

var (
	errPageNotFound = errors.New("page not found")
	keyPattern      = regexp.MustCompile(`^[a-zA-Z0-9]+$`)
)

// LogStore is the read path for thread transcripts.
type LogStore interface {
	GetByKey(ctx context.Context, key string) (*types.ThreadLog, error)
	List(ctx context.Context, filter types.ThreadLogFilter, page, perPage int) (*models.ThreadLogPage, error)
}

// Server renders thread logs as HTML and plain text.
type Server struct {
	config    *config.LogViewerConfig
	botID     string
	prefix    string
	perPage   int
	logs      LogStore
	sessions  *SessionStore
	auth      *Authenticator
	roles     RoleFetcher
	whitelist *Whitelist
	renderer  *renderer
	logger    *zap.Logger
}

// NewServer creates a log viewer for the logs of one bot.
// Sessions and roles are only used when OAuth2 login is configured and may be nil otherwise.
func NewServer(
	cfg *config.LogViewerConfig,
	botID uint64,
	logs LogStore,
	sessions *SessionStore,
	roles RoleFetcher,
	logger *zap.Logger,
) (*Server, error) {
	r, err := newRenderer()
	if err != nil {
		return nil, err
	}

	whitelist, err := ParseWhitelist(cfg.Whitelist)
	if err != nil {
		return nil, err
	}

	s := &Server{
		config:    cfg,
		botID:     fmt.Sprintf("%d", botID),
		prefix:    normalizePrefix(cfg.URLPrefix),
		perPage:   cfg.Pagination,
		logs:      logs,
		sessions:  sessions,
		roles:     roles,
		whitelist: whitelist,
		renderer:  r,
		logger:    logger.Named("logviewer"),
	}

	if s.perPage <= 0 {
		s.perPage = defaultPagination
	}

	if cfg.OAuth2.Enabled() {
		if sessions == nil {
			return nil, fmt.Errorf("%w: oauth2 login requires a session store", ErrMissingDependency)
		}

		if roles == nil && !whitelist.AllowsEveryone() {
			return nil, fmt.Errorf("%w: oauth2 whitelist requires a role fetcher", ErrMissingDependency)
		}

		s.auth = NewAuthenticator(cfg.OAuth2)
	}

	s.logger.Info("Log viewer configured",
		zap.String("prefix", s.prefix),
		zap.Bool("oauth", s.auth != nil))

	return s, nil
}

// ErrMissingDependency is returned when the configuration needs a collaborator that was not provided.
var ErrMissingDependency = errors.New("missing dependency")

// Handler builds the router with all middleware applied.
func (s *Server) Handler() http.Handler {
	router := bunrouter.New(
		bunrouter.WithNotFoundHandler(s.notFound),
		bunrouter.WithMiddleware(s.logRequests, s.handleErrors),
	)

	router.HEAD("/", s.handleHead)
	router.GET("/login", s.handleLogin)
	router.GET("/callback", s.handleCallback)
	router.GET("/logout", s.handleLogout)

	if s.prefix == "/" {
		router.GET("/", s.requireAuth(s.handleLogList))
		router.GET("/:key", s.requireAuth(s.handleLog))
		router.GET("/raw/:key", s.requireAuth(s.handleRawLog))
	} else {
		router.GET("/", s.handleIndex)
		router.GET(s.prefix, s.requireAuth(s.handleLogList))
		router.GET(s.prefix+"/:key", s.requireAuth(s.handleLog))
		router.GET(s.prefix+"/raw/:key", s.requireAuth(s.handleRawLog))
	}

	return gzhttp.GzipHandler(router)
}

// Start serves on the configured address until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		WriteTimeout:      WriteTimeout,
	}

	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("Log viewer started", zap.String("addr", addr))

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("log viewer server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("log viewer shutdown failed: %w", err)
	}

	s.logger.Info("Log viewer stopped")

	return nil
}

// logRequests logs every request with its status and duration.
func (s *Server) logRequests(next bunrouter.HandlerFunc) bunrouter.HandlerFunc {
	return func(w http.ResponseWriter, req bunrouter.Request) error {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}

		err := next(sw, req)

		s.logger.Debug("Handled request",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Int("status", sw.statusCode),
			zap.Duration("duration", time.Since(start)))

		return err
	}
}

// handleErrors turns handler errors into the not found or error page.
func (s *Server) handleErrors(next bunrouter.HandlerFunc) bunrouter.HandlerFunc {
	return func(w http.ResponseWriter, req bunrouter.Request) error {
		err := next(w, req)
		if err == nil {
			return nil
		}

		if errors.Is(err, models.ErrThreadLogNotFound) || errors.Is(err, errPageNotFound) {
			return s.renderPage(w, req, http.StatusNotFound, pageNotFound, nil, err.Error())
		}

		s.logger.Error("Request failed",
			zap.String("path", req.URL.Path),
			zap.Error(err))

		if renderErr := s.renderPage(w, req, http.StatusInternalServerError, pageError, nil, ""); renderErr != nil {
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}

		return nil
	}
}

// requireAuth redirects anonymous visitors to the login page and rejects users outside the whitelist.
func (s *Server) requireAuth(next bunrouter.HandlerFunc) bunrouter.HandlerFunc {
	return func(w http.ResponseWriter, req bunrouter.Request) error {
		if s.auth == nil {
			return next(w, req)
		}

		session, err := s.sessions.Load(req.Context(), req.Request)
		if err != nil {
			return err
		}

		if !session.LoggedIn() {
			session.LastVisit = req.URL.RequestURI()
			if err := s.sessions.Save(req.Context(), w, session); err != nil {
				return err
			}

			http.Redirect(w, req.Request, "/login", http.StatusFound)

			return nil
		}

		allowed, err := s.isAllowed(req.Context(), session.User)
		if err != nil {
			return err
		}

		if !allowed {
			s.logger.Warn("Unauthorized access detected",
				zap.String("user_id", session.User.ID),
				zap.String("path", req.URL.Path))

			return s.renderPage(w, req, http.StatusForbidden, pageUnauthorized, nil, "")
		}

		return next(w, req)
	}
}

// isAllowed checks the user id, then the user's guild roles, against the whitelist.
func (s *Server) isAllowed(ctx context.Context, user *DiscordUser) (bool, error) {
	userID, err := parseID(user.ID)
	if err != nil {
		return false, err
	}

	if s.whitelist.Allows(userID, nil) {
		return true, nil
	}

	roles, err := s.roles.MemberRoles(ctx, userID)
	if err != nil {
		// Users outside the guild have no roles
		s.logger.Warn("Failed to fetch member roles",
			zap.Uint64("user_id", userID),
			zap.Error(err))

		return false, nil
	}

	return s.whitelist.Allows(userID, roles), nil
}

// renderPage renders a template with the common page data filled in.
func (s *Server) renderPage(
	w http.ResponseWriter, req bunrouter.Request, status int, name string, data any, message string,
) error {
	page := &pageData{
		UsingOAuth: s.auth != nil,
		Prefix:     s.prefix,
		Message:    message,
		Data:       data,
	}

	if s.auth != nil {
		session, err := s.sessions.Load(req.Context(), req.Request)
		if err == nil && session.LoggedIn() {
			page.LoggedIn = true
			page.User = session.User
		}
	}

	return s.renderer.render(w, status, name, page)
}

func (s *Server) notFound(w http.ResponseWriter, req bunrouter.Request) error {
	return s.handleErrors(func(http.ResponseWriter, bunrouter.Request) error {
		return fmt.Errorf("%w: %s", errPageNotFound, req.URL.Path)
	})(w, req)
}

// normalizePrefix returns the log route prefix with a leading slash and no trailing slash.
func normalizePrefix(prefix string) string {
	if strings.TrimSpace(prefix) == "" {
		return "/logs"
	}

	return "/" + strings.Trim(strings.TrimSpace(prefix), "/")
}

type statusWriter struct {
	http.ResponseWriter
	statusCode int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.statusCode = code
	sw.ResponseWriter.WriteHeader(code)
}
