package logviewer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/redis/rueidis"
	"go.uber.org/zap"
)

const (
	// SessionCookieName is the cookie carrying the session id.
	SessionCookieName = "modmail_session"

	sessionKeyPrefix = "logviewer:session:"
)

// ErrSessionNotFound is returned when a session id has no stored data.
var ErrSessionNotFound = errors.New("session not found")

// Session is the server-side state of one browser.
type Session struct {
	ID        string       `json:"-"`
	User      *DiscordUser `json:"user,omitempty"`
	LastVisit string       `json:"last_visit,omitempty"`
	State     string       `json:"state,omitempty"`
}

// LoggedIn reports whether the session belongs to an authenticated user.
func (s *Session) LoggedIn() bool {
	return s != nil && s.User != nil
}

// SessionStore keeps sessions in Redis keyed by a random cookie value.
type SessionStore struct {
	client rueidis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// DefaultSessionTTL is used when no session lifetime is configured.
const DefaultSessionTTL = 7 * 24 * time.Hour

// NewSessionStore creates a session store. Sessions expire after ttl of inactivity.
func NewSessionStore(client rueidis.Client, ttl time.Duration, logger *zap.Logger) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	return &SessionStore{
		client: client,
		ttl:    ttl,
		logger: logger.Named("logviewer_sessions"),
	}
}

// Load returns the session referenced by the request cookie.
// A fresh unsaved session is returned when the cookie is missing, malformed or expired.
func (s *SessionStore) Load(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return newSession(), nil
	}

	id, err := uuid.Parse(cookie.Value)
	if err != nil {
		return newSession(), nil
	}

	session, err := s.Get(ctx, id.String())
	if errors.Is(err, ErrSessionNotFound) {
		return newSession(), nil
	}

	if err != nil {
		return nil, err
	}

	return session, nil
}

// Get fetches a stored session by id.
func (s *SessionStore) Get(ctx context.Context, id string) (*Session, error) {
	data, err := s.client.Do(ctx, s.client.B().Get().Key(sessionKeyPrefix+id).Build()).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}

		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session Session
	if err := sonic.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}

	session.ID = id

	return &session, nil
}

// Save stores the session, refreshes its expiry and sets the cookie.
func (s *SessionStore) Save(ctx context.Context, w http.ResponseWriter, session *Session) error {
	data, err := sonic.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	err = s.client.Do(ctx, s.client.B().Set().
		Key(sessionKeyPrefix+session.ID).
		Value(rueidis.BinaryString(data)).
		Ex(s.ttl).
		Build()).Error()
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    session.ID,
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return nil
}

// Destroy deletes the session and clears the cookie.
func (s *SessionStore) Destroy(ctx context.Context, w http.ResponseWriter, session *Session) error {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	if err := s.client.Do(ctx, s.client.B().Del().Key(sessionKeyPrefix+session.ID).Build()).Error(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	s.logger.Debug("Session destroyed", zap.String("session_id", session.ID))

	return nil
}

// Renew moves the session to a new id, deletes the old one and sets the new cookie.
func (s *SessionStore) Renew(ctx context.Context, w http.ResponseWriter, session *Session) error {
	oldID := session.ID

	if err := s.client.Do(ctx, s.client.B().Del().Key(sessionKeyPrefix+oldID).Build()).Error(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	session.ID = uuid.NewString()

	return s.Save(ctx, w, session)
}

func newSession() *Session {
	return &Session{ID: uuid.NewString()}
}
