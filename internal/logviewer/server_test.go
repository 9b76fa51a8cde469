package logviewer_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/modmail-dev/modmail/internal/database/dbtest"
	"github.com/modmail-dev/modmail/internal/database/models"
	"github.com/modmail-dev/modmail/internal/database/types"
	"github.com/modmail-dev/modmail/internal/logviewer"
	"github.com/modmail-dev/modmail/internal/setup/config"
	"github.com/redis/rueidis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testBotID = 42

type staticRoles map[uint64][]uint64

func (r staticRoles) MemberRoles(_ context.Context, userID uint64) ([]uint64, error) {
	roles, ok := r[userID]
	if !ok {
		return nil, errors.New("unknown member")
	}

	return roles, nil
}

type testEnv struct {
	handler  http.Handler
	sessions *logviewer.SessionStore
	redis    *miniredis.Miniredis
}

func newSessionStore(t *testing.T) (*logviewer.SessionStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{mr.Addr()},
		DisableCache: true,
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	return logviewer.NewSessionStore(client, time.Hour, zap.NewNop()), mr
}

func seedLogs(t *testing.T) *models.ThreadLogModel {
	t.Helper()

	model := models.NewThreadLog(dbtest.NewDB(t), zap.NewNop())
	created := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

	for i, key := range []string{"abc123", "def456"} {
		require.NoError(t, model.Insert(t.Context(), &types.ThreadLog{
			Key:       key,
			BotID:     strconv.Itoa(testBotID),
			Open:      i == 0,
			CreatedAt: created.Add(time.Duration(i) * time.Hour),
			Title:     "Ticket " + key,
			Recipient: types.LogAuthor{ID: "100", Name: "alice", AvatarURL: "https://cdn.example/a.png?size=128"},
			Creator:   types.LogAuthor{ID: "100", Name: "alice"},
			Messages: []types.LogMessage{
				{ID: "1", Author: types.LogAuthor{ID: "100", Name: "alice"}, Content: "hello **there**", Timestamp: created},
				{ID: "2", Author: types.LogAuthor{ID: "7", Name: "mod", Mod: true}, Content: "staff only", Type: "internal", Timestamp: created},
			},
		}))
	}

	require.NoError(t, model.Insert(t.Context(), &types.ThreadLog{
		Key:       "other1",
		BotID:     "999",
		CreatedAt: created,
		Recipient: types.LogAuthor{ID: "100", Name: "alice"},
	}))

	return model
}

func newEnv(t *testing.T, cfg *config.LogViewerConfig, roles logviewer.RoleFetcher) *testEnv {
	t.Helper()

	sessions, mr := newSessionStore(t)

	server, err := logviewer.NewServer(cfg, testBotID, seedLogs(t), sessions, roles, zap.NewNop())
	require.NoError(t, err)

	return &testEnv{handler: server.Handler(), sessions: sessions, redis: mr}
}

func (e *testEnv) do(t *testing.T, path string, cookies ...*http.Cookie) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	return rec.Result()
}

// login stores a logged in session and returns its cookie.
func (e *testEnv) login(t *testing.T, userID string) *http.Cookie {
	t.Helper()

	rec := httptest.NewRecorder()
	session := &logviewer.Session{
		ID:   "8b7e0a3c-55a5-4a8e-9a1a-0e7f3a0c1d2e",
		User: &logviewer.DiscordUser{ID: userID, Username: "user" + userID},
	}
	require.NoError(t, e.sessions.Save(t.Context(), rec, session))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	return cookies[0]
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return string(data)
}

func oauthConfig(apiBase string, whitelist ...string) *config.LogViewerConfig {
	return &config.LogViewerConfig{
		URLPrefix: "/logs",
		Whitelist: whitelist,
		OAuth2: config.OAuth2{
			ClientID:     "client",
			ClientSecret: "secret",
			RedirectURI:  "http://localhost/callback",
			APIBase:      apiBase,
		},
	}
}

func TestHead(t *testing.T) {
	t.Parallel()

	env := newEnv(t, &config.LogViewerConfig{}, nil)

	req := httptest.NewRequest(http.MethodHead, "/", nil)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
}

func TestLogPagesWithoutOAuth(t *testing.T) {
	t.Parallel()

	env := newEnv(t, &config.LogViewerConfig{URLPrefix: "/logs"}, nil)

	t.Run("list", func(t *testing.T) {
		t.Parallel()

		resp := env.do(t, "/logs")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		html := body(t, resp)
		assert.Contains(t, html, "/logs/abc123")
		assert.Contains(t, html, "/logs/def456")
		assert.NotContains(t, html, "other1")
		assert.Contains(t, html, "https://cdn.example/a.png\"")
	})

	t.Run("list filtered by status", func(t *testing.T) {
		t.Parallel()

		html := body(t, env.do(t, "/logs?open=false"))
		assert.Contains(t, html, "/logs/def456")
		assert.NotContains(t, html, "/logs/abc123")
	})

	t.Run("log", func(t *testing.T) {
		t.Parallel()

		resp := env.do(t, "/logs/abc123")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body(t, resp), "<strong>there</strong>")
	})

	t.Run("raw", func(t *testing.T) {
		t.Parallel()

		resp := env.do(t, "/logs/raw/abc123")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "text/plain; charset=utf-8", resp.Header.Get("Content-Type"))

		text := body(t, resp)
		assert.Contains(t, text, "hello **there**")
		assert.NotContains(t, text, "staff only")
	})

	t.Run("unknown key", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, http.StatusNotFound, env.do(t, "/logs/missing").StatusCode)
		assert.Equal(t, http.StatusNotFound, env.do(t, "/logs/raw/missing").StatusCode)
	})

	t.Run("other bot", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, http.StatusNotFound, env.do(t, "/logs/other1").StatusCode)
	})

	t.Run("unknown route", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, http.StatusNotFound, env.do(t, "/nowhere/at/all").StatusCode)
	})

	t.Run("login disabled", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, http.StatusNotFound, env.do(t, "/login").StatusCode)
	})
}

func TestUnauthenticatedRedirectsToLogin(t *testing.T) {
	t.Parallel()

	env := newEnv(t, oauthConfig("", "everyone"), nil)

	resp := env.do(t, "/logs/abc123")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	cookies := resp.Cookies()
	require.Len(t, cookies, 1)

	session, err := env.sessions.Get(t.Context(), cookies[0].Value)
	require.NoError(t, err)
	assert.Equal(t, "/logs/abc123", session.LastVisit)
	assert.False(t, session.LoggedIn())
}

func TestWhitelist(t *testing.T) {
	t.Parallel()

	roles := staticRoles{200: {5000}, 300: {6000}}

	tests := []struct {
		name      string
		whitelist []string
		userID    string
		want      int
	}{
		{name: "user id", whitelist: []string{"100"}, userID: "100", want: http.StatusOK},
		{name: "role id", whitelist: []string{"5000"}, userID: "200", want: http.StatusOK},
		{name: "everyone", whitelist: []string{"everyone"}, userID: "300", want: http.StatusOK},
		{name: "wrong role", whitelist: []string{"5000"}, userID: "300", want: http.StatusForbidden},
		{name: "not a member", whitelist: []string{"5000"}, userID: "400", want: http.StatusForbidden},
		{name: "empty whitelist", userID: "100", want: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := newEnv(t, oauthConfig("", tt.whitelist...), roles)
			cookie := env.login(t, tt.userID)

			resp := env.do(t, "/logs/abc123", cookie)
			assert.Equal(t, tt.want, resp.StatusCode)

			if tt.want == http.StatusForbidden {
				assert.Contains(t, body(t, resp), "Unauthorized")
			}
		})
	}
}

func TestOAuthLoginFlow(t *testing.T) {
	t.Parallel()

	discord := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth2/token":
			require.NoError(t, r.ParseForm())

			if r.PostForm.Get("code") != "good-code" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}

			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"access_token":"token","token_type":"Bearer","expires_in":3600}`)
		case "/users/@me":
			if r.Header.Get("Authorization") != "Bearer token" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}

			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"id":"100","username":"alice","global_name":"Alice"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(discord.Close)

	env := newEnv(t, oauthConfig(discord.URL, "100"), staticRoles{})

	// Visiting a log stores the page to come back to
	resp := env.do(t, "/logs/abc123")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	cookie := resp.Cookies()[0]

	resp = env.do(t, "/login", cookie)
	require.Equal(t, http.StatusFound, resp.StatusCode)

	authURL, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/oauth2/authorize", authURL.Path)
	assert.Equal(t, "client", authURL.Query().Get("client_id"))
	assert.Equal(t, "identify", authURL.Query().Get("scope"))

	state := authURL.Query().Get("state")
	require.NotEmpty(t, state)

	// A forged state is rejected
	resp = env.do(t, "/callback?code=good-code&state=forged", cookie)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	resp = env.do(t, "/callback?code=good-code&state="+url.QueryEscape(state), cookie)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/logs/abc123", resp.Header.Get("Location"))

	// Login moves the session to a new id
	require.Len(t, resp.Cookies(), 1)
	preLogin := cookie
	cookie = resp.Cookies()[0]
	assert.NotEqual(t, preLogin.Value, cookie.Value)

	_, err = env.sessions.Get(t.Context(), preLogin.Value)
	require.ErrorIs(t, err, logviewer.ErrSessionNotFound)

	resp = env.do(t, "/logs/abc123", preLogin)
	assert.Equal(t, http.StatusFound, resp.StatusCode)

	resp = env.do(t, "/logs/abc123", cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body(t, resp), "Logged in as Alice")

	// Logging out removes the session
	resp = env.do(t, "/logout", cookie)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	_, err = env.sessions.Get(t.Context(), cookie.Value)
	require.ErrorIs(t, err, logviewer.ErrSessionNotFound)

	resp = env.do(t, "/logs/abc123", cookie)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
}

func TestOAuthRequiresRoleFetcher(t *testing.T) {
	t.Parallel()

	sessions, _ := newSessionStore(t)

	_, err := logviewer.NewServer(oauthConfig("", "5000"), testBotID, seedLogs(t), sessions, nil, zap.NewNop())
	require.ErrorIs(t, err, logviewer.ErrMissingDependency)

	_, err = logviewer.NewServer(&config.LogViewerConfig{Whitelist: []string{"bogus"}}, testBotID, seedLogs(t), nil, nil, zap.NewNop())
	require.ErrorIs(t, err, logviewer.ErrInvalidWhitelistEntry)
}

func TestRootPrefixServesList(t *testing.T) {
	t.Parallel()

	env := newEnv(t, &config.LogViewerConfig{URLPrefix: "/"}, nil)

	resp := env.do(t, "/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(body(t, resp), "/abc123"))

	assert.Equal(t, http.StatusOK, env.do(t, "/raw/abc123").StatusCode)
}
