package logviewer

import (
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/modmail-dev/modmail/internal/database/types"
	"github.com/modmail-dev/modmail/pkg/utils"
	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
)

const previewLength = 100

// logListItem is one row of the log list page.
type logListItem struct {
	Key             string
	URL             string
	Title           string
	Open            bool
	Recipient       string
	RecipientAvatar string
	Creator         string
	CreatedAt       time.Time
	ClosedAt        *time.Time
	MessageCount    int
	LastMessageAt   *time.Time
	Preview         string
}

// logListView is the data of the log list page.
type logListView struct {
	Prefix   string
	Items    []logListItem
	Page     int
	MaxPage  int
	Status   string
	Search   string
	Total    int
	CountAll int
	PrevURL  string
	NextURL  string
}

// logView is the data of a single log page.
type logView struct {
	Log    *types.ThreadLog
	RawURL string
}

func (s *Server) handleHead(w http.ResponseWriter, _ bunrouter.Request) error {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, err := w.Write([]byte("OK!"))

	return err
}

func (s *Server) handleIndex(w http.ResponseWriter, req bunrouter.Request) error {
	return s.renderPage(w, req, http.StatusOK, pageIndex, nil, "")
}

func (s *Server) handleLogList(w http.ResponseWriter, req bunrouter.Request) error {
	query := req.URL.Query()

	page, err := strconv.Atoi(query.Get("page"))
	if err != nil || page < 1 {
		page = 1
	}

	filter := types.ThreadLogFilter{
		BotID:  s.botID,
		Search: strings.TrimSpace(query.Get("search")),
	}

	status := query.Get("open")
	switch status {
	case "true":
		open := true
		filter.Open = &open
	case "false":
		open := false
		filter.Open = &open
	default:
		status = ""
	}

	result, err := s.logs.List(req.Context(), filter, page, s.perPage)
	if err != nil {
		return err
	}

	maxPage := (result.Total + s.perPage - 1) / s.perPage

	view := &logListView{
		Prefix:   s.prefix,
		Items:    make([]logListItem, 0, len(result.Logs)),
		Page:     page,
		MaxPage:  maxPage,
		Status:   status,
		Search:   filter.Search,
		Total:    result.Total,
		CountAll: result.CountAll,
	}

	if page > 1 {
		view.PrevURL = s.listURL(page-1, status, filter.Search)
	}

	if page < maxPage {
		view.NextURL = s.listURL(page+1, status, filter.Search)
	}

	for _, log := range result.Logs {
		item := logListItem{
			Key:             log.Key,
			URL:             s.logPath(log.Key),
			Title:           log.Title,
			Open:            log.Open,
			Recipient:       log.Recipient.DisplayName(),
			RecipientAvatar: stripQuery(log.Recipient.AvatarURL),
			Creator:         log.Creator.DisplayName(),
			CreatedAt:       log.CreatedAt,
			ClosedAt:        log.ClosedAt,
			MessageCount:    len(log.Messages),
		}

		if last, ok := log.LastMessage(); ok {
			timestamp := last.Timestamp
			item.LastMessageAt = &timestamp
			item.Preview = utils.Truncate(utils.CompressAllWhitespace(last.Content), previewLength)
		}

		view.Items = append(view.Items, item)
	}

	return s.renderPage(w, req, http.StatusOK, pageLogList, view, "")
}

func (s *Server) handleLog(w http.ResponseWriter, req bunrouter.Request) error {
	log, err := s.getLog(req)
	if err != nil {
		return err
	}

	return s.renderPage(w, req, http.StatusOK, pageLog, &logView{Log: log, RawURL: s.logPath("raw", log.Key)}, "")
}

func (s *Server) handleRawLog(w http.ResponseWriter, req bunrouter.Request) error {
	log, err := s.getLog(req)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, err = w.Write([]byte(log.PlainText()))

	return err
}

// getLog loads the log named by the key route parameter.
func (s *Server) getLog(req bunrouter.Request) (*types.ThreadLog, error) {
	key := req.Param("key")
	if !keyPattern.MatchString(key) {
		return nil, fmt.Errorf("%w: invalid log key %q", errPageNotFound, key)
	}

	log, err := s.logs.GetByKey(req.Context(), key)
	if err != nil {
		return nil, err
	}

	if log.BotID != s.botID {
		return nil, fmt.Errorf("%w: log %q", errPageNotFound, key)
	}

	return log, nil
}

func (s *Server) handleLogin(w http.ResponseWriter, req bunrouter.Request) error {
	if s.auth == nil {
		return fmt.Errorf("%w: login is disabled", errPageNotFound)
	}

	session, err := s.sessions.Load(req.Context(), req.Request)
	if err != nil {
		return err
	}

	if session.LastVisit == "" {
		session.LastVisit = "/"
	}

	session.State = uuid.NewString()
	if err := s.sessions.Save(req.Context(), w, session); err != nil {
		return err
	}

	http.Redirect(w, req.Request, s.auth.AuthCodeURL(session.State), http.StatusFound)

	return nil
}

func (s *Server) handleCallback(w http.ResponseWriter, req bunrouter.Request) error {
	if s.auth == nil {
		return fmt.Errorf("%w: login is disabled", errPageNotFound)
	}

	session, err := s.sessions.Load(req.Context(), req.Request)
	if err != nil {
		return err
	}

	query := req.URL.Query()
	code := query.Get("code")

	if code == "" || session.State == "" || query.Get("state") != session.State {
		s.logger.Warn("Rejected OAuth2 callback", zap.Bool("has_code", code != ""))
		http.Redirect(w, req.Request, "/login", http.StatusFound)

		return nil
	}

	user, err := s.auth.Exchange(req.Context(), code)
	if err != nil {
		s.logger.Warn("OAuth2 login failed", zap.Error(err))
		http.Redirect(w, req.Request, "/login", http.StatusFound)

		return nil
	}

	target := session.LastVisit
	if !isLocalPath(target) {
		target = "/"
	}

	session.User = user
	session.State = ""
	session.LastVisit = ""

	// The pre-login session id is never reused once it carries a user.
	if err := s.sessions.Renew(req.Context(), w, session); err != nil {
		return err
	}

	s.logger.Info("User logged in",
		zap.String("user_id", user.ID),
		zap.String("username", user.Username))

	http.Redirect(w, req.Request, target, http.StatusFound)

	return nil
}

func (s *Server) handleLogout(w http.ResponseWriter, req bunrouter.Request) error {
	if s.auth != nil {
		session, err := s.sessions.Load(req.Context(), req.Request)
		if err != nil {
			return err
		}

		if err := s.sessions.Destroy(req.Context(), w, session); err != nil {
			return err
		}
	}

	http.Redirect(w, req.Request, "/", http.StatusFound)

	return nil
}

// listURL builds a log list link that keeps the current filters.
func (s *Server) listURL(page int, status, search string) string {
	values := url.Values{}
	values.Set("page", strconv.Itoa(page))

	if status != "" {
		values.Set("open", status)
	}

	if search != "" {
		values.Set("search", search)
	}

	return s.prefix + "?" + values.Encode()
}

// logPath joins path elements under the log prefix.
func (s *Server) logPath(elem ...string) string {
	return path.Join(append([]string{s.prefix}, elem...)...)
}

// isLocalPath reports whether target is a path on this server.
func isLocalPath(target string) bool {
	return strings.HasPrefix(target, "/") && !strings.HasPrefix(target, "//") && !strings.HasPrefix(target, "/\\")
}

// parseID parses a Discord snowflake string.
func parseID(id string) (uint64, error) {
	value, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid discord id %q: %w", id, err)
	}

	return value, nil
}
