package logviewer

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/modmail-dev/modmail/internal/setup/config"
	"golang.org/x/oauth2"
)

// DiscordAPIBase is the default Discord API root.
const DiscordAPIBase = "https://discord.com/api/v10"

var (
	// ErrInvalidToken is returned when a bot token does not carry an encoded id.
	ErrInvalidToken = errors.New("invalid bot token")
	// ErrUserInfo is returned when the user lookup after login fails.
	ErrUserInfo = errors.New("failed to fetch user info")
)

// DiscordUser is the subset of the Discord user object kept in a session.
type DiscordUser struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
	Avatar     string `json:"avatar"`
}

// DisplayName returns the global name when set, the username otherwise.
func (u *DiscordUser) DisplayName() string {
	if u.GlobalName != "" {
		return u.GlobalName
	}

	return u.Username
}

// Authenticator runs the Discord OAuth2 authorization code flow.
type Authenticator struct {
	config  *oauth2.Config
	apiBase string
}

// NewAuthenticator creates an authenticator for the given application credentials.
func NewAuthenticator(cfg config.OAuth2) *Authenticator {
	apiBase := strings.TrimRight(cfg.APIBase, "/")
	if apiBase == "" {
		apiBase = DiscordAPIBase
	}

	return &Authenticator{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       []string{"identify"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   apiBase + "/oauth2/authorize",
				TokenURL:  apiBase + "/oauth2/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		apiBase: apiBase,
	}
}

// AuthCodeURL returns the consent page URL carrying the given state.
func (a *Authenticator) AuthCodeURL(state string) string {
	return a.config.AuthCodeURL(state)
}

// Exchange trades an authorization code for a token and fetches the user it belongs to.
func (a *Authenticator) Exchange(ctx context.Context, code string) (*DiscordUser, error) {
	token, err := a.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging authorization code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.apiBase+"/users/@me", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUserInfo, err)
	}

	resp, err := a.config.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUserInfo, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUserInfo, resp.StatusCode)
	}

	var user DiscordUser
	if err := sonic.ConfigDefault.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUserInfo, err)
	}

	if user.ID == "" {
		return nil, fmt.Errorf("%w: missing id", ErrUserInfo)
	}

	return &user, nil
}

// BotIDFromToken extracts the bot's user id from the first segment of its token.
func BotIDFromToken(token string) (uint64, error) {
	segment, _, _ := strings.Cut(token, ".")
	if segment == "" {
		return 0, ErrInvalidToken
	}

	decoded, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(segment, "="))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	id, err := strconv.ParseUint(string(decoded), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	return id, nil
}
