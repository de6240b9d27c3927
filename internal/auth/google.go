package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"videosum/pkg/httputil"
)

const (
	defaultUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
	googleHTTPTimeout  = 10 * time.Second
	maxErrorBody       = int64(1 << 20)
)

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// Endpoint and UserInfoURL default to Google's.
	Endpoint    oauth2.Endpoint
	UserInfoURL string
	HTTPClient  *http.Client
}

type UserInfo struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

type GoogleProvider struct {
	oauth       *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
}

func NewGoogleProvider(cfg GoogleConfig) *GoogleProvider {
	endpoint := cfg.Endpoint
	if endpoint.AuthURL == "" {
		endpoint = google.Endpoint
	}
	userInfoURL := cfg.UserInfoURL
	if userInfoURL == "" {
		userInfoURL = defaultUserInfoURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = httputil.NewClient(googleHTTPTimeout)
	}

	return &GoogleProvider{
		oauth: &oauth2.Config{
			ClientID:     strings.TrimSpace(cfg.ClientID),
			ClientSecret: strings.TrimSpace(cfg.ClientSecret),
			RedirectURL:  strings.TrimSpace(cfg.RedirectURL),
			Endpoint:     endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		userInfoURL: userInfoURL,
		httpClient:  client,
	}
}

func (p *GoogleProvider) configured() bool {
	return p.oauth.ClientID != "" && p.oauth.ClientSecret != "" && p.oauth.RedirectURL != ""
}

func (p *GoogleProvider) AuthCodeURL(state string) (string, error) {
	if !p.configured() {
		return "", ErrNotConfigured
	}
	return p.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account")), nil
}

// Exchange trades an authorization code for a token and fetches the user's
// profile with it.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (UserInfo, error) {
	if !p.configured() {
		return UserInfo{}, ErrNotConfigured
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return UserInfo{}, fmt.Errorf("google: token exchange failed: %w", err)
	}

	resp, err := p.oauth.Client(ctx, token).Get(p.userInfoURL)
	if err != nil {
		return UserInfo{}, fmt.Errorf("google: user info request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return UserInfo{}, fmt.Errorf("google: user info failed: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var info UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return UserInfo{}, fmt.Errorf("google: decode user info response: %w", err)
	}
	if strings.TrimSpace(info.Email) == "" {
		return UserInfo{}, fmt.Errorf("google: user info missing email")
	}
	if info.Name == "" {
		info.Name = info.Email
	}
	return info, nil
}
