package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/smallbiznis/rolegate/internal/config"
	obstracing "github.com/smallbiznis/rolegate/internal/observability/tracing"
)

var (
	ErrMissingCode     = errors.New("missing_code")
	ErrExchangeFailed  = errors.New("oauth_exchange_failed")
	ErrIdentityInvalid = errors.New("oauth_identity_invalid")
)

// Service performs the Discord authorization-code handoff.
type Service interface {
	AuthURL() string
	Login(ctx context.Context, code string) (*Identity, error)
}

// Identity is the linked Discord account resolved from an OAuth code.
type Identity struct {
	ID       string
	Username string
}

type service struct {
	cfg        config.DiscordConfig
	httpClient *http.Client
}

func NewService(cfg config.Config) Service {
	httpClient := &http.Client{Timeout: cfg.Discord.RequestTimeout}
	return &service{
		cfg:        cfg.Discord,
		httpClient: obstracing.WrapHTTPClient(httpClient),
	}
}

// AuthURL returns the authorize URL the storefront sends buyers to.
func (s *service) AuthURL() string {
	query := url.Values{}
	query.Set("response_type", "code")
	query.Set("client_id", s.cfg.ClientID)
	query.Set("redirect_uri", s.cfg.RedirectURI)
	query.Set("scope", "identify")
	return s.endpoint("/oauth2/authorize") + "?" + query.Encode()
}

// Login exchanges the authorization code and resolves the caller's identity.
func (s *service) Login(ctx context.Context, code string) (*Identity, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrMissingCode
	}

	token, err := s.exchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.fetchIdentity(ctx, token)
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (s *service) exchangeCode(ctx context.Context, code string) (*tokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", s.cfg.RedirectURI)
	form.Set("client_id", s.cfg.ClientID)
	form.Set("client_secret", s.cfg.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint("/oauth2/token"), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, ErrExchangeFailed
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ErrExchangeFailed
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, ErrExchangeFailed
	}

	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil || strings.TrimSpace(token.AccessToken) == "" {
		return nil, ErrExchangeFailed
	}
	return &token, nil
}

func (s *service) fetchIdentity(ctx context.Context, token *tokenResponse) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint("/users/@me"), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, ErrExchangeFailed
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ErrExchangeFailed
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, ErrExchangeFailed
	}

	var payload struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, ErrIdentityInvalid
	}
	if strings.TrimSpace(payload.ID) == "" {
		return nil, ErrIdentityInvalid
	}

	return &Identity{
		ID:       payload.ID,
		Username: payload.Username,
	}, nil
}

func (s *service) endpoint(path string) string {
	base := strings.TrimRight(strings.TrimSpace(s.cfg.APIBase), "/")
	if base == "" {
		base = "https://discord.com/api/v10"
	}
	return base + path
}
