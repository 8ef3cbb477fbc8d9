package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/smallbiznis/rolegate/internal/config"
	obstracing "github.com/smallbiznis/rolegate/internal/observability/tracing"
	"go.uber.org/zap"
)

type client struct {
	cfg        config.DiscordConfig
	httpClient *http.Client
	log        *zap.Logger
	connected  atomic.Bool
}

// NewClient builds the REST client used for role mutations.
func NewClient(cfg config.Config, log *zap.Logger) Service {
	httpClient := &http.Client{Timeout: cfg.Discord.RequestTimeout}
	return &client{
		cfg:        cfg.Discord,
		httpClient: obstracing.WrapHTTPClient(httpClient),
		log:        log,
	}
}

func (c *client) GrantRole(ctx context.Context, userID, roleID string) error {
	return c.mutateRole(ctx, http.MethodPut, userID, roleID)
}

func (c *client) RevokeRole(ctx context.Context, userID, roleID string) error {
	return c.mutateRole(ctx, http.MethodDelete, userID, roleID)
}

func (c *client) mutateRole(ctx context.Context, method, userID, roleID string) error {
	userID = strings.TrimSpace(userID)
	roleID = strings.TrimSpace(roleID)
	if userID == "" || roleID == "" {
		return ErrMemberNotFound
	}

	endpoint := fmt.Sprintf("%s/guilds/%s/members/%s/roles/%s",
		c.baseURL(), c.cfg.GuildID, userID, roleID)

	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bot "+c.cfg.BotToken)
	req.Header.Set("X-Audit-Log-Reason", "storefront entitlement change")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("discord role mutation failed",
			zap.String("method", method),
			zap.Error(err),
		)
		return ErrUpstream
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if err := classifyStatus(resp.StatusCode); err != nil {
		c.log.Warn("discord role mutation rejected",
			zap.String("method", method),
			zap.Int("status", resp.StatusCode),
		)
		return err
	}
	return nil
}

// Me fetches the bot's own user object. A successful call marks the
// connection as established for health reporting.
func (c *client) Me(ctx context.Context) (*User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL()+"/users/@me", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bot "+c.cfg.BotToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, ErrUpstream
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ErrUpstream
	}
	if err := classifyStatus(resp.StatusCode); err != nil {
		return nil, err
	}

	var user User
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, ErrUpstream
	}
	if strings.TrimSpace(user.ID) == "" {
		return nil, ErrUpstream
	}

	c.connected.Store(true)
	return &user, nil
}

func (c *client) Status() string {
	if c.connected.Load() {
		return StatusConnected
	}
	return StatusDisconnected
}

func (c *client) baseURL() string {
	base := strings.TrimRight(strings.TrimSpace(c.cfg.APIBase), "/")
	if base == "" {
		base = "https://discord.com/api/v10"
	}
	return base
}

func classifyStatus(status int) error {
	switch {
	case status >= http.StatusOK && status < http.StatusMultipleChoices:
		return nil
	case status == http.StatusUnauthorized:
		return ErrUnauthorized
	case status == http.StatusForbidden:
		return ErrForbidden
	case status == http.StatusNotFound:
		return ErrMemberNotFound
	case status == http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return ErrUpstream
	}
}
