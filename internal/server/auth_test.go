package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/smallbiznis/rolegate/internal/config"
	"github.com/smallbiznis/rolegate/internal/discord"
	linksessiondomain "github.com/smallbiznis/rolegate/internal/linksession/domain"
	"github.com/smallbiznis/rolegate/internal/oauth"
)

type fakeDiscordService struct {
	status string
}

func (f *fakeDiscordService) GrantRole(ctx context.Context, userID, roleID string) error {
	_ = ctx
	_ = userID
	_ = roleID
	return nil
}

func (f *fakeDiscordService) RevokeRole(ctx context.Context, userID, roleID string) error {
	_ = ctx
	_ = userID
	_ = roleID
	return nil
}

func (f *fakeDiscordService) Me(ctx context.Context) (*discord.User, error) {
	_ = ctx
	return nil, nil
}

func (f *fakeDiscordService) Status() string {
	return f.status
}

func newAuthRouter(srv *Server) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.GET("/auth/discord", srv.DiscordAuth)
	router.GET("/auth/discord/callback", srv.DiscordCallback)
	return router
}

func TestDiscordAuthReturnsAuthorizeURL(t *testing.T) {
	oauthSvc := &fakeOAuthService{authURL: "https://discord.com/oauth2/authorize?client_id=abc"}
	srv := &Server{oauthSvc: oauthSvc}
	router := newAuthRouter(srv)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/auth/discord", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["authUrl"] != oauthSvc.authURL {
		t.Fatalf("unexpected authUrl %q", body["authUrl"])
	}
}

func TestDiscordCallbackRedirectsToCheckout(t *testing.T) {
	oauthSvc := &fakeOAuthService{identity: &oauth.Identity{ID: "42", Username: "buyer"}}
	linkSvc := &fakeLinkSessionService{sessionKey: "01HZXW2N9GQ4"}
	srv := &Server{
		cfg:            config.Config{WebsiteURL: "https://shop.example.com"},
		oauthSvc:       oauthSvc,
		linkSessionSvc: linkSvc,
	}
	router := newAuthRouter(srv)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/auth/discord/callback?code=abc123", nil))

	if resp.Code != http.StatusFound {
		t.Fatalf("expected status 302, got %d", resp.Code)
	}
	location := resp.Header().Get("Location")
	want := "https://shop.example.com/checkout?session=01HZXW2N9GQ4"
	if location != want {
		t.Fatalf("expected redirect to %q, got %q", want, location)
	}
	if len(linkSvc.created) != 1 {
		t.Fatalf("expected one link session, got %d", len(linkSvc.created))
	}
	if linkSvc.created[0].DiscordID != "42" || linkSvc.created[0].DiscordUsername != "buyer" {
		t.Fatalf("unexpected link session request %+v", linkSvc.created[0])
	}
}

func TestDiscordCallbackMissingCodeReturns400(t *testing.T) {
	oauthSvc := &fakeOAuthService{}
	srv := &Server{oauthSvc: oauthSvc}
	router := newAuthRouter(srv)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/auth/discord/callback", nil))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
	if oauthSvc.loginCalls != 0 {
		t.Fatal("expected no login attempt without a code")
	}
}

func TestDiscordCallbackProviderErrorReturns400(t *testing.T) {
	oauthSvc := &fakeOAuthService{}
	srv := &Server{oauthSvc: oauthSvc}
	router := newAuthRouter(srv)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/auth/discord/callback?error=access_denied", nil))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
	if oauthSvc.loginCalls != 0 {
		t.Fatal("expected no login attempt on provider error")
	}
}

func TestGetLinkSessionReturnsPendingLink(t *testing.T) {
	gin.SetMode(gin.TestMode)
	linkSvc := &fakeLinkSessionService{}
	srv := &Server{linkSessionSvc: linkSvc}

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.GET("/api/link-sessions/:key", srv.GetLinkSession)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/link-sessions/01HZXW2N9GQ4", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	if linkSvc.lastLookup != "01HZXW2N9GQ4" {
		t.Fatalf("unexpected lookup key %q", linkSvc.lastLookup)
	}
}

func TestGetLinkSessionUnknownKeyReturns404(t *testing.T) {
	gin.SetMode(gin.TestMode)
	linkSvc := &fakeLinkSessionService{getErr: linksessiondomain.ErrSessionNotFound}
	srv := &Server{linkSessionSvc: linkSvc}

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.GET("/api/link-sessions/:key", srv.GetLinkSession)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/link-sessions/expired", nil))

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", resp.Code)
	}
}

func TestHealthReportsBotStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &Server{discordSvc: &fakeDiscordService{status: "connected"}}

	router := gin.New()
	router.GET("/health", srv.Health)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("unexpected status %q", body["status"])
	}
	if body["bot"] != "connected" {
		t.Fatalf("unexpected bot status %q", body["bot"])
	}
}
