package server

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/smallbiznis/rolegate/internal/discord"
	linksessiondomain "github.com/smallbiznis/rolegate/internal/linksession/domain"
	"github.com/smallbiznis/rolegate/internal/oauth"
	"github.com/smallbiznis/rolegate/internal/storefront"
	subscriptiondomain "github.com/smallbiznis/rolegate/internal/subscription/domain"
)

type fakeSubscriptionService struct {
	activateCalls int
	cancelCalls   int
	lastActivate  subscriptiondomain.ActivateSubscriptionRequest
	lastCancel    subscriptiondomain.CancelSubscriptionRequest
	activateErr   error
	cancelErr     error
}

func (f *fakeSubscriptionService) Activate(ctx context.Context, req subscriptiondomain.ActivateSubscriptionRequest) (subscriptiondomain.SubscriptionResponse, error) {
	f.activateCalls++
	f.lastActivate = req
	_ = ctx
	if f.activateErr != nil {
		return subscriptiondomain.SubscriptionResponse{}, f.activateErr
	}
	return subscriptiondomain.SubscriptionResponse{
		OrderID:   req.OrderID,
		DiscordID: req.DiscordID,
		Status:    subscriptiondomain.SubscriptionStatusActive,
	}, nil
}

func (f *fakeSubscriptionService) Cancel(ctx context.Context, req subscriptiondomain.CancelSubscriptionRequest) (subscriptiondomain.SubscriptionResponse, error) {
	f.cancelCalls++
	f.lastCancel = req
	_ = ctx
	if f.cancelErr != nil {
		return subscriptiondomain.SubscriptionResponse{}, f.cancelErr
	}
	return subscriptiondomain.SubscriptionResponse{
		OrderID: req.OrderID,
		Status:  subscriptiondomain.SubscriptionStatusCanceled,
	}, nil
}

func (f *fakeSubscriptionService) GetByOrderID(ctx context.Context, orderID string) (subscriptiondomain.SubscriptionResponse, error) {
	_ = ctx
	_ = orderID
	return subscriptiondomain.SubscriptionResponse{}, subscriptiondomain.ErrSubscriptionNotFound
}

func (f *fakeSubscriptionService) List(ctx context.Context, req subscriptiondomain.ListSubscriptionRequest) (subscriptiondomain.ListSubscriptionResponse, error) {
	_ = ctx
	_ = req
	return subscriptiondomain.ListSubscriptionResponse{}, nil
}

type fakeLinkSessionService struct {
	created     []linksessiondomain.CreateLinkSessionRequest
	sessionKey  string
	getErr      error
	lastLookup  string
	pruneCalled bool
}

func (f *fakeLinkSessionService) Create(ctx context.Context, req linksessiondomain.CreateLinkSessionRequest) (linksessiondomain.LinkSessionResponse, error) {
	f.created = append(f.created, req)
	_ = ctx
	return linksessiondomain.LinkSessionResponse{
		SessionKey:      f.sessionKey,
		DiscordID:       req.DiscordID,
		DiscordUsername: req.DiscordUsername,
		Status:          linksessiondomain.LinkSessionStatusPending,
	}, nil
}

func (f *fakeLinkSessionService) GetBySessionKey(ctx context.Context, key string) (linksessiondomain.LinkSessionResponse, error) {
	f.lastLookup = key
	_ = ctx
	if f.getErr != nil {
		return linksessiondomain.LinkSessionResponse{}, f.getErr
	}
	return linksessiondomain.LinkSessionResponse{
		SessionKey: key,
		DiscordID:  "42",
		Status:     linksessiondomain.LinkSessionStatusPending,
	}, nil
}

func (f *fakeLinkSessionService) PruneExpired(ctx context.Context) (int64, error) {
	f.pruneCalled = true
	_ = ctx
	return 0, nil
}

type fakeOAuthService struct {
	authURL    string
	identity   *oauth.Identity
	loginErr   error
	loginCalls int
}

func (f *fakeOAuthService) AuthURL() string {
	return f.authURL
}

func (f *fakeOAuthService) Login(ctx context.Context, code string) (*oauth.Identity, error) {
	f.loginCalls++
	_ = ctx
	_ = code
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return f.identity, nil
}

func newWebhookRouter(srv *Server) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.POST("/webhook/purchase", srv.HandlePurchaseWebhook)
	router.POST("/webhook/cancellation", srv.HandleCancellationWebhook)
	return router
}

func signedRequest(t *testing.T, verifier *storefront.Verifier, path, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(signatureHeader, verifier.Sign([]byte(body), time.Now()))
	return req
}

func TestPurchaseWebhookActivatesSubscription(t *testing.T) {
	verifier := storefront.NewVerifier("whsec_test")
	subSvc := &fakeSubscriptionService{}
	srv := &Server{subscriptionSvc: subSvc, verifier: verifier}
	router := newWebhookRouter(srv)

	body := `{"id":"order-1","planCode":"gold","discordUserId":"123456789012345678"}`
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, signedRequest(t, verifier, "/webhook/purchase", body))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if subSvc.activateCalls != 1 {
		t.Fatalf("expected one activate call, got %d", subSvc.activateCalls)
	}
	if subSvc.lastActivate.OrderID != "order-1" {
		t.Fatalf("unexpected order id %q", subSvc.lastActivate.OrderID)
	}
	if subSvc.lastActivate.DiscordID != "123456789012345678" {
		t.Fatalf("unexpected discord id %q", subSvc.lastActivate.DiscordID)
	}
	if subSvc.lastActivate.PlanCode != "gold" {
		t.Fatalf("unexpected plan code %q", subSvc.lastActivate.PlanCode)
	}
}

func TestPurchaseWebhookReadsNestedDiscordID(t *testing.T) {
	verifier := storefront.NewVerifier("whsec_test")
	subSvc := &fakeSubscriptionService{}
	srv := &Server{subscriptionSvc: subSvc, verifier: verifier}
	router := newWebhookRouter(srv)

	body := `{"id":"order-2","customFields":{"discordUserId":"987654321098765432"}}`
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, signedRequest(t, verifier, "/webhook/purchase", body))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if subSvc.lastActivate.DiscordID != "987654321098765432" {
		t.Fatalf("unexpected discord id %q", subSvc.lastActivate.DiscordID)
	}
}

func TestPurchaseWebhookRejectsBadSignature(t *testing.T) {
	verifier := storefront.NewVerifier("whsec_test")
	subSvc := &fakeSubscriptionService{}
	srv := &Server{subscriptionSvc: subSvc, verifier: verifier}
	router := newWebhookRouter(srv)

	body := `{"id":"order-3","discordUserId":"42"}`
	req := httptest.NewRequest(http.MethodPost, "/webhook/purchase", bytes.NewBufferString(body))
	req.Header.Set(signatureHeader, "t=1,v1=deadbeef")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", resp.Code)
	}
	if subSvc.activateCalls != 0 {
		t.Fatal("expected no activate call on rejected signature")
	}
}

func TestPurchaseWebhookSkipsVerificationWithoutSecret(t *testing.T) {
	subSvc := &fakeSubscriptionService{}
	srv := &Server{subscriptionSvc: subSvc, verifier: storefront.NewVerifier("")}
	router := newWebhookRouter(srv)

	body := `{"id":"order-4","discordUserId":"42"}`
	req := httptest.NewRequest(http.MethodPost, "/webhook/purchase", bytes.NewBufferString(body))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if subSvc.activateCalls != 1 {
		t.Fatalf("expected one activate call, got %d", subSvc.activateCalls)
	}
}

func TestPurchaseWebhookMissingIdentityReturns400(t *testing.T) {
	verifier := storefront.NewVerifier("whsec_test")
	subSvc := &fakeSubscriptionService{activateErr: subscriptiondomain.ErrInvalidIdentity}
	srv := &Server{subscriptionSvc: subSvc, verifier: verifier}
	router := newWebhookRouter(srv)

	body := `{"id":"order-5"}`
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, signedRequest(t, verifier, "/webhook/purchase", body))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
}

func TestPurchaseWebhookConflictReturns409(t *testing.T) {
	verifier := storefront.NewVerifier("whsec_test")
	subSvc := &fakeSubscriptionService{activateErr: subscriptiondomain.ErrActiveSubscriptionExists}
	srv := &Server{subscriptionSvc: subSvc, verifier: verifier}
	router := newWebhookRouter(srv)

	body := `{"id":"order-6","discordUserId":"42"}`
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, signedRequest(t, verifier, "/webhook/purchase", body))

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", resp.Code)
	}
}

func TestPurchaseWebhookGrantFailureReturns500(t *testing.T) {
	verifier := storefront.NewVerifier("whsec_test")
	subSvc := &fakeSubscriptionService{activateErr: discord.ErrUpstream}
	srv := &Server{subscriptionSvc: subSvc, verifier: verifier}
	router := newWebhookRouter(srv)

	body := `{"id":"order-8","discordUserId":"42"}`
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, signedRequest(t, verifier, "/webhook/purchase", body))

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", resp.Code)
	}
}

func TestCancellationWebhookRevokeFailureReturns500(t *testing.T) {
	verifier := storefront.NewVerifier("whsec_test")
	subSvc := &fakeSubscriptionService{cancelErr: discord.ErrRateLimited}
	srv := &Server{subscriptionSvc: subSvc, verifier: verifier}
	router := newWebhookRouter(srv)

	body := `{"id":"order-9"}`
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, signedRequest(t, verifier, "/webhook/cancellation", body))

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", resp.Code)
	}
}

func TestCancellationWebhookCancelsSubscription(t *testing.T) {
	verifier := storefront.NewVerifier("whsec_test")
	subSvc := &fakeSubscriptionService{}
	srv := &Server{subscriptionSvc: subSvc, verifier: verifier}
	router := newWebhookRouter(srv)

	body := `{"id":"order-7"}`
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, signedRequest(t, verifier, "/webhook/cancellation", body))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if subSvc.cancelCalls != 1 {
		t.Fatalf("expected one cancel call, got %d", subSvc.cancelCalls)
	}
	if subSvc.lastCancel.OrderID != "order-7" {
		t.Fatalf("unexpected order id %q", subSvc.lastCancel.OrderID)
	}
}

func TestCancellationWebhookUnknownOrderReturns404(t *testing.T) {
	verifier := storefront.NewVerifier("whsec_test")
	subSvc := &fakeSubscriptionService{cancelErr: subscriptiondomain.ErrSubscriptionNotFound}
	srv := &Server{subscriptionSvc: subSvc, verifier: verifier}
	router := newWebhookRouter(srv)

	body := `{"id":"order-missing"}`
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, signedRequest(t, verifier, "/webhook/cancellation", body))

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", resp.Code)
	}
}
