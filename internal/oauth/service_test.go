package oauth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/smallbiznis/rolegate/internal/config"
)

func newTestService(t *testing.T, handler http.Handler) Service {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewService(config.Config{
		Discord: config.DiscordConfig{
			ClientID:       "client-1",
			ClientSecret:   "secret-1",
			RedirectURI:    "http://localhost:8080/auth/discord/callback",
			APIBase:        server.URL,
			RequestTimeout: 2 * time.Second,
		},
	})
}

func TestAuthURLCarriesIdentifyScope(t *testing.T) {
	svc := newTestService(t, http.NotFoundHandler())

	parsed, err := url.Parse(svc.AuthURL())
	if err != nil {
		t.Fatalf("parse auth url: %v", err)
	}
	query := parsed.Query()
	if query.Get("response_type") != "code" {
		t.Fatalf("expected response_type=code, got %q", query.Get("response_type"))
	}
	if query.Get("client_id") != "client-1" {
		t.Fatalf("expected client_id, got %q", query.Get("client_id"))
	}
	if query.Get("scope") != "identify" {
		t.Fatalf("expected identify scope, got %q", query.Get("scope"))
	}
	if !strings.HasSuffix(parsed.Path, "/oauth2/authorize") {
		t.Fatalf("unexpected authorize path %s", parsed.Path)
	}
}

func TestLoginExchangesCodeAndFetchesIdentity(t *testing.T) {
	var tokenForm url.Values
	svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth2/token":
			if err := r.ParseForm(); err != nil {
				t.Fatalf("parse form: %v", err)
			}
			tokenForm = r.PostForm
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"tok-1","token_type":"Bearer"}`))
		case "/users/@me":
			if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
				t.Fatalf("unexpected authorization %q", got)
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"d1","username":"buyer"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	identity, err := svc.Login(context.Background(), "auth-code")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if identity.ID != "d1" || identity.Username != "buyer" {
		t.Fatalf("unexpected identity %+v", identity)
	}
	if tokenForm.Get("grant_type") != "authorization_code" {
		t.Fatalf("expected authorization_code grant, got %q", tokenForm.Get("grant_type"))
	}
	if tokenForm.Get("code") != "auth-code" {
		t.Fatalf("expected code in form, got %q", tokenForm.Get("code"))
	}
	if tokenForm.Get("client_secret") != "secret-1" {
		t.Fatalf("expected client secret in form")
	}
}

func TestLoginMissingCode(t *testing.T) {
	svc := newTestService(t, http.NotFoundHandler())

	if _, err := svc.Login(context.Background(), "  "); !errors.Is(err, ErrMissingCode) {
		t.Fatalf("expected ErrMissingCode, got %v", err)
	}
}

func TestLoginExchangeFailure(t *testing.T) {
	svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))

	if _, err := svc.Login(context.Background(), "bad-code"); !errors.Is(err, ErrExchangeFailed) {
		t.Fatalf("expected ErrExchangeFailed, got %v", err)
	}
}

func TestLoginRejectsIdentityWithoutID(t *testing.T) {
	svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth2/token":
			_, _ = w.Write([]byte(`{"access_token":"tok-1"}`))
		case "/users/@me":
			_, _ = w.Write([]byte(`{"username":"ghost"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	if _, err := svc.Login(context.Background(), "auth-code"); !errors.Is(err, ErrIdentityInvalid) {
		t.Fatalf("expected ErrIdentityInvalid, got %v", err)
	}
}
