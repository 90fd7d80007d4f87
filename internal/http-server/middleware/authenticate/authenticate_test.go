package authenticate

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"coupondrop/entity"
	"coupondrop/lib/api/cont"
)

type fakeAuth func(token string) (string, error)

func (f fakeAuth) AuthenticateByToken(token string) (string, error) {
	return f(token)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func protected(auth Authenticate) (http.Handler, *string) {
	var seenAdmin string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenAdmin = cont.GetAdminId(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	return New(testLogger(), auth)(next), &seenAdmin
}

func TestMissingHeaderForbidden(t *testing.T) {
	handler, _ := protected(fakeAuth(func(token string) (string, error) {
		t.Fatal("verifier must not run without a header")
		return "", nil
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/coupons", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestInvalidTokenForbidden(t *testing.T) {
	handler, _ := protected(fakeAuth(func(token string) (string, error) {
		return "", entity.ErrInvalidToken
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/coupons", nil)
	req.Header.Set("Authorization", "Bearer expired-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestBearerPrefixStripped(t *testing.T) {
	var gotToken string
	handler, seenAdmin := protected(fakeAuth(func(token string) (string, error) {
		gotToken = token
		return "admin-1", nil
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/coupons", nil)
	req.Header.Set("Authorization", "Bearer the-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotToken != "the-token" {
		t.Fatalf("expected stripped token, got %q", gotToken)
	}
	if *seenAdmin != "admin-1" {
		t.Fatalf("expected admin id in context, got %q", *seenAdmin)
	}
}

func TestRawTokenAccepted(t *testing.T) {
	var gotToken string
	handler, _ := protected(fakeAuth(func(token string) (string, error) {
		gotToken = token
		return "admin-1", nil
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/coupons", nil)
	req.Header.Set("Authorization", "the-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotToken != "the-token" {
		t.Fatalf("expected raw token passthrough, got %q", gotToken)
	}
}

func TestNilVerifierForbidden(t *testing.T) {
	handler := New(testLogger(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/coupons", nil)
	req.Header.Set("Authorization", "Bearer any")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}
