package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

var testKey = []byte("test-signing-key")

func invoke(t *testing.T, cfg Config, authorize func(req *http.Request)) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	if authorize != nil {
		authorize(req)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := Middleware(cfg)(func(c echo.Context) error {
		return c.String(http.StatusOK, SubjectFromContext(c.Request().Context()))
	})
	return rec, handler(c)
}

func TestMintedTokenVerifies(t *testing.T) {
	cfg := Config{SigningKey: testKey}
	token, err := Mint(cfg, "ops@example.org", time.Hour)
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	rec, err := invoke(t, cfg, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+token)
	})
	if err != nil {
		t.Fatalf("middleware: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "ops@example.org" {
		t.Errorf("subject = %q, want ops@example.org", rec.Body.String())
	}
}

func TestMissingHeaderRejected(t *testing.T) {
	_, err := invoke(t, Config{SigningKey: testKey}, nil)
	assertHTTPStatus(t, err, http.StatusUnauthorized)
}

func TestMalformedHeaderRejected(t *testing.T) {
	_, err := invoke(t, Config{SigningKey: testKey}, func(req *http.Request) {
		req.Header.Set("Authorization", "Token abc123")
	})
	assertHTTPStatus(t, err, http.StatusUnauthorized)
}

func TestWrongKeyRejected(t *testing.T) {
	token, err := Mint(Config{SigningKey: []byte("other-key")}, "ops", time.Hour)
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	_, err = invoke(t, Config{SigningKey: testKey}, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+token)
	})
	assertHTTPStatus(t, err, http.StatusUnauthorized)
}

func TestExpiredTokenRejected(t *testing.T) {
	cfg := Config{SigningKey: testKey}
	token, err := Mint(cfg, "ops", -time.Minute)
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	_, err = invoke(t, cfg, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+token)
	})
	assertHTTPStatus(t, err, http.StatusUnauthorized)
}

func TestWrongIssuerRejected(t *testing.T) {
	token, err := Mint(Config{SigningKey: testKey, Issuer: "someone-else"}, "ops", time.Hour)
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	_, err = invoke(t, Config{SigningKey: testKey}, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+token)
	})
	assertHTTPStatus(t, err, http.StatusUnauthorized)
}

func TestUnsignedAlgorithmRejected(t *testing.T) {
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    DefaultIssuer,
			Subject:   "ops",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none token: %v", err)
	}

	_, err = invoke(t, Config{SigningKey: testKey}, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+token)
	})
	assertHTTPStatus(t, err, http.StatusUnauthorized)
}

func assertHTTPStatus(t *testing.T, err error, want int) {
	t.Helper()
	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("err = %v, want *echo.HTTPError", err)
	}
	if httpErr.Code != want {
		t.Errorf("status = %d, want %d", httpErr.Code, want)
	}
}
