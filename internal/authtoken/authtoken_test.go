package authtoken

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewGeneratesDistinctTokens(t *testing.T) {
	a, err := New()
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	b, err := New()
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if a.String() == b.String() {
		t.Error("expected two distinct tokens")
	}
	if len(a.String()) == 0 {
		t.Error("expected non-empty token")
	}
}

func TestCheckMatches(t *testing.T) {
	tok, _ := New()
	if !tok.Check(tok.String()) {
		t.Error("Check should accept the correct token")
	}
	if tok.Check("wrong") {
		t.Error("Check should reject an incorrect token")
	}
	if tok.Check("") {
		t.Error("Check should reject an empty candidate")
	}
}

func TestCheckRequestBearerHeader(t *testing.T) {
	tok, _ := New()
	req := httptest.NewRequest(http.MethodGet, "/api/agents", nil)
	req.Header.Set("Authorization", "Bearer "+tok.String())

	if !tok.CheckRequest(req) {
		t.Error("expected valid bearer header to authenticate")
	}
}

func TestCheckRequestQueryParam(t *testing.T) {
	tok, _ := New()
	req := httptest.NewRequest(http.MethodGet, "/api/agents?token="+tok.String(), nil)

	if !tok.CheckRequest(req) {
		t.Error("expected valid token query param to authenticate")
	}
}

func TestCheckRequestRejectsMissing(t *testing.T) {
	tok, _ := New()
	req := httptest.NewRequest(http.MethodGet, "/api/agents", nil)

	if tok.CheckRequest(req) {
		t.Error("expected request with no token to be rejected")
	}
}

func TestCheckRequestRejectsWrongBearer(t *testing.T) {
	tok, _ := New()
	req := httptest.NewRequest(http.MethodGet, "/api/agents", nil)
	req.Header.Set("Authorization", "Bearer WRONG")

	if tok.CheckRequest(req) {
		t.Error("expected wrong bearer token to be rejected")
	}
}
