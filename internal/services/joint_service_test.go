package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/jointvault/backend/internal/holdings"
	"github.com/jointvault/backend/internal/ledger"
	"github.com/jointvault/backend/internal/middleware"
)

// testPrincipal injects the principal id the auth middleware would have
// resolved from the bearer token.
func testPrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p := r.Header.Get("X-Test-Principal"); p != "" {
			ctx := context.WithValue(r.Context(), middleware.PrincipalKey, p)
			r = r.WithContext(ctx)
		}
		next.ServeHTTP(w, r)
	})
}

func newJointTestServer(t *testing.T) (*httptest.Server, *holdings.Memory) {
	t.Helper()
	h := holdings.NewMemory()
	l := ledger.NewJointLedger(h, 1)
	svc := NewJointAccountService(l, nil)

	r := chi.NewRouter()
	r.Use(testPrincipal)
	r.Post("/accounts", svc.CreateAccount)
	r.Get("/accounts", svc.ListAccounts)
	r.Post("/accounts/{accountId}/deposit", svc.Deposit)
	r.Post("/accounts/{accountId}/withdrawals", svc.RequestWithdraw)
	r.Post("/accounts/{accountId}/withdrawals/{requestId}/approve", svc.ApproveWithdraw)
	r.Get("/accounts/{accountId}/withdrawals/{requestId}/approvals", svc.GetApprovals)
	r.Post("/accounts/{accountId}/withdrawals/{requestId}/execute", svc.ExecuteWithdraw)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, h
}

func doJSON(t *testing.T, srv *httptest.Server, method, path, principal string, payload any) (*http.Response, map[string]any) {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		assert.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req, err := http.NewRequest(method, srv.URL+path, &body)
	assert.NoError(t, err)
	if principal != "" {
		req.Header.Set("X-Test-Principal", principal)
	}
	resp, err := srv.Client().Do(req)
	assert.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func TestJointAccountService_CreateAndList(t *testing.T) {
	srv, _ := newJointTestServer(t)

	t.Run("create account", func(t *testing.T) {
		resp, body := doJSON(t, srv, "POST", "/accounts", "alice", map[string]any{
			"coOwners": []string{"bob"},
		})
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.Equal(t, float64(1), body["accountId"])
	})

	t.Run("co-owner sees the account", func(t *testing.T) {
		req, _ := http.NewRequest("GET", srv.URL+"/accounts", nil)
		req.Header.Set("X-Test-Principal", "bob")
		resp, err := srv.Client().Do(req)
		assert.NoError(t, err)
		defer resp.Body.Close()

		var accounts []ledger.AccountView
		assert.NoError(t, json.NewDecoder(resp.Body).Decode(&accounts))
		assert.Len(t, accounts, 1)
		assert.Equal(t, []string{"alice", "bob"}, accounts[0].Owners)
	})

	t.Run("five owners rejected", func(t *testing.T) {
		resp, _ := doJSON(t, srv, "POST", "/accounts", "alice", map[string]any{
			"coOwners": []string{"b", "c", "d", "e"},
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("duplicate creator rejected", func(t *testing.T) {
		resp, _ := doJSON(t, srv, "POST", "/accounts", "alice", map[string]any{
			"coOwners": []string{"alice"},
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unauthenticated rejected", func(t *testing.T) {
		resp, _ := doJSON(t, srv, "POST", "/accounts", "", map[string]any{})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("unknown field rejected", func(t *testing.T) {
		resp, _ := doJSON(t, srv, "POST", "/accounts", "alice", map[string]any{
			"owners": []string{"bob"},
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestJointAccountService_WithdrawalFlow(t *testing.T) {
	srv, h := newJointTestServer(t)
	h.Seed("alice", 200_000_000)

	resp, body := doJSON(t, srv, "POST", "/accounts", "alice", map[string]any{
		"coOwners": []string{"bob"},
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	accountID := int64(body["accountId"].(float64))
	base := fmt.Sprintf("/accounts/%d", accountID)

	t.Run("deposit", func(t *testing.T) {
		resp, body := doJSON(t, srv, "POST", base+"/deposit", "alice", map[string]any{"amount": 200_000_000})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, float64(200_000_000), body["balance"])
	})

	t.Run("non-owner deposit rejected", func(t *testing.T) {
		resp, _ := doJSON(t, srv, "POST", base+"/deposit", "mallory", map[string]any{"amount": 1})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	var requestID int64
	t.Run("request withdrawal", func(t *testing.T) {
		resp, body := doJSON(t, srv, "POST", base+"/withdrawals", "alice", map[string]any{"amount": 100_000_000})
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		requestID = int64(body["requestId"].(float64))
	})

	reqPath := func() string { return fmt.Sprintf("%s/withdrawals/%d", base, requestID) }

	t.Run("non-owner approval rejected", func(t *testing.T) {
		resp, _ := doJSON(t, srv, "POST", reqPath()+"/approve", "mallory", nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("self approval rejected", func(t *testing.T) {
		resp, _ := doJSON(t, srv, "POST", reqPath()+"/approve", "alice", nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("co-owner approves", func(t *testing.T) {
		resp, body := doJSON(t, srv, "POST", reqPath()+"/approve", "bob", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, float64(1), body["approvals"])
	})

	t.Run("approvals visible", func(t *testing.T) {
		resp, body := doJSON(t, srv, "GET", reqPath()+"/approvals", "alice", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, float64(1), body["approvals"])
		assert.Equal(t, false, body["executed"])
	})

	t.Run("non-requester execute rejected", func(t *testing.T) {
		resp, _ := doJSON(t, srv, "POST", reqPath()+"/execute", "bob", nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("requester executes", func(t *testing.T) {
		resp, body := doJSON(t, srv, "POST", reqPath()+"/execute", "alice", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, true, body["executed"])
		assert.Equal(t, int64(100_000_000), h.Balance("alice"))
	})

	t.Run("second execute conflicts", func(t *testing.T) {
		resp, _ := doJSON(t, srv, "POST", reqPath()+"/execute", "alice", nil)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, int64(100_000_000), h.Balance("alice"))
	})

	t.Run("oversized request conflicts", func(t *testing.T) {
		resp, _ := doJSON(t, srv, "POST", base+"/withdrawals", "alice", map[string]any{"amount": 1_000_000_000})
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("unknown account not found", func(t *testing.T) {
		resp, _ := doJSON(t, srv, "POST", "/accounts/999/deposit", "alice", map[string]any{"amount": 1})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("bad path id rejected", func(t *testing.T) {
		resp, _ := doJSON(t, srv, "POST", "/accounts/abc/deposit", "alice", map[string]any{"amount": 1})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}
