package plaid

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// testClient points a client at a fake Plaid server.
func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := New(Config{
		ClientID:     "client-id",
		Secret:       "secret",
		Environment:  EnvSandbox,
		ClientName:   "Clarity",
		CountryCodes: []string{"US"},
		Products:     []string{"transactions"},
	})
	c.baseURL = srv.URL
	return c
}

func TestClient_CredentialsInjected(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body["client_id"] != "client-id" || body["secret"] != "secret" {
			t.Errorf("credentials not injected: %v", body)
		}
		if body["public_token"] != "public-abc" {
			t.Errorf("body not merged: %v", body)
		}
		json.NewEncoder(w).Encode(ExchangeResponse{AccessToken: "access-123", ItemID: "item-1"})
	})

	resp, err := c.ExchangePublicToken(context.Background(), "public-abc")
	if err != nil {
		t.Fatalf("ExchangePublicToken() error = %v", err)
	}
	if resp.AccessToken != "access-123" {
		t.Errorf("AccessToken = %q, want access-123", resp.AccessToken)
	}
}

func TestClient_APIError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(APIError{
			ErrorType:    "INVALID_INPUT",
			ErrorCode:    "INVALID_ACCESS_TOKEN",
			ErrorMessage: "could not find matching access token",
		})
	})

	_, err := c.GetAccounts(context.Background(), "bogus")
	if err == nil {
		t.Fatal("expected error")
	}
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	if apiErr.ErrorCode != "INVALID_ACCESS_TOKEN" {
		t.Errorf("ErrorCode = %q", apiErr.ErrorCode)
	}
}

func TestClient_SyncAll_Pagination(t *testing.T) {
	calls := 0
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)

		switch calls {
		case 1:
			if _, ok := body["cursor"]; ok {
				t.Error("first call should omit cursor")
			}
			json.NewEncoder(w).Encode(SyncResponse{
				Added:      []Transaction{{TransactionID: "t1"}},
				NextCursor: "cursor-1",
				HasMore:    true,
			})
		default:
			if body["cursor"] != "cursor-1" {
				t.Errorf("cursor = %v, want cursor-1", body["cursor"])
			}
			json.NewEncoder(w).Encode(SyncResponse{
				Added:      []Transaction{{TransactionID: "t2"}},
				Removed:    []RemovedTransaction{{TransactionID: "t0"}},
				NextCursor: "cursor-2",
				HasMore:    false,
			})
		}
	})

	resp, err := c.SyncAll(context.Background(), "access-123", "")
	if err != nil {
		t.Fatalf("SyncAll() error = %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if len(resp.Added) != 2 || len(resp.Removed) != 1 {
		t.Errorf("added=%d removed=%d, want 2/1", len(resp.Added), len(resp.Removed))
	}
	if resp.NextCursor != "cursor-2" {
		t.Errorf("NextCursor = %q, want cursor-2", resp.NextCursor)
	}
}

func TestClient_SandboxOnly(t *testing.T) {
	c := New(Config{Environment: EnvProduction})
	if _, err := c.CreateSandboxPublicToken(context.Background(), "ins_1"); err == nil {
		t.Error("expected sandbox-only error in production")
	}
}

func TestClient_IsConfigured(t *testing.T) {
	if New(Config{}).IsConfigured() {
		t.Error("empty config should not be configured")
	}
	if !New(Config{ClientID: "a", Secret: "b"}).IsConfigured() {
		t.Error("config with credentials should be configured")
	}
}
