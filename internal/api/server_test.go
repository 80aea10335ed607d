package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/clarityfin/clarity/internal/finance"
	"github.com/clarityfin/clarity/internal/ingest"
	"github.com/clarityfin/clarity/internal/llm"
	"github.com/clarityfin/clarity/internal/plaid"
	"github.com/clarityfin/clarity/internal/storage"
	"github.com/clarityfin/clarity/internal/vault"
)

type stubAggregator struct {
	sync *plaid.SyncResponse
}

func (f *stubAggregator) ExchangePublicToken(ctx context.Context, publicToken string) (*plaid.ExchangeResponse, error) {
	return &plaid.ExchangeResponse{AccessToken: "access-1", ItemID: "item-1"}, nil
}

func (f *stubAggregator) GetAccounts(ctx context.Context, accessToken string) (*plaid.AccountsResponse, error) {
	balance := 500.0
	return &plaid.AccountsResponse{
		Accounts: []plaid.Account{{
			AccountID: "acct-1",
			Name:      "Checking",
			Type:      "depository",
			Subtype:   "checking",
			Balances:  plaid.Balance{Available: &balance},
		}},
		Item: plaid.Item{ItemID: "item-1"},
	}, nil
}

func (f *stubAggregator) SyncAll(ctx context.Context, accessToken, cursor string) (*plaid.SyncResponse, error) {
	if f.sync == nil {
		return &plaid.SyncResponse{NextCursor: "c1"}, nil
	}
	return f.sync, nil
}

func (f *stubAggregator) GetInstitution(ctx context.Context, institutionID string) (*plaid.Institution, error) {
	return &plaid.Institution{Name: "Test Bank"}, nil
}

func (f *stubAggregator) RemoveItem(ctx context.Context, accessToken string) error {
	return nil
}

type stubLinker struct{ configured bool }

func (f *stubLinker) CreateLinkToken(ctx context.Context, userID string) (*plaid.LinkTokenResponse, error) {
	return &plaid.LinkTokenResponse{LinkToken: "link-token-for-" + userID}, nil
}

func (f *stubLinker) IsConfigured() bool { return f.configured }

type stubAdvisor struct {
	lastSummary string
}

func (f *stubAdvisor) Advise(ctx context.Context, summary string, history []llm.Message, question string) (string, error) {
	f.lastSummary = summary
	return "consider a budget", nil
}

func testServer(t *testing.T, agg *stubAggregator) (*Server, *storage.DB) {
	t.Helper()

	db, err := storage.Open(storage.Config{InMemory: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	salt, _ := vault.NewSalt()
	v, err := vault.Open("test", salt)
	if err != nil {
		t.Fatal(err)
	}

	svc := ingest.NewService(agg, v, db)
	srv := New(Config{
		UserID:  "local",
		DB:      db,
		Linker:  &stubLinker{configured: true},
		Ingest:  svc,
		Advisor: &stubAdvisor{},
	})
	return srv, db
}

func doJSON(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func TestLinkTokenEndpoint(t *testing.T) {
	srv, _ := testServer(t, &stubAggregator{})

	rec := doJSON(t, srv, "POST", "/api/v1/link/token", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp plaid.LinkTokenResponse
	decode(t, rec, &resp)
	if resp.LinkToken != "link-token-for-local" {
		t.Errorf("link token = %q", resp.LinkToken)
	}
}

func TestExchangeAndListConnections(t *testing.T) {
	srv, _ := testServer(t, &stubAggregator{})

	rec := doJSON(t, srv, "POST", "/api/v1/link/exchange", map[string]string{"public_token": "pt"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("exchange status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, srv, "GET", "/api/v1/connections", nil)
	var conns []finance.Connection
	decode(t, rec, &conns)
	if len(conns) != 1 {
		t.Fatalf("got %d connections, want 1", len(conns))
	}
	if conns[0].InstitutionName != "Test Bank" {
		t.Errorf("institution = %q", conns[0].InstitutionName)
	}

	rec = doJSON(t, srv, "POST", "/api/v1/link/exchange", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing token status = %d", rec.Code)
	}
}

func TestTransactionsEndpoints(t *testing.T) {
	agg := &stubAggregator{
		sync: &plaid.SyncResponse{
			Added: []plaid.Transaction{
				{TransactionID: "tx-1", AccountID: "acct-1", Amount: 12.50,
					Date: time.Now().UTC().AddDate(0, 0, -3).Format("2006-01-02"),
					Name: "PUBLIX SUPER MARKET"},
				{TransactionID: "tx-2", AccountID: "acct-1", Amount: 9.99,
					Date: time.Now().UTC().AddDate(0, 0, -80).Format("2006-01-02"),
					Name: "SPOTIFY"},
			},
			NextCursor: "c1",
		},
	}
	srv, _ := testServer(t, agg)

	if rec := doJSON(t, srv, "POST", "/api/v1/link/exchange", map[string]string{"public_token": "pt"}); rec.Code != http.StatusCreated {
		t.Fatalf("exchange failed: %s", rec.Body.String())
	}

	rec := doJSON(t, srv, "GET", "/api/v1/transactions", nil)
	var txs []finance.Transaction
	decode(t, rec, &txs)
	if len(txs) != 2 {
		t.Fatalf("got %d transactions, want 2", len(txs))
	}

	rec = doJSON(t, srv, "GET", "/api/v1/transactions?days=30", nil)
	decode(t, rec, &txs)
	if len(txs) != 1 {
		t.Errorf("30-day window = %d transactions, want 1", len(txs))
	}

	// Recategorize and exclude.
	rec = doJSON(t, srv, "PUT", "/api/v1/transactions/tx-1", map[string]interface{}{
		"category": "Food and Drink",
		"excluded": true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", rec.Code, rec.Body.String())
	}
	var updated finance.Transaction
	decode(t, rec, &updated)
	if updated.Category != "Food and Drink" || !updated.Excluded {
		t.Errorf("updated = %+v", updated)
	}

	rec = doJSON(t, srv, "PUT", "/api/v1/transactions/nope", map[string]interface{}{"excluded": true})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown tx status = %d", rec.Code)
	}
}

func TestSnapshotEndpoint(t *testing.T) {
	srv, _ := testServer(t, &stubAggregator{})

	if rec := doJSON(t, srv, "POST", "/api/v1/link/exchange", map[string]string{"public_token": "pt"}); rec.Code != http.StatusCreated {
		t.Fatalf("exchange failed: %s", rec.Body.String())
	}

	rec := doJSON(t, srv, "GET", "/api/v1/snapshot", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var snap finance.Snapshot
	decode(t, rec, &snap)
	if snap.Totals.TotalAssets != 500 {
		t.Errorf("assets = %v, want 500", snap.Totals.TotalAssets)
	}
	if snap.Summary == "" {
		t.Error("summary missing")
	}
}

func TestAdviceChat(t *testing.T) {
	srv, _ := testServer(t, &stubAggregator{})
	advisor := &stubAdvisor{}
	srv.advisor = advisor

	if rec := doJSON(t, srv, "POST", "/api/v1/link/exchange", map[string]string{"public_token": "pt"}); rec.Code != http.StatusCreated {
		t.Fatalf("exchange failed: %s", rec.Body.String())
	}

	rec := doJSON(t, srv, "POST", "/api/v1/advice/chat", map[string]string{"message": "how am I doing?"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp map[string]string
	decode(t, rec, &resp)
	if resp["reply"] != "consider a budget" {
		t.Errorf("reply = %q", resp["reply"])
	}
	if !strings.Contains(advisor.lastSummary, "Net worth") {
		t.Errorf("advisor summary = %q, want snapshot text", advisor.lastSummary)
	}

	rec = doJSON(t, srv, "POST", "/api/v1/advice/chat", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty message status = %d", rec.Code)
	}
}

func TestStatsEndpoint(t *testing.T) {
	srv, _ := testServer(t, &stubAggregator{})

	if rec := doJSON(t, srv, "POST", "/api/v1/link/exchange", map[string]string{"public_token": "pt"}); rec.Code != http.StatusCreated {
		t.Fatalf("exchange failed: %s", rec.Body.String())
	}

	rec := doJSON(t, srv, "GET", "/api/v1/stats", nil)
	var stats map[string]interface{}
	decode(t, rec, &stats)
	if stats["connections"] != float64(1) {
		t.Errorf("connections = %v", stats["connections"])
	}
	if stats["accounts"] != float64(1) {
		t.Errorf("accounts = %v", stats["accounts"])
	}
}

func TestCategoriesEndpoint(t *testing.T) {
	srv, _ := testServer(t, &stubAggregator{})

	rec := doJSON(t, srv, "GET", "/api/v1/categories", nil)
	var cats []string
	decode(t, rec, &cats)
	if len(cats) == 0 {
		t.Fatal("no categories returned")
	}

	found := false
	for _, c := range cats {
		if c == "Groceries" {
			found = true
		}
	}
	if !found {
		t.Error("Groceries missing from vocabulary")
	}
}

func TestLinkTokenUnconfigured(t *testing.T) {
	srv, _ := testServer(t, &stubAggregator{})
	srv.linker = &stubLinker{configured: false}

	rec := doJSON(t, srv, "POST", "/api/v1/link/token", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestRecurringEndpoints(t *testing.T) {
	var added []plaid.Transaction
	base := time.Now().UTC().AddDate(0, 0, -100)
	for i := 0; i < 4; i++ {
		added = append(added, plaid.Transaction{
			TransactionID: fmt.Sprintf("tx-%d", i),
			AccountID:     "acct-1",
			Amount:        15.99,
			Date:          base.AddDate(0, 0, 30*i).Format("2006-01-02"),
			Name:          "Netflix",
		})
	}
	srv, _ := testServer(t, &stubAggregator{sync: &plaid.SyncResponse{Added: added, NextCursor: "c1"}})

	if rec := doJSON(t, srv, "POST", "/api/v1/link/exchange", map[string]string{"public_token": "pt"}); rec.Code != http.StatusCreated {
		t.Fatalf("exchange failed: %s", rec.Body.String())
	}

	rec := doJSON(t, srv, "GET", "/api/v1/recurring", nil)
	var charges []finance.RecurringCharge
	decode(t, rec, &charges)
	if len(charges) != 1 {
		t.Fatalf("got %d charges, want 1", len(charges))
	}
	if charges[0].Frequency != finance.FrequencyMonthly || !charges[0].IsSubscription {
		t.Errorf("charge = %+v", charges[0])
	}

	rec = doJSON(t, srv, "POST", "/api/v1/recurring/detect", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("detect status = %d", rec.Code)
	}
	decode(t, rec, &charges)
	if len(charges) != 1 {
		t.Errorf("after re-detect: %d charges", len(charges))
	}
}
