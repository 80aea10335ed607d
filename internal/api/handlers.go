package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/clarityfin/clarity/internal/finance"
	"github.com/clarityfin/clarity/internal/llm"
	"github.com/clarityfin/clarity/internal/storage"
)

func (s *Server) handleCreateLinkToken(w http.ResponseWriter, r *http.Request) {
	if s.linker == nil || !s.linker.IsConfigured() {
		s.respondError(w, http.StatusServiceUnavailable, "bank aggregation is not configured")
		return
	}

	token, err := s.linker.CreateLinkToken(r.Context(), s.userID)
	if err != nil {
		s.respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, token)
}

func (s *Server) handleExchangeToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PublicToken string `json:"public_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PublicToken == "" {
		s.respondError(w, http.StatusBadRequest, "public_token is required")
		return
	}

	conn, err := s.ingest.LinkInstitution(r.Context(), s.userID, req.PublicToken)
	if err != nil {
		s.respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, conn)
}

func (s *Server) handleListConnections(w http.ResponseWriter, r *http.Request) {
	conns, err := s.connections.ListByUser(s.userID)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if conns == nil {
		conns = []*finance.Connection{}
	}
	s.respondJSON(w, http.StatusOK, conns)
}

func (s *Server) handleRemoveConnection(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "connectionID")

	if err := s.ingest.RemoveConnection(r.Context(), id); err != nil {
		if err == storage.ErrNotFound {
			s.respondError(w, http.StatusNotFound, "connection not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	results, err := s.ingest.SyncUser(r.Context(), s.userID)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"synced":  len(results),
		"results": results,
	})
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.accounts.ListByUser(s.userID)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if accounts == nil {
		accounts = []*finance.Account{}
	}
	s.respondJSON(w, http.StatusOK, accounts)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	var txs []finance.Transaction
	var err error
	if days, _ := strconv.Atoi(r.URL.Query().Get("days")); days > 0 {
		since := time.Now().UTC().AddDate(0, 0, -days)
		txs, err = s.transactions.ListByUserSince(s.userID, since)
	} else {
		txs, err = s.transactions.ListByUser(s.userID, limit, offset)
	}
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if txs == nil {
		txs = []finance.Transaction{}
	}
	s.respondJSON(w, http.StatusOK, txs)
}

// updateTransactionRequest carries the user-editable fields. Pointers
// distinguish "not sent" from zero values.
type updateTransactionRequest struct {
	Category   *string   `json:"category,omitempty"`
	IsTransfer *bool     `json:"is_transfer,omitempty"`
	Excluded   *bool     `json:"excluded,omitempty"`
	Notes      *string   `json:"notes,omitempty"`
	Tags       *[]string `json:"tags,omitempty"`
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "transactionID")

	tx, err := s.transactions.GetByID(id)
	if err != nil {
		if err == storage.ErrNotFound {
			s.respondError(w, http.StatusNotFound, "transaction not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var req updateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Category != nil {
		tx.Category = *req.Category
	}
	if req.IsTransfer != nil {
		tx.IsTransfer = *req.IsTransfer
	}
	if req.Excluded != nil {
		tx.Excluded = *req.Excluded
	}
	if req.Notes != nil {
		tx.Notes = *req.Notes
	}
	if req.Tags != nil {
		tx.Tags = *req.Tags
	}

	if err := s.transactions.UpdateUserFields(tx); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.Broadcast("transaction_updated", tx)
	s.respondJSON(w, http.StatusOK, tx)
}

func (s *Server) handleListRecurring(w http.ResponseWriter, r *http.Request) {
	charges, err := s.recurring.ListByUser(s.userID)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if charges == nil {
		charges = []finance.RecurringCharge{}
	}
	s.respondJSON(w, http.StatusOK, charges)
}

func (s *Server) handleDetectRecurring(w http.ResponseWriter, r *http.Request) {
	if err := s.ingest.RegenerateRecurring(s.userID, time.Now().UTC()); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	charges, err := s.recurring.ListByUser(s.userID)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if charges == nil {
		charges = []finance.RecurringCharge{}
	}
	s.respondJSON(w, http.StatusOK, charges)
}

func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.buildSnapshot(time.Now().UTC())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, snapshot)
}

func (s *Server) buildSnapshot(now time.Time) (*finance.Snapshot, error) {
	accountPtrs, err := s.accounts.ListByUser(s.userID)
	if err != nil {
		return nil, err
	}
	accounts := make([]finance.Account, len(accountPtrs))
	for i, a := range accountPtrs {
		accounts[i] = *a
	}

	charges, err := s.recurring.ListByUser(s.userID)
	if err != nil {
		return nil, err
	}

	txs, err := s.transactions.ListByUserSince(s.userID, now.AddDate(0, 0, -60))
	if err != nil {
		return nil, err
	}

	return finance.BuildSnapshot(accounts, charges, txs, now), nil
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, finance.CategoryVocabulary())
}

func (s *Server) handleAdviceChat(w http.ResponseWriter, r *http.Request) {
	if s.advisor == nil {
		s.respondError(w, http.StatusServiceUnavailable, "advice is not configured")
		return
	}

	var req struct {
		Message string        `json:"message"`
		History []llm.Message `json:"history,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		s.respondError(w, http.StatusBadRequest, "message is required")
		return
	}

	snapshot, err := s.buildSnapshot(time.Now().UTC())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	reply, err := s.advisor.Advise(r.Context(), snapshot.Summary, req.History, req.Message)
	if err != nil {
		s.respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	txCount, err := s.transactions.CountByUser(s.userID)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	conns, err := s.connections.ListByUser(s.userID)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	accounts, err := s.accounts.ListByUser(s.userID)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	charges, err := s.recurring.ListByUser(s.userID)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var lastSynced *time.Time
	for _, c := range conns {
		if c.LastSynced != nil && (lastSynced == nil || c.LastSynced.After(*lastSynced)) {
			lastSynced = c.LastSynced
		}
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"connections":       len(conns),
		"accounts":          len(accounts),
		"transactions":      txCount,
		"recurring_charges": len(charges),
		"websocket_clients": s.wsHub.ClientCount(),
		"last_synced":       lastSynced,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
