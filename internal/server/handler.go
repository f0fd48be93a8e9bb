package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/Echohint/dev-prop-firm/internal/engine"
	"github.com/Echohint/dev-prop-firm/internal/logger"
	"github.com/Echohint/dev-prop-firm/internal/model"
	"github.com/Echohint/dev-prop-firm/internal/repository"
	"github.com/bytedance/sonic"
)

// _ownerHeader carries the authenticated principal. Authentication itself is
// an upstream concern; the engine only ever sees an explicit owner id.
const _ownerHeader = "X-Owner-ID"

const _leaderboardSize = 10

type Handler struct {
	engine *engine.Engine
	store  repository.Store
	logger logger.Logger
}

func NewHandler(engine *engine.Engine, store repository.Store, logger logger.Logger) *Handler {
	return &Handler{
		engine: engine,
		store:  store,
		logger: logger,
	}
}

func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/accounts", h.createAccount)
	mux.HandleFunc("GET /api/accounts", h.listAccounts)
	mux.HandleFunc("GET /api/accounts/{id}", h.getAccount)
	mux.HandleFunc("GET /api/accounts/{id}/snapshot", h.getSnapshot)
	mux.HandleFunc("POST /api/accounts/{id}/trades", h.openTrade)
	mux.HandleFunc("GET /api/accounts/{id}/trades", h.listTrades)
	mux.HandleFunc("POST /api/trades/{id}/close", h.closeTrade)
	mux.HandleFunc("GET /api/journal", h.getJournal)
	mux.HandleFunc("POST /api/journal", h.upsertJournal)
	mux.HandleFunc("GET /api/leaderboard", h.leaderboard)

	return mux
}

type createAccountRequest struct {
	StartingBalance float64 `json:"starting_balance"`
	PlanLabel       string  `json:"plan_label"`
}

func (h *Handler) createAccount(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.principal(w, r)
	if !ok {
		return
	}

	var req createAccountRequest
	if !h.decode(w, r, &req) {
		return
	}

	a, err := h.engine.CreateAccount(r.Context(), ownerID, req.StartingBalance, req.PlanLabel)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]any{"account": a})
}

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.principal(w, r)
	if !ok {
		return
	}

	accounts, err := h.store.ListAccountsByOwner(r.Context(), ownerID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"accounts": accounts})
}

func (h *Handler) getAccount(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.principal(w, r)
	if !ok {
		return
	}

	a, err := h.store.GetAccount(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if a.OwnerID != ownerID {
		h.writeError(w, model.ErrNotOwner)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"account": a})
}

func (h *Handler) getSnapshot(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.principal(w, r)
	if !ok {
		return
	}

	snap, err := h.engine.AccountSnapshot(r.Context(), ownerID, r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, snap)
}

type openTradeRequest struct {
	Symbol       string   `json:"symbol"`
	Side         string   `json:"side"`
	MarginAmount float64  `json:"margin_amount"`
	Leverage     float64  `json:"leverage"`
	Price        float64  `json:"price"`
	StopLoss     *float64 `json:"stop_loss"`
	TakeProfit   *float64 `json:"take_profit"`
}

func (h *Handler) openTrade(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.principal(w, r)
	if !ok {
		return
	}

	var req openTradeRequest
	if !h.decode(w, r, &req) {
		return
	}

	t, err := h.engine.OpenTrade(r.Context(), ownerID, r.PathValue("id"), engine.OpenRequest{
		Symbol:       req.Symbol,
		Side:         model.TradeSide(req.Side),
		MarginAmount: req.MarginAmount,
		Leverage:     req.Leverage,
		Price:        req.Price,
		StopLoss:     req.StopLoss,
		TakeProfit:   req.TakeProfit,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]any{"trade": t, "message": "Order Placed"})
}

func (h *Handler) listTrades(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.principal(w, r)
	if !ok {
		return
	}

	accountID := r.PathValue("id")
	a, err := h.store.GetAccount(r.Context(), accountID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if a.OwnerID != ownerID {
		h.writeError(w, model.ErrNotOwner)
		return
	}

	trades, err := h.store.ListTrades(r.Context(), accountID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"trades": trades})
}

type closeTradeRequest struct {
	ExitPrice float64 `json:"exit_price"`
}

func (h *Handler) closeTrade(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.principal(w, r)
	if !ok {
		return
	}

	var req closeTradeRequest
	if !h.decode(w, r, &req) {
		return
	}

	t, err := h.engine.CloseTrade(r.Context(), ownerID, r.PathValue("id"), req.ExitPrice)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"trade": t, "message": "Trade Closed"})
}

type upsertJournalRequest struct {
	Day   string `json:"day"`
	Notes string `json:"notes"`
	Mood  string `json:"mood"`
}

func (h *Handler) upsertJournal(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.principal(w, r)
	if !ok {
		return
	}

	var req upsertJournalRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Day == "" {
		h.writeError(w, model.ErrValidation)
		return
	}

	entry, err := h.store.UpsertJournalNotes(r.Context(), ownerID, req.Day, req.Notes, model.Mood(req.Mood))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"entry": entry})
}

func (h *Handler) getJournal(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.principal(w, r)
	if !ok {
		return
	}

	if day := r.URL.Query().Get("date"); day != "" {
		entry, err := h.store.GetJournalEntry(r.Context(), ownerID, day)
		if err != nil {
			h.writeError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, map[string]any{"entry": entry})
		return
	}

	entries, err := h.store.ListJournalEntries(r.Context(), ownerID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

type leaderboardRow struct {
	Rank    int     `json:"rank"`
	Owner   string  `json:"owner"`
	Balance float64 `json:"balance"`
	Profit  float64 `json:"profit"`
	Status  string  `json:"status"`
}

func (h *Handler) leaderboard(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.store.TopAccounts(r.Context(), _leaderboardSize)
	if err != nil {
		h.writeError(w, err)
		return
	}

	rows := make([]leaderboardRow, 0, len(accounts))
	for i, a := range accounts {
		rows = append(rows, leaderboardRow{
			Rank:    i + 1,
			Owner:   a.OwnerID,
			Balance: a.Balance,
			Profit:  a.Balance - a.StartingBalance,
			Status:  string(a.Status),
		})
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"leaderboard": rows})
}

func (h *Handler) principal(w http.ResponseWriter, r *http.Request) (string, bool) {
	ownerID := r.Header.Get(_ownerHeader)
	if ownerID == "" {
		h.writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "missing principal"})
		return "", false
	}
	return ownerID, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeError(w, model.ErrValidation)
		return false
	}
	if err := sonic.Unmarshal(body, dst); err != nil {
		h.writeError(w, model.ErrValidation)
		return false
	}
	return true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	out, err := sonic.Marshal(v)
	if err != nil {
		h.logger.Errorf("%s: can't marshal response", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(out); err != nil {
		h.logger.Errorf("%s: can't write response", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, model.ErrAccountNotFound), errors.Is(err, model.ErrTradeNotFound):
		status = http.StatusNotFound
	case errors.Is(err, model.ErrNotOwner):
		status = http.StatusForbidden
	case errors.Is(err, model.ErrAccountBreached),
		errors.Is(err, model.ErrInsufficientMargin),
		errors.Is(err, model.ErrTradeAlreadyClosed),
		errors.Is(err, model.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, model.ErrStorage):
		h.logger.Errorf("%s: storage error", err)
	default:
		h.logger.Errorf("%s: unexpected error", err)
	}

	h.writeJSON(w, status, map[string]any{"error": err.Error()})
}
