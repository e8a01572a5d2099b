package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kmoroz/splithaus/internal/calculator"
	"github.com/kmoroz/splithaus/internal/middleware"
	"github.com/kmoroz/splithaus/internal/models"
	"github.com/kmoroz/splithaus/internal/service"
)

type createExpenseRequest struct {
	Description  string             `json:"description"`
	AmountCents  int64              `json:"amount_cents"`
	Currency     string             `json:"currency"`
	SplitMethod  string             `json:"split_method"`
	Category     string             `json:"category"`
	ExpenseDate  int64              `json:"expense_date"`
	Participants []string           `json:"participants"`
	Percentages  map[string]float64 `json:"percentages"`
	AmountsCents map[string]int64   `json:"amounts_cents"`
}

type shareView struct {
	ID              string  `json:"id"`
	UserID          string  `json:"user_id"`
	AmountCents     int64   `json:"amount_cents"`
	SharePercentage float64 `json:"share_percentage,omitempty"`
	Paid            bool    `json:"paid"`
	PaidAt          int64   `json:"paid_at,omitempty"`
}

type expenseView struct {
	ID          string      `json:"id"`
	HouseholdID string      `json:"household_id"`
	CreatorID   string      `json:"creator_id"`
	Description string      `json:"description"`
	AmountCents int64       `json:"amount_cents"`
	Currency    string      `json:"currency"`
	SplitMethod string      `json:"split_method"`
	Category    string      `json:"category,omitempty"`
	ExpenseDate int64       `json:"expense_date"`
	CreatedAt   int64       `json:"created_at"`
	Shares      []shareView `json:"shares"`
}

type previewShareView struct {
	UserID      string  `json:"user_id"`
	AmountCents int64   `json:"amount_cents"`
	Percentage  float64 `json:"percentage,omitempty"`
}

type balanceView struct {
	UserID          string `json:"user_id"`
	OwedToUserCents int64  `json:"owed_to_user_cents"`
	UserOwesCents   int64  `json:"user_owes_cents"`
	NetCents        int64  `json:"net_cents"`
}

type memberBalanceView struct {
	balanceView
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

type settlementView struct {
	FromUserID  string `json:"from_user_id"`
	ToUserID    string `json:"to_user_id"`
	AmountCents int64  `json:"amount_cents"`
}

type balancesResponse struct {
	Balances    []memberBalanceView `json:"balances"`
	Settlements []settlementView    `json:"settlements"`
}

type eventView struct {
	ID          string            `json:"id"`
	HouseholdID string            `json:"household_id"`
	ActorID     string            `json:"actor_id,omitempty"`
	Type        string            `json:"type"`
	Data        map[string]string `json:"data,omitempty"`
	CreatedAt   int64             `json:"created_at"`
}

func toShareView(sh models.ExpenseShare) shareView {
	return shareView{
		ID:              sh.ID,
		UserID:          sh.UserID,
		AmountCents:     sh.AmountCents,
		SharePercentage: sh.SharePercentage,
		Paid:            sh.Paid,
		PaidAt:          sh.PaidAt,
	}
}

func toExpenseView(e *models.Expense) expenseView {
	shares := make([]shareView, 0, len(e.Shares))
	for _, sh := range e.Shares {
		shares = append(shares, toShareView(sh))
	}
	return expenseView{
		ID:          e.ID,
		HouseholdID: e.HouseholdID,
		CreatorID:   e.CreatorID,
		Description: e.Description,
		AmountCents: e.AmountCents,
		Currency:    e.Currency,
		SplitMethod: string(e.SplitMethod),
		Category:    e.Category,
		ExpenseDate: e.ExpenseDate,
		CreatedAt:   e.CreatedAt,
		Shares:      shares,
	}
}

func toBalanceView(b calculator.Balance) balanceView {
	return balanceView{
		UserID:          b.UserID,
		OwedToUserCents: b.OwedToUserCents,
		UserOwesCents:   b.UserOwesCents,
		NetCents:        b.NetCents,
	}
}

func expenseInput(r *http.Request, req createExpenseRequest) service.ExpenseInput {
	return service.ExpenseInput{
		HouseholdID:  chi.URLParam(r, "householdID"),
		CreatorID:    middleware.GetUserID(r.Context()),
		Description:  req.Description,
		AmountCents:  req.AmountCents,
		Currency:     req.Currency,
		SplitMethod:  models.SplitMethod(req.SplitMethod),
		Category:     req.Category,
		ExpenseDate:  req.ExpenseDate,
		Participants: req.Participants,
		Percentages:  req.Percentages,
		AmountsCents: req.AmountsCents,
	}
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req createExpenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	in := expenseInput(r, req)

	// preview=true computes the shares without persisting anything, so
	// clients can show the split before the expense is confirmed.
	if r.URL.Query().Get("preview") == "true" {
		shares, err := s.expenses.Preview(r.Context(), in)
		if err != nil {
			writeError(w, err)
			return
		}
		out := make([]previewShareView, 0, len(shares))
		for _, sh := range shares {
			out = append(out, previewShareView{UserID: sh.UserID, AmountCents: sh.AmountCents, Percentage: sh.Percentage})
		}
		writeJSON(w, http.StatusOK, map[string]any{"shares": out})
		return
	}

	expense, err := s.expenses.Create(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toExpenseView(expense))
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.expenses.List(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "householdID"))
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]expenseView, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, toExpenseView(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	expense, err := s.expenses.Get(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "expenseID"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toExpenseView(expense))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.expenses.Delete(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "expenseID")); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePayShare(w http.ResponseWriter, r *http.Request) {
	if err := s.expenses.PayShare(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "shareID")); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUnpayShare(w http.ResponseWriter, r *http.Request) {
	if err := s.expenses.UnpayShare(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "shareID")); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUserBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := s.expenses.Balance(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "householdID"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toBalanceView(balance))
}

func (s *Server) handleHouseholdBalances(w http.ResponseWriter, r *http.Request) {
	balances, settlements, err := s.expenses.Balances(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "householdID"))
	if err != nil {
		writeError(w, err)
		return
	}

	resp := balancesResponse{
		Balances:    make([]memberBalanceView, 0, len(balances)),
		Settlements: make([]settlementView, 0, len(settlements)),
	}
	for _, b := range balances {
		resp.Balances = append(resp.Balances, memberBalanceView{
			balanceView: toBalanceView(b.Balance),
			DisplayName: b.DisplayName,
			Role:        string(b.Role),
		})
	}
	for _, st := range settlements {
		resp.Settlements = append(resp.Settlements, settlementView{
			FromUserID:  st.FromUserID,
			ToUserID:    st.ToUserID,
			AmountCents: st.AmountCents,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, calculator.NewValidationError("limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	events, err := s.expenses.Activity(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "householdID"), limit)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]eventView, 0, len(events))
	for _, ev := range events {
		out = append(out, eventView{
			ID:          ev.ID,
			HouseholdID: ev.HouseholdID,
			ActorID:     ev.ActorID,
			Type:        string(ev.Type),
			Data:        ev.Data,
			CreatedAt:   ev.CreatedAt.Unix(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}
