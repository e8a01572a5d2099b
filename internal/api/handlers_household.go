package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kmoroz/splithaus/internal/middleware"
	"github.com/kmoroz/splithaus/internal/models"
	"github.com/kmoroz/splithaus/internal/service"
)

type createHouseholdRequest struct {
	Name     string `json:"name"`
	Currency string `json:"currency"`
}

type joinHouseholdRequest struct {
	InviteCode string `json:"invite_code"`
}

type householdView struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Currency   string `json:"currency"`
	InviteCode string `json:"invite_code"`
	CreatedBy  string `json:"created_by"`
	CreatedAt  int64  `json:"created_at"`
}

type memberView struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	JoinedAt    int64  `json:"joined_at"`
}

func toHouseholdView(h *models.Household) householdView {
	return householdView{
		ID:         h.ID,
		Name:       h.Name,
		Currency:   h.Currency,
		InviteCode: h.InviteCode,
		CreatedBy:  h.CreatedBy,
		CreatedAt:  h.CreatedAt,
	}
}

func toMemberViews(members []service.MemberView) []memberView {
	out := make([]memberView, 0, len(members))
	for _, m := range members {
		out = append(out, memberView{
			UserID:      m.UserID,
			DisplayName: m.DisplayName,
			Email:       m.Email,
			Role:        string(m.Role),
			JoinedAt:    m.JoinedAt,
		})
	}
	return out
}

func (s *Server) handleCreateHousehold(w http.ResponseWriter, r *http.Request) {
	var req createHouseholdRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	household, err := s.households.Create(r.Context(), middleware.GetUserID(r.Context()), req.Name, req.Currency)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toHouseholdView(household))
}

func (s *Server) handleListHouseholds(w http.ResponseWriter, r *http.Request) {
	households, err := s.households.ListForUser(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]householdView, 0, len(households))
	for _, h := range households {
		out = append(out, toHouseholdView(h))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetHousehold(w http.ResponseWriter, r *http.Request) {
	household, err := s.households.Get(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "householdID"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toHouseholdView(household))
}

func (s *Server) handleJoinHousehold(w http.ResponseWriter, r *http.Request) {
	var req joinHouseholdRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	household, err := s.households.Join(r.Context(), middleware.GetUserID(r.Context()), req.InviteCode)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toHouseholdView(household))
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := s.households.Members(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "householdID"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toMemberViews(members))
}
