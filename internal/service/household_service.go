package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kmoroz/splithaus/internal/calculator"
	"github.com/kmoroz/splithaus/internal/eventlog"
	"github.com/kmoroz/splithaus/internal/models"
	"github.com/kmoroz/splithaus/internal/storage"
)

var (
	// ErrNotMember means the acting user does not belong to the
	// household in question.
	ErrNotMember = errors.New("you are not a member of this household")

	// ErrAlreadyMember means the user tried to join a household twice.
	ErrAlreadyMember = errors.New("you are already a member of this household")

	// ErrPermissionDenied means the user is a member but lacks the role
	// or ownership the operation requires.
	ErrPermissionDenied = errors.New("permission denied")
)

// inviteCodeAlphabet avoids ambiguous characters (0/O, 1/I/L).
const inviteCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// HouseholdService manages households and their membership.
type HouseholdService struct {
	store  storage.Store
	events *eventlog.Worker
}

// NewHouseholdService creates a HouseholdService.
func NewHouseholdService(store storage.Store, events *eventlog.Worker) *HouseholdService {
	return &HouseholdService{store: store, events: events}
}

// MemberView is a membership row joined with user details for display.
type MemberView struct {
	UserID      string
	DisplayName string
	Email       string
	Role        models.Role
	JoinedAt    int64
}

// Create creates a household with the caller as its admin.
func (s *HouseholdService) Create(ctx context.Context, userID, name, currency string) (*models.Household, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, calculator.NewValidationError("household name cannot be empty")
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if len(currency) != 3 {
		return nil, calculator.NewValidationError("currency must be a 3-letter ISO code, got %q", currency)
	}

	code, err := newInviteCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate invite code: %w", err)
	}

	household := &models.Household{
		Name:       name,
		Currency:   currency,
		InviteCode: code,
		CreatedBy:  userID,
	}
	admin := &models.HouseholdMember{UserID: userID, Role: models.RoleAdmin}
	if err := s.store.CreateHousehold(ctx, household, admin); err != nil {
		return nil, fmt.Errorf("failed to create household: %w", err)
	}

	slog.Info("household created", "household_id", household.ID, "created_by", userID)
	return household, nil
}

// Join adds the caller to the household matching the invite code.
func (s *HouseholdService) Join(ctx context.Context, userID, inviteCode string) (*models.Household, error) {
	inviteCode = strings.ToUpper(strings.TrimSpace(inviteCode))
	if inviteCode == "" {
		return nil, calculator.NewValidationError("invite code cannot be empty")
	}

	household, err := s.store.GetHouseholdByInviteCode(ctx, inviteCode)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.GetMember(ctx, household.ID, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyMember
	}

	member := &models.HouseholdMember{
		HouseholdID: household.ID,
		UserID:      userID,
		Role:        models.RoleMember,
		JoinedAt:    time.Now().Unix(),
	}
	if err := s.store.AddMember(ctx, member); err != nil {
		return nil, fmt.Errorf("failed to add member: %w", err)
	}

	s.events.Log(eventlog.NewEvent(household.ID, eventlog.TypeMemberJoined,
		eventlog.WithActor(userID),
	))
	slog.Info("member joined household", "household_id", household.ID, "user_id", userID)
	return household, nil
}

// ListForUser lists the households the caller belongs to.
func (s *HouseholdService) ListForUser(ctx context.Context, userID string) ([]*models.Household, error) {
	return s.store.ListHouseholdsByUser(ctx, userID)
}

// Get returns a household; the caller must be a member.
func (s *HouseholdService) Get(ctx context.Context, userID, householdID string) (*models.Household, error) {
	if err := s.requireMember(ctx, householdID, userID); err != nil {
		return nil, err
	}
	return s.store.GetHousehold(ctx, householdID)
}

// Members returns a household's member list with user details.
func (s *HouseholdService) Members(ctx context.Context, userID, householdID string) ([]MemberView, error) {
	if err := s.requireMember(ctx, householdID, userID); err != nil {
		return nil, err
	}

	members, err := s.store.ListMembers(ctx, householdID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.UserID
	}
	users, err := s.store.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]MemberView, len(members))
	for i, m := range members {
		views[i] = MemberView{
			UserID:   m.UserID,
			Role:     m.Role,
			JoinedAt: m.JoinedAt,
		}
		if user, ok := users[m.UserID]; ok {
			views[i].DisplayName = user.DisplayName
			views[i].Email = user.Email
		}
	}
	return views, nil
}

func (s *HouseholdService) requireMember(ctx context.Context, householdID, userID string) error {
	member, err := s.store.GetMember(ctx, householdID, userID)
	if err != nil {
		return err
	}
	if member == nil {
		return ErrNotMember
	}
	return nil
}

// newInviteCode generates an 8-character code from the unambiguous
// alphabet.
func newInviteCode() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	code := make([]byte, len(buf))
	for i, b := range buf {
		code[i] = inviteCodeAlphabet[int(b)%len(inviteCodeAlphabet)]
	}
	return string(code), nil
}
