package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/kmoroz/splithaus/internal/calculator"
	"github.com/kmoroz/splithaus/internal/eventlog"
	"github.com/kmoroz/splithaus/internal/models"
	"github.com/kmoroz/splithaus/internal/storage"
)

// ErrExpenseLocked means the expense has settled shares belonging to
// other members and can no longer be deleted.
var ErrExpenseLocked = errors.New("expense has paid shares and cannot be deleted")

// ExpenseService manages expenses, shares and balances.
type ExpenseService struct {
	store  storage.Store
	events *eventlog.Worker
}

// NewExpenseService creates an ExpenseService.
func NewExpenseService(store storage.Store, events *eventlog.Worker) *ExpenseService {
	return &ExpenseService{store: store, events: events}
}

// ExpenseInput carries everything needed to create or preview an
// expense. Amounts are integer minor units.
type ExpenseInput struct {
	HouseholdID  string
	CreatorID    string
	Description  string
	AmountCents  int64
	Currency     string
	SplitMethod  models.SplitMethod
	Category     string
	ExpenseDate  int64
	Participants []string
	Percentages  map[string]float64
	AmountsCents map[string]int64
}

// Create validates the input, computes the shares and persists the
// expense atomically. The creator's own share, when present, is marked
// paid immediately: the creator fronted the money, so they owe nothing
// on it.
func (s *ExpenseService) Create(ctx context.Context, in ExpenseInput) (*models.Expense, error) {
	expense, err := s.buildExpense(ctx, in)
	if err != nil {
		return nil, err
	}

	if err := s.store.CreateExpense(ctx, expense); err != nil {
		return nil, fmt.Errorf("failed to persist expense: %w", err)
	}

	s.events.Log(eventlog.NewEvent(expense.HouseholdID, eventlog.TypeExpenseCreated,
		eventlog.WithActor(expense.CreatorID),
		eventlog.WithData(map[string]string{
			"expense_id":   expense.ID,
			"description":  expense.Description,
			"amount_cents": strconv.FormatInt(expense.AmountCents, 10),
		}),
	))
	slog.Info("expense created",
		"expense_id", expense.ID,
		"household_id", expense.HouseholdID,
		"amount_cents", expense.AmountCents,
		"split_method", expense.SplitMethod,
	)
	return expense, nil
}

// Preview runs the same validation and split computation as Create but
// persists nothing. This is the single server-side implementation of
// the split arithmetic that clients call for live previews, instead of
// duplicating the math in the UI.
func (s *ExpenseService) Preview(ctx context.Context, in ExpenseInput) ([]calculator.Share, error) {
	expense, err := s.buildExpense(ctx, in)
	if err != nil {
		return nil, err
	}

	shares := make([]calculator.Share, len(expense.Shares))
	for i, share := range expense.Shares {
		shares[i] = calculator.Share{
			UserID:      share.UserID,
			AmountCents: share.AmountCents,
			Percentage:  share.SharePercentage,
		}
	}
	return shares, nil
}

// buildExpense validates membership and input, computes the split and
// assembles the expense model without persisting it.
func (s *ExpenseService) buildExpense(ctx context.Context, in ExpenseInput) (*models.Expense, error) {
	if err := s.requireMember(ctx, in.HouseholdID, in.CreatorID); err != nil {
		return nil, err
	}

	description := strings.TrimSpace(in.Description)
	if description == "" {
		return nil, calculator.NewValidationError("description cannot be empty")
	}

	household, err := s.store.GetHousehold(ctx, in.HouseholdID)
	if err != nil {
		return nil, err
	}

	members, err := s.store.ListMembers(ctx, in.HouseholdID)
	if err != nil {
		return nil, err
	}
	memberSet := make(map[string]bool, len(members))
	for _, m := range members {
		memberSet[m.UserID] = true
	}
	for _, p := range in.Participants {
		if !memberSet[p] {
			return nil, calculator.NewValidationError("participant %q is not a household member", p)
		}
	}

	shares, err := calculator.Compute(calculator.Input{
		TotalCents:   in.AmountCents,
		Method:       in.SplitMethod,
		Participants: in.Participants,
		Percentages:  in.Percentages,
		AmountsCents: in.AmountsCents,
	})
	if err != nil {
		return nil, err
	}

	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = household.Currency
	}

	expense := &models.Expense{
		HouseholdID: in.HouseholdID,
		CreatorID:   in.CreatorID,
		Description: description,
		AmountCents: in.AmountCents,
		Currency:    currency,
		SplitMethod: in.SplitMethod,
		Category:    strings.TrimSpace(in.Category),
		ExpenseDate: in.ExpenseDate,
		Shares:      make([]models.ExpenseShare, len(shares)),
	}
	for i, share := range shares {
		expense.Shares[i] = models.ExpenseShare{
			UserID:          share.UserID,
			AmountCents:     share.AmountCents,
			SharePercentage: share.Percentage,
			Paid:            share.UserID == in.CreatorID,
		}
	}
	return expense, nil
}

// Get returns an expense with its shares; the caller must be a member
// of its household.
func (s *ExpenseService) Get(ctx context.Context, userID, expenseID string) (*models.Expense, error) {
	expense, err := s.store.GetExpense(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, expense.HouseholdID, userID); err != nil {
		return nil, err
	}
	return expense, nil
}

// List returns a household's expenses, newest first.
func (s *ExpenseService) List(ctx context.Context, userID, householdID string) ([]*models.Expense, error) {
	if err := s.requireMember(ctx, householdID, userID); err != nil {
		return nil, err
	}
	return s.store.ListExpensesByHousehold(ctx, householdID)
}

// Delete removes an expense and its shares. Only the creator or a
// household admin may delete, and not once another member has settled a
// share.
func (s *ExpenseService) Delete(ctx context.Context, userID, expenseID string) error {
	expense, err := s.store.GetExpense(ctx, expenseID)
	if err != nil {
		return err
	}

	member, err := s.store.GetMember(ctx, expense.HouseholdID, userID)
	if err != nil {
		return err
	}
	if member == nil {
		return ErrNotMember
	}
	if expense.CreatorID != userID && member.Role != models.RoleAdmin {
		return ErrPermissionDenied
	}

	for _, share := range expense.Shares {
		// The creator's auto-settled share doesn't lock the expense.
		if share.Paid && share.UserID != expense.CreatorID {
			return ErrExpenseLocked
		}
	}

	if err := s.store.DeleteExpense(ctx, expenseID); err != nil {
		return err
	}

	s.events.Log(eventlog.NewEvent(expense.HouseholdID, eventlog.TypeExpenseDeleted,
		eventlog.WithActor(userID),
		eventlog.WithData(map[string]string{"expense_id": expenseID}),
	))
	return nil
}

// PayShare marks a share as paid. Allowed for the member who owes the
// share and for the expense creator (who may record a cash hand-over).
func (s *ExpenseService) PayShare(ctx context.Context, userID, shareID string) error {
	share, expense, err := s.shareForUpdate(ctx, userID, shareID)
	if err != nil {
		return err
	}

	if err := s.store.MarkSharePaid(ctx, share.ID, time.Now().Unix()); err != nil {
		return err
	}

	s.events.Log(eventlog.NewEvent(expense.HouseholdID, eventlog.TypeSharePaid,
		eventlog.WithActor(userID),
		eventlog.WithData(map[string]string{
			"share_id":     share.ID,
			"expense_id":   expense.ID,
			"amount_cents": strconv.FormatInt(share.AmountCents, 10),
		}),
	))
	return nil
}

// UnpayShare reverts a paid share (the delete-payment action).
func (s *ExpenseService) UnpayShare(ctx context.Context, userID, shareID string) error {
	share, expense, err := s.shareForUpdate(ctx, userID, shareID)
	if err != nil {
		return err
	}

	if err := s.store.MarkShareUnpaid(ctx, share.ID); err != nil {
		return err
	}

	s.events.Log(eventlog.NewEvent(expense.HouseholdID, eventlog.TypeShareUnpaid,
		eventlog.WithActor(userID),
		eventlog.WithData(map[string]string{
			"share_id":   share.ID,
			"expense_id": expense.ID,
		}),
	))
	return nil
}

func (s *ExpenseService) shareForUpdate(ctx context.Context, userID, shareID string) (*models.ExpenseShare, *models.Expense, error) {
	share, err := s.store.GetShare(ctx, shareID)
	if err != nil {
		return nil, nil, err
	}
	expense, err := s.store.GetExpense(ctx, share.ExpenseID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.requireMember(ctx, expense.HouseholdID, userID); err != nil {
		return nil, nil, err
	}
	if share.UserID != userID && expense.CreatorID != userID {
		return nil, nil, ErrPermissionDenied
	}
	return share, expense, nil
}

// Balance computes the caller's net position in a household.
func (s *ExpenseService) Balance(ctx context.Context, userID, householdID string) (calculator.Balance, error) {
	if err := s.requireMember(ctx, householdID, userID); err != nil {
		return calculator.Balance{}, err
	}

	expenses, shares, err := s.balanceRecords(ctx, householdID)
	if err != nil {
		return calculator.Balance{}, err
	}
	return calculator.UserBalance(userID, expenses, shares), nil
}

// MemberBalanceView is a member's balance joined with display details.
type MemberBalanceView struct {
	calculator.Balance
	DisplayName string
	Role        models.Role
}

// Balances computes every member's balance plus suggested settlements.
func (s *ExpenseService) Balances(ctx context.Context, userID, householdID string) ([]MemberBalanceView, []calculator.Settlement, error) {
	if err := s.requireMember(ctx, householdID, userID); err != nil {
		return nil, nil, err
	}

	members, err := s.store.ListMembers(ctx, householdID)
	if err != nil {
		return nil, nil, err
	}
	memberIDs := make([]string, len(members))
	for i, m := range members {
		memberIDs[i] = m.UserID
	}

	expenses, shares, err := s.balanceRecords(ctx, householdID)
	if err != nil {
		return nil, nil, err
	}

	balances := calculator.HouseholdBalances(memberIDs, expenses, shares)
	settlements := calculator.SuggestSettlements(balances)

	users, err := s.store.GetUsersByIDs(ctx, memberIDs)
	if err != nil {
		return nil, nil, err
	}
	views := make([]MemberBalanceView, len(balances))
	for i, balance := range balances {
		views[i] = MemberBalanceView{Balance: balance, Role: members[i].Role}
		if user, ok := users[balance.UserID]; ok {
			views[i].DisplayName = user.DisplayName
		}
	}
	return views, settlements, nil
}

// Activity returns the household's recent activity log.
func (s *ExpenseService) Activity(ctx context.Context, userID, householdID string, limit int) ([]eventlog.Event, error) {
	if err := s.requireMember(ctx, householdID, userID); err != nil {
		return nil, err
	}
	return s.store.ListEventsByHousehold(ctx, householdID, limit)
}

// balanceRecords projects a household's history into the calculator's
// input records.
func (s *ExpenseService) balanceRecords(ctx context.Context, householdID string) ([]calculator.ExpenseRecord, []calculator.ShareRecord, error) {
	expenses, err := s.store.ListExpensesByHousehold(ctx, householdID)
	if err != nil {
		return nil, nil, err
	}

	records := make([]calculator.ExpenseRecord, len(expenses))
	var shareRecords []calculator.ShareRecord
	for i, expense := range expenses {
		records[i] = calculator.ExpenseRecord{ID: expense.ID, CreatorID: expense.CreatorID}
		for _, share := range expense.Shares {
			shareRecords = append(shareRecords, calculator.ShareRecord{
				ExpenseID:   share.ExpenseID,
				UserID:      share.UserID,
				AmountCents: share.AmountCents,
				Paid:        share.Paid,
			})
		}
	}
	return records, shareRecords, nil
}

func (s *ExpenseService) requireMember(ctx context.Context, householdID, userID string) error {
	member, err := s.store.GetMember(ctx, householdID, userID)
	if err != nil {
		return err
	}
	if member == nil {
		return ErrNotMember
	}
	return nil
}
