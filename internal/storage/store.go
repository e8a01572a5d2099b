// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/kmoroz/splithaus/internal/eventlog"
	"github.com/kmoroz/splithaus/internal/models"
)

// ErrNotFound is returned when a requested entity does not exist.
// Wrapped with entity details by implementations; check with errors.Is.
var ErrNotFound = errors.New("not found")

// ErrAlreadyPaid is returned when marking a share paid that already is.
var ErrAlreadyPaid = errors.New("share is already paid")

// ErrNotPaid is returned when reverting a share that is not paid.
var ErrNotPaid = errors.New("share is not paid")

// Store defines the interface for household expense storage.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL,
// etc.) without changing the service layer.
type Store interface {
	// CreateUser inserts a new user.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail retrieves a user by email.
	// Returns (nil, nil) when no such user exists.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID retrieves a user by ID.
	// Returns (nil, nil) when no such user exists.
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// GetUsersByIDs retrieves multiple users keyed by ID.
	// Users that don't exist are omitted from the result.
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)

	// CreateHousehold persists a household together with its first
	// (admin) member, atomically.
	CreateHousehold(ctx context.Context, household *models.Household, admin *models.HouseholdMember) error

	// GetHousehold retrieves a household by ID.
	GetHousehold(ctx context.Context, id string) (*models.Household, error)

	// GetHouseholdByInviteCode retrieves a household by invite code.
	GetHouseholdByInviteCode(ctx context.Context, code string) (*models.Household, error)

	// ListHouseholdsByUser lists the households the user belongs to.
	ListHouseholdsByUser(ctx context.Context, userID string) ([]*models.Household, error)

	// AddMember adds a user to a household.
	AddMember(ctx context.Context, member *models.HouseholdMember) error

	// GetMember retrieves a membership row.
	// Returns (nil, nil) when the user is not a member.
	GetMember(ctx context.Context, householdID, userID string) (*models.HouseholdMember, error)

	// ListMembers lists a household's members ordered by join time.
	ListMembers(ctx context.Context, householdID string) ([]*models.HouseholdMember, error)

	// CreateExpense persists an expense and its shares atomically.
	// IDs and CreatedAt are populated by the store when unset.
	CreateExpense(ctx context.Context, expense *models.Expense) error

	// GetExpense retrieves an expense with its shares.
	GetExpense(ctx context.Context, id string) (*models.Expense, error)

	// ListExpensesByHousehold lists a household's expenses, newest
	// first, each with its shares.
	ListExpensesByHousehold(ctx context.Context, householdID string) ([]*models.Expense, error)

	// DeleteExpense removes an expense; its shares cascade.
	DeleteExpense(ctx context.Context, id string) error

	// GetShare retrieves a single share by ID.
	GetShare(ctx context.Context, id string) (*models.ExpenseShare, error)

	// MarkSharePaid transitions a share unpaid -> paid. Returns an
	// error if the share is already paid, so two simultaneous payment
	// actions cannot double-count.
	MarkSharePaid(ctx context.Context, shareID string, paidAt int64) error

	// MarkShareUnpaid reverts a paid share (the delete-payment action).
	MarkShareUnpaid(ctx context.Context, shareID string) error

	// SaveEvent persists an activity-log event.
	SaveEvent(ctx context.Context, event eventlog.Event) error

	// ListEventsByHousehold lists a household's activity, newest first,
	// up to limit entries.
	ListEventsByHousehold(ctx context.Context, householdID string, limit int) ([]eventlog.Event, error)

	// Close releases any resources held by the store.
	Close() error
}
