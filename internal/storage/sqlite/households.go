package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kmoroz/splithaus/internal/models"
	"github.com/kmoroz/splithaus/internal/storage"
)

// CreateHousehold persists a household and its first (admin) member in
// one transaction.
func (s *SQLiteStore) CreateHousehold(ctx context.Context, household *models.Household, admin *models.HouseholdMember) error {
	if household.ID == "" {
		household.ID = uuid.New().String()
	}
	if household.CreatedAt == 0 {
		household.CreatedAt = time.Now().Unix()
	}
	admin.HouseholdID = household.ID
	if admin.JoinedAt == 0 {
		admin.JoinedAt = household.CreatedAt
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO households (id, name, currency, invite_code, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		household.ID, household.Name, household.Currency, household.InviteCode,
		household.CreatedBy, household.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert household: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO household_members (household_id, user_id, role, joined_at)
		 VALUES (?, ?, ?, ?)`,
		admin.HouseholdID, admin.UserID, admin.Role, admin.JoinedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert admin member: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetHousehold retrieves a household by ID.
func (s *SQLiteStore) GetHousehold(ctx context.Context, id string) (*models.Household, error) {
	return s.getHousehold(ctx, "id", id)
}

// GetHouseholdByInviteCode retrieves a household by its invite code.
func (s *SQLiteStore) GetHouseholdByInviteCode(ctx context.Context, code string) (*models.Household, error) {
	return s.getHousehold(ctx, "invite_code", code)
}

func (s *SQLiteStore) getHousehold(ctx context.Context, column, value string) (*models.Household, error) {
	query := fmt.Sprintf(`
		SELECT id, name, currency, invite_code, created_by, created_at
		FROM households WHERE %s = ?
	`, column)

	household := &models.Household{}
	err := s.db.QueryRowContext(ctx, query, value).Scan(
		&household.ID, &household.Name, &household.Currency,
		&household.InviteCode, &household.CreatedBy, &household.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("household %s: %w", value, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get household: %w", err)
	}
	return household, nil
}

// ListHouseholdsByUser lists every household the user is a member of.
func (s *SQLiteStore) ListHouseholdsByUser(ctx context.Context, userID string) ([]*models.Household, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT h.id, h.name, h.currency, h.invite_code, h.created_by, h.created_at
		 FROM households h
		 JOIN household_members m ON m.household_id = h.id
		 WHERE m.user_id = ?
		 ORDER BY h.created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list households: %w", err)
	}
	defer rows.Close()

	var households []*models.Household
	for rows.Next() {
		h := &models.Household{}
		if err := rows.Scan(&h.ID, &h.Name, &h.Currency, &h.InviteCode, &h.CreatedBy, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan household: %w", err)
		}
		households = append(households, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate households: %w", err)
	}
	return households, nil
}

// AddMember adds a user to a household.
func (s *SQLiteStore) AddMember(ctx context.Context, member *models.HouseholdMember) error {
	if member.JoinedAt == 0 {
		member.JoinedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO household_members (household_id, user_id, role, joined_at)
		 VALUES (?, ?, ?, ?)`,
		member.HouseholdID, member.UserID, member.Role, member.JoinedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert member: %w", err)
	}
	return nil
}

// GetMember retrieves the membership row for (household, user).
// Returns (nil, nil) when the user is not a member.
func (s *SQLiteStore) GetMember(ctx context.Context, householdID, userID string) (*models.HouseholdMember, error) {
	member := &models.HouseholdMember{}
	err := s.db.QueryRowContext(ctx,
		`SELECT household_id, user_id, role, joined_at
		 FROM household_members WHERE household_id = ? AND user_id = ?`,
		householdID, userID,
	).Scan(&member.HouseholdID, &member.UserID, &member.Role, &member.JoinedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return member, nil
}

// ListMembers lists a household's members in join order. joined_at has
// one-second resolution, so insertion order (rowid) is the tiebreaker
// that keeps the creator first when others join within the same second.
func (s *SQLiteStore) ListMembers(ctx context.Context, householdID string) ([]*models.HouseholdMember, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT household_id, user_id, role, joined_at
		 FROM household_members WHERE household_id = ?
		 ORDER BY rowid`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []*models.HouseholdMember
	for rows.Next() {
		m := &models.HouseholdMember{}
		if err := rows.Scan(&m.HouseholdID, &m.UserID, &m.Role, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}
	return members, nil
}
