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

// CreateExpense persists an expense and all of its shares in one
// transaction, so an expense can never exist with a partial share set.
func (s *SQLiteStore) CreateExpense(ctx context.Context, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().Unix()
	}
	if expense.ExpenseDate == 0 {
		expense.ExpenseDate = expense.CreatedAt
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var category interface{}
	if expense.Category != "" {
		category = expense.Category
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO expenses (id, household_id, creator_id, description, amount_cents,
		                       currency, split_method, category, expense_date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		expense.ID, expense.HouseholdID, expense.CreatorID, expense.Description,
		expense.AmountCents, expense.Currency, expense.SplitMethod, category,
		expense.ExpenseDate, expense.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	for i := range expense.Shares {
		share := &expense.Shares[i]
		if share.ID == "" {
			share.ID = uuid.New().String()
		}
		share.ExpenseID = expense.ID

		var pct interface{}
		if expense.SplitMethod == models.SplitPercentage {
			pct = share.SharePercentage
		}
		var paidAt interface{}
		if share.Paid {
			if share.PaidAt == 0 {
				share.PaidAt = expense.CreatedAt
			}
			paidAt = share.PaidAt
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO expense_shares (id, expense_id, user_id, amount_cents, share_percentage, is_paid, paid_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			share.ID, share.ExpenseID, share.UserID, share.AmountCents, pct, share.Paid, paidAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert share: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetExpense retrieves an expense by ID, including all of its shares.
func (s *SQLiteStore) GetExpense(ctx context.Context, id string) (*models.Expense, error) {
	expense := &models.Expense{}
	var category sql.NullString

	err := s.db.QueryRowContext(ctx,
		`SELECT id, household_id, creator_id, description, amount_cents,
		        currency, split_method, category, expense_date, created_at
		 FROM expenses WHERE id = ?`,
		id,
	).Scan(&expense.ID, &expense.HouseholdID, &expense.CreatorID, &expense.Description,
		&expense.AmountCents, &expense.Currency, &expense.SplitMethod, &category,
		&expense.ExpenseDate, &expense.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("expense %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	if category.Valid {
		expense.Category = category.String
	}

	shares, err := s.listShares(ctx, expense.ID)
	if err != nil {
		return nil, err
	}
	expense.Shares = shares
	return expense, nil
}

// ListExpensesByHousehold lists a household's expenses, newest first,
// each with its shares.
func (s *SQLiteStore) ListExpensesByHousehold(ctx context.Context, householdID string) ([]*models.Expense, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, household_id, creator_id, description, amount_cents,
		        currency, split_method, category, expense_date, created_at
		 FROM expenses WHERE household_id = ?
		 ORDER BY expense_date DESC, created_at DESC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*models.Expense
	for rows.Next() {
		expense := &models.Expense{}
		var category sql.NullString
		if err := rows.Scan(&expense.ID, &expense.HouseholdID, &expense.CreatorID,
			&expense.Description, &expense.AmountCents, &expense.Currency,
			&expense.SplitMethod, &category, &expense.ExpenseDate, &expense.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		if category.Valid {
			expense.Category = category.String
		}
		expenses = append(expenses, expense)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}

	for _, expense := range expenses {
		shares, err := s.listShares(ctx, expense.ID)
		if err != nil {
			return nil, err
		}
		expense.Shares = shares
	}
	return expenses, nil
}

func (s *SQLiteStore) listShares(ctx context.Context, expenseID string) ([]models.ExpenseShare, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, expense_id, user_id, amount_cents, share_percentage, is_paid, paid_at
		 FROM expense_shares WHERE expense_id = ?
		 ORDER BY rowid`,
		expenseID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get shares: %w", err)
	}
	defer rows.Close()

	var shares []models.ExpenseShare
	for rows.Next() {
		var share models.ExpenseShare
		var pct sql.NullFloat64
		var paidAt sql.NullInt64
		if err := rows.Scan(&share.ID, &share.ExpenseID, &share.UserID,
			&share.AmountCents, &pct, &share.Paid, &paidAt); err != nil {
			return nil, fmt.Errorf("failed to scan share: %w", err)
		}
		if pct.Valid {
			share.SharePercentage = pct.Float64
		}
		if paidAt.Valid {
			share.PaidAt = paidAt.Int64
		}
		shares = append(shares, share)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate shares: %w", err)
	}
	return shares, nil
}

// DeleteExpense removes an expense; its shares cascade.
func (s *SQLiteStore) DeleteExpense(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM expenses WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("expense %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

// GetShare retrieves a single share by ID.
func (s *SQLiteStore) GetShare(ctx context.Context, id string) (*models.ExpenseShare, error) {
	share := &models.ExpenseShare{}
	var pct sql.NullFloat64
	var paidAt sql.NullInt64

	err := s.db.QueryRowContext(ctx,
		`SELECT id, expense_id, user_id, amount_cents, share_percentage, is_paid, paid_at
		 FROM expense_shares WHERE id = ?`,
		id,
	).Scan(&share.ID, &share.ExpenseID, &share.UserID, &share.AmountCents, &pct, &share.Paid, &paidAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("share %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get share: %w", err)
	}
	if pct.Valid {
		share.SharePercentage = pct.Float64
	}
	if paidAt.Valid {
		share.PaidAt = paidAt.Int64
	}
	return share, nil
}

// MarkSharePaid transitions a share unpaid -> paid. The WHERE clause
// guards the transition so two concurrent payment actions on the same
// share cannot both succeed.
func (s *SQLiteStore) MarkSharePaid(ctx context.Context, shareID string, paidAt int64) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE expense_shares SET is_paid = 1, paid_at = ? WHERE id = ? AND is_paid = 0",
		paidAt, shareID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark share paid: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		// Distinguish missing from already-paid for the caller.
		if _, err := s.GetShare(ctx, shareID); err != nil {
			return err
		}
		return fmt.Errorf("share %s: %w", shareID, storage.ErrAlreadyPaid)
	}
	return nil
}

// MarkShareUnpaid reverts a paid share back to unpaid.
func (s *SQLiteStore) MarkShareUnpaid(ctx context.Context, shareID string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE expense_shares SET is_paid = 0, paid_at = NULL WHERE id = ? AND is_paid = 1",
		shareID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark share unpaid: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		if _, err := s.GetShare(ctx, shareID); err != nil {
			return err
		}
		return fmt.Errorf("share %s: %w", shareID, storage.ErrNotPaid)
	}
	return nil
}
