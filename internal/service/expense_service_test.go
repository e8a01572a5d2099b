package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/kmoroz/splithaus/internal/calculator"
	"github.com/kmoroz/splithaus/internal/eventlog"
	"github.com/kmoroz/splithaus/internal/models"
	"github.com/kmoroz/splithaus/internal/storage/sqlite"
)

type testEnv struct {
	store      *sqlite.SQLiteStore
	events     *eventlog.Worker
	households *HouseholdService
	expenses   *ExpenseService

	alice *models.User
	bob   *models.User
	carol *models.User
	home  *models.Household
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "splithaus-service-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := sqlite.New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	events := eventlog.NewWorker(store, 64)
	events.Start()
	t.Cleanup(events.Shutdown)

	env := &testEnv{
		store:      store,
		events:     events,
		households: NewHouseholdService(store, events),
		expenses:   NewExpenseService(store, events),
	}

	ctx := context.Background()
	for _, u := range []struct {
		email string
		name  string
		dst   **models.User
	}{
		{"alice@example.com", "Alice", &env.alice},
		{"bob@example.com", "Bob", &env.bob},
		{"carol@example.com", "Carol", &env.carol},
	} {
		user := models.NewUser(u.email, u.name, "hash")
		if err := store.CreateUser(ctx, user); err != nil {
			t.Fatalf("failed to create user %s: %v", u.email, err)
		}
		*u.dst = user
	}

	env.home, err = env.households.Create(ctx, env.alice.ID, "Maple St", "eur")
	if err != nil {
		t.Fatalf("failed to create household: %v", err)
	}
	for _, user := range []*models.User{env.bob, env.carol} {
		if _, err := env.households.Join(ctx, user.ID, env.home.InviteCode); err != nil {
			t.Fatalf("failed to join household: %v", err)
		}
	}
	return env
}

func (env *testEnv) equalExpense(amountCents int64) ExpenseInput {
	return ExpenseInput{
		HouseholdID:  env.home.ID,
		CreatorID:    env.alice.ID,
		Description:  "Groceries",
		AmountCents:  amountCents,
		SplitMethod:  models.SplitEqual,
		Participants: []string{env.alice.ID, env.bob.ID, env.carol.ID},
	}
}

func TestCreateExpense(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	expense, err := env.expenses.Create(ctx, env.equalExpense(1000))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if expense.Currency != "EUR" {
		t.Errorf("currency = %s, want household default EUR", expense.Currency)
	}
	if len(expense.Shares) != 3 {
		t.Fatalf("got %d shares, want 3", len(expense.Shares))
	}

	var sum int64
	for _, share := range expense.Shares {
		sum += share.AmountCents
	}
	if sum != 1000 {
		t.Errorf("shares sum to %d cents, want exactly 1000", sum)
	}

	// Creator listed first, so the extra remainder cent lands on them.
	if expense.Shares[0].UserID != env.alice.ID || expense.Shares[0].AmountCents != 334 {
		t.Errorf("share[0] = %+v, want alice with 334 cents", expense.Shares[0])
	}
	if !expense.Shares[0].Paid {
		t.Error("creator's own share should be auto-settled")
	}
	if expense.Shares[1].Paid || expense.Shares[2].Paid {
		t.Error("other members' shares should start unpaid")
	}

	// Persisted, not just returned.
	stored, err := env.expenses.Get(ctx, env.bob.ID, expense.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(stored.Shares) != 3 {
		t.Errorf("stored expense has %d shares, want 3", len(stored.Shares))
	}
}

func TestCreateExpenseValidation(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*ExpenseInput)
	}{
		{"empty description", func(in *ExpenseInput) { in.Description = "  " }},
		{"zero amount", func(in *ExpenseInput) { in.AmountCents = 0 }},
		{"no participants", func(in *ExpenseInput) { in.Participants = nil }},
		{"unknown method", func(in *ExpenseInput) { in.SplitMethod = "weighted" }},
		{"participant outside household", func(in *ExpenseInput) {
			in.Participants = append(in.Participants, "stranger")
		}},
		{"custom amounts mismatch", func(in *ExpenseInput) {
			in.SplitMethod = models.SplitCustom
			in.AmountsCents = map[string]int64{
				env.alice.ID: 400, env.bob.ID: 400, env.carol.ID: 199,
			}
		}},
		{"percentages off", func(in *ExpenseInput) {
			in.SplitMethod = models.SplitPercentage
			in.Percentages = map[string]float64{
				env.alice.ID: 50, env.bob.ID: 30, env.carol.ID: 30,
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := env.equalExpense(1000)
			tt.mutate(&in)

			_, err := env.expenses.Create(ctx, in)
			var verr *calculator.ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("Create error = %v, want *ValidationError", err)
			}
		})
	}

	t.Run("non-member creator", func(t *testing.T) {
		in := env.equalExpense(1000)
		in.CreatorID = "stranger"
		if _, err := env.expenses.Create(ctx, in); !errors.Is(err, ErrNotMember) {
			t.Errorf("Create error = %v, want ErrNotMember", err)
		}
	})
}

func TestPreviewDoesNotPersist(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	shares, err := env.expenses.Preview(ctx, env.equalExpense(1000))
	if err != nil {
		t.Fatalf("Preview failed: %v", err)
	}
	want := []int64{334, 333, 333}
	for i, share := range shares {
		if share.AmountCents != want[i] {
			t.Errorf("share[%d] = %d cents, want %d", i, share.AmountCents, want[i])
		}
	}

	expenses, err := env.expenses.List(ctx, env.alice.ID, env.home.ID)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(expenses) != 0 {
		t.Errorf("preview persisted %d expenses, want 0", len(expenses))
	}
}

func TestPayShare(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	expense, err := env.expenses.Create(ctx, env.equalExpense(900))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	bobShare := expense.Shares[1]

	t.Run("owner can pay", func(t *testing.T) {
		if err := env.expenses.PayShare(ctx, env.bob.ID, bobShare.ID); err != nil {
			t.Fatalf("PayShare failed: %v", err)
		}
		stored, err := env.store.GetShare(ctx, bobShare.ID)
		if err != nil {
			t.Fatalf("GetShare failed: %v", err)
		}
		if !stored.Paid || stored.PaidAt == 0 {
			t.Errorf("share = %+v, want paid with timestamp", stored)
		}
	})

	t.Run("double pay rejected", func(t *testing.T) {
		if err := env.expenses.PayShare(ctx, env.bob.ID, bobShare.ID); err == nil {
			t.Error("expected error paying an already-paid share")
		}
	})

	t.Run("unrelated member cannot pay", func(t *testing.T) {
		carolShare := expense.Shares[2]
		if err := env.expenses.PayShare(ctx, env.bob.ID, carolShare.ID); !errors.Is(err, ErrPermissionDenied) {
			t.Errorf("PayShare error = %v, want ErrPermissionDenied", err)
		}
	})

	t.Run("creator can record payment for others", func(t *testing.T) {
		carolShare := expense.Shares[2]
		if err := env.expenses.PayShare(ctx, env.alice.ID, carolShare.ID); err != nil {
			t.Fatalf("PayShare by creator failed: %v", err)
		}
	})

	t.Run("unpay reverts", func(t *testing.T) {
		if err := env.expenses.UnpayShare(ctx, env.bob.ID, bobShare.ID); err != nil {
			t.Fatalf("UnpayShare failed: %v", err)
		}
		stored, err := env.store.GetShare(ctx, bobShare.ID)
		if err != nil {
			t.Fatalf("GetShare failed: %v", err)
		}
		if stored.Paid || stored.PaidAt != 0 {
			t.Errorf("share = %+v, want unpaid", stored)
		}
	})
}

func TestDeleteExpense(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	t.Run("creator can delete unsettled expense", func(t *testing.T) {
		expense, err := env.expenses.Create(ctx, env.equalExpense(900))
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if err := env.expenses.Delete(ctx, env.alice.ID, expense.ID); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
	})

	t.Run("plain member cannot delete others' expense", func(t *testing.T) {
		expense, err := env.expenses.Create(ctx, env.equalExpense(900))
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if err := env.expenses.Delete(ctx, env.bob.ID, expense.ID); !errors.Is(err, ErrPermissionDenied) {
			t.Errorf("Delete error = %v, want ErrPermissionDenied", err)
		}
		// Admin can, though.
		if err := env.expenses.Delete(ctx, env.alice.ID, expense.ID); err != nil {
			t.Fatalf("Delete by admin failed: %v", err)
		}
	})

	t.Run("locked once another member paid", func(t *testing.T) {
		expense, err := env.expenses.Create(ctx, env.equalExpense(900))
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if err := env.expenses.PayShare(ctx, env.bob.ID, expense.Shares[1].ID); err != nil {
			t.Fatalf("PayShare failed: %v", err)
		}
		if err := env.expenses.Delete(ctx, env.alice.ID, expense.ID); !errors.Is(err, ErrExpenseLocked) {
			t.Errorf("Delete error = %v, want ErrExpenseLocked", err)
		}
	})
}

func TestBalances(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	// Alice fronts 90.00 split three ways; her share is auto-settled,
	// bob and carol each owe 30.00.
	if _, err := env.expenses.Create(ctx, env.equalExpense(9000)); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	t.Run("own balance", func(t *testing.T) {
		balance, err := env.expenses.Balance(ctx, env.alice.ID, env.home.ID)
		if err != nil {
			t.Fatalf("Balance failed: %v", err)
		}
		if balance.OwedToUserCents != 6000 || balance.UserOwesCents != 0 || balance.NetCents != 6000 {
			t.Errorf("alice balance = %+v, want owed-to 6000, owes 0", balance)
		}

		bobBalance, err := env.expenses.Balance(ctx, env.bob.ID, env.home.ID)
		if err != nil {
			t.Fatalf("Balance failed: %v", err)
		}
		if bobBalance.NetCents != -3000 {
			t.Errorf("bob net = %d cents, want -3000", bobBalance.NetCents)
		}
	})

	t.Run("household balances and settlements", func(t *testing.T) {
		balances, settlements, err := env.expenses.Balances(ctx, env.alice.ID, env.home.ID)
		if err != nil {
			t.Fatalf("Balances failed: %v", err)
		}
		if len(balances) != 3 {
			t.Fatalf("got %d balances, want 3", len(balances))
		}
		if balances[0].UserID != env.alice.ID || balances[0].DisplayName != "Alice" {
			t.Errorf("balances[0] = %+v, want alice first with name", balances[0])
		}

		var net int64
		for _, b := range balances {
			net += b.NetCents
		}
		if net != 0 {
			t.Errorf("household nets sum to %d cents, want 0", net)
		}

		if len(settlements) != 2 {
			t.Fatalf("got %d settlements, want 2", len(settlements))
		}
		for _, s := range settlements {
			if s.ToUserID != env.alice.ID || s.AmountCents != 3000 {
				t.Errorf("settlement = %+v, want 3000 cents to alice", s)
			}
		}
	})

	t.Run("non-member cannot query", func(t *testing.T) {
		if _, err := env.expenses.Balance(ctx, "stranger", env.home.ID); !errors.Is(err, ErrNotMember) {
			t.Errorf("Balance error = %v, want ErrNotMember", err)
		}
	})
}

func TestActivity(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	expense, err := env.expenses.Create(ctx, env.equalExpense(900))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := env.expenses.PayShare(ctx, env.bob.ID, expense.Shares[1].ID); err != nil {
		t.Fatalf("PayShare failed: %v", err)
	}

	// The worker writes asynchronously; drain it before asserting.
	env.events.Shutdown()

	events, err := env.expenses.Activity(ctx, env.alice.ID, env.home.ID, 10)
	if err != nil {
		t.Fatalf("Activity failed: %v", err)
	}

	types := make(map[eventlog.Type]int)
	for _, e := range events {
		types[e.Type]++
	}
	if types[eventlog.TypeMemberJoined] != 2 {
		t.Errorf("member_joined events = %d, want 2", types[eventlog.TypeMemberJoined])
	}
	if types[eventlog.TypeExpenseCreated] != 1 || types[eventlog.TypeSharePaid] != 1 {
		t.Errorf("event counts = %v, want one expense_created and one share_paid", types)
	}
}
