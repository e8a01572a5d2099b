package service

import (
	"context"
	"errors"
	"testing"

	"github.com/kmoroz/splithaus/internal/calculator"
	"github.com/kmoroz/splithaus/internal/models"
	"github.com/kmoroz/splithaus/internal/storage"
)

func TestCreateHousehold(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	t.Run("normalizes currency and generates invite code", func(t *testing.T) {
		household, err := env.households.Create(ctx, env.alice.ID, "  Lake House ", "usd")
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if household.Name != "Lake House" || household.Currency != "USD" {
			t.Errorf("household = %+v, want trimmed name and upper-cased currency", household)
		}
		if len(household.InviteCode) != 8 {
			t.Errorf("invite code = %q, want 8 characters", household.InviteCode)
		}
	})

	t.Run("rejects bad input", func(t *testing.T) {
		var verr *calculator.ValidationError
		if _, err := env.households.Create(ctx, env.alice.ID, "", "EUR"); !errors.As(err, &verr) {
			t.Errorf("empty name error = %v, want *ValidationError", err)
		}
		if _, err := env.households.Create(ctx, env.alice.ID, "Cabin", "EURO"); !errors.As(err, &verr) {
			t.Errorf("bad currency error = %v, want *ValidationError", err)
		}
	})
}

func TestJoinHousehold(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	t.Run("joining twice is rejected", func(t *testing.T) {
		if _, err := env.households.Join(ctx, env.bob.ID, env.home.InviteCode); !errors.Is(err, ErrAlreadyMember) {
			t.Errorf("Join error = %v, want ErrAlreadyMember", err)
		}
	})

	t.Run("unknown code is not found", func(t *testing.T) {
		if _, err := env.households.Join(ctx, env.bob.ID, "WRONGCOD"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Join error = %v, want ErrNotFound", err)
		}
	})

	t.Run("code is case-insensitive", func(t *testing.T) {
		dave := models.NewUser("dave@example.com", "Dave", "hash")
		if err := env.store.CreateUser(ctx, dave); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
		lower := []byte(env.home.InviteCode)
		for i := range lower {
			lower[i] |= 0x20
		}
		if _, err := env.households.Join(ctx, dave.ID, string(lower)); err != nil {
			t.Fatalf("Join with lower-cased code failed: %v", err)
		}
	})
}

func TestHouseholdMembers(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	members, err := env.households.Members(ctx, env.alice.ID, env.home.ID)
	if err != nil {
		t.Fatalf("Members failed: %v", err)
	}
	if len(members) != 3 {
		t.Fatalf("got %d members, want 3", len(members))
	}
	if members[0].UserID != env.alice.ID || members[0].Role != models.RoleAdmin {
		t.Errorf("members[0] = %+v, want creator as admin", members[0])
	}
	if members[0].DisplayName != "Alice" || members[0].Email != "alice@example.com" {
		t.Errorf("members[0] = %+v, want user details joined in", members[0])
	}

	t.Run("non-member cannot list", func(t *testing.T) {
		if _, err := env.households.Members(ctx, "stranger", env.home.ID); !errors.Is(err, ErrNotMember) {
			t.Errorf("Members error = %v, want ErrNotMember", err)
		}
	})
}

func TestListForUser(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	second, err := env.households.Create(ctx, env.bob.ID, "Ski Cabin", "CHF")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	households, err := env.households.ListForUser(ctx, env.bob.ID)
	if err != nil {
		t.Fatalf("ListForUser failed: %v", err)
	}
	if len(households) != 2 {
		t.Fatalf("got %d households, want 2", len(households))
	}

	aliceHouseholds, err := env.households.ListForUser(ctx, env.alice.ID)
	if err != nil {
		t.Fatalf("ListForUser failed: %v", err)
	}
	for _, h := range aliceHouseholds {
		if h.ID == second.ID {
			t.Errorf("alice should not see %q", second.Name)
		}
	}
}
