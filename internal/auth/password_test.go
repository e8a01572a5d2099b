package auth

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/kmoroz/splithaus/internal/models"
)

// stubStorage is an in-memory UserStorage with an injectable lookup
// failure.
type stubStorage struct {
	users     map[string]*models.User
	lookupErr error
}

func newStubStorage() *stubStorage {
	return &stubStorage{users: make(map[string]*models.User)}
}

func (s *stubStorage) CreateUser(ctx context.Context, user *models.User) error {
	s.users[user.Email] = user
	return nil
}

func (s *stubStorage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	return s.users[email], nil
}

func (s *stubStorage) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("creates user with hashed password", func(t *testing.T) {
		a := NewPasswordAuthenticator(newStubStorage())
		user, err := a.Register(ctx, "alice@example.com", "Alice", "sufficiently-long")
		if err != nil {
			t.Fatalf("Register failed: %v", err)
		}
		if user.PasswordHash == "sufficiently-long" {
			t.Error("password stored in plaintext")
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("sufficiently-long")); err != nil {
			t.Errorf("stored hash does not match password: %v", err)
		}
	})

	t.Run("rejects weak password", func(t *testing.T) {
		a := NewPasswordAuthenticator(newStubStorage())
		if _, err := a.Register(ctx, "alice@example.com", "Alice", "short"); !errors.Is(err, ErrWeakPassword) {
			t.Errorf("got %v, want ErrWeakPassword", err)
		}
	})

	t.Run("rejects duplicate email", func(t *testing.T) {
		a := NewPasswordAuthenticator(newStubStorage())
		if _, err := a.Register(ctx, "alice@example.com", "Alice", "sufficiently-long"); err != nil {
			t.Fatalf("first Register failed: %v", err)
		}
		if _, err := a.Register(ctx, "alice@example.com", "Alice II", "sufficiently-long"); !errors.Is(err, ErrEmailExists) {
			t.Errorf("got %v, want ErrEmailExists", err)
		}
	})

	t.Run("propagates lookup failure", func(t *testing.T) {
		store := newStubStorage()
		store.lookupErr = errors.New("disk on fire")
		a := NewPasswordAuthenticator(store)
		_, err := a.Register(ctx, "alice@example.com", "Alice", "sufficiently-long")
		if !errors.Is(err, store.lookupErr) {
			t.Errorf("got %v, want the storage error", err)
		}
		if len(store.users) != 0 {
			t.Error("user was created despite the failed duplicate check")
		}
	})
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	store := newStubStorage()
	a := NewPasswordAuthenticator(store)
	if _, err := a.Register(ctx, "alice@example.com", "Alice", "sufficiently-long"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	t.Run("valid credentials", func(t *testing.T) {
		user, err := a.Authenticate(ctx, "alice@example.com", "sufficiently-long")
		if err != nil {
			t.Fatalf("Authenticate failed: %v", err)
		}
		if user.Email != "alice@example.com" {
			t.Errorf("got user %q", user.Email)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		if _, err := a.Authenticate(ctx, "alice@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("got %v, want ErrInvalidCredentials", err)
		}
	})

	t.Run("unknown email", func(t *testing.T) {
		if _, err := a.Authenticate(ctx, "nobody@example.com", "sufficiently-long"); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("got %v, want ErrInvalidCredentials", err)
		}
	})
}
