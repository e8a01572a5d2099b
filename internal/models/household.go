package models

// Role is a member's role within a household.
type Role string

const (
	// RoleAdmin can manage members and delete any expense.
	RoleAdmin Role = "admin"
	// RoleMember can create expenses and settle their own shares.
	RoleMember Role = "member"
)

// Household is a group of users who share expenses.
type Household struct {
	// ID is the unique identifier for the household (UUID format).
	ID string

	// Name is the display name (e.g. "Maple St Apartment").
	Name string

	// Currency is the ISO 4217 code used for the household's expenses.
	Currency string

	// InviteCode is a short shareable code other users redeem to join.
	InviteCode string

	// CreatedBy is the user ID of the household's creator.
	CreatedBy string

	// CreatedAt is the Unix timestamp when the household was created.
	CreatedAt int64
}

// HouseholdMember links a user to a household with a role.
// Members define the eligible participant set for expense splitting.
type HouseholdMember struct {
	HouseholdID string
	UserID      string
	Role        Role

	// JoinedAt is the Unix timestamp when the user joined.
	JoinedAt int64
}
