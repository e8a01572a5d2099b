package models

// SplitMethod is the rule used to divide an expense total into shares.
type SplitMethod string

const (
	// SplitEqual divides the total evenly among participants.
	SplitEqual SplitMethod = "equal"
	// SplitPercentage divides the total by per-participant percentages.
	SplitPercentage SplitMethod = "percentage"
	// SplitCustom uses caller-supplied per-participant amounts verbatim.
	SplitCustom SplitMethod = "custom"
)

// Valid reports whether m is a known split method.
func (m SplitMethod) Valid() bool {
	switch m {
	case SplitEqual, SplitPercentage, SplitCustom:
		return true
	}
	return false
}

// Expense is a single spending event attributed to a household.
//
// All money is stored as integer minor units (cents). Decimal formatting
// happens at the presentation boundary only.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// HouseholdID is the household this expense belongs to.
	HouseholdID string

	// CreatorID is the user who paid and recorded the expense.
	CreatorID string

	// Description is what the expense was for (e.g. "Groceries").
	Description string

	// AmountCents is the total amount in minor units. Always positive.
	AmountCents int64

	// Currency is the ISO 4217 code. Defaults to the household currency.
	Currency string

	// SplitMethod is how the total was divided into shares.
	SplitMethod SplitMethod

	// Category is an optional free-form label (e.g. "groceries", "rent").
	Category string

	// ExpenseDate is the Unix timestamp of when the spending happened.
	ExpenseDate int64

	// CreatedAt is the Unix timestamp when the expense was recorded.
	CreatedAt int64

	// Shares are the per-member portions. Created atomically with the
	// expense; their amounts sum exactly to AmountCents.
	Shares []ExpenseShare
}

// ExpenseShare is one household member's portion of an expense.
type ExpenseShare struct {
	// ID is the unique identifier for the share (UUID format).
	ID string

	// ExpenseID is the expense this share belongs to.
	ExpenseID string

	// UserID is the member who owes this share.
	UserID string

	// AmountCents is the owed amount in minor units.
	AmountCents int64

	// SharePercentage is the weight used to compute AmountCents.
	// Set only when the expense was split by percentage.
	SharePercentage float64

	// Paid indicates the share has been settled. One-way transition
	// unpaid -> paid via the payment action; reverting is a separate
	// delete-payment operation.
	Paid bool

	// PaidAt is the Unix timestamp of settlement, 0 while unpaid.
	PaidAt int64
}
