package calculator

// ExpenseRecord is the slice of expense data balance computation needs.
type ExpenseRecord struct {
	ID        string
	CreatorID string
}

// ShareRecord is the slice of share data balance computation needs.
type ShareRecord struct {
	ExpenseID   string
	UserID      string
	AmountCents int64
	Paid        bool
}

// Balance is a user's derived net position within a household.
// It is computed on demand from expenses and shares, never persisted.
type Balance struct {
	UserID string

	// OwedToUserCents is what other members still owe on expenses this
	// user created (their unpaid shares).
	OwedToUserCents int64

	// UserOwesCents is the sum of this user's own unpaid shares.
	UserOwesCents int64

	// NetCents is OwedToUserCents - UserOwesCents.
	// Positive = the user is owed money, negative = the user owes.
	NetCents int64
}

// Settlement suggests a single payment from a debtor to a creditor.
type Settlement struct {
	FromUserID  string
	ToUserID    string
	AmountCents int64
}

// UserBalance computes one user's balance from a household's expense and
// share history.
func UserBalance(userID string, expenses []ExpenseRecord, shares []ShareRecord) Balance {
	creators := make(map[string]string, len(expenses))
	for _, e := range expenses {
		creators[e.ID] = e.CreatorID
	}

	b := Balance{UserID: userID}
	for _, s := range shares {
		if s.Paid {
			continue
		}
		if s.UserID == userID {
			b.UserOwesCents += s.AmountCents
		} else if creators[s.ExpenseID] == userID {
			b.OwedToUserCents += s.AmountCents
		}
	}
	b.NetCents = b.OwedToUserCents - b.UserOwesCents
	return b
}

// HouseholdBalances computes the balance of every member, in member
// order.
func HouseholdBalances(memberIDs []string, expenses []ExpenseRecord, shares []ShareRecord) []Balance {
	balances := make([]Balance, len(memberIDs))
	for i, id := range memberIDs {
		balances[i] = UserBalance(id, expenses, shares)
	}
	return balances
}

// SuggestSettlements greedily matches debtors with creditors so the
// household can settle up in at most len(members)-1 payments. Input
// order is preserved, so the suggestions are deterministic for a given
// member ordering.
func SuggestSettlements(balances []Balance) []Settlement {
	type party struct {
		userID string
		cents  int64
	}
	var debtors, creditors []party
	for _, b := range balances {
		switch {
		case b.NetCents < 0:
			debtors = append(debtors, party{b.UserID, -b.NetCents})
		case b.NetCents > 0:
			creditors = append(creditors, party{b.UserID, b.NetCents})
		}
	}

	var settlements []Settlement
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := min(debtors[i].cents, creditors[j].cents)
		if amount > 0 {
			settlements = append(settlements, Settlement{
				FromUserID:  debtors[i].userID,
				ToUserID:    creditors[j].userID,
				AmountCents: amount,
			})
		}
		debtors[i].cents -= amount
		creditors[j].cents -= amount
		if debtors[i].cents == 0 {
			i++
		}
		if creditors[j].cents == 0 {
			j++
		}
	}
	return settlements
}
