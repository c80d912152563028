package domain

import "fmt"

// Validate checks document invariants. Used after migration and on
// operator-supplied snapshots (merge CLI, import); the sync path does not
// reject documents wholesale, it degrades per record instead.
func (d GlobalData) Validate() error {
	if len(d.Books) == 0 {
		return fmt.Errorf("document has no books")
	}
	if d.ActiveBook() == nil {
		return fmt.Errorf("activeBookId %q does not resolve to a book", d.ActiveBookID)
	}

	seenBooks := make(map[string]bool, len(d.Books))
	for _, b := range d.Books {
		if b.ID == "" {
			return fmt.Errorf("book %q has empty id", b.Name)
		}
		if seenBooks[b.ID] {
			return fmt.Errorf("duplicate book id: %s", b.ID)
		}
		seenBooks[b.ID] = true
		if err := b.validate(); err != nil {
			return fmt.Errorf("book %s: %w", b.ID, err)
		}
	}

	current := 0
	for _, u := range d.Users {
		if u.IsCurrentUser {
			current++
		}
	}
	if current > 1 {
		return fmt.Errorf("%d profiles flagged isCurrentUser, want at most 1", current)
	}
	return nil
}

func (b Book) validate() error {
	parents := make(map[string]string, len(b.Categories))
	for _, c := range b.Categories {
		parents[c.ID] = c.ParentID
	}
	for _, c := range b.Categories {
		if c.ParentID == "" {
			continue
		}
		grand, ok := parents[c.ParentID]
		if !ok {
			return fmt.Errorf("category %s references missing parent %s", c.ID, c.ParentID)
		}
		// One level of nesting only.
		if grand != "" {
			return fmt.Errorf("category %s nests deeper than one level", c.ID)
		}
	}

	seen := make(map[string]bool, len(b.Transactions))
	for _, t := range b.Transactions {
		if seen[t.ID] {
			return fmt.Errorf("duplicate transaction id: %s", t.ID)
		}
		seen[t.ID] = true
		if err := t.validate(); err != nil {
			return fmt.Errorf("transaction %s: %w", t.ID, err)
		}
	}

	for _, r := range b.Recurring {
		switch r.Frequency {
		case FreqDaily, FreqWeekly, FreqMonthly, FreqYearly:
		default:
			return fmt.Errorf("recurring rule %s: unknown frequency %q", r.ID, r.Frequency)
		}
	}
	return nil
}

func (t Transaction) validate() error {
	if t.Amount.IsNegative() {
		return fmt.Errorf("negative amount %s", t.Amount)
	}
	if t.AccountID == "" {
		return fmt.Errorf("missing accountId")
	}
	switch t.Type {
	case TxTransfer:
		if t.ToAccountID == "" {
			return fmt.Errorf("transfer missing toAccountId")
		}
	case TxExpense, TxIncome:
		if t.CategoryID == "" {
			return fmt.Errorf("%s missing categoryId", t.Type)
		}
	default:
		return fmt.Errorf("unknown type %q", t.Type)
	}
	return nil
}
