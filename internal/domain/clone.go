package domain

// Clone returns a deep copy of the document. Merge and the engine rely on
// value semantics; Clone is the escape hatch when a caller must hand out a
// document it will keep mutating.
func (d GlobalData) Clone() GlobalData {
	out := d
	out.Books = make([]Book, len(d.Books))
	for i, b := range d.Books {
		out.Books[i] = b.Clone()
	}
	out.Users = append([]UserProfile(nil), d.Users...)
	if d.SyncConfig != nil {
		sc := *d.SyncConfig
		out.SyncConfig = &sc
	}
	if d.BackupConfig != nil {
		bc := *d.BackupConfig
		out.BackupConfig = &bc
	}
	return out
}

// Clone returns a deep copy of the book.
func (b Book) Clone() Book {
	out := b
	out.Transactions = make([]Transaction, len(b.Transactions))
	for i, t := range b.Transactions {
		out.Transactions[i] = t.Clone()
	}
	out.Categories = make([]Category, len(b.Categories))
	for i, c := range b.Categories {
		out.Categories[i] = c
		if c.BudgetLimit != nil {
			limit := *c.BudgetLimit
			out.Categories[i].BudgetLimit = &limit
		}
	}
	out.Accounts = append([]Account(nil), b.Accounts...)
	out.Recurring = append([]RecurringRule(nil), b.Recurring...)
	return out
}

// Clone returns a copy of the transaction with its own tags slice.
func (t Transaction) Clone() Transaction {
	out := t
	out.Tags = append([]string(nil), t.Tags...)
	return out
}
