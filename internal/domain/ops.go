package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Pure mutations over the document. Every function returns a new value and
// leaves its input untouched; every transaction write advances UpdatedAt.
// Destructive operations (ClearAllTransactions, DeleteBook) live here
// unconditionally - confirmation is the caller's concern, which keeps them
// directly testable.

// NewTransaction is the input for AddTransaction.
type NewTransaction struct {
	BookID      string // empty = active book
	Amount      decimal.Decimal
	Type        TransactionType
	AccountID   string
	ToAccountID string
	CategoryID  string
	Date        string // empty = now
	Note        string
	Tags        []string
	CreatedBy   string // empty = current user

	// Recurrence, when set, also registers a recurring rule firing from the
	// transaction date onward.
	Recurrence Frequency

	// ToBookID makes a transfer cross-book: a second leg is written into the
	// target book with RelatedBookID pointing back. ConvertedAmount is the
	// leg amount in the target book's currency (user-supplied rate; this
	// system does not compute conversions).
	ToBookID        string
	ConvertedAmount *decimal.Decimal
}

// AddTransaction appends a transaction (and, for cross-book transfers, its
// counterpart leg) to the document.
func AddTransaction(d GlobalData, clock Clock, ids IDSource, in NewTransaction) (GlobalData, error) {
	bookID := in.BookID
	if bookID == "" {
		bookID = d.ActiveBookID
	}
	src := d.FindBook(bookID)
	if src == nil {
		return d, fmt.Errorf("unknown book %q", bookID)
	}
	if in.Type == "" {
		in.Type = TxExpense
	}
	if in.AccountID == "" && len(src.Accounts) > 0 {
		in.AccountID = src.Accounts[0].ID
	}

	now := FormatInstant(clock.Now())
	date := in.Date
	if date == "" {
		date = now
	}
	createdBy := in.CreatedBy
	if createdBy == "" {
		if u := d.CurrentUser(); u != nil {
			createdBy = u.ID
		}
	}

	crossBook := in.Type == TxTransfer && in.ToBookID != "" && in.ToBookID != bookID
	if crossBook && d.FindBook(in.ToBookID) == nil {
		return d, fmt.Errorf("unknown target book %q", in.ToBookID)
	}

	tx := Transaction{
		ID:          ids.NewID(),
		Amount:      in.Amount,
		Type:        in.Type,
		AccountID:   in.AccountID,
		ToAccountID: in.ToAccountID,
		CategoryID:  in.CategoryID,
		Date:        date,
		UpdatedAt:   now,
		Note:        in.Note,
		Tags:        append([]string(nil), in.Tags...),
		IsRecurring: in.Recurrence != "",
		CreatedBy:   createdBy,
	}
	if crossBook {
		tx.RelatedBookID = in.ToBookID
	}
	if err := tx.validate(); err != nil {
		return d, err
	}

	out := d
	out.Books = make([]Book, len(d.Books))
	copy(out.Books, d.Books)

	for i := range out.Books {
		switch out.Books[i].ID {
		case bookID:
			b := out.Books[i].Clone()
			b.Transactions = append(b.Transactions, tx)
			if in.Recurrence != "" {
				b.Recurring = append(b.Recurring, RecurringRule{
					ID:          ids.NewID(),
					Amount:      in.Amount,
					CategoryID:  in.CategoryID,
					AccountID:   tx.AccountID,
					ToAccountID: in.ToAccountID,
					Type:        in.Type,
					Note:        in.Note,
					Frequency:   in.Recurrence,
					StartDate:   date,
					NextRunDate: date,
				})
			}
			out.Books[i] = b
		case in.ToBookID:
			if !crossBook {
				continue
			}
			amount := in.Amount
			if in.ConvertedAmount != nil {
				amount = *in.ConvertedAmount
			}
			b := out.Books[i].Clone()
			b.Transactions = append(b.Transactions, Transaction{
				ID:            ids.NewID(),
				Amount:        amount,
				Type:          TxTransfer,
				AccountID:     tx.AccountID,
				ToAccountID:   tx.ToAccountID,
				RelatedBookID: bookID,
				Date:          date,
				UpdatedAt:     now,
				Note:          fmt.Sprintf("Transfer from %s", src.Name),
				Tags:          append([]string(nil), in.Tags...),
				CreatedBy:     createdBy,
			})
			out.Books[i] = b
		}
	}
	return out, nil
}

// UpdateTransaction replaces the stored transaction with the given value,
// matched by id, stamping a fresh UpdatedAt.
func UpdateTransaction(d GlobalData, clock Clock, bookID string, tx Transaction) (GlobalData, error) {
	if err := tx.validate(); err != nil {
		return d, err
	}
	out, book := withBook(d, bookID)
	if book == nil {
		return d, fmt.Errorf("unknown book %q", bookID)
	}
	for i := range book.Transactions {
		if book.Transactions[i].ID == tx.ID {
			tx.UpdatedAt = FormatInstant(clock.Now())
			book.Transactions[i] = tx
			return out, nil
		}
	}
	return d, fmt.Errorf("unknown transaction %q in book %q", tx.ID, bookID)
}

// DeleteTransaction removes a transaction from a book. Deletion is a local
// decision; note that a peer still holding the record will re-introduce it
// on merge (merge never deletes).
func DeleteTransaction(d GlobalData, bookID, txID string) (GlobalData, error) {
	out, book := withBook(d, bookID)
	if book == nil {
		return d, fmt.Errorf("unknown book %q", bookID)
	}
	kept := book.Transactions[:0:0]
	for _, t := range book.Transactions {
		if t.ID != txID {
			kept = append(kept, t)
		}
	}
	if len(kept) == len(book.Transactions) {
		return d, fmt.Errorf("unknown transaction %q in book %q", txID, bookID)
	}
	book.Transactions = kept
	return out, nil
}

// AddBook appends a fresh book with the default account/category sets.
func AddBook(d GlobalData, ids IDSource, name, currency string) (GlobalData, Book) {
	book := NewBook(ids, name, currency)
	out := d
	out.Books = append(append([]Book(nil), d.Books...), book)
	return out, book
}

// DeleteBook removes a book by explicit user action. The last remaining
// book cannot be deleted; if the active book is deleted, the first
// remaining one becomes active.
func DeleteBook(d GlobalData, bookID string) (GlobalData, error) {
	if len(d.Books) <= 1 {
		return d, fmt.Errorf("cannot delete the last book")
	}
	kept := make([]Book, 0, len(d.Books)-1)
	for _, b := range d.Books {
		if b.ID != bookID {
			kept = append(kept, b)
		}
	}
	if len(kept) == len(d.Books) {
		return d, fmt.Errorf("unknown book %q", bookID)
	}
	out := d
	out.Books = kept
	if out.ActiveBookID == bookID {
		out.ActiveBookID = kept[0].ID
	}
	return out, nil
}

// SetActiveBook switches the active ledger.
func SetActiveBook(d GlobalData, bookID string) (GlobalData, error) {
	if d.FindBook(bookID) == nil {
		return d, fmt.Errorf("unknown book %q", bookID)
	}
	out := d
	out.ActiveBookID = bookID
	return out, nil
}

// AddAccount appends an account to a book, defaulting color and icon.
func AddAccount(d GlobalData, ids IDSource, bookID string, a Account) (GlobalData, error) {
	out, book := withBook(d, bookID)
	if book == nil {
		return d, fmt.Errorf("unknown book %q", bookID)
	}
	if a.ID == "" {
		a.ID = ids.NewID()
	}
	if a.Color == "" {
		a.Color = ColorFor(a.ID)
	}
	if a.Icon == "" {
		a.Icon = "Wallet"
	}
	if a.Type == "" {
		a.Type = AccountCash
	}
	book.Accounts = append(book.Accounts, a)
	return out, nil
}

// AddCategory appends a category to a book. Subcategories must reference a
// top-level parent; deeper nesting is rejected.
func AddCategory(d GlobalData, ids IDSource, bookID string, c Category) (GlobalData, error) {
	out, book := withBook(d, bookID)
	if book == nil {
		return d, fmt.Errorf("unknown book %q", bookID)
	}
	if c.ParentID != "" {
		var parent *Category
		for i := range book.Categories {
			if book.Categories[i].ID == c.ParentID {
				parent = &book.Categories[i]
				break
			}
		}
		if parent == nil {
			return d, fmt.Errorf("unknown parent category %q", c.ParentID)
		}
		if parent.ParentID != "" {
			return d, fmt.Errorf("category nesting is limited to one level")
		}
		if c.Type == "" {
			c.Type = parent.Type
		}
	}
	if c.ID == "" {
		c.ID = ids.NewID()
	}
	if c.Color == "" {
		c.Color = ColorFor(c.ID)
	}
	if c.Icon == "" {
		c.Icon = IconFor(c.ID)
	}
	book.Categories = append(book.Categories, c)
	return out, nil
}

// ClearAllTransactions empties the transaction list of every book.
// Destructive: callers are expected to confirm with the user first.
func ClearAllTransactions(d GlobalData) GlobalData {
	out := d
	out.Books = make([]Book, len(d.Books))
	for i, b := range d.Books {
		nb := b.Clone()
		nb.Transactions = []Transaction{}
		out.Books[i] = nb
	}
	return out
}

// ClearBookTransactions empties one book's transaction list, keeping its
// accounts, categories and recurring rules.
// Destructive: callers are expected to confirm with the user first.
func ClearBookTransactions(d GlobalData, bookID string) (GlobalData, error) {
	out, book := withBook(d, bookID)
	if book == nil {
		return d, fmt.Errorf("unknown book %q", bookID)
	}
	book.Transactions = []Transaction{}
	return out, nil
}

// withBook copies the books slice and clones the addressed book, returning
// the new document and a pointer into it. Returns a nil book when the id is
// unknown.
func withBook(d GlobalData, bookID string) (GlobalData, *Book) {
	if bookID == "" {
		bookID = d.ActiveBookID
	}
	out := d
	out.Books = make([]Book, len(d.Books))
	copy(out.Books, d.Books)
	for i := range out.Books {
		if out.Books[i].ID == bookID {
			out.Books[i] = out.Books[i].Clone()
			return out, &out.Books[i]
		}
	}
	return d, nil
}
