package csvio

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/roach88/walletsync/internal/domain"
)

// Stats summarizes what an import created.
type Stats struct {
	Books        int
	Transactions int
	Categories   int
}

// Apply folds parsed rows into the document, creating referenced books,
// accounts and categories on demand. Rows without a wallet column land
// in the book identified by defaultBookID. The input document is not
// modified.
func Apply(d domain.GlobalData, rows []Row, defaultBookID string, clock domain.Clock, ids domain.IDSource) (domain.GlobalData, Stats) {
	out := d.Clone()
	var stats Stats

	defaultName := "My Wallet"
	if b := out.FindBook(defaultBookID); b != nil {
		defaultName = b.Name
	}

	now := domain.FormatInstant(clock.Now())
	for _, row := range rows {
		name := row.Wallet
		if name == "" {
			name = defaultName
		}
		book := getOrCreateBook(&out, name, row.Currency, ids, &stats)
		account := getOrCreateAccount(book, row.Account, ids)

		toAccountID := ""
		if row.Type == domain.TxTransfer && row.ToAccount != "" {
			toAccountID = getOrCreateAccount(book, row.ToAccount, ids).ID
		}

		categoryID := ""
		if row.Type != domain.TxTransfer {
			categoryID = getOrCreateCategory(book, row.Category, row.Subcategory, row.Type, ids, &stats).ID
		}

		book.Transactions = append(book.Transactions, domain.Transaction{
			ID:          ids.NewID(),
			Amount:      row.Amount,
			Type:        row.Type,
			AccountID:   account.ID,
			ToAccountID: toAccountID,
			CategoryID:  categoryID,
			Date:        domain.FormatInstant(row.Date),
			UpdatedAt:   now,
			Note:        row.Note,
			Tags:        row.Tags,
		})
		stats.Transactions++
	}

	return out, stats
}

func getOrCreateBook(d *domain.GlobalData, name, currency string, ids domain.IDSource, stats *Stats) *domain.Book {
	for i := range d.Books {
		if strings.EqualFold(d.Books[i].Name, name) {
			return &d.Books[i]
		}
	}
	if currency == "" {
		currency = domain.DefaultCurrency
	}
	d.Books = append(d.Books, domain.NewBook(ids, name, currency))
	stats.Books++
	return &d.Books[len(d.Books)-1]
}

func getOrCreateAccount(b *domain.Book, name string, ids domain.IDSource) *domain.Account {
	if name == "" {
		name = "Cash"
	}
	for i := range b.Accounts {
		if strings.EqualFold(b.Accounts[i].Name, name) {
			return &b.Accounts[i]
		}
	}
	b.Accounts = append(b.Accounts, domain.Account{
		ID:             ids.NewID(),
		Name:           name,
		Type:           domain.AccountCash,
		InitialBalance: decimal.Zero,
		Color:          domain.ColorFor(name),
		Icon:           "Wallet",
	})
	return &b.Accounts[len(b.Accounts)-1]
}

func getOrCreateCategory(b *domain.Book, name, subName string, txType domain.TransactionType, ids domain.IDSource, stats *Stats) *domain.Category {
	catType := txType
	if catType == domain.TxTransfer {
		catType = domain.TxExpense
	}

	var parent *domain.Category
	for i := range b.Categories {
		c := &b.Categories[i]
		if c.ParentID == "" && strings.EqualFold(c.Name, name) {
			parent = c
			break
		}
	}
	if parent == nil {
		b.Categories = append(b.Categories, domain.Category{
			ID:    ids.NewID(),
			Name:  name,
			Type:  catType,
			Color: domain.ColorFor(name),
			Icon:  domain.IconFor(name),
		})
		parent = &b.Categories[len(b.Categories)-1]
		stats.Categories++
	}

	if subName == "" {
		return parent
	}

	parentID := parent.ID
	for i := range b.Categories {
		c := &b.Categories[i]
		if c.ParentID == parentID && strings.EqualFold(c.Name, subName) {
			return c
		}
	}
	// Reload the parent by id: appending above may have moved it.
	var color, icon string
	var pType domain.TransactionType
	for i := range b.Categories {
		if b.Categories[i].ID == parentID {
			color = b.Categories[i].Color
			icon = b.Categories[i].Icon
			pType = b.Categories[i].Type
			break
		}
	}
	b.Categories = append(b.Categories, domain.Category{
		ID:       ids.NewID(),
		ParentID: parentID,
		Name:     subName,
		Type:     pType,
		Color:    color,
		Icon:     icon,
	})
	stats.Categories++
	return &b.Categories[len(b.Categories)-1]
}
