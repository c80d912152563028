package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/roach88/walletsync/internal/domain"
)

// exportHeader is the column layout the importer's header mapping
// recognizes, so exported files re-import cleanly.
var exportHeader = []string{
	"Wallet", "Date", "Type", "Amount", "Currency", "Category",
	"Subcategory", "Account", "To Account", "Target Amount",
	"Target Currency", "Note", "Tags",
}

// ExportTransactions writes one book's transactions as CSV. allBooks is
// consulted to resolve the far side of cross-book transfers (target
// amount and currency); pass nil when that detail is not needed.
//
// A UTF-8 BOM is written first so spreadsheet applications detect the
// encoding.
func ExportTransactions(w io.Writer, book domain.Book, allBooks []domain.Book) error {
	if _, err := io.WriteString(w, "\uFEFF"); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, t := range book.Transactions {
		category, subcategory := categoryNames(book, t.CategoryID)
		targetAmount, targetCurrency := transferTarget(book, t, allBooks)

		record := []string{
			book.Name,
			t.Date,
			string(t.Type),
			t.Amount.String(),
			book.Currency,
			category,
			subcategory,
			accountName(book, t.AccountID, "Unknown"),
			toAccountName(book, t.ToAccountID),
			targetAmount,
			targetCurrency,
			t.Note,
			strings.Join(t.Tags, ";"),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ExportFilename builds the conventional download name for a book's
// CSV export.
func ExportFilename(book domain.Book, now time.Time) string {
	name := strings.Join(strings.Fields(book.Name), "_")
	return fmt.Sprintf("onewallet_export_%s_%s.csv", name, now.Format("2006-01-02"))
}

// categoryNames resolves a category id to (parent, sub) display names.
func categoryNames(book domain.Book, categoryID string) (string, string) {
	if categoryID == "" {
		return "", ""
	}
	var cat *domain.Category
	for i := range book.Categories {
		if book.Categories[i].ID == categoryID {
			cat = &book.Categories[i]
			break
		}
	}
	if cat == nil {
		return "", ""
	}
	if cat.ParentID == "" {
		return cat.Name, ""
	}
	for i := range book.Categories {
		if book.Categories[i].ID == cat.ParentID {
			return book.Categories[i].Name, cat.Name
		}
	}
	return "", cat.Name
}

func accountName(book domain.Book, accountID, missing string) string {
	for _, a := range book.Accounts {
		if a.ID == accountID {
			return a.Name
		}
	}
	return missing
}

func toAccountName(book domain.Book, toAccountID string) string {
	if toAccountID == "" {
		return ""
	}
	return accountName(book, toAccountID, "External")
}

// transferTarget finds the paired leg of a cross-book transfer: same
// business date, transfer type, related back to this book.
func transferTarget(book domain.Book, t domain.Transaction, allBooks []domain.Book) (string, string) {
	if t.Type != domain.TxTransfer || t.RelatedBookID == "" || len(allBooks) == 0 {
		return "", ""
	}
	for _, target := range allBooks {
		if target.ID != t.RelatedBookID {
			continue
		}
		for _, tx := range target.Transactions {
			if tx.RelatedBookID == book.ID && tx.Date == t.Date && tx.Type == domain.TxTransfer {
				return tx.Amount.String(), target.Currency
			}
		}
		return "", target.Currency
	}
	return "", ""
}
