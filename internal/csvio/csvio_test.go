package csvio

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/walletsync/internal/domain"
	"github.com/roach88/walletsync/internal/testutil"
)

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func TestParseRowsWithHeader(t *testing.T) {
	in := "Date,Category,Amount,Note,Type,Account,Tags\n" +
		"2026-03-01,Food,12.50,Lunch,expense,Cash,food;work\n" +
		"2026-03-02,Salary,2000,March,income,Bank,\n"

	rows, err := ParseRows(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "Food", rows[0].Category)
	assert.True(t, rows[0].Amount.Equal(decimal.RequireFromString("12.50")))
	assert.Equal(t, domain.TxExpense, rows[0].Type)
	assert.Equal(t, "Lunch", rows[0].Note)
	assert.Equal(t, "Cash", rows[0].Account)
	assert.Equal(t, []string{"food", "work"}, rows[0].Tags)

	assert.Equal(t, domain.TxIncome, rows[1].Type)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), rows[1].Date)
}

func TestParseRowsHeaderless(t *testing.T) {
	// No date-like header: the first row is data in the fixed layout.
	in := "2026-03-01,Food,12.50,Lunch,expense\n" +
		"2026-03-02,Transport,3,Bus,expense\n"

	rows, err := ParseRows(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Food", rows[0].Category)
	assert.Equal(t, "Transport", rows[1].Category)
}

func TestParseRowsSemicolonDelimiter(t *testing.T) {
	in := "Date;Category;Amount;Note;Type\n" +
		"01/03/2026;Food;1234.50 €;Groceries;expense\n"

	rows, err := ParseRows(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, rows, 1)

	// Day-first numeric date.
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), rows[0].Date)
	// The currency symbol is stripped before reading the number.
	assert.True(t, rows[0].Amount.Equal(decimal.RequireFromString("1234.50")))
}

func TestParseRowsSplitsCategorySubcategory(t *testing.T) {
	in := "Date,Category,Amount\n" +
		"2026-03-01,Food: Groceries,10\n" +
		"2026-03-02,Transport - Bus,3\n"

	rows, err := ParseRows(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Food", rows[0].Category)
	assert.Equal(t, "Groceries", rows[0].Subcategory)
	assert.Equal(t, "Transport", rows[1].Category)
	assert.Equal(t, "Bus", rows[1].Subcategory)
}

func TestParseRowsSkipsBadRows(t *testing.T) {
	in := "Date,Category,Amount\n" +
		"not-a-date,Food,10\n" +
		"2026-03-01,Food,not-a-number\n" +
		"2026-03-02,Food,10\n"

	rows, err := ParseRows(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), rows[0].Date)
}

func TestParseRowsNegativeAmountsAbsolute(t *testing.T) {
	in := "Date,Category,Amount,Note,Type\n" +
		"2026-03-01,Food,-25.00,Refunded later,expense\n"

	rows, err := ParseRows(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Amount.Equal(decimal.RequireFromString("25")))
}

func TestParseRowsStripsBOM(t *testing.T) {
	in := "\uFEFFDate,Category,Amount\n2026-03-01,Food,10\n"
	rows, err := ParseRows(strings.NewReader(in))
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestParseRowsEmptyInput(t *testing.T) {
	rows, err := ParseRows(strings.NewReader("  \n "))
	require.NoError(t, err)
	assert.Nil(t, rows)
}

func TestApplyCreatesReferencedEntities(t *testing.T) {
	ids := testutil.NewSeqIDs("id")
	d := domain.DefaultData(ids)
	clock := testutil.NewFixedClock(testNow)

	rows := []Row{
		{
			Date: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), Amount: decimal.RequireFromString("10"),
			Type: domain.TxExpense, Category: "Food", Subcategory: "Takeout", Account: "Cash",
		},
		{
			Date: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), Amount: decimal.RequireFromString("99"),
			Type: domain.TxExpense, Category: "Windsurfing", Wallet: "Hobby Budget", Account: "Club Card",
		},
	}

	out, stats := Apply(d, rows, d.ActiveBookID, clock, ids)

	// Input untouched.
	assert.Len(t, d.Books, 1)
	assert.Empty(t, d.Books[0].Transactions)

	assert.Equal(t, 1, stats.Books)
	assert.Equal(t, 2, stats.Transactions)

	require.Len(t, out.Books, 2)
	assert.Len(t, out.Books[0].Transactions, 1)
	assert.Equal(t, "Hobby Budget", out.Books[1].Name)
	require.Len(t, out.Books[1].Transactions, 1)

	// "Food" exists in the default category set; "Takeout" under it is
	// new, as is "Windsurfing" in the fresh book.
	var takeout *domain.Category
	for i := range out.Books[0].Categories {
		if out.Books[0].Categories[i].Name == "Takeout" {
			takeout = &out.Books[0].Categories[i]
		}
	}
	require.NotNil(t, takeout)
	assert.NotEmpty(t, takeout.ParentID)
	assert.Equal(t, out.Books[0].Transactions[0].CategoryID, takeout.ID)
}

func TestApplyReusesExistingByNameCaseInsensitive(t *testing.T) {
	ids := testutil.NewSeqIDs("id")
	d := domain.DefaultData(ids)
	clock := testutil.NewFixedClock(testNow)

	rows := []Row{
		{Date: testNow, Amount: decimal.RequireFromString("5"), Type: domain.TxExpense, Category: "FOOD", Account: "cash"},
	}

	out, stats := Apply(d, rows, d.ActiveBookID, clock, ids)

	assert.Equal(t, 0, stats.Books)
	assert.Equal(t, 0, stats.Categories)
	assert.Len(t, out.Books[0].Accounts, len(d.Books[0].Accounts))
}

func TestApplyTransferGetsNoCategory(t *testing.T) {
	ids := testutil.NewSeqIDs("id")
	d := domain.DefaultData(ids)
	clock := testutil.NewFixedClock(testNow)

	rows := []Row{
		{Date: testNow, Amount: decimal.RequireFromString("100"), Type: domain.TxTransfer, Account: "Cash", ToAccount: "Vault"},
	}

	out, _ := Apply(d, rows, d.ActiveBookID, clock, ids)

	require.Len(t, out.Books[0].Transactions, 1)
	tx := out.Books[0].Transactions[0]
	assert.Empty(t, tx.CategoryID)
	assert.NotEmpty(t, tx.ToAccountID)
	assert.NotEqual(t, tx.AccountID, tx.ToAccountID)
}

func TestExportRoundtrips(t *testing.T) {
	ids := testutil.NewSeqIDs("id")
	d := domain.DefaultData(ids)
	clock := testutil.NewFixedClock(testNow)

	rows := []Row{
		{
			Date: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), Amount: decimal.RequireFromString("12.50"),
			Type: domain.TxExpense, Category: "Food", Subcategory: "Groceries", Account: "Cash",
			Note: "Weekly shop", Tags: []string{"food", "weekly"},
		},
	}
	seeded, _ := Apply(d, rows, d.ActiveBookID, clock, ids)

	var buf bytes.Buffer
	require.NoError(t, ExportTransactions(&buf, seeded.Books[0], seeded.Books))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "\uFEFF"))

	// The export re-imports to the same values.
	back, err := ParseRows(strings.NewReader(out))
	require.NoError(t, err)
	require.Len(t, back, 1)
	assert.True(t, back[0].Amount.Equal(decimal.RequireFromString("12.50")))
	assert.Equal(t, domain.TxExpense, back[0].Type)
	assert.Equal(t, "Food", back[0].Category)
	assert.Equal(t, "Groceries", back[0].Subcategory)
	assert.Equal(t, "Cash", back[0].Account)
	assert.Equal(t, "Weekly shop", back[0].Note)
	assert.Equal(t, []string{"food", "weekly"}, back[0].Tags)
	assert.Equal(t, seeded.Books[0].Name, back[0].Wallet)
}

func TestExportFilename(t *testing.T) {
	book := domain.Book{Name: "My  Summer Wallet"}
	assert.Equal(t, "onewallet_export_My_Summer_Wallet_2026-03-15.csv", ExportFilename(book, testNow))
}
