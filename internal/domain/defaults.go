package domain

import (
	"hash/fnv"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is the currency symbol assigned to books created without
// an explicit one.
const DefaultCurrency = "$"

// AvailableColors is the palette books, accounts and categories draw from.
var AvailableColors = []string{
	"#ef4444", // red
	"#f97316", // orange
	"#f59e0b", // amber
	"#84cc16", // lime
	"#10b981", // emerald
	"#06b6d4", // cyan
	"#3b82f6", // blue
	"#6366f1", // indigo
	"#8b5cf6", // violet
	"#d946ef", // fuchsia
	"#f43f5e", // rose
	"#64748b", // slate
}

// IconKeys are the icon names understood by clients.
var IconKeys = []string{
	"ShoppingBag", "Utensils", "Car", "Home", "Zap", "HeartPulse",
	"Gamepad2", "GraduationCap", "Plane", "Gift", "Smartphone",
	"Briefcase", "TrendingUp", "PiggyBank", "Wallet", "CreditCard",
	"Landmark", "RefreshCw", "ArrowRightLeft", "Calculator", "Calendar",
	"Coffee", "ShoppingCart", "Fuel", "Bus", "Wifi", "Droplet", "Pill",
	"Music", "Film", "Camera", "Baby", "Dog", "Hammer", "BookOpen", "Star",
}

// ColorFor picks a palette color deterministically from a seed string.
// Deterministic choice (rather than random) keeps document migration
// replayable: the same legacy document always migrates to the same bytes.
func ColorFor(seed string) string {
	h := fnv.New32a()
	h.Write([]byte(seed))
	return AvailableColors[int(h.Sum32())%len(AvailableColors)]
}

// IconFor picks an icon name deterministically from a seed string.
func IconFor(seed string) string {
	h := fnv.New32a()
	h.Write([]byte(seed))
	return IconKeys[int(h.Sum32())%len(IconKeys)]
}

// DefaultAccounts returns the starter account set for a fresh book.
func DefaultAccounts() []Account {
	return []Account{
		{ID: "acc1", Name: "Cash", Type: AccountCash, InitialBalance: decimal.Zero, Color: "#10b981", Icon: "Wallet"},
		{ID: "acc2", Name: "Card", Type: AccountCard, InitialBalance: decimal.Zero, Color: "#3b82f6", Icon: "CreditCard"},
		{ID: "acc3", Name: "Bank", Type: AccountBank, InitialBalance: decimal.Zero, Color: "#6366f1", Icon: "Landmark"},
	}
}

func budget(n int64) *decimal.Decimal {
	d := decimal.NewFromInt(n)
	return &d
}

// DefaultCategories returns the starter category tree for a fresh book:
// parent categories with one level of subcategories, plus income sources.
func DefaultCategories() []Category {
	return []Category{
		{ID: "c1", Name: "Food", Icon: "Utensils", Color: "#fbbf24", Type: TxExpense, BudgetLimit: budget(500)},
		{ID: "c1-1", ParentID: "c1", Name: "Groceries", Icon: "ShoppingCart", Color: "#fbbf24", Type: TxExpense},
		{ID: "c1-2", ParentID: "c1", Name: "Restaurant", Icon: "Utensils", Color: "#fbbf24", Type: TxExpense},
		{ID: "c1-3", ParentID: "c1", Name: "Coffee", Icon: "Coffee", Color: "#fbbf24", Type: TxExpense},

		{ID: "c2", Name: "Transport", Icon: "Car", Color: "#60a5fa", Type: TxExpense, BudgetLimit: budget(200)},
		{ID: "c2-1", ParentID: "c2", Name: "Fuel", Icon: "Fuel", Color: "#60a5fa", Type: TxExpense},
		{ID: "c2-2", ParentID: "c2", Name: "Public Transport", Icon: "Bus", Color: "#60a5fa", Type: TxExpense},
		{ID: "c2-3", ParentID: "c2", Name: "Maintenance", Icon: "Car", Color: "#60a5fa", Type: TxExpense},

		{ID: "c3", Name: "Shopping", Icon: "ShoppingBag", Color: "#f472b6", Type: TxExpense},
		{ID: "c3-1", ParentID: "c3", Name: "Clothes", Icon: "ShoppingBag", Color: "#f472b6", Type: TxExpense},
		{ID: "c3-2", ParentID: "c3", Name: "Electronics", Icon: "Smartphone", Color: "#f472b6", Type: TxExpense},

		{ID: "c4", Name: "Housing", Icon: "Home", Color: "#34d399", Type: TxExpense, BudgetLimit: budget(1000)},
		{ID: "c4-1", ParentID: "c4", Name: "Rent", Icon: "Home", Color: "#34d399", Type: TxExpense},
		{ID: "c4-2", ParentID: "c4", Name: "Maintenance", Icon: "Home", Color: "#34d399", Type: TxExpense},

		{ID: "c5", Name: "Bills", Icon: "Zap", Color: "#a78bfa", Type: TxExpense},
		{ID: "c5-1", ParentID: "c5", Name: "Internet", Icon: "Wifi", Color: "#a78bfa", Type: TxExpense},
		{ID: "c5-2", ParentID: "c5", Name: "Water/Electricity", Icon: "Droplet", Color: "#a78bfa", Type: TxExpense},

		{ID: "c6", Name: "Health", Icon: "HeartPulse", Color: "#f87171", Type: TxExpense},
		{ID: "c6-1", ParentID: "c6", Name: "Doctor", Icon: "HeartPulse", Color: "#f87171", Type: TxExpense},
		{ID: "c6-2", ParentID: "c6", Name: "Pharmacy", Icon: "Pill", Color: "#f87171", Type: TxExpense},

		{ID: "c7", Name: "Entertainment", Icon: "Gamepad2", Color: "#818cf8", Type: TxExpense},
		{ID: "c8", Name: "Education", Icon: "GraduationCap", Color: "#fb923c", Type: TxExpense},

		{ID: "i1", Name: "Salary", Icon: "Briefcase", Color: "#4ade80", Type: TxIncome},
		{ID: "i2", Name: "Investment", Icon: "TrendingUp", Color: "#22d3ee", Type: TxIncome},
		{ID: "i3", Name: "Gifts", Icon: "Gift", Color: "#e879f9", Type: TxIncome},
	}
}

// NewBook creates a fresh book with the default account and category sets.
func NewBook(ids IDSource, name, currency string) Book {
	if currency == "" {
		currency = DefaultCurrency
	}
	id := ids.NewID()
	return Book{
		ID:           id,
		Name:         name,
		Currency:     currency,
		Color:        ColorFor(id),
		Transactions: []Transaction{},
		Categories:   DefaultCategories(),
		Accounts:     DefaultAccounts(),
		Recurring:    []RecurringRule{},
	}
}

// DefaultData constructs the first-run document: one book, one profile
// flagged as the local user, a fresh device id.
func DefaultData(ids IDSource) GlobalData {
	book := NewBook(ids, "My Wallet", DefaultCurrency)
	return GlobalData{
		SchemaVersion: CurrentSchemaVersion,
		Books:         []Book{book},
		ActiveBookID:  book.ID,
		Users:         []UserProfile{{ID: "u1", Name: "Me", IsCurrentUser: true}},
		DeviceID:      ids.NewID(),
	}
}
