package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// The wallet document format stores amounts as JSON numbers, matching
	// every existing document in the wild. Quoted decimals would be a silent
	// wire-format break for older devices.
	decimal.MarshalJSONWithoutQuotes = true
}

// CurrentSchemaVersion is the schema version written by this build.
// See migrate.go for the upgrade chain applied to older documents.
const CurrentSchemaVersion = 2

// TransactionType classifies a transaction. Categories reuse the same
// values (transfer excepted) for their income/expense kind.
type TransactionType string

const (
	TxExpense  TransactionType = "expense"
	TxIncome   TransactionType = "income"
	TxTransfer TransactionType = "transfer"
)

// Frequency is the recurrence period of a RecurringRule.
type Frequency string

const (
	FreqDaily   Frequency = "daily"
	FreqWeekly  Frequency = "weekly"
	FreqMonthly Frequency = "monthly"
	FreqYearly  Frequency = "yearly"
)

// AccountType classifies an account for display grouping only.
type AccountType string

const (
	AccountCash    AccountType = "cash"
	AccountCard    AccountType = "card"
	AccountBank    AccountType = "bank"
	AccountSavings AccountType = "savings"
)

// UserProfile identifies a person/device pair.
//
// IsCurrentUser is local-device semantics only: it marks which profile the
// local device acts as. The merge engine clears it on ingestion so one
// device's notion of "me" never overwrites another's.
type UserProfile struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email,omitempty"`
	Avatar        string `json:"avatar,omitempty"`
	IsCurrentUser bool   `json:"isCurrentUser,omitempty"`
}

// Account belongs to a Book. It stores only identity and the opening
// balance; the running balance is always derived (see balance.go).
type Account struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Type           AccountType     `json:"type"`
	InitialBalance decimal.Decimal `json:"initialBalance"`
	Color          string          `json:"color"`
	Icon           string          `json:"icon"`
}

// Category belongs to a Book. ParentID allows exactly one level of
// subcategory nesting; a category whose parent itself has a parent is
// invalid (see Validate).
type Category struct {
	ID          string           `json:"id"`
	ParentID    string           `json:"parentId,omitempty"`
	Name        string           `json:"name"`
	Icon        string           `json:"icon"`
	Color       string           `json:"color"`
	Type        TransactionType  `json:"type"`
	BudgetLimit *decimal.Decimal `json:"budgetLimit,omitempty"`
}

// Transaction is a single ledger entry inside a Book.
//
// Date is the business date, not the wall clock of creation. UpdatedAt is
// advanced on every mutation and is the sole arbiter the merge engine reads;
// a transaction whose UpdatedAt is missing or unparseable sorts as epoch
// zero so it can never incorrectly win a conflict.
type Transaction struct {
	ID            string          `json:"id"`
	Amount        decimal.Decimal `json:"amount"`
	Type          TransactionType `json:"type"`
	AccountID     string          `json:"accountId"`
	ToAccountID   string          `json:"toAccountId,omitempty"`
	CategoryID    string          `json:"categoryId,omitempty"`
	RelatedBookID string          `json:"relatedBookId,omitempty"`
	Date          string          `json:"date"`
	UpdatedAt     string          `json:"updatedAt,omitempty"`
	Note          string          `json:"note,omitempty"`
	Tags          []string        `json:"tags,omitempty"`
	IsRecurring   bool            `json:"isRecurring,omitempty"`
	CreatedBy     string          `json:"createdBy,omitempty"`
}

// UpdatedTime returns UpdatedAt as a time, or epoch zero when the field is
// missing or unparseable.
func (t Transaction) UpdatedTime() time.Time {
	ts, ok := ParseInstant(t.UpdatedAt)
	if !ok {
		return time.Unix(0, 0).UTC()
	}
	return ts
}

// RecurringRule is a template that periodically materializes into concrete
// transactions. NextRunDate only ever moves forward; a rule past its EndDate
// stops firing but is retained for history.
type RecurringRule struct {
	ID          string          `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	CategoryID  string          `json:"categoryId,omitempty"`
	AccountID   string          `json:"accountId"`
	ToAccountID string          `json:"toAccountId,omitempty"`
	Type        TransactionType `json:"type"`
	Note        string          `json:"note,omitempty"`
	Frequency   Frequency       `json:"frequency"`
	StartDate   string          `json:"startDate"`
	NextRunDate string          `json:"nextRunDate"`
	EndDate     string          `json:"endDate,omitempty"`
}

// Book is an independent ledger (wallet) with its own currency, accounts,
// categories, transactions and recurring rules. Book IDs are unique across
// the whole document; merge correctness depends on it.
type Book struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Currency     string          `json:"currency"`
	Color        string          `json:"color,omitempty"`
	Transactions []Transaction   `json:"transactions"`
	Categories   []Category      `json:"categories"`
	Accounts     []Account       `json:"accounts"`
	Recurring    []RecurringRule `json:"recurring"`
}

// SyncMode selects which transport variant a device runs.
type SyncMode string

const (
	// SyncModePeer is the two-party direct channel variant.
	SyncModePeer SyncMode = "peer"
	// SyncModeDocument is the shared mutable document variant.
	SyncModeDocument SyncMode = "document"
)

// SyncConfig holds the sync transport configuration. FamilyName and Slot
// drive the peer variant's rendezvous identity; WalletID keys the document
// variant. Never imported from a remote snapshot.
type SyncConfig struct {
	Mode       SyncMode `json:"mode,omitempty"`
	FamilyName string   `json:"familyName,omitempty"`
	Slot       int      `json:"slot,omitempty"`
	WalletID   string   `json:"walletId,omitempty"`
	Enabled    bool     `json:"enabled"`
}

// BackupConfig holds the periodic backup settings. Local-only, never merged.
type BackupConfig struct {
	Enabled        bool   `json:"enabled"`
	Frequency      string `json:"frequency,omitempty"`
	Provider       string `json:"provider,omitempty"`
	LastBackupDate string `json:"lastBackupDate,omitempty"`
}

// GlobalData is the root synchronized unit: the full wallet document. Its
// JSON shape is simultaneously the storage shape and the wire payload of
// both transports; there is no separate serialization format.
//
// Invariants: at least one Book exists and ActiveBookID always resolves to
// one of them.
type GlobalData struct {
	SchemaVersion int           `json:"schemaVersion"`
	Books         []Book        `json:"books"`
	ActiveBookID  string        `json:"activeBookId"`
	Users         []UserProfile `json:"users"`
	DeviceID      string        `json:"deviceId"`
	SyncConfig    *SyncConfig   `json:"syncConfig,omitempty"`
	BackupConfig  *BackupConfig `json:"backupConfig,omitempty"`
}

// FindBook returns a pointer into d.Books for the given id, or nil.
// The pointer is only valid until d.Books is reallocated.
func (d *GlobalData) FindBook(id string) *Book {
	for i := range d.Books {
		if d.Books[i].ID == id {
			return &d.Books[i]
		}
	}
	return nil
}

// ActiveBook returns the book ActiveBookID resolves to, or nil when the
// invariant is broken.
func (d *GlobalData) ActiveBook() *Book {
	return d.FindBook(d.ActiveBookID)
}

// CurrentUser returns the profile flagged as the local device's user,
// falling back to the first profile.
func (d *GlobalData) CurrentUser() *UserProfile {
	for i := range d.Users {
		if d.Users[i].IsCurrentUser {
			return &d.Users[i]
		}
	}
	if len(d.Users) > 0 {
		return &d.Users[0]
	}
	return nil
}

// FindTransaction locates a transaction by id across all books.
func (d *GlobalData) FindTransaction(id string) (*Book, *Transaction) {
	for i := range d.Books {
		b := &d.Books[i]
		for j := range b.Transactions {
			if b.Transactions[j].ID == id {
				return b, &b.Transactions[j]
			}
		}
	}
	return nil, nil
}
