package recur

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/walletsync/internal/domain"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func ruleBook(rules ...domain.RecurringRule) domain.GlobalData {
	return domain.GlobalData{
		SchemaVersion: domain.CurrentSchemaVersion,
		Books: []domain.Book{{
			ID:           "b1",
			Name:         "Main",
			Currency:     "$",
			Transactions: []domain.Transaction{},
			Recurring:    rules,
		}},
		ActiveBookID: "b1",
		DeviceID:     "dev-1",
	}
}

func dailyRule(next string) domain.RecurringRule {
	return domain.RecurringRule{
		ID:          "r1",
		Amount:      decimal.RequireFromString("4.50"),
		Type:        domain.TxExpense,
		AccountID:   "a1",
		CategoryID:  "c1",
		Frequency:   domain.FreqDaily,
		StartDate:   next,
		NextRunDate: next,
		Note:        "Coffee",
	}
}

func TestMaterializeCatchesUpMissedDays(t *testing.T) {
	eng := New(fixedClock{testNow})
	d := ruleBook(dailyRule("2026-03-13T00:00:00Z"))

	out, changed := eng.Materialize(d, testNow)

	require.True(t, changed)
	// 13th, 14th and 15th are all due.
	require.Len(t, out.Books[0].Transactions, 3)
	assert.Equal(t, "2026-03-13T00:00:00Z", out.Books[0].Transactions[0].Date)
	assert.Equal(t, "2026-03-15T00:00:00Z", out.Books[0].Transactions[2].Date)
	assert.Equal(t, "2026-03-16T00:00:00Z", out.Books[0].Recurring[0].NextRunDate)

	for _, tx := range out.Books[0].Transactions {
		assert.True(t, tx.IsRecurring)
		assert.Equal(t, "Coffee", tx.Note)
		assert.True(t, tx.Amount.Equal(decimal.RequireFromString("4.50")))
	}
}

func TestMaterializeIdempotentForSameDay(t *testing.T) {
	eng := New(fixedClock{testNow})
	d := ruleBook(dailyRule("2026-03-15T00:00:00Z"))

	out, changed := eng.Materialize(d, testNow)
	require.True(t, changed)
	require.Len(t, out.Books[0].Transactions, 1)

	again, changed := eng.Materialize(out, testNow)
	assert.False(t, changed)
	assert.Len(t, again.Books[0].Transactions, 1)
}

func TestMaterializeNothingDue(t *testing.T) {
	eng := New(fixedClock{testNow})
	d := ruleBook(dailyRule("2026-03-16T00:00:00Z"))

	out, changed := eng.Materialize(d, testNow)

	assert.False(t, changed)
	assert.Len(t, out.Books[0].Transactions, 0)
}

func TestMaterializeCapsBacklog(t *testing.T) {
	eng := New(fixedClock{testNow}, WithMaxCatchUp(5))
	// A year behind: only the cap fires, and NextRunDate advances exactly
	// that far so the next call resumes the backlog.
	d := ruleBook(dailyRule("2025-03-15T00:00:00Z"))

	out, changed := eng.Materialize(d, testNow)

	require.True(t, changed)
	assert.Len(t, out.Books[0].Transactions, 5)
	assert.Equal(t, "2025-03-20T00:00:00Z", out.Books[0].Recurring[0].NextRunDate)

	out, changed = eng.Materialize(out, testNow)
	require.True(t, changed)
	assert.Len(t, out.Books[0].Transactions, 10)
}

func TestMaterializeMonthlyClampsEndOfMonth(t *testing.T) {
	rule := dailyRule("2026-01-31T00:00:00Z")
	rule.Frequency = domain.FreqMonthly
	eng := New(fixedClock{testNow})

	out, changed := eng.Materialize(ruleBook(rule), testNow)

	require.True(t, changed)
	require.Len(t, out.Books[0].Transactions, 2)
	assert.Equal(t, "2026-01-31T00:00:00Z", out.Books[0].Transactions[0].Date)
	// Jan 31 + 1 month clamps to Feb 28, not Mar 2.
	assert.Equal(t, "2026-02-28T00:00:00Z", out.Books[0].Transactions[1].Date)
	assert.Equal(t, "2026-03-28T00:00:00Z", out.Books[0].Recurring[0].NextRunDate)
}

func TestMaterializeSkipsExpiredRule(t *testing.T) {
	rule := dailyRule("2026-03-10T00:00:00Z")
	rule.EndDate = "2026-03-05T00:00:00Z"
	eng := New(fixedClock{testNow})

	out, changed := eng.Materialize(ruleBook(rule), testNow)

	assert.False(t, changed)
	// Retained for history even though it no longer fires.
	require.Len(t, out.Books[0].Recurring, 1)
}

func TestMaterializeSkipsMalformedRule(t *testing.T) {
	bad := dailyRule("not-a-date")
	bad.ID = "r-bad"
	good := dailyRule("2026-03-15T00:00:00Z")
	eng := New(fixedClock{testNow})

	out, changed := eng.Materialize(ruleBook(bad, good), testNow)

	require.True(t, changed)
	require.Len(t, out.Books[0].Transactions, 1)
	assert.Equal(t, OccurrenceID("r1", domain.Midnight(testNow)), out.Books[0].Transactions[0].ID)
}

func TestMaterializeSkipsUnknownFrequency(t *testing.T) {
	bad := dailyRule("2026-03-05T00:00:00Z")
	bad.ID = "r-bad"
	bad.Frequency = "fortnightly"
	good := dailyRule("2026-03-15T00:00:00Z")
	eng := New(fixedClock{testNow})

	out, changed := eng.Materialize(ruleBook(bad, good), testNow)

	// The unknown frequency fires nothing, not one-per-day, and leaves
	// its NextRunDate where it was; the valid rule still runs.
	require.True(t, changed)
	require.Len(t, out.Books[0].Transactions, 1)
	assert.Equal(t, OccurrenceID("r1", domain.Midnight(testNow)), out.Books[0].Transactions[0].ID)
	assert.Equal(t, "2026-03-05T00:00:00Z", out.Books[0].Recurring[0].NextRunDate)
}

func TestOccurrenceIDStableAcrossDevices(t *testing.T) {
	day := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, OccurrenceID("r1", day), OccurrenceID("r1", day))
	assert.NotEqual(t, OccurrenceID("r1", day), OccurrenceID("r2", day))
	assert.NotEqual(t, OccurrenceID("r1", day), OccurrenceID("r1", day.AddDate(0, 0, 1)))

	// Two devices catching up the same rule emit mergeable occurrences.
	eng := New(fixedClock{testNow})
	d := ruleBook(dailyRule("2026-03-15T00:00:00Z"))
	a, _ := eng.Materialize(d, testNow)
	b, _ := eng.Materialize(d, testNow)
	assert.Equal(t, a.Books[0].Transactions[0].ID, b.Books[0].Transactions[0].ID)
}
