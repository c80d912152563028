package domain

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateHashDeterministic(t *testing.T) {
	d := testData()

	h1, err := StateHash(d)
	require.NoError(t, err)
	h2, err := StateHash(d)
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
}

func TestStateHashIgnoresJSONFieldOrder(t *testing.T) {
	// The same content with fields in different order must hash equal.
	a := []byte(`{"schemaVersion":2,"books":[{"id":"b1","name":"A","currency":"$","color":"#fff","transactions":[],"categories":[],"accounts":[],"recurring":[]}],"activeBookId":"b1","users":[{"id":"u1","name":"Me"}],"deviceId":"d1"}`)
	b := []byte(`{"deviceId":"d1","users":[{"name":"Me","id":"u1"}],"activeBookId":"b1","books":[{"recurring":[],"accounts":[],"categories":[],"transactions":[],"color":"#fff","currency":"$","name":"A","id":"b1"}],"schemaVersion":2}`)

	ids := &seqIDs{}
	da, err := Decode(a, ids)
	require.NoError(t, err)
	db, err := Decode(b, ids)
	require.NoError(t, err)

	assert.Equal(t, MustStateHash(da), MustStateHash(db))
}

func TestStateHashChangesWithContent(t *testing.T) {
	d := testData()
	base := MustStateHash(d)

	d.Books[0].Transactions = append(d.Books[0].Transactions, Transaction{
		ID:        "t1",
		Amount:    decimal.NewFromInt(10),
		Type:      TxExpense,
		AccountID: "acc1",
		Date:      "2026-03-15T00:00:00Z",
	})

	assert.NotEqual(t, base, MustStateHash(d))
}

func TestContentHashIgnoresDeviceLocalFields(t *testing.T) {
	a := testData()
	b := a.Clone()
	b.DeviceID = "other-device"
	b.ActiveBookID = a.Books[0].ID
	b.SyncConfig = &SyncConfig{Mode: SyncModePeer, FamilyName: "smith", Slot: 2, Enabled: true}
	for i := range b.Users {
		b.Users[i].IsCurrentUser = false
	}

	require.NotEqual(t, MustStateHash(a), MustStateHash(b))

	ca, err := ContentHash(a)
	require.NoError(t, err)
	cb, err := ContentHash(b)
	require.NoError(t, err)
	assert.Equal(t, ca, cb)

	// Ledger changes still show up.
	b.Books[0].Transactions = append(b.Books[0].Transactions, Transaction{
		ID: "t9", Amount: decimal.NewFromInt(5), Type: TxExpense, AccountID: "acc1",
		Date: "2026-03-15T00:00:00Z",
	})
	cb2, err := ContentHash(b)
	require.NoError(t, err)
	assert.NotEqual(t, ca, cb2)
}

func TestMarshalCanonicalSortedKeys(t *testing.T) {
	d := testData()
	out, err := MarshalCanonical(d)
	require.NoError(t, err)

	// Top-level keys appear in sorted order.
	s := string(out)
	assert.Less(t, indexOf(s, `"activeBookId"`), indexOf(s, `"books"`))
	assert.Less(t, indexOf(s, `"books"`), indexOf(s, `"deviceId"`))
	assert.Less(t, indexOf(s, `"deviceId"`), indexOf(s, `"schemaVersion"`))
}

func TestMarshalCanonicalGolden(t *testing.T) {
	d := GlobalData{
		SchemaVersion: 2,
		Books: []Book{{
			ID:       "b1",
			Name:     "Household",
			Currency: "$",
			Color:    "#60a5fa",
			Transactions: []Transaction{{
				ID:         "t1",
				Amount:     decimal.RequireFromString("12.50"),
				Type:       TxExpense,
				AccountID:  "acc1",
				CategoryID: "c1",
				Date:       "2026-03-15T00:00:00Z",
				UpdatedAt:  "2026-03-15T12:00:00Z",
				Note:       "Groceries & fruit <weekly>",
				Tags:       []string{"food"},
			}},
			Categories: []Category{},
			Accounts:   []Account{},
			Recurring:  []RecurringRule{},
		}},
		ActiveBookID: "b1",
		Users:        []UserProfile{{ID: "u1", Name: "Me", IsCurrentUser: true}},
		DeviceID:     "device-1",
	}

	out, err := MarshalCanonical(d)
	require.NoError(t, err)

	g := goldie.New(t)
	g.Assert(t, "canonical_document", out)
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
