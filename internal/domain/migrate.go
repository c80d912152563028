package domain

import (
	"encoding/json"
	"fmt"
)

// The document carries a schema version tag and is upgraded on load through
// a chain of pure functions, one per version step. Documents written before
// the tag existed decode as version 0.
//
// Version history:
//   0 - legacy shape: users/deviceId may be absent
//   1 - users and deviceId guaranteed
//   2 - book colors guaranteed, collection fields never nil

type migration func(*GlobalData, IDSource)

var migrations = []migration{
	migrateUsersAndDevice, // 0 -> 1
	migrateBookDefaults,   // 1 -> 2
}

// Decode parses a stored or received document and upgrades it to the
// current schema version. ids supplies identifiers for defaulted fields
// (deviceId).
func Decode(raw []byte, ids IDSource) (GlobalData, error) {
	var d GlobalData
	if err := json.Unmarshal(raw, &d); err != nil {
		return GlobalData{}, fmt.Errorf("decode document: %w", err)
	}
	return Upgrade(d, ids)
}

// Upgrade applies the migration chain to a decoded document.
func Upgrade(d GlobalData, ids IDSource) (GlobalData, error) {
	if d.SchemaVersion > CurrentSchemaVersion {
		return GlobalData{}, fmt.Errorf("document schema version %d is newer than supported %d", d.SchemaVersion, CurrentSchemaVersion)
	}
	if d.SchemaVersion < 0 {
		d.SchemaVersion = 0
	}
	for v := d.SchemaVersion; v < CurrentSchemaVersion; v++ {
		migrations[v](&d, ids)
		d.SchemaVersion = v + 1
	}
	return d, nil
}

// migrateUsersAndDevice backfills the fields the multi-user release added.
func migrateUsersAndDevice(d *GlobalData, ids IDSource) {
	if len(d.Users) == 0 {
		d.Users = []UserProfile{{ID: "u1", Name: "Me", IsCurrentUser: true}}
	}
	if d.DeviceID == "" {
		d.DeviceID = ids.NewID()
	}
}

// migrateBookDefaults backfills wallet theme colors and normalizes nil
// collections to empty slices so the wire shape is stable.
func migrateBookDefaults(d *GlobalData, _ IDSource) {
	for i := range d.Books {
		b := &d.Books[i]
		if b.Color == "" {
			b.Color = ColorFor(b.ID)
		}
		if b.Transactions == nil {
			b.Transactions = []Transaction{}
		}
		if b.Categories == nil {
			b.Categories = []Category{}
		}
		if b.Accounts == nil {
			b.Accounts = []Account{}
		}
		if b.Recurring == nil {
			b.Recurring = []RecurringRule{}
		}
	}
}
