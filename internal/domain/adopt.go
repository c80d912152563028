package domain

// IsPristine reports whether the document has never seen a user edit:
// a single book with no transactions and no recurring rules, i.e. the
// shape a freshly initialized device starts with. Adoption of a remote
// document is only safe while this holds; afterwards local history must
// go through the merge engine.
func IsPristine(d GlobalData) bool {
	if len(d.Books) != 1 {
		return false
	}
	b := d.Books[0]
	return len(b.Transactions) == 0 && len(b.Recurring) == 0
}

// Adopt returns the remote document's ledger content wholesale, carrying
// over only this device's local fields (device id, sync and backup
// settings, the current-user selection). A pristine device joining an
// established shared wallet calls this instead of Merge: merging would
// plant the joiner's default book and profile name into the family
// document, since merge never deletes and local identity wins.
func Adopt(local, remote GlobalData) GlobalData {
	out := remote.Clone()
	out.DeviceID = local.DeviceID
	if local.SyncConfig != nil {
		sc := *local.SyncConfig
		out.SyncConfig = &sc
	} else {
		out.SyncConfig = nil
	}
	if local.BackupConfig != nil {
		bc := *local.BackupConfig
		out.BackupConfig = &bc
	} else {
		out.BackupConfig = nil
	}

	// Keep the local active book only when the adopted document knows it.
	if out.FindBook(local.ActiveBookID) == nil && len(out.Books) > 0 {
		out.ActiveBookID = out.Books[0].ID
	} else {
		out.ActiveBookID = local.ActiveBookID
	}

	for i := range out.Users {
		out.Users[i].IsCurrentUser = false
	}
	if len(out.Users) > 0 {
		idx := 0
		if cur := local.CurrentUser(); cur != nil {
			for i := range out.Users {
				if out.Users[i].ID == cur.ID {
					idx = i
					break
				}
			}
		}
		out.Users[idx].IsCurrentUser = true
	}
	return out
}
