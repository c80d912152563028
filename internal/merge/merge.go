package merge

import (
	"github.com/roach88/walletsync/internal/domain"
)

// Merge reconciles a remote snapshot into the local one and returns the
// combined document. Neither input is mutated.
func Merge(local, remote domain.GlobalData) domain.GlobalData {
	out := local.Clone()

	known := make(map[string]int, len(out.Books))
	for i := range out.Books {
		known[out.Books[i].ID] = i
	}

	for _, rb := range remote.Books {
		if i, ok := known[rb.ID]; ok {
			out.Books[i] = mergeBook(out.Books[i], rb)
			continue
		}
		// Unknown remote book: append as-is. Books are only ever deleted by
		// explicit local action, never by merge.
		out.Books = append(out.Books, rb.Clone())
	}

	out.Users = mergeUsers(out.Users, remote.Users)
	return out
}

// mergeBook combines the contents of one book present on both sides.
// The local book's identity fields (name, currency, color) are kept.
func mergeBook(local, remote domain.Book) domain.Book {
	out := local
	out.Transactions = mergeTransactions(local.Transactions, remote.Transactions)
	out.Accounts = unionAccounts(local.Accounts, remote.Accounts)
	out.Categories = unionCategories(local.Categories, remote.Categories)
	out.Recurring = unionRecurring(local.Recurring, remote.Recurring)
	return out
}

// mergeTransactions builds the union keyed by id. Ids on one side only are
// included unconditionally. Ids on both sides resolve record-granular
// last-write-wins on UpdatedAt; a strictly later remote wins entirely, a
// tie keeps local.
func mergeTransactions(local, remote []domain.Transaction) []domain.Transaction {
	out := make([]domain.Transaction, len(local))
	copy(out, local)

	index := make(map[string]int, len(out))
	for i := range out {
		index[out[i].ID] = i
	}

	for _, rt := range remote {
		i, ok := index[rt.ID]
		if !ok {
			out = append(out, rt.Clone())
			continue
		}
		if rt.UpdatedTime().After(out[i].UpdatedTime()) {
			out[i] = rt.Clone()
		}
	}
	return out
}

// mergeUsers unions by id. Known users keep the local version (profile
// edits win locally only - a known limitation). Remote-sourced entries have
// IsCurrentUser cleared: each device's notion of "current user" is local.
func mergeUsers(local, remote []domain.UserProfile) []domain.UserProfile {
	out := make([]domain.UserProfile, len(local))
	copy(out, local)

	known := make(map[string]bool, len(out))
	for _, u := range out {
		known[u.ID] = true
	}
	for _, ru := range remote {
		if known[ru.ID] {
			continue
		}
		ru.IsCurrentUser = false
		out = append(out, ru)
	}
	return out
}

func unionAccounts(local, remote []domain.Account) []domain.Account {
	out := make([]domain.Account, len(local))
	copy(out, local)
	known := make(map[string]bool, len(out))
	for _, a := range out {
		known[a.ID] = true
	}
	for _, ra := range remote {
		if !known[ra.ID] {
			out = append(out, ra)
		}
	}
	return out
}

func unionCategories(local, remote []domain.Category) []domain.Category {
	out := make([]domain.Category, len(local))
	copy(out, local)
	known := make(map[string]bool, len(out))
	for _, c := range out {
		known[c.ID] = true
	}
	for _, rc := range remote {
		if !known[rc.ID] {
			out = append(out, rc)
		}
	}
	return out
}

// unionRecurring appends unknown remote rules. For known ids the local rule
// is kept wholesale, including NextRunDate: both devices materialize
// independently and the recurrence engine's duplicate guard is idempotence
// per asOf, not cross-device dedup.
func unionRecurring(local, remote []domain.RecurringRule) []domain.RecurringRule {
	out := make([]domain.RecurringRule, len(local))
	copy(out, local)
	known := make(map[string]bool, len(out))
	for _, r := range out {
		known[r.ID] = true
	}
	for _, rr := range remote {
		if !known[rr.ID] {
			out = append(out, rr)
		}
	}
	return out
}
