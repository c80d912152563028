package domain

import "github.com/shopspring/decimal"

// AccountBalance derives the running balance of one account:
//
//	initialBalance
//	  + income into the account
//	  - expenses from the account
//	  - transfers out (accountId == id)
//	  + transfers in  (toAccountId == id)
//
// Balances are never stored. The sum is commutative, so the result is
// identical regardless of transaction storage order.
func AccountBalance(b Book, accountID string) decimal.Decimal {
	acc := decimal.Zero
	for i := range b.Accounts {
		if b.Accounts[i].ID == accountID {
			acc = b.Accounts[i].InitialBalance
			break
		}
	}
	for _, t := range b.Transactions {
		switch t.Type {
		case TxIncome:
			if t.AccountID == accountID {
				acc = acc.Add(t.Amount)
			}
		case TxExpense:
			if t.AccountID == accountID {
				acc = acc.Sub(t.Amount)
			}
		case TxTransfer:
			if t.AccountID == accountID {
				acc = acc.Sub(t.Amount)
			}
			if t.ToAccountID == accountID {
				acc = acc.Add(t.Amount)
			}
		}
	}
	return acc
}

// BookBalance derives the sum of all account balances in a book.
func BookBalance(b Book) decimal.Decimal {
	total := decimal.Zero
	for _, a := range b.Accounts {
		total = total.Add(AccountBalance(b, a.ID))
	}
	return total
}

// CategorySpend sums expense amounts for a category and its direct
// subcategories. Used by budget reporting against Category.BudgetLimit.
func CategorySpend(b Book, categoryID string) decimal.Decimal {
	ids := map[string]bool{categoryID: true}
	for _, c := range b.Categories {
		if c.ParentID == categoryID {
			ids[c.ID] = true
		}
	}
	total := decimal.Zero
	for _, t := range b.Transactions {
		if t.Type == TxExpense && ids[t.CategoryID] {
			total = total.Add(t.Amount)
		}
	}
	return total
}
