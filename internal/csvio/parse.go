package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/walletsync/internal/domain"
)

// Row is one parsed import row, still in name form: books, accounts and
// categories are referenced by name and resolved during Apply.
type Row struct {
	Date        time.Time
	Amount      decimal.Decimal
	Type        domain.TransactionType
	Category    string
	Subcategory string
	Wallet      string
	Account     string
	ToAccount   string
	Currency    string
	Note        string
	Tags        []string
}

// columns maps field names to column indexes; -1 means absent.
type columns struct {
	wallet, date, amount, currency       int
	category, subcategory                int
	account, toAccount                   int
	txType, note, tags                   int
}

// defaultColumns is the fixed layout assumed when no header row is
// present: date, category, amount, note, type, (unused), tags.
func defaultColumns() columns {
	return columns{
		wallet: -1, date: 0, category: 1, amount: 2, currency: -1,
		note: 3, txType: 4, subcategory: -1, account: -1, toAccount: -1,
		tags: 6,
	}
}

var datePattern = regexp.MustCompile(`(\d+)[/-](\d+)[/-](\d+)`)

// ParseRows reads CSV transaction rows from r. Unparseable rows are
// skipped; only a malformed stream as a whole is an error.
func ParseRows(r io.Reader) ([]Row, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	text := strings.TrimPrefix(string(raw), "\uFEFF")
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = sniffDelimiter(text)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	cols := defaultColumns()
	start := 0
	if mapped, ok := mapHeader(records[0]); ok {
		cols = mapped
		start = 1
	}

	var rows []Row
	for _, record := range records[start:] {
		if len(record) < 2 {
			continue
		}
		row, ok := parseRecord(record, cols)
		if !ok {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// sniffDelimiter picks semicolon over comma when the first non-empty
// line contains more of them. European bank exports use semicolons.
func sniffDelimiter(text string) rune {
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.Count(line, ";") > strings.Count(line, ",") {
			return ';'
		}
		return ','
	}
	return ','
}

// mapHeader maps columns by fuzzy header names. A row without a
// date-like header is treated as data, not a header.
func mapHeader(record []string) (columns, bool) {
	lower := make([]string, len(record))
	for i, h := range record {
		lower[i] = strings.ToLower(strings.TrimSpace(h))
	}

	find := func(match func(string) bool) int {
		for i, h := range lower {
			if match(h) {
				return i
			}
		}
		return -1
	}
	contains := func(sub string) func(string) bool {
		return func(h string) bool { return strings.Contains(h, sub) }
	}

	date := find(contains("date"))
	if date == -1 {
		return columns{}, false
	}

	return columns{
		wallet: find(func(h string) bool {
			return strings.Contains(h, "wallet") || strings.Contains(h, "book")
		}),
		date: date,
		amount: find(func(h string) bool {
			return (strings.Contains(h, "amount") || strings.Contains(h, "value")) &&
				!strings.Contains(h, "target")
		}),
		currency: find(func(h string) bool {
			return strings.Contains(h, "currency") && !strings.Contains(h, "target")
		}),
		category: find(func(h string) bool {
			return strings.Contains(h, "category") && !strings.Contains(h, "sub")
		}),
		subcategory: find(contains("subcategory")),
		account: find(func(h string) bool {
			return strings.Contains(h, "account") && !strings.Contains(h, "to")
		}),
		toAccount: find(contains("to account")),
		txType:    find(contains("type")),
		note: find(func(h string) bool {
			return strings.Contains(h, "note") || strings.Contains(h, "description")
		}),
		tags: find(contains("tag")),
	}, true
}

func parseRecord(record []string, cols columns) (Row, bool) {
	field := func(i int) string {
		if i < 0 || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	dateStr := field(cols.date)
	amountStr := field(cols.amount)
	if dateStr == "" || amountStr == "" {
		return Row{}, false
	}

	amount, ok := parseAmount(amountStr)
	if !ok {
		return Row{}, false
	}
	date, ok := parseDate(dateStr)
	if !ok {
		return Row{}, false
	}

	category := field(cols.category)
	if category == "" {
		category = "Uncategorized"
	}
	subcategory := field(cols.subcategory)
	// "Category: Subcategory" and "Category - Subcategory" forms.
	if subcategory == "" {
		for _, sep := range []string{":", " - "} {
			if before, after, found := strings.Cut(category, sep); found {
				category = strings.TrimSpace(before)
				subcategory = strings.TrimSpace(after)
				break
			}
		}
	}

	typeStr := strings.ToLower(field(cols.txType))
	txType := domain.TxExpense
	switch {
	case strings.Contains(typeStr, "income"):
		txType = domain.TxIncome
	case strings.Contains(typeStr, "transfer"):
		txType = domain.TxTransfer
	}

	var tags []string
	if raw := field(cols.tags); raw != "" {
		for _, t := range strings.FieldsFunc(raw, func(r rune) bool { return r == ';' || r == ',' }) {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
	}

	return Row{
		Date:        date,
		Amount:      amount.Abs(),
		Type:        txType,
		Category:    category,
		Subcategory: subcategory,
		Wallet:      field(cols.wallet),
		Account:     field(cols.account),
		ToAccount:   field(cols.toAccount),
		Currency:    field(cols.currency),
		Note:        field(cols.note),
		Tags:        tags,
	}, true
}

// parseAmount strips currency symbols and thousand separators before
// reading the number.
func parseAmount(s string) (decimal.Decimal, bool) {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	d, err := decimal.NewFromString(b.String())
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// parseDate tries ISO forms first, then day-first numeric dates
// (31/01/2026, 31-1-2026).
func parseDate(s string) (time.Time, bool) {
	if t, ok := domain.ParseInstant(s); ok {
		return t, true
	}
	m := datePattern.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-1-2", fmt.Sprintf("%s-%s-%s", m[3], m[2], m[1]))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
