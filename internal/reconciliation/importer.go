package reconciliation

import (
	"encoding/csv"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ajopay/internal/domain"
	"ajopay/pkg/errors"
)

// RowError records a statement line the importer refused.
type RowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// ImportResult summarizes one statement import.
type ImportResult struct {
	RunID     uuid.UUID  `json:"run_id"`
	Source    domain.ItemSource `json:"source"`
	Created   int        `json:"created"`
	Dropped   int        `json:"dropped"` // zero-amount rows
	RowErrors []RowError `json:"row_errors,omitempty"`
}

var kobo = decimal.NewFromInt(100)

// parseStatement turns raw delimited text into normalized reconciliation
// items. The first row is a header naming at least an Amount column;
// Reference, Currency and Date columns are optional. Amounts are major
// units and are converted to kobo. Zero-amount rows are dropped, and rows
// whose amount does not parse are rejected as row errors rather than
// silently becoming zero.
func parseStatement(raw string, runID uuid.UUID, source domain.ItemSource, defaultCurrency domain.Currency) ([]*domain.ReconciliationItem, []RowError, int, error) {
	reader := csv.NewReader(strings.NewReader(raw))
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, nil, 0, errors.ErrEmptyStatement
	}

	amountCol, refCol, curCol, dateCol := -1, -1, -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "amount":
			amountCol = i
		case "reference", "ref":
			refCol = i
		case "currency":
			curCol = i
		case "date", "entry_date":
			dateCol = i
		}
	}
	if amountCol == -1 {
		return nil, nil, 0, errors.ErrMissingAmountColumn
	}

	var (
		items    []*domain.ReconciliationItem
		rowErrs  []RowError
		dropped  int
		line     = 1
	)

	for {
		line++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			rowErrs = append(rowErrs, RowError{Line: line, Reason: "malformed csv row"})
			continue
		}
		if amountCol >= len(record) {
			rowErrs = append(rowErrs, RowError{Line: line, Reason: "missing amount field"})
			continue
		}

		amount, err := decimal.NewFromString(strings.TrimSpace(record[amountCol]))
		if err != nil {
			rowErrs = append(rowErrs, RowError{Line: line, Reason: "unparseable amount"})
			continue
		}
		amountKobo := amount.Mul(kobo).IntPart()
		if amountKobo == 0 {
			dropped++
			continue
		}

		item := &domain.ReconciliationItem{
			ID:         uuid.New(),
			RunID:      runID,
			Source:     source,
			AmountKobo: amountKobo,
			Currency:   defaultCurrency,
			Status:     domain.ItemStatusPending,
			CreatedAt:  time.Now(),
			UpdatedAt:  time.Now(),
		}
		if refCol >= 0 && refCol < len(record) {
			item.Reference = strings.TrimSpace(record[refCol])
		}
		if curCol >= 0 && curCol < len(record) {
			if c := strings.ToUpper(strings.TrimSpace(record[curCol])); c != "" {
				item.Currency = domain.Currency(c)
			}
		}
		if dateCol >= 0 && dateCol < len(record) {
			if d, err := time.Parse("2006-01-02", strings.TrimSpace(record[dateCol])); err == nil {
				item.EntryDate = &d
			}
		}

		items = append(items, item)
	}

	if len(items) == 0 && len(rowErrs) == 0 && dropped == 0 {
		return nil, nil, 0, errors.ErrEmptyStatement
	}

	return items, rowErrs, dropped, nil
}
