package reconciliation

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ajopay/internal/domain"
	"ajopay/pkg/errors"
)

func TestParseStatementConvertsMajorUnitsToKobo(t *testing.T) {
	raw := "Reference,Amount,Currency,Date\nTRX-001,500.00,NGN,2026-03-01\n"

	items, rowErrs, dropped, err := parseStatement(raw, uuid.New(), domain.SourcePSP, domain.NGN)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Empty(t, rowErrs)
	assert.Zero(t, dropped)

	assert.Equal(t, int64(50000), items[0].AmountKobo)
	assert.Equal(t, "TRX-001", items[0].Reference)
	assert.Equal(t, domain.NGN, items[0].Currency)
	assert.Equal(t, domain.ItemStatusPending, items[0].Status)
	require.NotNil(t, items[0].EntryDate)
	assert.Equal(t, "2026-03-01", items[0].EntryDate.Format("2006-01-02"))
}

func TestParseStatementDropsZeroAmountRows(t *testing.T) {
	raw := "Reference,Amount\nTRX-001,0.00\nTRX-002,125.50\n"

	items, rowErrs, dropped, err := parseStatement(raw, uuid.New(), domain.SourceBank, domain.NGN)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Empty(t, rowErrs)
	assert.Equal(t, 1, dropped)
	assert.Equal(t, int64(12550), items[0].AmountKobo)
}

func TestParseStatementRejectsUnparseableAmounts(t *testing.T) {
	raw := "Reference,Amount\nTRX-001,not-a-number\nTRX-002,80.00\n"

	items, rowErrs, _, err := parseStatement(raw, uuid.New(), domain.SourcePSP, domain.NGN)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	require.Len(t, rowErrs, 1)
	assert.Equal(t, 2, rowErrs[0].Line)
	assert.Equal(t, "unparseable amount", rowErrs[0].Reason)
}

func TestParseStatementMissingAmountColumn(t *testing.T) {
	raw := "Reference,Total\nTRX-001,500.00\n"

	_, _, _, err := parseStatement(raw, uuid.New(), domain.SourcePSP, domain.NGN)
	assert.ErrorIs(t, err, errors.ErrMissingAmountColumn)
}

func TestParseStatementEmptyInput(t *testing.T) {
	_, _, _, err := parseStatement("", uuid.New(), domain.SourcePSP, domain.NGN)
	assert.ErrorIs(t, err, errors.ErrEmptyStatement)

	_, _, _, err = parseStatement("Reference,Amount\n", uuid.New(), domain.SourcePSP, domain.NGN)
	assert.ErrorIs(t, err, errors.ErrEmptyStatement)
}

func TestParseStatementNegativeAmounts(t *testing.T) {
	raw := "Reference,Amount\nPO-12,-250.00\n"

	items, _, _, err := parseStatement(raw, uuid.New(), domain.SourceLedger, domain.NGN)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(-25000), items[0].AmountKobo)
}

func TestParseStatementCurrencyColumnOverridesDefault(t *testing.T) {
	raw := "Reference,Amount,Currency\nTRX-001,10.00,ghs\nTRX-002,20.00,\n"

	items, _, _, err := parseStatement(raw, uuid.New(), domain.SourcePSP, domain.NGN)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, domain.GHS, items[0].Currency)
	assert.Equal(t, domain.NGN, items[1].Currency)
}
