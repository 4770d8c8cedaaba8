package reconciliation

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ajopay/internal/domain"
)

func item(source domain.ItemSource, amountKobo int64, ref string, date *time.Time) *domain.ReconciliationItem {
	return &domain.ReconciliationItem{
		ID:         uuid.New(),
		RunID:      uuid.New(),
		Source:     source,
		Reference:  ref,
		AmountKobo: amountKobo,
		Currency:   domain.NGN,
		EntryDate:  date,
		Status:     domain.ItemStatusPending,
	}
}

func datePtr(s string) *time.Time {
	d, _ := time.Parse("2006-01-02", s)
	return &d
}

func TestSuggestMatchesExactNegationSameReference(t *testing.T) {
	ledger := item(domain.SourceLedger, -50000, "TRX-001", datePtr("2026-03-01"))
	psp := item(domain.SourcePSP, 50000, "TRX-001", datePtr("2026-03-01"))

	suggestions := suggestMatches([]*domain.ReconciliationItem{ledger, psp})
	require.Len(t, suggestions, 1)

	s := suggestions[0]
	assert.ElementsMatch(t, []uuid.UUID{ledger.ID, psp.ID}, s.ItemIDs)
	assert.GreaterOrEqual(t, s.Confidence, exactMatchFloor)
	assert.Contains(t, s.Reason, "exact")
}

func TestSuggestMatchesNoAmountNegationNoSuggestion(t *testing.T) {
	ledger := item(domain.SourceLedger, -50000, "TRX-001", nil)
	psp := item(domain.SourcePSP, 45000, "TRX-001", nil)

	suggestions := suggestMatches([]*domain.ReconciliationItem{ledger, psp})
	assert.Empty(t, suggestions)
}

func TestSuggestMatchesDissimilarReferenceIsProbable(t *testing.T) {
	ledger := item(domain.SourceLedger, -50000, "CONTRIB-MARCH", nil)
	psp := item(domain.SourcePSP, 50000, "ZZZZZZZZ", nil)

	suggestions := suggestMatches([]*domain.ReconciliationItem{ledger, psp})
	require.Len(t, suggestions, 1)
	assert.Less(t, suggestions[0].Confidence, exactMatchFloor)
	assert.Contains(t, suggestions[0].Reason, "probable")
}

func TestSuggestMatchesClaimsCounterpartOnce(t *testing.T) {
	ledgerA := item(domain.SourceLedger, -50000, "TRX-001", nil)
	ledgerB := item(domain.SourceLedger, -50000, "TRX-002", nil)
	psp := item(domain.SourcePSP, 50000, "TRX-001", nil)

	suggestions := suggestMatches([]*domain.ReconciliationItem{ledgerA, ledgerB, psp})
	require.Len(t, suggestions, 1)
	assert.ElementsMatch(t, []uuid.UUID{ledgerA.ID, psp.ID}, suggestions[0].ItemIDs)
}

func TestSuggestMatchesSkipsNonPendingItems(t *testing.T) {
	ledger := item(domain.SourceLedger, -50000, "TRX-001", nil)
	psp := item(domain.SourcePSP, 50000, "TRX-001", nil)
	psp.Status = domain.ItemStatusMatched

	suggestions := suggestMatches([]*domain.ReconciliationItem{ledger, psp})
	assert.Empty(t, suggestions)
}

func TestSuggestMatchesPrefersCloserReference(t *testing.T) {
	ledger := item(domain.SourceLedger, -50000, "TRX-001", nil)
	far := item(domain.SourcePSP, 50000, "UNRELATED", nil)
	near := item(domain.SourcePSP, 50000, "TRX/001", nil)

	suggestions := suggestMatches([]*domain.ReconciliationItem{ledger, far, near})
	require.Len(t, suggestions, 1)
	assert.ElementsMatch(t, []uuid.UUID{ledger.ID, near.ID}, suggestions[0].ItemIDs)
}

func TestReferenceSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, referenceSimilarity("TRX-001", "trx/001"))
	assert.Equal(t, 0.0, referenceSimilarity("", "TRX-001"))
	assert.Less(t, referenceSimilarity("TRX-001", "PAYOUT-99"), 0.5)
}

func TestLevenshtein(t *testing.T) {
	assert.Equal(t, 0, levenshtein("abc", "abc"))
	assert.Equal(t, 3, levenshtein("", "abc"))
	assert.Equal(t, 1, levenshtein("kitten", "sitten"))
	assert.Equal(t, 3, levenshtein("kitten", "sitting"))
}
