package reconciliation

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"

	"ajopay/internal/domain"
)

// MatchSuggestion is an ephemeral pairing proposal. It is never persisted;
// confirming one transitions its member items to matched.
type MatchSuggestion struct {
	ItemIDs    []uuid.UUID `json:"item_ids"`
	Confidence float64     `json:"confidence"`
	Reason     string      `json:"reason"`
}

const (
	exactMatchFloor    = 0.90
	probableMatchFloor = 0.60
)

// suggestMatches proposes pairings between pending items: for each ledger
// item it looks for a PSP or bank item whose signed amount is the exact
// negation, then scores the pair on reference similarity and date proximity.
// Pairs scoring below the probable floor are not suggested.
func suggestMatches(items []*domain.ReconciliationItem) []MatchSuggestion {
	var ledgerItems, externalItems []*domain.ReconciliationItem
	for _, item := range items {
		if item.Status != domain.ItemStatusPending {
			continue
		}
		if item.Source == domain.SourceLedger {
			ledgerItems = append(ledgerItems, item)
		} else {
			externalItems = append(externalItems, item)
		}
	}

	// Index external items by signed amount for O(1) counterpart lookup.
	byAmount := make(map[int64][]*domain.ReconciliationItem)
	for _, item := range externalItems {
		byAmount[item.AmountKobo] = append(byAmount[item.AmountKobo], item)
	}

	claimed := make(map[uuid.UUID]bool)
	var suggestions []MatchSuggestion

	for _, ledgerItem := range ledgerItems {
		candidates := byAmount[-ledgerItem.AmountKobo]
		var best *domain.ReconciliationItem
		bestScore := 0.0
		for _, c := range candidates {
			if claimed[c.ID] {
				continue
			}
			score := pairScore(ledgerItem, c)
			if score > bestScore {
				best = c
				bestScore = score
			}
		}
		if best == nil || bestScore < probableMatchFloor {
			continue
		}

		claimed[best.ID] = true
		reason := fmt.Sprintf("amount negation %d <-> %d", ledgerItem.AmountKobo, best.AmountKobo)
		if bestScore >= exactMatchFloor {
			reason = "exact " + reason
		} else {
			reason = "probable " + reason
		}

		suggestions = append(suggestions, MatchSuggestion{
			ItemIDs:    []uuid.UUID{ledgerItem.ID, best.ID},
			Confidence: math.Round(bestScore*100) / 100,
			Reason:     reason,
		})
	}

	sort.Slice(suggestions, func(i, j int) bool {
		return suggestions[i].Confidence > suggestions[j].Confidence
	})
	return suggestions
}

// pairScore weighs amount negation (given), reference similarity, and
// date proximity into a 0..1 confidence.
func pairScore(a, b *domain.ReconciliationItem) float64 {
	score := 0.60 // exact amount negation

	score += 0.30 * referenceSimilarity(a.Reference, b.Reference)

	if a.EntryDate != nil && b.EntryDate != nil {
		days := math.Abs(a.EntryDate.Sub(*b.EntryDate).Hours() / 24)
		switch {
		case days <= 1:
			score += 0.10
		case days <= 3:
			score += 0.07
		case days <= 7:
			score += 0.04
		}
	} else {
		// no dates to compare: neutral half-credit
		score += 0.05
	}

	return math.Min(score, 1.0)
}

// referenceSimilarity returns 0..1 token similarity between two references
// using per-token Levenshtein distance.
func referenceSimilarity(a, b string) float64 {
	aTokens := strings.Fields(normalizeReference(a))
	bTokens := strings.Fields(normalizeReference(b))
	if len(aTokens) == 0 || len(bTokens) == 0 {
		return 0
	}

	total := 0.0
	for _, at := range aTokens {
		best := 0.0
		for _, bt := range bTokens {
			dist := levenshtein(at, bt)
			maxLen := math.Max(float64(len(at)), float64(len(bt)))
			sim := 1 - float64(dist)/maxLen
			if sim > best {
				best = sim
			}
		}
		total += best
	}
	return total / float64(len(aTokens))
}

func normalizeReference(s string) string {
	s = strings.ToUpper(s)
	s = strings.ReplaceAll(s, "-", " ")
	s = strings.ReplaceAll(s, "/", " ")
	s = strings.ReplaceAll(s, "_", " ")
	return strings.TrimSpace(s)
}

func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	dp := make([][]int, len(a)+1)
	for i := range dp {
		dp[i] = make([]int, len(b)+1)
	}
	for i := 0; i <= len(a); i++ {
		dp[i][0] = i
	}
	for j := 0; j <= len(b); j++ {
		dp[0][j] = j
	}

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			dp[i][j] = minOf(
				dp[i-1][j]+1,
				dp[i][j-1]+1,
				dp[i-1][j-1]+cost,
			)
		}
	}
	return dp[len(a)][len(b)]
}

func minOf(a, b, c int) int {
	if a < b && a < c {
		return a
	}
	if b < c {
		return b
	}
	return c
}
