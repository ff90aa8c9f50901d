package rank

import (
	"wonk/internal/store"
	"wonk/internal/wonktype"
)

// SmartResult is the fully-processed output of RankSearch: deduped,
// ordered, tier-grouped results ready for the output formatter to
// stream, plus how many rows a token budget dropped.
type SmartResult struct {
	Groups         []TierGroup
	TruncatedCount int
}

// RankSearch classifies, orders, dedups, and (optionally) budget-
// truncates a raw result batch, loading the definition/reference
// lookup for the files actually present in the batch — mirroring
// ranker.rs's rank_and_dedup, which opens the connection once and
// reuses it across classification, not once per row.
func RankSearch(db *store.DB, results []Result, budget *Budget) SmartResult {
	lookup := loadLookup(db, results)
	classified := Classify(results, lookup)
	ordered := Order(classified)
	deduped := Dedup(ordered)

	if budget != nil {
		kept, dropped := Truncate(deduped, budget)
		return SmartResult{Groups: GroupByTier(kept), TruncatedCount: dropped}
	}
	return SmartResult{Groups: GroupByTier(deduped)}
}

// loadLookup fetches symbols and references only for the files present
// in results, so a large repo's full index is never pulled into
// memory just to classify one search's hits.
func loadLookup(db *store.DB, results []Result) *Lookup {
	if db == nil {
		return nil
	}
	files := map[string]bool{}
	for _, r := range results {
		files[r.File] = true
	}

	var symbols []wonktype.Symbol
	var refs []wonktype.Reference
	for file := range files {
		if syms, err := db.SymbolsByFile(file); err == nil {
			symbols = append(symbols, syms...)
		}
		if rs, err := db.ReferencesByFile(file); err == nil {
			refs = append(refs, rs...)
		}
	}
	return NewLookup(symbols, refs)
}

// ShouldEngage reports whether the ranker should run automatically for
// a `search` invocation, per §4.7's "runs if the pattern matches at
// least one symbol name in the index".
func ShouldEngage(db *store.DB, pattern string) bool {
	if db == nil {
		return false
	}
	return db.CountMatchingSymbols(pattern) > 0
}
