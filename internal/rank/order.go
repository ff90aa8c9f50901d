package rank

import "sort"

// Annotated pairs a Classified row with the "(+N other locations)"
// count attached when it collapses other rows sharing its symbol name.
type Annotated struct {
	Classified
	OtherLocations int
}

// Order sorts classified results into the fixed output tier sequence
// (Definition -> CallSite -> Import -> Other -> Comment -> Test), and
// within a tier by file path then ascending line, per §4.7.
func Order(results []Classified) []Classified {
	out := make([]Classified, len(results))
	copy(out, results)
	sort.SliceStable(out, func(i, j int) bool {
		ti, tj := TierRank(out[i].Category), TierRank(out[j].Category)
		if ti != tj {
			return ti < tj
		}
		if out[i].Result.File != out[j].Result.File {
			return out[i].Result.File < out[j].Result.File
		}
		return out[i].Result.Line < out[j].Result.Line
	})
	return out
}

// Dedup collapses re-exports of the same symbol name within the
// Definition tier to a single canonical row, and — when a name has no
// Definition row at all — collapses its re-exports within the Import
// tier the same way. The surviving row is annotated with how many
// other locations were folded into it. Deterministic: Dedup(Order(x))
// run twice on the same input x yields identical rows and counts.
// Feeding Dedup's own output back in keeps the same rows, but their
// counts read 0, since Classified carries no count to collapse again.
func Dedup(ordered []Classified) []Annotated {
	defFirst := map[string]int{} // name -> index of first Definition row in `ordered`
	impFirst := map[string]int{} // name -> index of first Import row, only consulted when no Definition exists

	hasDefinition := map[string]bool{}
	for i, c := range ordered {
		if c.Category == CategoryDefinition && c.Result.Name != "" {
			hasDefinition[c.Result.Name] = true
			if _, ok := defFirst[c.Result.Name]; !ok {
				defFirst[c.Result.Name] = i
			}
		}
	}
	for i, c := range ordered {
		if c.Category == CategoryImport && c.Result.Name != "" && !hasDefinition[c.Result.Name] {
			if _, ok := impFirst[c.Result.Name]; !ok {
				impFirst[c.Result.Name] = i
			}
		}
	}

	skip := make([]bool, len(ordered))
	extra := make([]int, len(ordered))
	for i, c := range ordered {
		if c.Result.Name == "" {
			continue
		}
		switch c.Category {
		case CategoryDefinition:
			if first := defFirst[c.Result.Name]; first != i {
				skip[i] = true
				extra[first]++
			}
		case CategoryImport:
			if !hasDefinition[c.Result.Name] {
				if first := impFirst[c.Result.Name]; first != i {
					skip[i] = true
					extra[first]++
				}
			}
		}
	}

	out := make([]Annotated, 0, len(ordered))
	for i, c := range ordered {
		if skip[i] {
			continue
		}
		out = append(out, Annotated{Classified: c, OtherLocations: extra[i]})
	}
	return out
}

// MarkerLine returns the category-header marker line for c, per §4.7's
// naming (`-- definitions --`, `-- usages --`, `-- imports --`,
// `-- other --`, `-- comments --`, `-- tests --`). Every marker begins
// with "-- " so multiplexing consumers can distinguish it from a
// `file:line:content` result line.
func MarkerLine(c Category) string {
	switch c {
	case CategoryDefinition:
		return "-- definitions --"
	case CategoryCallSite:
		return "-- usages --"
	case CategoryImport:
		return "-- imports --"
	case CategoryComment:
		return "-- comments --"
	case CategoryTest:
		return "-- tests --"
	default:
		return "-- other --"
	}
}

// GroupByTier splits ordered+deduped results into per-category slices
// in tier order, alongside the marker line for each non-empty group —
// the shape the output formatter iterates over to interleave markers
// on the side channel with result rows on the primary stream.
func GroupByTier(results []Annotated) []TierGroup {
	var groups []TierGroup
	var current *TierGroup
	for _, r := range results {
		if current == nil || current.Category != r.Category {
			groups = append(groups, TierGroup{Category: r.Category, Marker: MarkerLine(r.Category)})
			current = &groups[len(groups)-1]
		}
		current.Results = append(current.Results, r)
	}
	return groups
}

// TierGroup is a contiguous run of same-category results in tier order.
type TierGroup struct {
	Category Category
	Marker   string
	Results  []Annotated
}

// Truncate walks ordered in order, keeping rows until one no longer
// fits within budget, then stops — everything after that point is
// dropped, preserving tier order in the kept prefix rather than
// skipping around for a tighter fit.
func Truncate(results []Annotated, budget *Budget) ([]Annotated, int) {
	for i, r := range results {
		if !budget.TryConsume(r.Result.Content) {
			return results[:i], len(results) - i
		}
	}
	return results, 0
}
