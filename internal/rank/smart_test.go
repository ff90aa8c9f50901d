package rank

import (
	"context"
	"path/filepath"
	"testing"

	"wonk/internal/store"
	"wonk/internal/wonktype"
)

func TestRankSearchClassifiesAndOrders(t *testing.T) {
	dir := t.TempDir()
	db, err := store.Open(filepath.Join(dir, "index.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	rec := wonktype.FileRecord{Path: "src/main.go", Language: "go", Hash: "h1"}
	syms := []wonktype.Symbol{{Name: "processPayment", Kind: wonktype.KindFunction, File: "src/main.go", Line: 10}}
	if err := db.ReplaceFile(context.Background(), rec, syms, nil); err != nil {
		t.Fatal(err)
	}

	results := []Result{
		{File: "src/main.go", Line: 10, Content: "func processPayment() {}", Name: "processPayment"},
		{File: "src/other.go", Line: 1, Content: "// a comment"},
	}

	out := RankSearch(db, results, nil)
	if len(out.Groups) == 0 {
		t.Fatal("expected at least one tier group")
	}
	if out.Groups[0].Category != CategoryDefinition {
		t.Errorf("expected Definition tier first, got %v", out.Groups[0].Category)
	}
}

func TestRankSearchTruncatesWithBudget(t *testing.T) {
	results := []Result{
		{File: "a.go", Line: 1, Content: "aaaaaaaaaaaaaaaaaaaa"},
		{File: "b.go", Line: 1, Content: "bbbbbbbbbbbbbbbbbbbb"},
	}
	out := RankSearch(nil, results, NewBudget(5))
	total := 0
	for _, g := range out.Groups {
		total += len(g.Results)
	}
	if total != 1 || out.TruncatedCount != 1 {
		t.Errorf("expected 1 kept/1 truncated, got kept=%d truncated=%d", total, out.TruncatedCount)
	}
}

func TestShouldEngageFalseWithNoDB(t *testing.T) {
	if ShouldEngage(nil, "anything") {
		t.Error("expected ShouldEngage to be false with no db")
	}
}
