package output

import (
	"strings"
	"testing"
)

func TestFormatSearchResultGrepMode(t *testing.T) {
	var buf strings.Builder
	f := New(&buf, false, false)
	_, err := f.FormatSearchResult(SearchRecord{File: "a.go", Line: 5, Content: "func foo() {}"})
	if err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "a.go:5:func foo() {}\n" {
		t.Errorf("unexpected output: %q", got)
	}
}

func TestFormatSearchResultJSONMode(t *testing.T) {
	var buf strings.Builder
	f := New(&buf, true, false)
	_, err := f.FormatSearchResult(SearchRecord{File: "a.go", Line: 5, Content: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"file":"a.go"`) {
		t.Errorf("expected JSON record, got %q", buf.String())
	}
}

func TestFormatSearchResultWithAnnotation(t *testing.T) {
	var buf strings.Builder
	f := New(&buf, false, false)
	_, err := f.FormatSearchResult(SearchRecord{File: "a.go", Line: 1, Content: "x", Annotation: "(+2 other locations)"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "(+2 other locations)") {
		t.Errorf("expected annotation in output, got %q", buf.String())
	}
}

func TestFormatterRespectsBudget(t *testing.T) {
	var buf strings.Builder
	f := New(&buf, false, false)
	f.SetBudget(2)

	status1, _ := f.FormatSearchResult(SearchRecord{File: "a.go", Line: 1, Content: "x"})
	status2, _ := f.FormatSearchResult(SearchRecord{File: "b.go", Line: 1, Content: "this is a much longer line of content"})

	if status1 != Written {
		t.Error("expected first short result to fit within budget")
	}
	if status2 != Skipped {
		t.Error("expected second longer result to be skipped once budget is exhausted")
	}
}

func TestFormatSymbolGrepMode(t *testing.T) {
	var buf strings.Builder
	f := New(&buf, false, false)
	_, err := f.FormatSymbol(SymbolRecord{File: "a.go", Line: 3, Signature: "func foo()"})
	if err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "a.go:3:  func foo()\n" {
		t.Errorf("unexpected output: %q", got)
	}
}

func TestFormatLsSymbolIndent(t *testing.T) {
	var buf strings.Builder
	f := New(&buf, false, false)
	_, err := f.FormatLsSymbol(LsSymbolRecord{File: "a.go", Line: 1, Kind: "method", Name: "Bar", Indent: 1})
	if err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "a.go:1:    method Bar\n" {
		t.Errorf("unexpected output: %q", got)
	}
}

func TestFormatDep(t *testing.T) {
	var buf strings.Builder
	f := New(&buf, false, false)
	_, err := f.FormatDep(DepRecord{File: "a.go", DependsOn: "b.go"})
	if err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "a.go -> b.go\n" {
		t.Errorf("unexpected output: %q", got)
	}
}

func TestFormatTruncationMetaOnlyInJSONMode(t *testing.T) {
	var grepBuf strings.Builder
	grepFmt := New(&grepBuf, false, false)
	if err := grepFmt.FormatTruncationMeta(TruncationMeta{TruncatedCount: 5}); err != nil {
		t.Fatal(err)
	}
	if grepBuf.Len() != 0 {
		t.Errorf("expected no output in grep mode, got %q", grepBuf.String())
	}

	var jsonBuf strings.Builder
	jsonFmt := New(&jsonBuf, true, false)
	if err := jsonFmt.FormatTruncationMeta(TruncationMeta{TruncatedCount: 5, BudgetTokens: 100, UsedTokens: 100}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(jsonBuf.String(), `"truncated_count":5`) {
		t.Errorf("expected truncation record, got %q", jsonBuf.String())
	}
}

func TestHighlightWrapsMatchInColorMode(t *testing.T) {
	var buf strings.Builder
	f := New(&buf, false, true)
	f.SetHighlight("foo", false, false)
	_, err := f.FormatSearchResult(SearchRecord{File: "a.go", Line: 1, Content: "call foo here"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), Match) {
		t.Errorf("expected highlight escape codes in colorized output, got %q", buf.String())
	}
}
