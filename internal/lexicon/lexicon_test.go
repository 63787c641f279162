package lexicon

import (
	"slices"
	"testing"
)

func TestDefault_IsShared(t *testing.T) {
	t.Parallel()
	if Default() != Default() {
		t.Fatal("Default returned different instances")
	}
}

func TestFindAll_WordBoundaries(t *testing.T) {
	t.Parallel()
	l := Default()

	tests := []struct {
		category Category
		input    string
		want     []string
	}{
		{Quantity, "someone wants a couple of lattes", []string{"a couple"}},
		{Quantity, "a bakers dozen donuts and 3 muffins", []string{"a bakers dozen", "3"}},
		{Coffee, "two Coffees and a LATTE", []string{"coffees", "latte"}},
		{Bakery, "three glazed donuts", []string{"glazed donuts"}},
		{Food, "two sandwiches", []string{"sandwiches"}},
		{Milk, "a milkshake", []string{}},
		{Beverage, "a milkshake", []string{"milkshake"}},
		{Sweetener, "brown sugar and sugar", []string{"brown sugar", "sugar"}},
	}
	for _, tc := range tests {
		if got := l.FindAll(tc.category, tc.input); !slices.Equal(got, tc.want) {
			t.Errorf("FindAll(%s, %q) = %q, want %q", tc.category, tc.input, got, tc.want)
		}
	}
}

func TestCanonical(t *testing.T) {
	t.Parallel()
	l := Default()

	tests := []struct {
		category Category
		raw      string
		want     string
	}{
		{Coffee, "coffees", "coffee"},
		{Coffee, "Iced  Coffees", "iced coffee"},
		{Food, "sandwiches", "sandwich"},
		{Bakery, "brownies", "brownie"},
		{Bakery, "glazed donut", "glazed donut"},
		{Bakery, "pastries", "pastries"},
	}
	for _, tc := range tests {
		if got := l.Canonical(tc.category, tc.raw); got != tc.want {
			t.Errorf("Canonical(%s, %q) = %q, want %q", tc.category, tc.raw, got, tc.want)
		}
	}
}

func TestLookup(t *testing.T) {
	t.Parallel()
	l := Default()

	c, term, ok := l.Lookup("muffins")
	if !ok || c != Bakery || term != "muffin" {
		t.Errorf("Lookup(muffins) = (%s, %q, %v), want (bakery, muffin, true)", c, term, ok)
	}
	if _, _, ok := l.Lookup("please"); ok {
		t.Error("Lookup(please) matched, want no match")
	}
}

func TestNumber(t *testing.T) {
	t.Parallel()
	l := Default()

	for word, want := range DefaultNumbers() {
		got, ok := l.Number(word)
		if !ok || got != want {
			t.Errorf("Number(%q) = (%d, %v), want (%d, true)", word, got, ok, want)
		}
	}
	if n, ok := l.Number("17"); !ok || n != 17 {
		t.Errorf("Number(17) = (%d, %v), want (17, true)", n, ok)
	}
	if _, ok := l.Number("many"); ok {
		t.Error("Number(many) resolved, want not ok")
	}
}

func TestSplit(t *testing.T) {
	t.Parallel()
	got := Default().Split("two lattes with oat milk please")
	want := []string{"two", "lattes", "with", "oat milk", "please"}
	if !slices.Equal(got, want) {
		t.Errorf("Split = %q, want %q", got, want)
	}
}

func TestPhraseSpans(t *testing.T) {
	t.Parallel()
	s := "coffee with half and half"
	spans := Default().PhraseSpans(s)
	if len(spans) != 1 {
		t.Fatalf("PhraseSpans = %v, want one span", spans)
	}
	if got := s[spans[0][0]:spans[0][1]]; got != "half and half" {
		t.Errorf("span text = %q, want %q", got, "half and half")
	}
}

func TestNew_EmptyCategory(t *testing.T) {
	t.Parallel()
	l, err := New(Vocabulary{Coffee: {"latte"}}, map[string]int{"one": 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := l.FindAll(Bakery, "a muffin"); len(got) != 0 {
		t.Errorf("FindAll on empty category = %q, want empty", got)
	}
	if _, ok := l.HasPrefix(Bakery, "muffin"); ok {
		t.Error("HasPrefix on empty category matched")
	}
	if got := l.FindAll(Coffee, "one latte"); !slices.Equal(got, []string{"latte"}) {
		t.Errorf("FindAll(coffee) = %q, want [latte]", got)
	}
}
