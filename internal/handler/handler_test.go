package handler

import (
	"strings"
	"testing"
)

func TestParseTaskButton(t *testing.T) {
	tests := []struct {
		text   string
		wantN  int
		wantOK bool
	}{
		{"Задание 1", 1, true},
		{"Задание 42", 42, true},
		{"Задание 0", 0, false},
		{"Задание -3", 0, false},
		{"Задание абв", 0, false},
		{"Задание", 0, false},
		{"Задание 1 2", 0, false},
		{"задание 1", 0, false},
		{"Следующее задание", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		n, ok := ParseTaskButton(tt.text)
		if n != tt.wantN || ok != tt.wantOK {
			t.Errorf("ParseTaskButton(%q) = (%d, %v), want (%d, %v)",
				tt.text, n, ok, tt.wantN, tt.wantOK)
		}
	}
}

func TestTaskButtonLabelRoundTrip(t *testing.T) {
	for _, n := range []int{1, 7, 15} {
		got, ok := ParseTaskButton(TaskButtonLabel(n))
		if !ok || got != n {
			t.Errorf("round trip for %d: got (%d, %v)", n, got, ok)
		}
	}
}

func TestMergeData(t *testing.T) {
	base := map[string]string{"a": "1", "b": "2"}

	merged := mergeData(base, "b", "3", "c", "4")

	if merged["a"] != "1" || merged["b"] != "3" || merged["c"] != "4" {
		t.Fatalf("merged = %v", merged)
	}
	if base["b"] != "2" {
		t.Fatal("mergeData mutated its input")
	}

	if got := mergeData(nil, "k", "v"); got["k"] != "v" {
		t.Fatalf("merge over nil base = %v", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 200); got != "short" {
		t.Errorf("truncate(short) = %q", got)
	}

	long := strings.Repeat("ошибка ", 50)
	got := truncate(long, 20)
	if runes := []rune(got); len(runes) != 20 {
		t.Errorf("truncated length = %d runes, want 20", len(runes))
	}
	if !strings.HasPrefix(long, got) {
		t.Error("truncate returned a non-prefix")
	}
}
