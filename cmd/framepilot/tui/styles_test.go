package tui

import (
	"testing"
)

func TestRepeatChar(t *testing.T) {
	tests := []struct {
		char rune
		n    int
		want string
	}{
		{'─', 3, "───"},
		{'x', 0, ""},
		{'x', -1, ""},
	}
	for _, tt := range tests {
		if got := repeatChar(tt.char, tt.n); got != tt.want {
			t.Errorf("repeatChar(%q, %d) = %q, want %q", tt.char, tt.n, got, tt.want)
		}
	}
}

func TestPadLeft(t *testing.T) {
	if got := padLeft("42", 5); got != "   42" {
		t.Errorf("padLeft() = %q", got)
	}
	if got := padLeft("123456", 3); got != "123456" {
		t.Errorf("padLeft() = %q, want unchanged", got)
	}
}

func TestFPSStyle(t *testing.T) {
	tests := []struct {
		name string
		fps  int
		want string
	}{
		{"no data", 0, mutedTextStyle.Render("x")},
		{"too slow", 40, errorTextStyle.Render("x")},
		{"in band", 55, successTextStyle.Render("x")},
		{"too fast", 90, warningTextStyle.Render("x")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fpsStyle(tt.fps, 60, 10).Render("x"); got != tt.want {
				t.Errorf("fpsStyle(%d) rendered %q, want %q", tt.fps, got, tt.want)
			}
		})
	}
}
