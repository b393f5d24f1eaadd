package ui

import (
	"os"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestFormatterWithColor(t *testing.T) {
	// Ensure NO_COLOR is not set for this test.
	os.Unsetenv("NO_COLOR")
	// Force color output for testing.
	color.NoColor = false

	// Code formatter should not have backticks when color is enabled.
	result := Code.Sprint("stash unpack")
	if strings.Contains(result, "`") {
		t.Errorf("Code.Sprint should not contain backticks when color is enabled, got: %s", result)
	}

	// Verify it contains ANSI escape codes (color output).
	if !strings.Contains(result, "\x1b[") {
		t.Errorf("Code.Sprint should contain ANSI escape codes when color is enabled, got: %s", result)
	}
}

func TestFormatterWithNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	tests := []struct {
		name      string
		formatter Formatter
		input     string
		want      string
	}{
		{"Code adds backticks", Code, "stash unpack", "`stash unpack`"},
		{"Path has no decoration", Path, "~/stash", "~/stash"},
		{"Flag has no decoration", Flag, "--copy", "--copy"},
		{"Item adds quotes", Item, "taxes.pdf", "'taxes.pdf'"},
		{"Success has no decoration", Success, "✓", "✓"},
		{"Error has no decoration", Error, "✗", "✗"},
		{"Warning has no decoration", Warning, "⚠", "⚠"},
		{"Info has no decoration", Info, "→", "→"},
		{"Highlight adds quotes", Highlight, "personal", "'personal'"},
		{"Muted adds parentheses", Muted, "copy", "(copy)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.formatter.Sprint(tt.input)
			if got != tt.want {
				t.Errorf("%s.Sprint(%q) = %q, want %q", tt.name, tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatterSprintf(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	result := Code.Sprintf("stash grab %s", "notes.txt")
	want := "`stash grab notes.txt`"
	if result != want {
		t.Errorf("Code.Sprintf() = %q, want %q", result, want)
	}
}

func TestNoColorFunction(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	if !noColor() {
		t.Error("noColor() should return true when NO_COLOR is set")
	}
	os.Unsetenv("NO_COLOR")

	originalNoColor := color.NoColor
	color.NoColor = true
	if !noColor() {
		t.Error("noColor() should return true when color.NoColor is true")
	}
	color.NoColor = originalNoColor
}

func TestState(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	if got := State(true); got != "[archived]" {
		t.Errorf("State(true) = %q", got)
	}
	if got := State(false); got != "[unarchived]" {
		t.Errorf("State(false) = %q", got)
	}
}

func TestItems(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	got := Items([]string{"a.txt", "b.txt"}, "+")
	want := "  + 'a.txt'\n  + 'b.txt'\n"
	if got != want {
		t.Errorf("Items() = %q, want %q", got, want)
	}
	if Items(nil, "+") != "" {
		t.Error("Items(nil) should be empty")
	}
}

func TestEnsureNewline(t *testing.T) {
	for input, want := range map[string]string{"": "\n", "a": "a\n", "a\n": "a\n"} {
		if got := EnsureNewline(input); got != want {
			t.Errorf("EnsureNewline(%q) = %q, want %q", input, got, want)
		}
	}
}
