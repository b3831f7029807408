package content

import (
	"strings"
	"testing"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain text", "привет, мир", "привет, мир"},
		{"script tag stripped", `hello <script>alert("x")</script>`, "hello "},
		{"markup stripped", "<b>bold</b> and <i>italic</i>", "bold and italic"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.input); got != tt.expected {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestIsBlank(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"   ", true},
		{"\n\t ", true},
		{"x", false},
		{"  x  ", false},
	}

	for _, tt := range tests {
		if got := IsBlank(tt.input); got != tt.want {
			t.Errorf("IsBlank(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestValidateUsername(t *testing.T) {
	t.Run("valid names", func(t *testing.T) {
		for _, name := range []string{"abc", "player_1", "Some-Name", "x9_"} {
			if err := ValidateUsername(name); err != nil {
				t.Errorf("ValidateUsername(%q) = %v, want nil", name, err)
			}
		}
	})

	t.Run("too short", func(t *testing.T) {
		err := ValidateUsername("ab")
		if err == nil {
			t.Fatal("expected error for a 2-char name")
		}
		if !strings.Contains(err.Error(), "минимум 3 символа") {
			t.Errorf("unexpected message: %v", err)
		}
	})

	t.Run("bad charset", func(t *testing.T) {
		for _, name := range []string{"имя123", "with space", "dot.ted", "has!bang"} {
			if err := ValidateUsername(name); err == nil {
				t.Errorf("ValidateUsername(%q) = nil, want error", name)
			}
		}
	})
}
