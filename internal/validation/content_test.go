package validation

import (
	"strings"
	"testing"
)

func TestValidateContent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		ok      bool
	}{
		{name: "plain text", content: "nice shot", ok: true},
		{name: "padded text", content: "  gg  ", ok: true},
		{name: "empty", content: "", ok: false},
		{name: "spaces only", content: "    ", ok: false},
		{name: "mixed whitespace", content: " \t\n ", ok: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateContent(tc.content)
			if tc.ok && err != nil {
				t.Fatalf("expected valid content, got error: %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatalf("expected invalid content, got nil error")
			}
		})
	}
}

func TestNormalizeGuestName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{name: "simple", in: "Nova", want: "Nova", ok: true},
		{name: "trimmed", in: "  Maverick ", want: "Maverick", ok: true},
		{name: "blank", in: "   ", ok: false},
		{name: "colon is left to the server", in: "a:b", want: "a:b", ok: true},
		{name: "maximum length", in: strings.Repeat("x", 150), want: strings.Repeat("x", 150), ok: true},
		{name: "too long", in: strings.Repeat("x", 151), ok: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizeGuestName(tc.in)
			if tc.ok {
				if err != nil {
					t.Fatalf("expected valid name, got error: %v", err)
				}
				if got != tc.want {
					t.Fatalf("NormalizeGuestName(%q) = %q, want %q", tc.in, got, tc.want)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected invalid name, got nil error")
			}
		})
	}
}

func TestValidateLoginUsername(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		ok   bool
	}{
		{name: "simple", in: "mod", ok: true},
		{name: "blank", in: "  ", ok: false},
		{name: "colon", in: "mod:x", ok: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateLoginUsername(tc.in)
			if tc.ok && err != nil {
				t.Fatalf("expected valid username, got error: %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatalf("expected invalid username, got nil error")
			}
		})
	}
}
