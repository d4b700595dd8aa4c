package identity

import (
	"errors"
	"testing"
)

func TestNormalize_TableDriven(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr error
	}{
		{name: "bare id", raw: "U123", want: "<@U123>"},
		{name: "wrapped id", raw: "<@U123>", want: "<@U123>"},
		{name: "wrapped with label", raw: "<@U123|alice>", want: "<@U123>"},
		{name: "surrounding spaces", raw: "  U123 ", want: "<@U123>"},
		{name: "channel mention", raw: "<#C0M8PUPU6>", wantErr: ErrInvalidIdentity},
		{name: "punctuation", raw: "U-123", wantErr: ErrInvalidIdentity},
		{name: "empty", raw: "", wantErr: ErrInvalidIdentity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Normalize(tt.raw)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("unexpected error: got %v, want %v", err, tt.wantErr)
			}

			if got != tt.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalize_SameIdentityForBothForms(t *testing.T) {
	t.Parallel()

	a, err := Normalize("U123")
	if err != nil {
		t.Fatalf("normalize bare: %v", err)
	}

	b, err := Normalize(Wrap("U123"))
	if err != nil {
		t.Fatalf("normalize wrapped: %v", err)
	}

	if a != b {
		t.Fatalf("expected same identity, got %q and %q", a, b)
	}
}

func TestStrip(t *testing.T) {
	t.Parallel()

	if got := Strip("<@U123>"); got != "U123" {
		t.Fatalf("Strip wrapped = %q", got)
	}

	if got := Strip("U123"); got != "U123" {
		t.Fatalf("Strip bare = %q", got)
	}
}

func TestIsIdentityLike(t *testing.T) {
	t.Parallel()

	for raw, want := range map[string]bool{
		"U123":       true,
		"<@U123|x>":  true,
		"for":        true,
		"12.50":      false,
		":parrot:":   false,
		"<!channel>": false,
	} {
		if got := IsIdentityLike(raw); got != want {
			t.Fatalf("IsIdentityLike(%q) = %v, want %v", raw, got, want)
		}
	}
}
