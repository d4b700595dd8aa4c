package ledger

import (
	"fmt"
	"strings"

	"github.com/fastprodman/scalecoin/internal/identity"
)

type FigKind string

const (
	FigEmoji  FigKind = "emoji"
	FigHacker FigKind = "hacker"
)

// Figurine is compared structurally. Emoji IDs carry no colons and hacker IDs
// are bare user IDs.
type Figurine struct {
	Kind FigKind `json:"kind"`
	ID   string  `json:"id"`
}

func (f Figurine) String() string {
	if f.Kind == FigHacker {
		return identity.Wrap(f.ID)
	}

	return ":" + f.ID + ":"
}

// ParseFigurine reads `:emoji:`, `<@U123>` or a `kind:id` pair.
func ParseFigurine(raw string) (Figurine, error) {
	raw = strings.TrimSpace(raw)

	if len(raw) > 2 && strings.HasPrefix(raw, ":") && strings.HasSuffix(raw, ":") {
		return Figurine{Kind: FigEmoji, ID: strings.Trim(raw, ":")}, nil
	}

	if strings.HasPrefix(raw, "<@") {
		id, err := identity.Normalize(raw)
		if err != nil {
			return Figurine{}, Inputf(ErrNoSuchFigurine, "%q isn't a figurine", raw)
		}

		return Figurine{Kind: FigHacker, ID: identity.Strip(id)}, nil
	}

	return NewFigurine(raw, "")
}

// NewFigurine validates a kind/id pair as received over the API. When id is
// empty, kindOrPair is parsed as `kind:id`.
func NewFigurine(kindOrPair, id string) (Figurine, error) {
	kind := kindOrPair
	if id == "" {
		k, v, ok := strings.Cut(kindOrPair, ":")
		if !ok {
			return Figurine{}, Inputf(ErrNoSuchFigurine, "%q isn't a figurine", kindOrPair)
		}

		kind, id = k, v
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return Figurine{}, Inputf(ErrNoSuchFigurine, "figurine id is required")
	}

	switch FigKind(strings.ToLower(strings.TrimSpace(kind))) {
	case FigEmoji:
		return Figurine{Kind: FigEmoji, ID: strings.Trim(id, ":")}, nil
	case FigHacker:
		return Figurine{Kind: FigHacker, ID: identity.Strip(id)}, nil
	default:
		return Figurine{}, Inputf(ErrNoSuchFigurine, "figurine kind must be one of: `hacker`, `emoji`, not %q", kind)
	}
}

// Value is what a hook reserves: either cents or one figurine.
type Value struct {
	Cents int64     `json:"cents,omitempty"`
	Fig   *Figurine `json:"fig,omitempty"`
}

func CentsValue(cents int64) Value { return Value{Cents: cents} }

func FigValue(f Figurine) Value { return Value{Fig: &f} }

func (v Value) IsFig() bool { return v.Fig != nil }

func (v Value) String() string {
	if v.Fig != nil {
		return fmt.Sprintf("the %s figurine", v.Fig)
	}

	return fmt.Sprintf("%d cents", v.Cents)
}
