package ledger

import (
	"errors"
	"fmt"

	"github.com/fastprodman/scalecoin/internal/identity"
)

var (
	ErrInvalidIdentity   = identity.ErrInvalidIdentity
	ErrUnknownIdentity   = errors.New("unknown identity")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNoSuchFigurine    = errors.New("no such figurine")
	ErrNoSuchHook        = errors.New("no such hook")
	ErrUnknownToken      = errors.New("unknown token")
	ErrUnexpectedFailure = errors.New("unexpected failure")
)

// InputError is a user-input-class failure. Msg is shown to the caller verbatim.
type InputError struct {
	Kind error
	Msg  string
}

func (e *InputError) Error() string { return e.Msg }

func (e *InputError) Unwrap() error { return e.Kind }

// Inputf builds an InputError of the given kind.
func Inputf(kind error, format string, args ...any) error {
	return &InputError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// UserMessage returns the text that may be shown to the invoking user for err.
func UserMessage(err error) string {
	var ie *InputError
	if errors.As(err, &ie) {
		return ie.Msg
	}

	if errors.Is(err, ErrInvalidIdentity) {
		return "That doesn't look like a user."
	}

	return "Something went wrong on our end, sorry! Try again in a bit."
}
