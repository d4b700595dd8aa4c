// Package identity canonicalizes user references.
//
// The canonical form is the platform mention syntax `<@ID>`. Users may be
// referenced either by that syntax (optionally with a `|label` suffix) or by
// the bare alphanumeric ID.
package identity

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var ErrInvalidIdentity = errors.New("invalid identity")

var (
	mentionRe = regexp.MustCompile(`^<@([a-zA-Z0-9]+)(?:\|.+)?>$`)
	bareRe    = regexp.MustCompile(`^[a-zA-Z0-9]+$`)
)

// Normalize returns the canonical `<@ID>` form of raw.
func Normalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)

	m := mentionRe.FindStringSubmatch(raw)
	if len(m) == 2 {
		return Wrap(m[1]), nil
	}

	if bareRe.MatchString(raw) {
		return Wrap(raw), nil
	}

	return "", fmt.Errorf("%w: couldn't normalize user id %q", ErrInvalidIdentity, raw)
}

// Wrap turns a bare ID into the canonical form without validating it.
func Wrap(bare string) string {
	return "<@" + bare + ">"
}

// Strip returns the bare ID of a canonical identity. Bare input is returned as is.
func Strip(id string) string {
	m := mentionRe.FindStringSubmatch(strings.TrimSpace(id))
	if len(m) == 2 {
		return m[1]
	}

	return id
}

// IsIdentityLike reports whether raw would normalize successfully.
func IsIdentityLike(raw string) bool {
	raw = strings.TrimSpace(raw)

	return mentionRe.MatchString(raw) || bareRe.MatchString(raw)
}
