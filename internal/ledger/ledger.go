// internal/ledger/ledger.go
package ledger

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrStorageUnavailable is returned when a sequence source exists but cannot
// be queried. Callers must not fall back to minting "<year>-001" on it, since
// that would mask a transient outage as a sequence reset.
var ErrStorageUnavailable = errors.New("quote number storage unavailable")

// PrimarySource is the authoritative quote store's view of the year sequence.
type PrimarySource interface {
	// MaxSequenceForYear returns the highest numeric suffix among quote
	// numbers prefixed "<year>-", or 0 when the store has none.
	MaxSequenceForYear(year int) (int, error)
}

// SiblingSource is the legacy parallel store consulted only to avoid number
// collisions. absent reports that the store (file or table) does not exist
// at all, which is distinct from it being empty for the year.
type SiblingSource interface {
	MaxSequenceForYear(year int) (max int, absent bool, err error)
}

// NextNumber mints the next quote number for the year: the maximum numeric
// suffix across both stores, plus one, zero-padded to three digits.
//
// The sibling store being absent is tolerated (migration artifact: the other
// quote family may never have been installed). No lock is taken, so two
// processes minting concurrently can race to the same number; the UNIQUE
// constraint on the primary store turns that into a save error. True
// cross-store uniqueness would need a shared sequence authority, which this
// design does not provide.
func NextNumber(primary PrimarySource, sibling SiblingSource, year int) (string, error) {
	max, err := primary.MaxSequenceForYear(year)
	if err != nil {
		return "", fmt.Errorf("primary store: %w", errors.Join(ErrStorageUnavailable, err))
	}

	siblingMax, absent, err := sibling.MaxSequenceForYear(year)
	if err != nil {
		return "", fmt.Errorf("sibling store: %w", errors.Join(ErrStorageUnavailable, err))
	}
	if !absent && siblingMax > max {
		max = siblingMax
	}

	return FormatNumber(year, max+1), nil
}

// FormatNumber renders "<year>-<3-digit zero-padded sequence>".
func FormatNumber(year, sequence int) string {
	return fmt.Sprintf("%d-%03d", year, sequence)
}

// ParseSequence extracts the numeric suffix of a quote number such as
// "2025-014".
func ParseSequence(numero string) (int, error) {
	_, suffix, found := strings.Cut(numero, "-")
	if !found {
		return 0, fmt.Errorf("malformed quote number %q", numero)
	}
	seq, err := strconv.Atoi(suffix)
	if err != nil {
		return 0, fmt.Errorf("malformed quote number %q: %w", numero, err)
	}
	return seq, nil
}
