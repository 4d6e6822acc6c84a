// internal/data/sibling.go
package data

import (
	"database/sql"
	"errors"
	"fmt"
	"os"

	"heritagebackend/internal/ledger"
	"heritagebackend/internal/logger"
)

// SiblingStore is the legacy parallel quote store (a migration artifact that
// shares this store's year-number namespace). It is consulted read-only when
// minting quote numbers and is never written by this backend.
type SiblingStore struct {
	Path string
}

func NewSiblingStore(path string) *SiblingStore {
	return &SiblingStore{Path: path}
}

// MaxSequenceForYear returns the highest numeric suffix the sibling store
// holds for the year. absent is true when the store does not exist at all
// (no DB file, or the file exists without the expected table), which is
// reported separately from "exists but has no rows for the year" so a
// genuine outage is never mistaken for an empty namespace. Implements
// ledger.SiblingSource.
func (s *SiblingStore) MaxSequenceForYear(year int) (int, bool, error) {
	if _, err := os.Stat(s.Path); errors.Is(err, os.ErrNotExist) {
		logger.LogInfo("Sibling quote store %s not present, no competing numbers", s.Path)
		return 0, true, nil
	}

	// mode=ro keeps this store strictly read-only.
	conn, err := sql.Open("sqlite", "file:"+s.Path+"?mode=ro")
	if err != nil {
		return 0, false, fmt.Errorf("failed to open sibling store: %w", err)
	}
	defer conn.Close()

	var tableName string
	err = conn.QueryRow(
		`SELECT name FROM sqlite_master WHERE type='table' AND name='soumissions'`,
	).Scan(&tableName)
	if errors.Is(err, sql.ErrNoRows) {
		logger.LogInfo("Sibling quote store %s has no soumissions table, no competing numbers", s.Path)
		return 0, true, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to inspect sibling store: %w", err)
	}

	var numero string
	err = conn.QueryRow(
		`SELECT numero_soumission FROM soumissions
		 WHERE numero_soumission LIKE ? ORDER BY numero_soumission DESC LIMIT 1`,
		fmt.Sprintf("%d-%%", year),
	).Scan(&numero)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to query sibling store: %w", err)
	}

	seq, err := ledger.ParseSequence(numero)
	if err != nil {
		return 0, false, err
	}
	return seq, false, nil
}
