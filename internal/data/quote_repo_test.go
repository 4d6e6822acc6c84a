package data

import (
	"database/sql"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"heritagebackend/internal/ledger"
	"heritagebackend/internal/pricing"
	"heritagebackend/internal/quote"
)

// openTestDB points the package-level pool at a fresh database file.
func openTestDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "soumissions_heritage.db")
	if err := InitDB(path); err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	t.Cleanup(func() {
		if err := CloseDB(); err != nil {
			t.Errorf("CloseDB: %v", err)
		}
	})
	return path
}

func sampleSnapshot(numero string) quote.Snapshot {
	return quote.Snapshot{
		Numero: numero,
		Date:   "2025-03-14",
		Client: quote.ClientInfo{Nom: "Marie Gagnon", Ville: "Québec"},
		Projet: quote.ProjectInfo{Nom: "Garage détaché", Type: "Résidentiel"},
		Items: map[string]quote.SnapshotItem{
			"7_7-2": {Titre: "Garage", Description: "Structure, dalle, porte, finition", Quantite: 1, PrixUnitaire: 45000, Montant: 45000},
		},
		Taux: pricing.Rates{Profit: 0.15, Admin: 0.03, Contingency: 0.12},
		Totaux: pricing.Summary{
			WorkTotal: 45000, AdminAmount: 1350, ContingencyAmount: 5400, ProfitAmount: 6750,
			Subtotal: 58500, GST: 2925, QST: 5835.375, GrandTotal: 67260.375,
		},
		Conditions: quote.DefaultConditions(),
		Exclusions: quote.DefaultExclusions(),
	}
}

func TestUpsertAndGetByNumero(t *testing.T) {
	openTestDB(t)
	repo := NewQuoteRepository()
	snap := sampleSnapshot("2025-001")

	token, err := repo.Upsert(snap)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if token == "" {
		t.Fatal("Upsert returned an empty token")
	}

	rec, err := repo.GetByNumero("2025-001")
	if err != nil {
		t.Fatalf("GetByNumero: %v", err)
	}
	if rec.Token != token {
		t.Errorf("stored token %q does not match returned token %q", rec.Token, token)
	}
	if rec.ClientName != "Marie Gagnon" || rec.ProjectName != "Garage détaché" {
		t.Errorf("denormalized names wrong: %q / %q", rec.ClientName, rec.ProjectName)
	}
	if rec.TotalAmount != snap.Totaux.GrandTotal {
		t.Errorf("stored total %v, want %v", rec.TotalAmount, snap.Totaux.GrandTotal)
	}
	if rec.Status != StatusPending {
		t.Errorf("new record status %q, want %q", rec.Status, StatusPending)
	}
	if !strings.Contains(rec.PublicLink, "token="+token) {
		t.Errorf("public link %q does not carry the token", rec.PublicLink)
	}
	if !strings.Contains(rec.PublicLink, "type=heritage") {
		t.Errorf("public link %q missing the quote type", rec.PublicLink)
	}
	if !reflect.DeepEqual(rec.Snapshot, snap) {
		t.Errorf("snapshot did not round-trip:\nstored %+v\nwant   %+v", rec.Snapshot, snap)
	}
}

func TestUpsertReplacePreservesCreatedAt(t *testing.T) {
	openTestDB(t)
	repo := NewQuoteRepository()

	firstToken, err := repo.Upsert(sampleSnapshot("2025-002"))
	if err != nil {
		t.Fatalf("first Upsert: %v", err)
	}
	first, err := repo.GetByNumero("2025-002")
	if err != nil {
		t.Fatalf("GetByNumero: %v", err)
	}

	// Timestamps have second resolution.
	time.Sleep(1100 * time.Millisecond)

	updated := sampleSnapshot("2025-002")
	updated.Client.Nom = "Marie Gagnon-Roy"
	updated.Totaux.GrandTotal = 70000
	secondToken, err := repo.Upsert(updated)
	if err != nil {
		t.Fatalf("second Upsert: %v", err)
	}
	if secondToken == firstToken {
		t.Error("re-saving should rotate the access token")
	}

	second, err := repo.GetByNumero("2025-002")
	if err != nil {
		t.Fatalf("GetByNumero after update: %v", err)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("created_at changed on re-save: %v -> %v", first.CreatedAt, second.CreatedAt)
	}
	if !second.UpdatedAt.After(first.UpdatedAt) {
		t.Errorf("updated_at did not advance: %v -> %v", first.UpdatedAt, second.UpdatedAt)
	}
	if second.ClientName != "Marie Gagnon-Roy" {
		t.Errorf("client name not updated: %q", second.ClientName)
	}
	if second.TotalAmount != 70000 {
		t.Errorf("total not updated: %v", second.TotalAmount)
	}
	if second.Status != StatusPending {
		t.Errorf("status changed on re-save: %q", second.Status)
	}

	// The old link must stop resolving once the token rotates.
	if _, err := repo.GetByToken(firstToken); !errors.Is(err, ErrNotFound) {
		t.Errorf("stale token lookup: err = %v, want ErrNotFound", err)
	}
	if _, err := repo.GetByToken(secondToken); err != nil {
		t.Errorf("fresh token lookup failed: %v", err)
	}
}

func TestGetByNumeroNotFound(t *testing.T) {
	openTestDB(t)
	repo := NewQuoteRepository()

	if _, err := repo.GetByNumero("2025-404"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if _, err := repo.GetByToken("no-such-token"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if _, err := repo.FetchSnapshot("2025-404"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestFetchSnapshot(t *testing.T) {
	openTestDB(t)
	repo := NewQuoteRepository()
	snap := sampleSnapshot("2025-003")

	if _, err := repo.Upsert(snap); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	got, err := repo.FetchSnapshot("2025-003")
	if err != nil {
		t.Fatalf("FetchSnapshot: %v", err)
	}
	if !reflect.DeepEqual(got, snap) {
		t.Errorf("snapshot mismatch:\ngot  %+v\nwant %+v", got, snap)
	}
}

func TestMaxSequenceForYear(t *testing.T) {
	openTestDB(t)
	repo := NewQuoteRepository()

	max, err := repo.MaxSequenceForYear(2025)
	if err != nil {
		t.Fatalf("MaxSequenceForYear on empty store: %v", err)
	}
	if max != 0 {
		t.Errorf("empty store max = %d, want 0", max)
	}

	for _, numero := range []string{"2025-001", "2025-007", "2025-003", "2024-150"} {
		if _, err := repo.Upsert(sampleSnapshot(numero)); err != nil {
			t.Fatalf("Upsert(%s): %v", numero, err)
		}
	}

	max, err = repo.MaxSequenceForYear(2025)
	if err != nil {
		t.Fatalf("MaxSequenceForYear: %v", err)
	}
	if max != 7 {
		t.Errorf("2025 max = %d, want 7", max)
	}

	max, err = repo.MaxSequenceForYear(2024)
	if err != nil {
		t.Fatalf("MaxSequenceForYear: %v", err)
	}
	if max != 150 {
		t.Errorf("2024 max = %d, want 150", max)
	}

	max, err = repo.MaxSequenceForYear(2023)
	if err != nil {
		t.Fatalf("MaxSequenceForYear: %v", err)
	}
	if max != 0 {
		t.Errorf("year with no quotes: max = %d, want 0", max)
	}
}

func TestNextNumberAcrossStores(t *testing.T) {
	openTestDB(t)
	repo := NewQuoteRepository()
	for _, numero := range []string{"2025-001", "2025-005"} {
		if _, err := repo.Upsert(sampleSnapshot(numero)); err != nil {
			t.Fatalf("Upsert(%s): %v", numero, err)
		}
	}
	sibling := NewSiblingStore(seedSiblingDB(t, []string{"2025-003"}))

	numero, err := ledger.NextNumber(repo, sibling, 2025)
	if err != nil {
		t.Fatalf("NextNumber: %v", err)
	}
	if numero != "2025-006" {
		t.Errorf("NextNumber = %q, want 2025-006", numero)
	}

	// An absent sibling file still lets numbering proceed.
	missing := NewSiblingStore(filepath.Join(t.TempDir(), "gone.db"))
	numero, err = ledger.NextNumber(repo, missing, 2025)
	if err != nil {
		t.Fatalf("NextNumber with absent sibling: %v", err)
	}
	if numero != "2025-006" {
		t.Errorf("NextNumber = %q, want 2025-006", numero)
	}
}

func TestSchemaMigrationRebuildsLegacyTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "soumissions_heritage.db")

	// Seed a legacy table that predates the token and public link columns.
	legacy, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open legacy db: %v", err)
	}
	_, err = legacy.Exec(`CREATE TABLE soumissions_heritage (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		numero TEXT UNIQUE NOT NULL,
		client_nom TEXT,
		montant_total REAL,
		data TEXT,
		created_at TEXT
	)`)
	if err != nil {
		t.Fatalf("create legacy table: %v", err)
	}
	if _, err := legacy.Exec(
		`INSERT INTO soumissions_heritage (numero, client_nom, montant_total, data, created_at)
		 VALUES ('2024-001', 'Ancien Client', 1000, '{}', '2024-01-15T09:00:00Z')`,
	); err != nil {
		t.Fatalf("insert legacy row: %v", err)
	}
	if err := legacy.Close(); err != nil {
		t.Fatalf("close legacy db: %v", err)
	}

	if err := InitDB(path); err != nil {
		t.Fatalf("InitDB over legacy schema: %v", err)
	}
	t.Cleanup(func() { CloseDB() })

	repo := NewQuoteRepository()

	// Shared columns survive the rebuild.
	max, err := repo.MaxSequenceForYear(2024)
	if err != nil {
		t.Fatalf("MaxSequenceForYear after migration: %v", err)
	}
	if max != 1 {
		t.Errorf("migrated row lost: max = %d, want 1", max)
	}

	// The carried row reads back, with the new columns empty.
	old, err := repo.GetByNumero("2024-001")
	if err != nil {
		t.Fatalf("GetByNumero on migrated row: %v", err)
	}
	if old.ClientName != "Ancien Client" {
		t.Errorf("migrated client name = %q", old.ClientName)
	}
	if old.Token != "" || old.PublicLink != "" {
		t.Errorf("migrated row should have no token or link, got %q / %q", old.Token, old.PublicLink)
	}

	// The rebuilt table accepts writes to the new columns.
	if _, err := repo.Upsert(sampleSnapshot("2024-002")); err != nil {
		t.Fatalf("Upsert after migration: %v", err)
	}
	rec, err := repo.GetByNumero("2024-002")
	if err != nil {
		t.Fatalf("GetByNumero after migration: %v", err)
	}
	if rec.Token == "" || rec.PublicLink == "" {
		t.Error("migrated table missing token or public link on new rows")
	}
}
