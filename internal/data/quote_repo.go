// internal/data/quote_repo.go
package data

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"heritagebackend/internal/config"
	"heritagebackend/internal/ledger"
	"heritagebackend/internal/logger"
	"heritagebackend/internal/quote"
	"heritagebackend/internal/security"
)

const quoteTable = "soumissions_heritage"

// StatusPending is the lifecycle status every quote starts in. Re-saving a
// quote never resets it.
const StatusPending = "en_attente"

const quoteColumnsDDL = `(
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		numero TEXT UNIQUE,
		client_nom TEXT,
		projet_nom TEXT,
		montant_total REAL,
		data TEXT,
		statut TEXT DEFAULT 'en_attente',
		token TEXT UNIQUE,
		lien_public TEXT,
		created_at TEXT,
		updated_at TEXT
	)`

var quoteIndexDDLs = []string{
	`CREATE INDEX IF NOT EXISTS idx_soumissions_numero ON soumissions_heritage(numero)`,
	`CREATE INDEX IF NOT EXISTS idx_soumissions_token ON soumissions_heritage(token)`,
}

// requiredColumns is the full column set the current code depends on. A
// persisted table missing any of them triggers the one-time lossy migration.
var requiredColumns = []string{
	"numero", "client_nom", "projet_nom", "montant_total",
	"data", "statut", "token", "lien_public", "created_at", "updated_at",
}

// QuoteRecord is one persisted quote snapshot plus its identifying fields.
type QuoteRecord struct {
	Numero      string
	ClientName  string
	ProjectName string
	TotalAmount float64
	Snapshot    quote.Snapshot
	Status      string
	Token       string
	PublicLink  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type QuoteRepository struct {
	db *sql.DB
}

func NewQuoteRepository() *QuoteRepository {
	return &QuoteRepository{db: db}
}

// ============================================================================
// SCHEMA CHECK AND MIGRATION
// ============================================================================

// ensureSchema creates the quote table, or rebuilds it when a legacy copy is
// missing required columns. The rebuild copies whatever columns both schemas
// share; legacy rows that cannot be mapped are dropped. This is a lossy,
// one-time migration and it is announced loudly in the log.
func ensureSchema(conn *sql.DB) error {
	var tableName string
	err := conn.QueryRow(
		`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, quoteTable,
	).Scan(&tableName)

	if errors.Is(err, sql.ErrNoRows) {
		if _, err = conn.Exec(`CREATE TABLE IF NOT EXISTS ` + quoteTable + ` ` + quoteColumnsDDL); err != nil {
			return err
		}
		return createQuoteIndexes(conn)
	}
	if err != nil {
		return fmt.Errorf("failed to inspect schema: %w", err)
	}

	existing, err := tableColumns(conn, quoteTable)
	if err != nil {
		return err
	}

	missing := missingColumns(existing)
	if len(missing) == 0 {
		return nil
	}

	logger.LogWarn("Quote table missing columns %v, rebuilding schema (unmappable rows will be dropped)", missing)
	return rebuildQuoteTable(conn, existing)
}

func tableColumns(conn *sql.DB, table string) (map[string]bool, error) {
	rows, err := conn.Query(`SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		return nil, fmt.Errorf("failed to read table info: %w", err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan column name: %w", err)
		}
		cols[name] = true
	}
	return cols, rows.Err()
}

func missingColumns(existing map[string]bool) []string {
	var missing []string
	for _, col := range requiredColumns {
		if !existing[col] {
			missing = append(missing, col)
		}
	}
	return missing
}

func rebuildQuoteTable(conn *sql.DB, existing map[string]bool) error {
	_, err := conn.Exec(`CREATE TABLE ` + quoteTable + `_new ` + quoteColumnsDDL)
	if err != nil {
		return fmt.Errorf("failed to create replacement table: %w", err)
	}

	// Carry over the columns both schemas share.
	var shared []string
	for _, col := range requiredColumns {
		if existing[col] {
			shared = append(shared, col)
		}
	}
	if len(shared) > 0 {
		colList := strings.Join(shared, ", ")
		_, err = conn.Exec(fmt.Sprintf(
			`INSERT INTO %s_new (%s) SELECT %s FROM %s`,
			quoteTable, colList, colList, quoteTable,
		))
		if err != nil {
			logger.LogWarn("Could not carry legacy rows forward, continuing with empty table: %v", err)
		}
	}

	if _, err = conn.Exec(`DROP TABLE ` + quoteTable); err != nil {
		return fmt.Errorf("failed to drop legacy table: %w", err)
	}
	if _, err = conn.Exec(fmt.Sprintf(`ALTER TABLE %s_new RENAME TO %s`, quoteTable, quoteTable)); err != nil {
		return fmt.Errorf("failed to rename replacement table: %w", err)
	}
	if err = createQuoteIndexes(conn); err != nil {
		return fmt.Errorf("failed to recreate indexes: %w", err)
	}

	logger.LogInfo("Quote table successfully migrated to current schema")
	return nil
}

func createQuoteIndexes(conn *sql.DB) error {
	for _, ddl := range quoteIndexDDLs {
		if _, err := conn.Exec(ddl); err != nil {
			return err
		}
	}
	return nil
}

// ============================================================================
// CORE OPERATIONS
// ============================================================================

// Upsert persists a quote snapshot keyed by its numero and returns the access
// token issued for this save. A new record gets a fresh token; re-saving an
// existing numero replaces the identifying fields and snapshot, refreshes
// updated_at, and deliberately rotates the token so previously shared links
// stop working. created_at and statut are preserved across re-saves.
func (r *QuoteRepository) Upsert(snap quote.Snapshot) (string, error) {
	if snap.Numero == "" {
		return "", fmt.Errorf("quote snapshot has no numero")
	}

	dataJSON, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("failed to marshal quote snapshot: %w", err)
	}

	token := security.GenerateAccessToken()
	publicLink := security.PublicLink(config.PublicBaseURL(), token)
	now := formatTime(time.Now())

	const stmt = `
		INSERT INTO soumissions_heritage
			(numero, client_nom, projet_nom, montant_total, data, statut, token, lien_public, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(numero) DO UPDATE SET
			client_nom = excluded.client_nom,
			projet_nom = excluded.projet_nom,
			montant_total = excluded.montant_total,
			data = excluded.data,
			token = excluded.token,
			lien_public = excluded.lien_public,
			updated_at = excluded.updated_at`

	_, err = ExecDB(stmt,
		snap.Numero, snap.Client.Nom, snap.Projet.Nom, snap.Totaux.GrandTotal,
		string(dataJSON), StatusPending, token, publicLink, now, now,
	)
	if err != nil {
		return "", fmt.Errorf("failed to upsert quote %s: %w", snap.Numero, err)
	}

	return token, nil
}

// GetByNumero loads a full quote record by its quote number.
func (r *QuoteRepository) GetByNumero(numero string) (*QuoteRecord, error) {
	const stmt = `
		SELECT numero, client_nom, projet_nom, montant_total, data, statut, token, lien_public, created_at, updated_at
		FROM soumissions_heritage WHERE numero = ?`

	row, err := QueryRowDB(stmt, numero)
	if err != nil {
		return nil, err
	}
	return scanQuoteRow(row)
}

// GetByToken resolves a shared read-only link's token to its quote record.
func (r *QuoteRepository) GetByToken(token string) (*QuoteRecord, error) {
	const stmt = `
		SELECT numero, client_nom, projet_nom, montant_total, data, statut, token, lien_public, created_at, updated_at
		FROM soumissions_heritage WHERE token = ?`

	row, err := QueryRowDB(stmt, token)
	if err != nil {
		return nil, err
	}
	return scanQuoteRow(row)
}

// FetchSnapshot returns the full serialized quote state for a quote number.
func (r *QuoteRepository) FetchSnapshot(numero string) (quote.Snapshot, error) {
	rec, err := r.GetByNumero(numero)
	if err != nil {
		return quote.Snapshot{}, err
	}
	return rec.Snapshot, nil
}

// MaxSequenceForYear returns the highest numeric suffix among quote numbers
// of the given year, 0 when the store holds none. Implements
// ledger.PrimarySource.
func (r *QuoteRepository) MaxSequenceForYear(year int) (int, error) {
	const stmt = `
		SELECT numero FROM soumissions_heritage
		WHERE numero LIKE ? ORDER BY numero DESC LIMIT 1`

	row, err := QueryRowDB(stmt, fmt.Sprintf("%d-%%", year))
	if err != nil {
		return 0, err
	}

	var numero string
	if err := row.Scan(&numero); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to query max quote number: %w", err)
	}

	return ledger.ParseSequence(numero)
}

// scanQuoteRow maps one table row back onto a QuoteRecord, including the
// embedded snapshot.
func scanQuoteRow(row *sql.Row) (*QuoteRecord, error) {
	// Every column except numero is nullable: rows carried forward from a
	// legacy schema may be missing any of them.
	var rec QuoteRecord
	var clientName, projectName sql.NullString
	var totalAmount sql.NullFloat64
	var dataJSON, statut, token, lienPublic sql.NullString
	var createdAt, updatedAt sql.NullString

	err := row.Scan(
		&rec.Numero, &clientName, &projectName, &totalAmount,
		&dataJSON, &statut, &token, &lienPublic, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan quote record: %w", err)
	}

	rec.ClientName = clientName.String
	rec.ProjectName = projectName.String
	rec.TotalAmount = totalAmount.Float64
	rec.Status = statut.String
	rec.Token = token.String
	rec.PublicLink = lienPublic.String

	if dataJSON.Valid && dataJSON.String != "" {
		if err := json.Unmarshal([]byte(dataJSON.String), &rec.Snapshot); err != nil {
			return nil, fmt.Errorf("failed to unmarshal quote snapshot: %w", err)
		}
	}

	if createdAt.Valid && createdAt.String != "" {
		if rec.CreatedAt, err = parseTime(createdAt.String); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
	}
	if updatedAt.Valid && updatedAt.String != "" {
		if rec.UpdatedAt, err = parseTime(updatedAt.String); err != nil {
			return nil, fmt.Errorf("failed to parse updated_at: %w", err)
		}
	}

	return &rec, nil
}
