// Package mssql implements the ChunkExtractor port against a SQL
// Server source using keyset pagination on the registration number.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/microsoft/go-mssqldb" // SQL Server driver

	"github.com/custodia-labs/regsync/internal/core/domain"
	"github.com/custodia-labs/regsync/internal/core/ports/driven"
	"github.com/custodia-labs/regsync/internal/logger"
)

// keyColumn is the stable ordering column for keyset pagination.
const keyColumn = "Reg_no"

// defaultTable is the source view the registration rows come from.
const defaultTable = "dbo.RegistrationReports"

// Ensure Extractor implements the interfaces.
var (
	_ driven.ChunkExtractor  = (*Extractor)(nil)
	_ driven.SourceRefresher = (*Extractor)(nil)
)

// Extractor fetches bounded, ordered chunks from SQL Server.
type Extractor struct {
	db      *sql.DB
	table   string
	query   string
	refresh string
}

// New creates an extractor over an open connection pool.
// table defaults to the registration reports view when empty.
func New(db *sql.DB, table string) *Extractor {
	if table == "" {
		table = defaultTable
	}
	return &Extractor{
		db:    db,
		table: table,
		query: buildChunkQuery(table),
	}
}

// Open connects to SQL Server using the given credentials and returns
// an extractor. The connection is verified eagerly so a bad DSN fails
// at startup, not mid-run.
func Open(ctx context.Context, cfg Config) (*Extractor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlserver", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening source connection: %w", err)
	}
	db.SetMaxOpenConns(5)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging source: %w", err)
	}
	return New(db, cfg.Table), nil
}

// Close releases the underlying connection pool.
func (e *Extractor) Close() error {
	return e.db.Close()
}

// SetRefreshStatement configures the source-side procedure Refresh
// executes, typically an EXEC that rebuilds the reports view. An empty
// statement disables the refresh step.
func (e *Extractor) SetRefreshStatement(stmt string) {
	e.refresh = strings.TrimSpace(stmt)
}

// Refresh runs the configured refresh procedure against the source.
// With no statement configured it is a no-op.
func (e *Extractor) Refresh(ctx context.Context) error {
	if e.refresh == "" {
		logger.Debug("no refresh statement configured, skipping source refresh")
		return nil
	}
	logger.Info("executing source refresh: %s", e.refresh)
	if _, err := e.db.ExecContext(ctx, e.refresh); err != nil {
		return fmt.Errorf("refreshing source view: %w", err)
	}
	return nil
}

// Fetch returns at most limit rows with Reg_no strictly greater than
// cursor, in ascending Reg_no order. An empty result means the source
// is exhausted at this cursor.
func (e *Extractor) Fetch(ctx context.Context, cursor string, limit int) ([]domain.SourceRow, error) {
	rows, err := e.db.QueryContext(ctx, e.query,
		sql.Named("limit", limit),
		sql.Named("cursor", cursor))
	if err != nil {
		return nil, fmt.Errorf("fetching chunk after %q: %w", cursor, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading chunk columns: %w", err)
	}

	var result []domain.SourceRow
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, fmt.Errorf("scanning chunk row: %w", err)
		}

		row := make(domain.SourceRow, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunk rows: %w", err)
	}
	return result, nil
}

// buildChunkQuery renders the keyset pagination query for a table.
func buildChunkQuery(table string) string {
	return fmt.Sprintf(
		"SELECT TOP (@limit) %s FROM %s WHERE %s > @cursor ORDER BY %s ASC",
		strings.Join(domain.SourceColumns(), ", "), table, keyColumn, keyColumn)
}

// Config holds the source connection settings, read from the
// environment at startup.
type Config struct {
	Server   string
	Database string
	User     string
	Password string
	Table    string
}

// Validate reports missing required credentials.
func (c Config) Validate() error {
	var missing []string
	if c.Server == "" {
		missing = append(missing, "DB_SERVER")
	}
	if c.Database == "" {
		missing = append(missing, "DB_NAME")
	}
	if c.User == "" {
		missing = append(missing, "DB_USER")
	}
	if c.Password == "" {
		missing = append(missing, "DB_PASSWORD")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrMissingCredentials, strings.Join(missing, ", "))
	}
	return nil
}

// DSN renders the sqlserver connection URL.
func (c Config) DSN() string {
	u := url.URL{
		Scheme: "sqlserver",
		User:   url.UserPassword(c.User, c.Password),
		Host:   c.Server,
	}
	q := url.Values{}
	q.Set("database", c.Database)
	u.RawQuery = q.Encode()
	return u.String()
}
