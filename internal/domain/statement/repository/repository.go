// Package repository persists extraction results in Postgres.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/service"
)

// ErrNotFound is returned when a statement id is unknown.
var ErrNotFound = errors.New("statement not found")

// DB is the subset of *pgxpool.Pool the repository needs.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var transactionColumns = []string{
	"statement_id", "position", "txn_date", "txn_date_iso", "description",
	"debit", "credit", "balance", "confidence", "reasons",
	"store", "person_name", "commodity",
}

// StatementRepository stores one row per statement plus its transactions.
type StatementRepository struct {
	db     DB
	logger *slog.Logger
}

// NewStatementRepository creates a repository over db.
func NewStatementRepository(db DB, logger *slog.Logger) *StatementRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatementRepository{db: db, logger: logger}
}

// Save writes the statement and its transactions in one database
// transaction. Saving the same statement id twice replaces it.
func (r *StatementRepository) Save(ctx context.Context, resp *service.Response) error {
	id, err := uuid.Parse(resp.StatementID)
	if err != nil {
		return fmt.Errorf("invalid statement id %q: %w", resp.StatementID, err)
	}
	metadata, err := json.Marshal(resp.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	quality, _ := resp.Metadata[service.MetaResultQuality].(string)
	account, _ := resp.Metadata[service.MetaAccountNumber].(string)

	_, err = tx.Exec(ctx, `
		INSERT INTO statements (
			id, status, bank_code, account_holder, account_number,
			result_quality, transaction_count, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			bank_code = EXCLUDED.bank_code,
			account_holder = EXCLUDED.account_holder,
			account_number = EXCLUDED.account_number,
			result_quality = EXCLUDED.result_quality,
			transaction_count = EXCLUDED.transaction_count,
			metadata = EXCLUDED.metadata
	`, id, string(resp.Status), resp.Bank, resp.AccountHolder, account,
		quality, len(resp.Transactions), metadata)
	if err != nil {
		return fmt.Errorf("failed to insert statement: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM statement_transactions WHERE statement_id = $1`, id); err != nil {
		return fmt.Errorf("failed to clear transactions: %w", err)
	}

	if len(resp.Transactions) > 0 {
		rows := make([][]any, 0, len(resp.Transactions))
		for i, t := range resp.Transactions {
			rows = append(rows, []any{
				id, i, t.Date, isoDate(t.DateISO), t.Description,
				t.Debit, t.Credit, t.Balance, t.Confidence, t.Reasons,
				t.Store, t.PersonName, t.Commodity,
			})
		}
		n, err := tx.CopyFrom(ctx, pgx.Identifier{"statement_transactions"}, transactionColumns, pgx.CopyFromRows(rows))
		if err != nil {
			return fmt.Errorf("failed to copy transactions: %w", err)
		}
		if int(n) != len(rows) {
			return fmt.Errorf("copied %d of %d transactions", n, len(rows))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit statement: %w", err)
	}
	r.logger.Debug("statement persisted",
		slog.String("statement_id", resp.StatementID),
		slog.Int("transactions", len(resp.Transactions)))
	return nil
}

// Get loads a stored statement back into the response shape.
func (r *StatementRepository) Get(ctx context.Context, statementID string) (*service.Response, error) {
	id, err := uuid.Parse(statementID)
	if err != nil {
		return nil, ErrNotFound
	}

	resp := &service.Response{StatementID: statementID, Transactions: []service.Transaction{}}
	var (
		status   string
		metadata []byte
	)
	err = r.db.QueryRow(ctx, `
		SELECT status, bank_code, account_holder, metadata
		FROM statements
		WHERE id = $1
	`, id).Scan(&status, &resp.Bank, &resp.AccountHolder, &metadata)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load statement: %w", err)
	}
	resp.Status = service.Status(status)
	if err := json.Unmarshal(metadata, &resp.Metadata); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT txn_date, COALESCE(to_char(txn_date_iso, 'YYYY-MM-DD'), ''), description,
			debit::float8, credit::float8, balance::float8, confidence, reasons,
			store, person_name, commodity
		FROM statement_transactions
		WHERE statement_id = $1
		ORDER BY position
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}
	defer rows.Close()

	account, _ := resp.Metadata[service.MetaAccountNumber].(string)
	for rows.Next() {
		var t service.Transaction
		if err := rows.Scan(
			&t.Date, &t.DateISO, &t.Description,
			&t.Debit, &t.Credit, &t.Balance, &t.Confidence, &t.Reasons,
			&t.Store, &t.PersonName, &t.Commodity,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		t.Amount = t.Credit - t.Debit
		t.BankCode = resp.Bank
		t.AccountNumber = account
		resp.Transactions = append(resp.Transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return resp, nil
}

func isoDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil
	}
	return &t
}
