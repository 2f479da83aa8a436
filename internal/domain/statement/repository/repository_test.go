package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/service"
)

func sampleResponse() *service.Response {
	balance := 48800.0
	return &service.Response{
		Status:        service.StatusSuccess,
		StatementID:   uuid.NewString(),
		Bank:          "HDFC",
		AccountHolder: "Anita Rao",
		Metadata: map[string]any{
			service.MetaResultQuality: service.QualityComplete,
			service.MetaAccountNumber: "50100012345678",
		},
		Transactions: []service.Transaction{
			{Date: "01/04/2024", DateISO: "2024-04-01", Description: "Salary Credit", Credit: 50000, Amount: 50000, Confidence: 0.85, Reasons: []string{"explicit_column_credit"}},
			{Date: "02/04/2024", DateISO: "2024-04-02", Description: "Grocery Store Purchase", Debit: 1200, Amount: -1200, Balance: &balance, Confidence: 0.98, Reasons: []string{"balance_delta_negative"}, Commodity: "groceries"},
		},
	}
}

func TestStatementRepository_Save(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	resp := sampleResponse()
	id := uuid.MustParse(resp.StatementID)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO statements`).
		WithArgs(id, "success", "HDFC", "Anita Rao", "50100012345678", "complete", 2, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`DELETE FROM statement_transactions`).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"statement_transactions"}, transactionColumns).
		WillReturnResult(2)
	mock.ExpectCommit()

	repo := NewStatementRepository(mock, nil)
	require.NoError(t, repo.Save(context.Background(), resp))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatementRepository_SaveRollsBackOnError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	resp := sampleResponse()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO statements`).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	repo := NewStatementRepository(mock, nil)
	err = repo.Save(context.Background(), resp)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatementRepository_SaveRejectsBadID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	resp := sampleResponse()
	resp.StatementID = "not-a-uuid"

	err = NewStatementRepository(mock, nil).Save(context.Background(), resp)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatementRepository_Get(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	balance := 48800.0

	mock.ExpectQuery(`SELECT status, bank_code, account_holder, metadata`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"status", "bank_code", "account_holder", "metadata"}).
			AddRow("success", "HDFC", "Anita Rao", []byte(`{"result_quality":"complete","account_number":"5010"}`)))
	mock.ExpectQuery(`SELECT txn_date`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{
			"txn_date", "txn_date_iso", "description", "debit", "credit", "balance",
			"confidence", "reasons", "store", "person_name", "commodity",
		}).AddRow(
			"02/04/2024", "2024-04-02", "Grocery Store Purchase", 1200.0, 0.0, &balance,
			0.98, []string{"balance_delta_negative"}, "", "", "groceries",
		))

	resp, err := NewStatementRepository(mock, nil).Get(context.Background(), id.String())
	require.NoError(t, err)
	assert.Equal(t, service.StatusSuccess, resp.Status)
	assert.Equal(t, "HDFC", resp.Bank)
	assert.Equal(t, "complete", resp.Metadata["result_quality"])
	require.Len(t, resp.Transactions, 1)

	tx := resp.Transactions[0]
	assert.Equal(t, -1200.0, tx.Amount)
	assert.Equal(t, "HDFC", tx.BankCode)
	assert.Equal(t, "5010", tx.AccountNumber)
	require.NotNil(t, tx.Balance)
	assert.Equal(t, balance, *tx.Balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatementRepository_GetNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectQuery(`SELECT status, bank_code`).
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	repo := NewStatementRepository(mock, nil)
	_, err = repo.Get(context.Background(), id.String())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.Get(context.Background(), "garbage")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
