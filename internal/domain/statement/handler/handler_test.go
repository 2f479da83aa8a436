package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/repository"
	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/service"
	"github.com/FACorreiaa/statement-extractor/pkg/storage"
)

type fakeProcessor struct {
	got      service.Request
	contents string
	resp     *service.Response
}

func (f *fakeProcessor) Process(_ context.Context, req service.Request) *service.Response {
	f.got = req
	data, _ := os.ReadFile(req.Path)
	f.contents = string(data)
	return f.resp
}

type fakeStore struct {
	resp *service.Response
	err  error
}

func (f fakeStore) Get(context.Context, string) (*service.Response, error) {
	return f.resp, f.err
}

func multipartBody(t *testing.T, fields map[string]string, file string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != "" {
		fw, err := mw.CreateFormFile("file", "stmt.csv")
		require.NoError(t, err)
		_, err = fw.Write([]byte(file))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func newServer(t *testing.T, proc Processor, store Store) (*http.ServeMux, storage.Storage) {
	t.Helper()
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	h := NewStatementHandler(proc, files, nil)
	if store != nil {
		h.WithStore(store)
	}
	mux := http.NewServeMux()
	h.Register(mux)
	return mux, files
}

func TestExtract(t *testing.T) {
	proc := &fakeProcessor{resp: &service.Response{
		Status:       service.StatusSuccess,
		StatementID:  "abc",
		Bank:         "UNKNOWN",
		Metadata:     map[string]any{},
		Transactions: []service.Transaction{{Date: "01/04/2024", Credit: 50000, Amount: 50000}},
	}}
	mux, files := newServer(t, proc, nil)

	body, contentType := multipartBody(t, map[string]string{"password": "secret", "max_pages": "5"}, "Date,Description\n")
	req := httptest.NewRequest(http.MethodPost, "/v1/statements", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "secret", proc.got.Password)
	assert.Equal(t, 5, proc.got.MaxPages)
	assert.Equal(t, "Date,Description\n", proc.contents)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "success", out["status"])
	assert.Equal(t, "abc", out["statement_id"])
	assert.NotContains(t, out, "error")
	txs := out["transactions"].([]any)
	require.Len(t, txs, 1)
	assert.Nil(t, txs[0].(map[string]any)["balance"])

	stored, err := files.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stored, "upload is removed after processing")
}

func TestExtract_StatusCodes(t *testing.T) {
	tests := []struct {
		name   string
		status service.Status
		want   int
	}{
		{"needs password", service.StatusNeedsPassword, http.StatusUnprocessableEntity},
		{"failed", service.StatusFailed, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc := &fakeProcessor{resp: &service.Response{Status: tt.status, Error: "x", Transactions: []service.Transaction{}}}
			mux, _ := newServer(t, proc, nil)

			body, contentType := multipartBody(t, nil, "%PDF-1.7")
			req := httptest.NewRequest(http.MethodPost, "/v1/statements", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			assert.Contains(t, rec.Body.String(), string(tt.status))
		})
	}
}

func TestExtract_BadRequests(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]string
		file   string
	}{
		{"missing file", nil, ""},
		{"bad max_pages", map[string]string{"max_pages": "ten"}, "a"},
		{"negative max_pages", map[string]string{"max_pages": "-1"}, "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc := &fakeProcessor{}
			mux, _ := newServer(t, proc, nil)

			body, contentType := multipartBody(t, tt.fields, tt.file)
			req := httptest.NewRequest(http.MethodPost, "/v1/statements", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, proc.got.Path)
		})
	}
}

func TestExtract_RealPipeline(t *testing.T) {
	mux, _ := newServer(t, service.New(nil), nil)

	body, contentType := multipartBody(t, nil, "Date,Description,Debit,Credit,Balance\n"+
		"01/04/2024,Salary Credit,,50000.00,50000.00\n"+
		"02/04/2024,Grocery Store Purchase,1200.00,,48800.00\n")
	req := httptest.NewRequest(http.MethodPost, "/v1/statements", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out service.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Transactions, 2)
	assert.Equal(t, -1200.0, out.Transactions[1].Amount)
	assert.Equal(t, "complete", out.Metadata["result_quality"])
}

func TestGet(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		mux, _ := newServer(t, &fakeProcessor{}, fakeStore{resp: &service.Response{Status: service.StatusSuccess, StatementID: "abc"}})
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/statements/abc", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"statement_id":"abc"`)
	})
	t.Run("not found", func(t *testing.T) {
		mux, _ := newServer(t, &fakeProcessor{}, fakeStore{err: repository.ErrNotFound})
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/statements/abc", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
	t.Run("store error", func(t *testing.T) {
		mux, _ := newServer(t, &fakeProcessor{}, fakeStore{err: errors.New("db down")})
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/statements/abc", nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
	t.Run("no store", func(t *testing.T) {
		mux, _ := newServer(t, &fakeProcessor{}, nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/statements/abc", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHealth(t *testing.T) {
	mux, _ := newServer(t, &fakeProcessor{}, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}
