package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/service"
	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/testutil"
)

const statement = "Date,Description,Debit,Credit,Balance\n" +
	"01/04/2024,Salary Credit,,50000.00,50000.00\n" +
	"02/04/2024,Grocery Store Purchase,1200.00,,48800.00\n"

func decodeAll(t *testing.T, out *bytes.Buffer) []service.Response {
	t.Helper()
	var resps []service.Response
	sc := bufio.NewScanner(out)
	sc.Buffer(make([]byte, 1<<20), 1<<20)
	for sc.Scan() {
		var r service.Response
		require.NoError(t, json.Unmarshal(sc.Bytes(), &r))
		resps = append(resps, r)
	}
	require.NoError(t, sc.Err())
	return resps
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	good := testutil.WriteText(t, dir, "april.csv", statement)
	missing := filepath.Join(dir, "nope.pdf")

	tests := []struct {
		name     string
		args     []string
		exit     int
		statuses []service.Status
	}{
		{name: "single file", args: []string{good}, exit: 0, statuses: []service.Status{service.StatusSuccess}},
		{
			name:     "order preserved with a failure",
			args:     []string{"-concurrency", "2", missing, good},
			exit:     1,
			statuses: []service.Status{service.StatusFailed, service.StatusSuccess},
		},
		{name: "no files", args: nil, exit: 2},
		{name: "bad concurrency", args: []string{"-concurrency", "0", good}, exit: 2},
		{name: "unknown flag", args: []string{"-bogus", good}, exit: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			exit := run(context.Background(), tt.args, &stdout, &stderr)
			assert.Equal(t, tt.exit, exit, stderr.String())

			resps := decodeAll(t, &stdout)
			require.Len(t, resps, len(tt.statuses))
			for i, want := range tt.statuses {
				assert.Equal(t, want, resps[i].Status)
			}
		})
	}
}

func TestRun_Summary(t *testing.T) {
	path := testutil.WriteText(t, t.TempDir(), "april.csv", statement)

	var stdout, stderr bytes.Buffer
	require.Equal(t, 0, run(context.Background(), []string{"-currency", "INR", path}, &stdout, &stderr))

	assert.Contains(t, stderr.String(), "2 transactions")
	assert.Contains(t, stderr.String(), "1,200.00")
	assert.Contains(t, stderr.String(), "50,000.00")
}

func TestRun_BadProfiles(t *testing.T) {
	path := testutil.WriteText(t, t.TempDir(), "april.csv", statement)

	var stdout, stderr bytes.Buffer
	exit := run(context.Background(), []string{"-profiles", filepath.Join(t.TempDir(), "none.json"), path}, &stdout, &stderr)

	assert.Equal(t, 1, exit)
	assert.Contains(t, stderr.String(), "open profiles")
	assert.Empty(t, stdout.String())
}
