package diagnostics

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLog_ConcurrentAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diag", "low_confidence.csv")
	l, err := Open(path)
	require.NoError(t, err)
	defer l.Close()

	const jobs, perJob = 8, 25
	var wg sync.WaitGroup
	for j := 0; j < jobs; j++ {
		wg.Add(1)
		go func(job int) {
			defer wg.Done()
			for i := 0; i < perJob; i++ {
				err := l.Append(Entry{
					StatementID: fmt.Sprintf("job-%d", job),
					Stage:       "sanitize",
					Page:        1,
					Text:        "12.34.56",
					Confidence:  0.45,
					Reason:      "multiple_decimal_points",
				})
				assert.NoError(t, err)
			}
		}(j)
	}
	wg.Wait()

	entries, err := ReadAll(path)
	require.NoError(t, err)
	assert.Len(t, entries, jobs*perJob)
	assert.NotEmpty(t, entries[0].Timestamp)
}

func TestLog_Rotate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "diag.csv")
	l, err := Open(path)
	require.NoError(t, err)
	defer l.Close()
	l.now = func() time.Time { return time.Date(2024, 4, 2, 10, 0, 0, 0, time.UTC) }

	rotated, err := l.Rotate()
	require.NoError(t, err)
	assert.Empty(t, rotated, "empty log is not rotated")

	require.NoError(t, l.Append(Entry{StatementID: "a", Text: "x"}))
	rotated, err = l.Rotate()
	require.NoError(t, err)
	assert.Equal(t, path+".20240402T100000", rotated)

	old, err := ReadAll(rotated)
	require.NoError(t, err)
	assert.Len(t, old, 1)

	require.NoError(t, l.Append(Entry{StatementID: "b", Text: "y"}))
	fresh, err := ReadAll(path)
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	assert.Equal(t, "b", fresh[0].StatementID)
}

func TestLog_AppendAfterClose(t *testing.T) {
	l, err := Open(filepath.Join(t.TempDir(), "d.csv"))
	require.NoError(t, err)
	require.NoError(t, l.Close())
	assert.ErrorIs(t, l.Append(Entry{Text: "x"}), ErrClosed)
	_, statErr := os.Stat(l.Path())
	assert.NoError(t, statErr)
}
