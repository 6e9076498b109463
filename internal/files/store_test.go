package files

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSaveAndOpen(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	store.now = func() time.Time { return time.Date(2026, 2, 14, 12, 0, 0, 0, time.UTC) }

	rel, err := store.Save(context.Background(), "invoice.pdf", strings.NewReader("%PDF-1.4 test"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(rel, "2026/02/"))
	require.True(t, strings.HasSuffix(rel, ".pdf"))

	rc, contentType, err := store.Open(context.Background(), rel)
	require.NoError(t, err)
	defer rc.Close()
	require.Equal(t, "application/pdf", contentType)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "%PDF-1.4 test", string(data))
}

func TestOpenRejectsTraversal(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, _, err = store.Open(context.Background(), "../etc/passwd")
	require.Error(t, err)
	_, _, err = store.Open(context.Background(), "/etc/passwd")
	require.Error(t, err)
}
