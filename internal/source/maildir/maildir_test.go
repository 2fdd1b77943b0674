package maildir

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/mailsift/internal/source"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"allen-p/_sent_mail/1.":  {Data: []byte("Subject: one\n\nbody 1")},
		"allen-p/_sent_mail/2.":  {Data: []byte("Subject: two\n\nbody 2")},
		"allen-p/inbox/1.":       {Data: []byte("Subject: three\n\nbody 3")},
		"allen-p/.hidden/1.":     {Data: []byte("skip")},
		"lay-k/.DS_Store":        {Data: []byte("skip")},
		"lay-k/all_documents/5.": {Data: []byte("Subject: four\n\nbody 4")},
	}
}

func TestRead(t *testing.T) {
	recs, err := Read(context.Background(), testFS(), 0)
	require.NoError(t, err)

	var files []string
	for _, r := range recs {
		files = append(files, r.File)
	}
	assert.Equal(t, []string{
		"allen-p/_sent_mail/1.",
		"allen-p/_sent_mail/2.",
		"allen-p/inbox/1.",
		"lay-k/all_documents/5.",
	}, files)
	assert.Equal(t, "Subject: two\n\nbody 2", recs[1].Message)
}

func TestReadLimit(t *testing.T) {
	recs, err := Read(context.Background(), testFS(), 2)
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestReadCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Read(ctx, testFS(), 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoad(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "kean-s", "inbox")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "12."), []byte("X-FileName: k.nsf\nhi"), 0o644))

	ctor, err := source.Get("maildir")
	require.NoError(t, err)
	recs, err := ctor().Load(context.Background(), source.Config{Path: root})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "kean-s/inbox/12.", recs[0].File)

	_, err = New().Load(context.Background(), source.Config{Path: filepath.Join(root, "missing")})
	assert.Error(t, err)
}
