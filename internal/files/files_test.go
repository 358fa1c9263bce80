package files_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logyard/queuedash/internal/files"
)

func newViewer(t *testing.T) (*files.Viewer, string) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "plan.md"), []byte("# Plan\n\nShip *it*.\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.markdown"), []byte("- a\n- b\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "run.sh"), []byte("echo hi\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "raw.md"), []byte("<script>alert(1)</script>\n\ntext\n"), 0o600))
	v, err := files.NewViewer(root)
	require.NoError(t, err)
	return v, v.Root()
}

func TestReadMarkdown(t *testing.T) {
	v, root := newViewer(t)

	fv, err := v.Read("docs/plan.md")
	require.NoError(t, err)
	assert.Equal(t, "docs/plan.md", fv.Path)
	assert.Equal(t, "# Plan\n\nShip *it*.\n", fv.Content)
	assert.Contains(t, fv.HTML, "<h1")
	assert.Contains(t, fv.HTML, "<em>it</em>")

	abs, err := v.Read(filepath.Join(root, "notes.markdown"))
	require.NoError(t, err)
	assert.Contains(t, abs.HTML, "<li>a</li>")
}

func TestReadDropsRawHTML(t *testing.T) {
	v, _ := newViewer(t)
	fv, err := v.Read("raw.md")
	require.NoError(t, err)
	assert.NotContains(t, fv.HTML, "<script>")
}

func TestReadErrors(t *testing.T) {
	v, root := newViewer(t)

	_, err := v.Read("../../etc/passwd")
	assert.ErrorIs(t, err, files.ErrOutsideRoot)
	_, err = v.Read("/etc/passwd")
	assert.ErrorIs(t, err, files.ErrOutsideRoot)
	_, err = v.Read("run.sh")
	assert.ErrorIs(t, err, files.ErrUnsupportedType)
	_, err = v.Read("docs/missing.md")
	assert.ErrorIs(t, err, files.ErrNotFound)
	_, err = v.Read("docs")
	assert.ErrorIs(t, err, files.ErrUnsupportedType)
	require.NoError(t, os.Mkdir(filepath.Join(root, "archive.md"), 0o755))
	_, err = v.Read("archive.md")
	assert.ErrorIs(t, err, files.ErrIsDirectory)
	_, err = v.Read("")
	assert.ErrorIs(t, err, files.ErrUnsupportedType)

	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.md"), []byte("x"), 0o600))
	require.NoError(t, os.Symlink(filepath.Join(outside, "secret.md"), filepath.Join(root, "link.md")))
	_, err = v.Read("link.md")
	assert.ErrorIs(t, err, files.ErrOutsideRoot)
}

func TestReadRejectsTypeBeforeTouchingDisk(t *testing.T) {
	v, root := newViewer(t)

	_, err := v.Read("missing.txt")
	assert.ErrorIs(t, err, files.ErrUnsupportedType)
	assert.NotErrorIs(t, err, files.ErrNotFound)

	_, err = v.Read(filepath.Join(root, "nowhere", "config.json"))
	assert.ErrorIs(t, err, files.ErrUnsupportedType)

	// A markdown name is not enough when the link points at something else.
	require.NoError(t, os.Symlink(filepath.Join(root, "run.sh"), filepath.Join(root, "script.md")))
	_, err = v.Read("script.md")
	assert.ErrorIs(t, err, files.ErrUnsupportedType)
}
