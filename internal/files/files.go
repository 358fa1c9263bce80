// Package files serves markdown documents from the project tree for the
// dashboard's file viewer.
package files

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/logyard/queuedash/internal/model"
)

var (
	// ErrOutsideRoot is returned for paths that resolve outside the project root.
	ErrOutsideRoot = errors.New("files: path outside project root")
	// ErrUnsupportedType is returned for anything but markdown files.
	ErrUnsupportedType = errors.New("files: unsupported file type")
	// ErrNotFound is returned when the file does not exist.
	ErrNotFound = errors.New("files: not found")
	// ErrIsDirectory is returned when the path names a directory.
	ErrIsDirectory = errors.New("files: path is a directory")
)

var markdownExts = map[string]bool{
	".md":       true,
	".markdown": true,
}

// MaxSize caps the documents the viewer will render.
const MaxSize = 2 << 20

// Viewer reads markdown under a root directory.
type Viewer struct {
	root string
	md   goldmark.Markdown
}

// NewViewer creates a Viewer confined to root.
func NewViewer(root string) (*Viewer, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("files: resolve root: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	return &Viewer{
		root: abs,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			// No html.WithUnsafe: raw HTML in documents is omitted.
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
	}, nil
}

// Root returns the absolute project root.
func (v *Viewer) Root() string {
	return v.root
}

// confine maps a requested path to an absolute path inside the root.
// Relative paths are taken from the root. It touches nothing on disk.
func (v *Viewer) confine(requested string) (string, error) {
	if requested == "" {
		return "", fmt.Errorf("%w: empty path", ErrUnsupportedType)
	}
	p := requested
	if !filepath.IsAbs(p) {
		p = filepath.Join(v.root, p)
	}
	p = filepath.Clean(p)
	if !v.inside(p) {
		return "", ErrOutsideRoot
	}
	return p, nil
}

// followLinks resolves symlinks; a link inside the root may still point out of it.
func (v *Viewer) followLinks(p string) (string, error) {
	// A missing file has nothing to follow; Stat reports it.
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		if !v.inside(resolved) {
			return "", ErrOutsideRoot
		}
		p = resolved
	}
	return p, nil
}

func checkType(p string) error {
	if !markdownExts[strings.ToLower(filepath.Ext(p))] {
		return fmt.Errorf("%w: %q", ErrUnsupportedType, filepath.Ext(p))
	}
	return nil
}

func (v *Viewer) inside(p string) bool {
	rel, err := filepath.Rel(v.root, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Read loads and renders a markdown file.
func (v *Viewer) Read(requested string) (model.FileView, error) {
	p, err := v.confine(requested)
	if err != nil {
		return model.FileView{}, err
	}
	if err := checkType(p); err != nil {
		return model.FileView{}, err
	}
	if p, err = v.followLinks(p); err != nil {
		return model.FileView{}, err
	}
	// The link target must be markdown too.
	if err := checkType(p); err != nil {
		return model.FileView{}, err
	}
	info, err := os.Stat(p)
	if errors.Is(err, os.ErrNotExist) {
		return model.FileView{}, ErrNotFound
	}
	if err != nil {
		return model.FileView{}, fmt.Errorf("files: stat: %w", err)
	}
	if info.IsDir() {
		return model.FileView{}, ErrIsDirectory
	}
	if info.Size() > MaxSize {
		return model.FileView{}, fmt.Errorf("%w: file larger than %d bytes", ErrUnsupportedType, MaxSize)
	}

	src, err := os.ReadFile(p) //nolint:gosec // confined to the project root above
	if err != nil {
		return model.FileView{}, fmt.Errorf("files: read: %w", err)
	}
	var buf bytes.Buffer
	if err := v.md.Convert(src, &buf); err != nil {
		return model.FileView{}, fmt.Errorf("files: render: %w", err)
	}
	return model.FileView{Path: requested, Content: string(src), HTML: buf.String()}, nil
}
