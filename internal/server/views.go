package server

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"path"
	"strconv"
	"time"

	"github.com/logyard/queuedash/internal/annotate"
	"github.com/logyard/queuedash/internal/config"
	"github.com/logyard/queuedash/internal/files"
	"github.com/logyard/queuedash/internal/nav"
	"github.com/logyard/queuedash/internal/service/dashboard"
)

//go:embed views/*.html
var viewFS embed.FS

// viewResponse is one frame for the web client's navigation stack.
type viewResponse struct {
	Title string `json:"title"`
	HTML  string `json:"html"`
}

type fileFrame struct {
	Path string
	HTML template.HTML
}

// viewRenderer renders detail payloads into HTML fragments.
type viewRenderer struct {
	dashboard *dashboard.Service
	files     *files.Viewer
	catalog   config.Catalog
	tmpl      *template.Template
}

func newViewRenderer(svc *dashboard.Service, fv *files.Viewer, ann *annotate.Annotator) (*viewRenderer, error) {
	catalog := svc.Catalog()
	funcs := template.FuncMap{
		"annotate": func(v any) template.HTML {
			switch s := v.(type) {
			case string:
				return ann.HTML(s)
			case *string:
				if s == nil {
					return ""
				}
				return ann.HTML(*s)
			}
			return ""
		},
		"str":   derefString,
		"num":   derefInt,
		"when":  formatTime,
		"label": catalog.Label,
	}
	tmpl, err := template.New("views").Funcs(funcs).ParseFS(viewFS, "views/*.html")
	if err != nil {
		return nil, fmt.Errorf("server: parse views: %w", err)
	}
	return &viewRenderer{dashboard: svc, files: fv, catalog: catalog, tmpl: tmpl}, nil
}

// Render resolves the target and renders its fragment.
func (v *viewRenderer) Render(ctx context.Context, target nav.Target) (viewResponse, error) {
	var (
		title string
		data  any
	)
	switch target.Kind {
	case nav.KindQueue:
		d, err := v.dashboard.ResolveQueueDetail(ctx, target.Key)
		if err != nil {
			return viewResponse{}, err
		}
		title, data = v.catalog.Label(d.Queue.Name), d
	case nav.KindTask:
		id, err := parseKey(target)
		if err != nil {
			return viewResponse{}, err
		}
		d, err := v.dashboard.ResolveTaskDetail(ctx, id)
		if err != nil {
			return viewResponse{}, err
		}
		title, data = fmt.Sprintf("Task #%d", id), d
	case nav.KindRootWorkItem:
		id, err := parseKey(target)
		if err != nil {
			return viewResponse{}, err
		}
		d, err := v.dashboard.ResolveRootWorkItemDetail(ctx, id)
		if err != nil {
			return viewResponse{}, err
		}
		title, data = fmt.Sprintf("Root Work Item #%d", id), d
	case nav.KindAgent:
		d, err := v.dashboard.ResolveAgentDetail(ctx, target.Key)
		if err != nil {
			return viewResponse{}, err
		}
		title, data = v.catalog.Label(target.Key), d
	case nav.KindAnnouncement:
		id, err := parseKey(target)
		if err != nil {
			return viewResponse{}, err
		}
		d, err := v.dashboard.ResolveAnnouncementDetail(ctx, id)
		if err != nil {
			return viewResponse{}, err
		}
		title, data = fmt.Sprintf("Announcement #%d", id), d
	case nav.KindFile:
		if v.files == nil {
			return viewResponse{}, files.ErrNotFound
		}
		fv, err := v.files.Read(target.Key)
		if err != nil {
			return viewResponse{}, err
		}
		// goldmark runs without unsafe HTML, so raw HTML in the document is dropped.
		title, data = path.Base(fv.Path), fileFrame{Path: fv.Path, HTML: template.HTML(fv.HTML)} //nolint:gosec
	default:
		return viewResponse{}, &dashboard.ValidationError{Field: "view kind", Reason: strconv.Quote(target.Kind) + " is not a view"}
	}

	var buf bytes.Buffer
	if err := v.tmpl.ExecuteTemplate(&buf, target.Kind, data); err != nil {
		return viewResponse{}, fmt.Errorf("server: render %s view: %w", target.Kind, err)
	}
	return viewResponse{Title: title, HTML: buf.String()}, nil
}

func parseKey(t nav.Target) (int64, error) {
	id, err := strconv.ParseInt(t.Key, 10, 64)
	if err != nil {
		return 0, &dashboard.ValidationError{Field: t.Kind + " id", Reason: "not a number"}
	}
	return id, nil
}

// HandleView handles GET /view/{kind}/{key}.
func (h *Handlers) HandleView(w http.ResponseWriter, r *http.Request) {
	h.renderView(w, r, nav.Target{Kind: r.PathValue("kind"), Key: r.PathValue("key")})
}

// HandleFileView handles GET /view/file?path=.
func (h *Handlers) HandleFileView(w http.ResponseWriter, r *http.Request) {
	p := r.URL.Query().Get("path")
	if p == "" {
		writeError(w, r, http.StatusBadRequest, "path is required")
		return
	}
	h.renderView(w, r, nav.Target{Kind: nav.KindFile, Key: p})
}

func (h *Handlers) renderView(w http.ResponseWriter, r *http.Request, target nav.Target) {
	resp, err := h.views.Render(r.Context(), target)
	if err != nil {
		if target.Kind == nav.KindFile {
			h.writeFileError(w, r, err)
			return
		}
		h.writeResolveError(w, r, target.Kind, err)
		return
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func derefString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func derefInt(p *int64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatInt(*p, 10)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}
