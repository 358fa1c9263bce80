// Package dashboard answers the dashboard's read queries: one resolver per
// entity-detail view plus the status aggregator behind the summary page.
//
// The HTTP API, the MCP tools and the terminal client all go through this
// service, so every surface sees the same ordering, windows and error
// semantics.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/singleflight"

	"github.com/logyard/queuedash/internal/config"
	"github.com/logyard/queuedash/internal/model"
	"github.com/logyard/queuedash/internal/storage"
	"github.com/logyard/queuedash/internal/telemetry"
)

// Store is the read side of the orchestration store.
type Store interface {
	Ping(ctx context.Context) error

	ListQueueCounts(ctx context.Context, since time.Time) ([]model.QueueSummary, error)
	GetQueueByName(ctx context.Context, name string) (model.Queue, error)
	ListQueueTasks(ctx context.Context, queueID int64) ([]model.Task, error)

	GetTask(ctx context.Context, id int64) (model.Task, error)
	ListChildTasks(ctx context.Context, parentID int64) ([]model.Task, error)
	ListRootWorkItemTasks(ctx context.Context, rootID int64) ([]model.Task, error)
	ListClaimedTasks(ctx context.Context, agentName string) ([]model.Task, error)

	GetRootWorkItem(ctx context.Context, id int64) (model.RootWorkItem, error)
	ListLiveRootWorkItems(ctx context.Context, since time.Time) ([]model.RootWorkItem, error)

	ListAgentsByName(ctx context.Context, name string) ([]model.Agent, error)
	ListAgentRollups(ctx context.Context, freshSince time.Time) ([]model.AgentRollup, error)

	GetAnnouncement(ctx context.Context, id int64) (model.Announcement, error)
	ListRecentAnnouncements(ctx context.Context, limit int) ([]model.Announcement, error)
}

// Options tunes the dashboard windows.
type Options struct {
	Catalog           config.Catalog
	StaleAfter        time.Duration
	RecentWindow      time.Duration
	AnnouncementLimit int
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Service resolves dashboard views.
type Service struct {
	store  Store
	opts   Options
	logger *slog.Logger

	group           singleflight.Group
	sectionFailures metric.Int64Counter
}

// New creates a dashboard Service. Zero options take the standard windows.
func New(store Store, opts Options, logger *slog.Logger) *Service {
	if len(opts.Catalog.Workers) == 0 {
		opts.Catalog = config.DefaultCatalog()
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = 30 * time.Minute
	}
	if opts.RecentWindow <= 0 {
		opts.RecentWindow = time.Hour
	}
	if opts.AnnouncementLimit <= 0 {
		opts.AnnouncementLimit = 5
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	failures, _ := telemetry.Meter("queuedash/dashboard").Int64Counter("queuedash.status.section_failures",
		metric.WithDescription("Status summary sections that failed to load"),
	)
	return &Service{store: store, opts: opts, logger: logger, sectionFailures: failures}
}

// Catalog returns the worker catalog the service orders by.
func (s *Service) Catalog() config.Catalog {
	return s.opts.Catalog
}

// Ping reports whether the backing store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) now() time.Time {
	return s.opts.Now().UTC()
}

// degrade logs a failed relation lookup. The caller substitutes null or an
// empty list; a dangling reference is not worth a warning.
func (s *Service) degrade(ctx context.Context, relation string, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		s.logger.DebugContext(ctx, "dashboard: relation missing", "relation", relation)
		return
	}
	s.logger.WarnContext(ctx, "dashboard: relation lookup failed", "relation", relation, "error", err)
}

// ValidationError reports a malformed request parameter.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
