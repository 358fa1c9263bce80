package dashboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/logyard/queuedash/internal/model"
	"github.com/logyard/queuedash/internal/telemetry"
)

// statusTimeout bounds one shared status computation. It is detached from
// the caller's context because other pollers may be waiting on it.
const statusTimeout = 10 * time.Second

// ResolveStatusSummary builds the summary page. An unreachable store fails
// the whole call; any other failure empties only its own section and is
// reported under Errors. Concurrent callers share a single computation, so
// the returned value must be treated as read-only.
func (s *Service) ResolveStatusSummary(ctx context.Context) (model.StatusSummary, error) {
	v, err, _ := s.group.Do("status", func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statusTimeout)
		defer cancel()
		return s.buildStatus(ctx)
	})
	if err != nil {
		return model.StatusSummary{}, err
	}
	return v.(model.StatusSummary), nil
}

func (s *Service) buildStatus(ctx context.Context) (model.StatusSummary, error) {
	ctx, span := telemetry.Tracer("queuedash/dashboard").Start(ctx, "dashboard.status")
	defer span.End()

	if err := s.store.Ping(ctx); err != nil {
		span.RecordError(err)
		return model.StatusSummary{}, fmt.Errorf("dashboard: status: %w", err)
	}

	now := s.now()
	sum := model.StatusSummary{
		Queues:        []model.QueueSummary{},
		RootWorkItems: []model.RootWorkItem{},
		Agents:        []model.AgentRollup{},
		Announcements: []model.Announcement{},
		Timestamp:     now,
	}

	var (
		mu   sync.Mutex
		errs = map[string]string{}
	)
	fail := func(section string, err error) {
		s.logger.WarnContext(ctx, "dashboard: status section failed", "section", section, "error", err)
		s.sectionFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("section", section)))
		mu.Lock()
		errs[section] = err.Error()
		mu.Unlock()
	}

	// Each section writes only its own field of sum.
	var g errgroup.Group
	g.Go(func() error {
		queues, err := s.ResolveQueueSummary(ctx)
		if err != nil {
			fail(model.SectionQueues, err)
			return nil
		}
		sum.Queues = queues
		return nil
	})
	g.Go(func() error {
		items, err := s.store.ListLiveRootWorkItems(ctx, now.Add(-s.opts.RecentWindow))
		if err != nil {
			fail(model.SectionRootWorkItems, err)
			return nil
		}
		sum.RootWorkItems = items
		return nil
	})
	g.Go(func() error {
		agents, err := s.agentRollups(ctx, now)
		if err != nil {
			fail(model.SectionAgents, err)
			return nil
		}
		sum.Agents = agents
		return nil
	})
	g.Go(func() error {
		announcements, err := s.store.ListRecentAnnouncements(ctx, s.opts.AnnouncementLimit)
		if err != nil {
			fail(model.SectionAnnouncements, err)
			return nil
		}
		sum.Announcements = announcements
		return nil
	})
	_ = g.Wait()

	if len(errs) > 0 {
		sum.Errors = errs
	}
	return sum, nil
}

// agentRollups lists every launchable worker type in catalog order, zeroed
// when no rows exist, followed by any other names found in the store.
func (s *Service) agentRollups(ctx context.Context, now time.Time) ([]model.AgentRollup, error) {
	rows, err := s.store.ListAgentRollups(ctx, now.Add(-s.opts.StaleAfter))
	if err != nil {
		return nil, fmt.Errorf("dashboard: agent rollups: %w", err)
	}
	byName := make(map[string]model.AgentRollup, len(rows))
	for _, r := range rows {
		byName[r.Name] = r
	}

	out := make([]model.AgentRollup, 0, len(rows))
	seen := map[string]bool{}
	for _, w := range s.opts.Catalog.Launchable() {
		r := byName[w.Name]
		r.Name, r.Label, r.Script = w.Name, w.Label, w.Script
		out = append(out, r)
		seen[w.Name] = true
	}

	var others []string
	for name := range byName {
		if !seen[name] {
			others = append(others, name)
		}
	}
	s.opts.Catalog.Order(others)
	for _, name := range others {
		r := byName[name]
		r.Label = s.opts.Catalog.Label(name)
		out = append(out, r)
	}
	return out, nil
}
