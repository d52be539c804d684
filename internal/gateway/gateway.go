// Package gateway makes list/create/update/delete calls against backend
// resources survive an unreachable backend by degrading to the local mirror.
// Callers never branch on network state.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/scoutcursos/cursos/pkg/domain"
)

// Remote is the backend transport.
type Remote interface {
	List(ctx context.Context, res domain.Resource) ([]domain.Record, error)
	Create(ctx context.Context, res domain.Resource, fields domain.Fields) (domain.Record, error)
	Update(ctx context.Context, res domain.Resource, id int64, fields domain.Fields) (domain.Record, error)
	Delete(ctx context.Context, res domain.Resource, id int64) error
}

// Mirror is the durable store of records written while offline.
type Mirror interface {
	List(ctx context.Context, resource string) ([]domain.Record, error)
	Put(ctx context.Context, resource string, rec domain.Record) error
	Merge(ctx context.Context, resource string, id int64, fields domain.Fields) (domain.Record, bool, error)
	Delete(ctx context.Context, resource string, id int64) error
	Counts(ctx context.Context) (map[string]int, error)
}

type Options struct {
	// Resources swept by SyncOffline. Defaults to domain.MirroredResources.
	Resources []domain.Resource
	Logger    *slog.Logger
	Now       func() time.Time
}

// Gateway routes resource calls to the backend and falls back to the mirror.
type Gateway struct {
	remote    Remote
	mirror    Mirror
	resources []domain.Resource
	logger    *slog.Logger
	ids       *idSource
}

// New creates a gateway.
func New(remote Remote, mirror Mirror, opts Options) *Gateway {
	if opts.Resources == nil {
		opts.Resources = domain.MirroredResources
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		remote:    remote,
		mirror:    mirror,
		resources: opts.Resources,
		logger:    logger.With("component", "gateway"),
		ids:       &idSource{now: opts.Now},
	}
}

// List returns the backend's records, or the mirrored ones when the backend
// call fails. It never fails; an unreadable mirror reads as empty.
func (g *Gateway) List(ctx context.Context, res domain.Resource) []domain.Record {
	recs, err := g.remote.List(ctx, res)
	if err == nil {
		return recs
	}
	g.logger.Warn("list: falling back to mirror", "resource", res.Name, "error", err)

	local, merr := g.mirror.List(ctx, res.Name)
	if merr != nil {
		g.logger.Error("list: read mirror", "resource", res.Name, "error", merr)
		return []domain.Record{}
	}
	return local
}

// Create posts fields. When the backend call fails the record is stored in the
// mirror under a locally generated id. Either way the result carries an id.
func (g *Gateway) Create(ctx context.Context, res domain.Resource, fields domain.Fields) (domain.Record, error) {
	rec, err := g.remote.Create(ctx, res, fields)
	if err == nil {
		return rec, nil
	}
	g.logger.Warn("create: storing offline", "resource", res.Name, "error", err)

	payload, nerr := offlinePayload(res, fields)
	if nerr != nil {
		return domain.Record{}, fmt.Errorf("gateway.Create %s: %w", res.Name, nerr)
	}
	local := domain.Record{ID: g.ids.next(), Fields: payload}
	if perr := g.mirror.Put(ctx, res.Name, local); perr != nil {
		return domain.Record{}, fmt.Errorf("gateway.Create %s: %w", res.Name, errors.Join(err, perr))
	}
	return local, nil
}

// Update puts fields. When the backend call fails they are merged into the
// mirrored record with that id; with no such record the backend error is
// returned.
func (g *Gateway) Update(ctx context.Context, res domain.Resource, id int64, fields domain.Fields) (domain.Record, error) {
	rec, err := g.remote.Update(ctx, res, id, fields)
	if err == nil {
		return rec, nil
	}

	payload, nerr := offlinePayload(res, fields)
	if nerr != nil {
		return domain.Record{}, fmt.Errorf("gateway.Update %s/%d: %w", res.Name, id, nerr)
	}
	merged, found, merr := g.mirror.Merge(ctx, res.Name, id, payload)
	if merr != nil {
		return domain.Record{}, fmt.Errorf("gateway.Update %s/%d: %w", res.Name, id, errors.Join(err, merr))
	}
	if !found {
		return domain.Record{}, fmt.Errorf("gateway.Update %s/%d: %w", res.Name, id, err)
	}
	g.logger.Warn("update: merged offline", "resource", res.Name, "id", id, "error", err)
	return merged, nil
}

// offlinePayload normalizes fields for the mirror. Identifier keys are dropped;
// the mirror keys records by Record.ID alone.
func offlinePayload(res domain.Resource, fields domain.Fields) (domain.Fields, error) {
	normalized, err := domain.NormalizeFields(fields)
	if err != nil {
		return nil, err
	}
	return domain.RecordFromFields(normalized, res.IDField).Fields, nil
}

// Delete removes the record remotely, or from the mirror when the backend call
// fails. Failures are logged and otherwise ignored.
func (g *Gateway) Delete(ctx context.Context, res domain.Resource, id int64) {
	err := g.remote.Delete(ctx, res, id)
	if err == nil {
		return
	}
	g.logger.Warn("delete: removing from mirror", "resource", res.Name, "id", id, "error", err)
	if merr := g.mirror.Delete(ctx, res.Name, id); merr != nil {
		g.logger.Error("delete: mirror", "resource", res.Name, "id", id, "error", merr)
	}
}

// Pending returns the number of mirrored records per resource name.
func (g *Gateway) Pending(ctx context.Context) (map[string]int, error) {
	counts, err := g.mirror.Counts(ctx)
	if err != nil {
		return nil, fmt.Errorf("gateway.Pending: %w", err)
	}
	return counts, nil
}

// SyncReport is the outcome of one SyncOffline sweep.
type SyncReport struct {
	Synced map[string]int // records replayed and removed, per resource
	Failed map[string]int // records left for a later sweep, per resource
}

// Total returns the number of records synced across all resources.
func (r SyncReport) Total() int {
	n := 0
	for _, c := range r.Synced {
		n += c
	}
	return n
}

// SyncOffline replays every mirrored record as a create on the backend. Each
// record that the backend accepts leaves the mirror; the rest stay. Resources
// are swept concurrently and records of one resource in insertion order.
// The returned error reports mirror failures only; the report is valid either way.
func (g *Gateway) SyncOffline(ctx context.Context) (SyncReport, error) {
	report := SyncReport{
		Synced: make(map[string]int, len(g.resources)),
		Failed: make(map[string]int, len(g.resources)),
	}
	var mu sync.Mutex

	var eg errgroup.Group
	for _, res := range g.resources {
		res := res
		eg.Go(func() error {
			synced, failed, err := g.syncResource(ctx, res)
			mu.Lock()
			report.Synced[res.Name] = synced
			report.Failed[res.Name] = failed
			mu.Unlock()
			return err
		})
	}
	err := eg.Wait()

	g.logger.Info("sync finished", "synced", report.Total(), "error", err)
	if err != nil {
		return report, fmt.Errorf("gateway.SyncOffline: %w", err)
	}
	return report, nil
}

func (g *Gateway) syncResource(ctx context.Context, res domain.Resource) (synced, failed int, err error) {
	pending, err := g.mirror.List(ctx, res.Name)
	if err != nil {
		return 0, 0, err
	}
	for _, rec := range pending {
		if ctx.Err() != nil {
			return synced, len(pending) - synced, ctx.Err()
		}
		// The local id means nothing to the backend; it assigns its own.
		if _, err := g.remote.Create(ctx, res, rec.Fields); err != nil {
			g.logger.Warn("sync: record stays pending", "resource", res.Name, "id", rec.ID, "error", err)
			failed++
			continue
		}
		if err := g.mirror.Delete(ctx, res.Name, rec.ID); err != nil {
			// Already on the backend; a later sweep would post it twice.
			return synced, failed, err
		}
		synced++
	}
	return synced, failed, nil
}

// Resource binds the gateway to one resource.
func (g *Gateway) Resource(res domain.Resource) *ResourceGateway {
	return &ResourceGateway{g: g, res: res}
}

// ResourceGateway is a Gateway bound to one resource.
type ResourceGateway struct {
	g   *Gateway
	res domain.Resource
}

func (r *ResourceGateway) Info() domain.Resource { return r.res }

func (r *ResourceGateway) List(ctx context.Context) []domain.Record {
	return r.g.List(ctx, r.res)
}

func (r *ResourceGateway) Create(ctx context.Context, fields domain.Fields) (domain.Record, error) {
	return r.g.Create(ctx, r.res, fields)
}

func (r *ResourceGateway) Update(ctx context.Context, id int64, fields domain.Fields) (domain.Record, error) {
	return r.g.Update(ctx, r.res, id, fields)
}

func (r *ResourceGateway) Delete(ctx context.Context, id int64) {
	r.g.Delete(ctx, r.res, id)
}
