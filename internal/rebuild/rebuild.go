// Package rebuild regenerates a vector collection from the full contents of
// its source table.
//
// A rebuild drops the collection first, so queries running at the same time
// see a partially populated collection. Run it in a maintenance window.
package rebuild

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ziadkadry99/crewmatch/internal/apperr"
	"github.com/ziadkadry99/crewmatch/internal/canon"
	"github.com/ziadkadry99/crewmatch/internal/embeddings"
	"github.com/ziadkadry99/crewmatch/internal/logctx"
	"github.com/ziadkadry99/crewmatch/internal/metrics"
	"github.com/ziadkadry99/crewmatch/internal/records"
	"github.com/ziadkadry99/crewmatch/internal/syncer"
	"github.com/ziadkadry99/crewmatch/internal/vectordb"
)

// Defaults applied when Options leaves a field at zero.
const (
	DefaultBatchSize   = 100
	DefaultConcurrency = 4
)

// Source pages through the rows of a relational table in id order.
type Source interface {
	Rows(ctx context.Context, entity canon.EntityType, afterID int64, limit int) ([]records.Row, error)
	Count(ctx context.Context, entity canon.EntityType) (int, error)
}

// Progress is a snapshot of a running rebuild.
type Progress struct {
	Entity    canon.EntityType
	Processed int
	Failed    int
	Total     int
	LastID    string
}

// ProgressFunc is called after every record, from the worker goroutine that
// processed it.
type ProgressFunc func(Progress)

// Failure describes one skipped record.
type Failure struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// Report is the outcome of rebuilding one collection.
type Report struct {
	Entity     canon.EntityType    `json:"entity"`
	Collection vectordb.Collection `json:"collection"`
	Total      int                 `json:"total"`
	Succeeded  int                 `json:"succeeded"`
	Failed     int                 `json:"failed"`
	Failures   []Failure           `json:"failures,omitempty"`
	Duration   time.Duration       `json:"duration_ns"`

	errs []error
}

// Partial reports whether any record was skipped.
func (r *Report) Partial() bool { return r.Failed > 0 }

// Errors returns the per-record errors, each of kind PartialData.
func (r *Report) Errors() []error { return r.errs }

// Options configures a Rebuilder.
type Options struct {
	BatchSize   int
	Concurrency int
	OnProgress  ProgressFunc
}

// Rebuilder drops and repopulates collections.
type Rebuilder struct {
	source      Source
	embedder    embeddings.Embedder
	store       vectordb.Store
	batchSize   int
	concurrency int
	onProgress  ProgressFunc
}

// New creates a Rebuilder. The embedder must be the one used by the
// synchronizer and the query engine, or the collections stop sharing a space.
func New(source Source, embedder embeddings.Embedder, store vectordb.Store, opts Options) *Rebuilder {
	if opts.BatchSize < 1 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = DefaultConcurrency
	}
	return &Rebuilder{
		source:      source,
		embedder:    embedder,
		store:       store,
		batchSize:   opts.BatchSize,
		concurrency: opts.Concurrency,
		onProgress:  opts.OnProgress,
	}
}

// SetProgress replaces the progress callback.
func (b *Rebuilder) SetProgress(fn ProgressFunc) { b.onProgress = fn }

// Rebuild drops the collection for entity and re-encodes every row of its
// table. A record that fails to encode or upsert is skipped and counted.
// Only failures to read the table or to recreate the collection abort the
// run, and they leave the collection partially populated.
func (b *Rebuilder) Rebuild(ctx context.Context, entity canon.EntityType) (report *Report, err error) {
	collection, err := vectordb.CollectionFor(entity)
	if err != nil {
		return nil, err
	}

	ctx, span := metrics.Tracer.Start(ctx, "rebuild.Rebuild")
	span.SetAttributes(attribute.String("crewmatch.collection", string(collection)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(
				attribute.Int("crewmatch.succeeded", report.Succeeded),
				attribute.Int("crewmatch.failed", report.Failed),
			)
		}
		span.End()
	}()

	log := logctx.From(ctx).With("collection", collection)
	start := time.Now()

	total, err := b.source.Count(ctx, entity)
	if err != nil {
		return nil, fmt.Errorf("count %s rows: %w", entity, err)
	}
	dims, err := b.dimension(ctx)
	if err != nil {
		return nil, err
	}
	if err := b.store.DropAndRecreate(ctx, collection, dims); err != nil {
		return nil, fmt.Errorf("recreate %s: %w", collection, err)
	}
	log.InfoContext(ctx, "collection recreated", "dimensions", dims, "rows", total)

	report = &Report{Entity: entity, Collection: collection, Total: total}
	var (
		mu        sync.Mutex
		processed atomic.Int64
		failed    atomic.Int64
	)

	var afterID int64
	for {
		rows, err := b.source.Rows(ctx, entity, afterID, b.batchSize)
		if err != nil {
			report.Duration = time.Since(start)
			return report, fmt.Errorf("read %s rows after %d: %w", entity, afterID, err)
		}
		// The source may cap a page below batchSize, so only an empty page
		// ends the scan.
		if len(rows) == 0 {
			break
		}
		afterID = rows[len(rows)-1].ID

		sem := make(chan struct{}, b.concurrency)
		var wg sync.WaitGroup
		for _, row := range rows {
			sem <- struct{}{}
			wg.Add(1)
			go func(row records.Row) {
				defer wg.Done()
				defer func() { <-sem }()

				id := vectordb.EntryID(entity, row.ID)
				rerr := b.apply(ctx, collection, entity, row)

				outcome := metrics.OutcomeOK
				if rerr != nil {
					outcome = metrics.OutcomeError
					failed.Add(1)
					log.WarnContext(ctx, "record skipped", "id", id, "error", rerr)
					mu.Lock()
					report.errs = append(report.errs, rerr)
					report.Failures = append(report.Failures, Failure{ID: id, Error: rerr.Error()})
					mu.Unlock()
				}
				metrics.RebuildRecords.WithLabelValues(string(entity), outcome).Inc()

				count := processed.Add(1)
				if b.onProgress != nil {
					b.onProgress(Progress{
						Entity:    entity,
						Processed: int(count),
						Failed:    int(failed.Load()),
						Total:     total,
						LastID:    id,
					})
				}
			}(row)
		}
		wg.Wait()
	}

	report.Failed = int(failed.Load())
	report.Succeeded = int(processed.Load()) - report.Failed
	// Rows inserted while the rebuild ran can push the count past the
	// initial estimate.
	if n := int(processed.Load()); n > report.Total {
		report.Total = n
	}
	report.Duration = time.Since(start)

	if n, cerr := b.store.Count(ctx, collection); cerr == nil {
		metrics.CollectionEntries.WithLabelValues(string(collection)).Set(float64(n))
	}
	log.InfoContext(ctx, "rebuild finished",
		"succeeded", report.Succeeded, "failed", report.Failed, "duration", report.Duration)
	return report, nil
}

func (b *Rebuilder) apply(ctx context.Context, collection vectordb.Collection, entity canon.EntityType, row records.Row) error {
	id := vectordb.EntryID(entity, row.ID)
	_, entry, err := syncer.BuildEntry(ctx, b.embedder, entity, row.ID, row.Fields)
	if err != nil {
		return apperr.PartialData("rebuild", id, err)
	}
	if err := b.store.Upsert(ctx, collection, entry); err != nil {
		return apperr.PartialData("rebuild", id, err)
	}
	return nil
}

// dimension asks the embedder for its size, probing with a short text when
// the provider does not know it up front.
func (b *Rebuilder) dimension(ctx context.Context) (int, error) {
	if d := b.embedder.Dimensions(); d > 0 {
		return d, nil
	}
	vec, err := embeddings.Encode(ctx, b.embedder, "dimension probe")
	if err != nil {
		return 0, fmt.Errorf("probe embedding dimension: %w", err)
	}
	return len(vec), nil
}

// RebuildAll rebuilds tasks then users. It stops at the first fatal error
// and returns the reports gathered so far.
func (b *Rebuilder) RebuildAll(ctx context.Context) ([]*Report, error) {
	var reports []*Report
	for _, entity := range []canon.EntityType{canon.Task, canon.User} {
		r, err := b.Rebuild(ctx, entity)
		if r != nil {
			reports = append(reports, r)
		}
		if err != nil {
			return reports, err
		}
	}
	return reports, nil
}

// ClearAndRebuild drops every collection the store manages, including any
// schema left behind by another dimension or metric, then rebuilds both.
func (b *Rebuilder) ClearAndRebuild(ctx context.Context) ([]*Report, error) {
	if err := b.store.Reset(ctx); err != nil {
		return nil, fmt.Errorf("reset vector store: %w", err)
	}
	logctx.From(ctx).InfoContext(ctx, "vector store reset")
	return b.RebuildAll(ctx)
}

// AnyPartial reports whether any report skipped records.
func AnyPartial(reports []*Report) bool {
	for _, r := range reports {
		if r.Partial() {
			return true
		}
	}
	return false
}
