// Package syncer keeps the vector collections in step with task and worker
// rows as they are written.
//
// A Synchronizer is invoked after every create or update of a source row.
// It must never fail or block the write that triggered it: errors are logged
// and dropped. Deletes are not mirrored, so a vector can outlive its row
// until the next rebuild.
package syncer

import (
	"context"
	"fmt"
	"runtime/debug"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ziadkadry99/crewmatch/internal/apperr"
	"github.com/ziadkadry99/crewmatch/internal/canon"
	"github.com/ziadkadry99/crewmatch/internal/embeddings"
	"github.com/ziadkadry99/crewmatch/internal/logctx"
	"github.com/ziadkadry99/crewmatch/internal/metrics"
	"github.com/ziadkadry99/crewmatch/internal/vectordb"
)

// Action is the lifecycle event that produced a WriteEvent.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
)

// WriteEvent carries the full current row of a task or user.
type WriteEvent struct {
	Entity   canon.EntityType `json:"entity"`
	SourceID int64            `json:"source_id"`
	Row      canon.Fields     `json:"row"`
	Action   Action           `json:"action"`
}

// EntryID is the vector id the event maps to.
func (ev WriteEvent) EntryID() string {
	return vectordb.EntryID(ev.Entity, ev.SourceID)
}

// Synchronizer is called by the relational store on every create/update.
// OnWrite has no error result: implementations swallow their failures.
type Synchronizer interface {
	OnWrite(ctx context.Context, ev WriteEvent)
}

// Applier performs one synchronization and reports its error. Workers and
// consumers wrap an Applier and decide what to do with the error.
type Applier interface {
	Apply(ctx context.Context, ev WriteEvent) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) OnWrite(context.Context, WriteEvent) {}

// Inline synchronizes on the caller's goroutine.
type Inline struct {
	embedder embeddings.Embedder
	store    vectordb.Store
}

// NewInline builds an inline synchronizer over the given embedder and store.
func NewInline(embedder embeddings.Embedder, store vectordb.Store) *Inline {
	return &Inline{embedder: embedder, store: store}
}

// Apply builds text, encodes it and writes the entry. Creates use Insert so
// a duplicate key, meaning the entry is already current, is reported as
// success. Updates overwrite.
func (s *Inline) Apply(ctx context.Context, ev WriteEvent) (err error) {
	ctx, span := metrics.Tracer.Start(ctx, "syncer.Apply")
	span.SetAttributes(
		attribute.String("crewmatch.entity", string(ev.Entity)),
		attribute.Int64("crewmatch.source_id", ev.SourceID),
		attribute.String("crewmatch.action", string(ev.Action)),
	)
	outcome := metrics.OutcomeOK
	defer func() {
		if err != nil {
			outcome = metrics.OutcomeError
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		metrics.SyncTotal.WithLabelValues(string(ev.Entity), string(ev.Action), outcome).Inc()
		span.End()
	}()

	collection, entry, err := BuildEntry(ctx, s.embedder, ev.Entity, ev.SourceID, ev.Row)
	if err != nil {
		return err
	}

	switch ev.Action {
	case ActionCreate:
		err = s.store.Insert(ctx, collection, entry)
		if apperr.IsDuplicateKey(err) {
			logctx.From(ctx).DebugContext(ctx, "vector already synchronized", "id", entry.ID)
			outcome = metrics.OutcomeDuplicate
			return nil
		}
		return err
	case ActionUpdate:
		return s.store.Upsert(ctx, collection, entry)
	default:
		return apperr.Validation("sync", "action", fmt.Sprintf("unsupported action %q", ev.Action))
	}
}

// OnWrite applies ev and logs any failure instead of returning it.
func (s *Inline) OnWrite(ctx context.Context, ev WriteEvent) {
	Swallow(ctx, s, ev)
}

// Swallow runs a.Apply, logging errors and recovering panics so that nothing
// escapes to the caller.
func Swallow(ctx context.Context, a Applier, ev WriteEvent) {
	log := logctx.From(ctx).With("id", ev.EntryID(), "action", ev.Action)
	defer func() {
		if r := recover(); r != nil {
			log.ErrorContext(ctx, "vector sync panicked", "panic", r, "stack", string(debug.Stack()))
		}
	}()

	if err := a.Apply(ctx, ev); err != nil {
		log.WarnContext(ctx, "vector sync failed; entry left stale", "kind", apperr.KindOf(err).String(), "error", err)
		return
	}
	log.DebugContext(ctx, "vector synchronized")
}

// BuildEntry turns a source row into the entry stored for it.
func BuildEntry(ctx context.Context, embedder embeddings.Embedder, entity canon.EntityType, sourceID int64, row canon.Fields) (vectordb.Collection, vectordb.Entry, error) {
	collection, err := vectordb.CollectionFor(entity)
	if err != nil {
		return "", vectordb.Entry{}, err
	}

	md, err := MetadataFromRow(entity, sourceID, row)
	if err != nil {
		return "", vectordb.Entry{}, err
	}
	if err := md.Validate(); err != nil {
		return "", vectordb.Entry{}, err
	}

	text, err := canon.BuildText(entity, row)
	if err != nil {
		return "", vectordb.Entry{}, err
	}
	vec, err := embeddings.Encode(ctx, embedder, text)
	if err != nil {
		return "", vectordb.Entry{}, err
	}

	return collection, vectordb.Entry{
		ID:        vectordb.EntryID(entity, sourceID),
		Text:      text,
		Embedding: vec,
		Metadata:  md,
	}, nil
}

// MetadataFromRow denormalizes the display and filter fields of a row.
func MetadataFromRow(entity canon.EntityType, sourceID int64, row canon.Fields) (vectordb.Metadata, error) {
	switch entity {
	case canon.Task:
		return vectordb.TaskMetadata{
			TaskID:            sourceID,
			Title:             row.String("title"),
			TradeCategory:     row.String("trade_category"),
			Priority:          row.String("priority"),
			Status:            row.String("status"),
			Location:          row.String("location"),
			SkillRequirements: row.Strings("skill_requirements"),
		}, nil
	case canon.User:
		years, _ := row.Int("experience_years")
		return vectordb.UserMetadata{
			UserID:          sourceID,
			Name:            row.String("name"),
			Role:            row.String("role"),
			ExperienceYears: years,
			PrimarySkills:   row.Strings("primary_skills"),
			TradeCategories: row.Strings("trade_categories"),
			Certifications:  row.Strings("certifications"),
		}, nil
	}
	return nil, apperr.Validation("sync", "entity", fmt.Sprintf("unknown entity type %q", entity))
}
