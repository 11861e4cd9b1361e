package vectordb

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ziadkadry99/crewmatch/internal/apperr"
	"github.com/ziadkadry99/crewmatch/internal/canon"
)

// Collection is a named partition of vectors; the unit of k-NN search and of
// full rebuild.
type Collection string

const (
	TaskVectors Collection = "TaskVectors"
	UserVectors Collection = "UserVectors"
)

// Collections lists every collection the engine manages.
var Collections = []Collection{TaskVectors, UserVectors}

// CollectionFor maps an entity type to the collection holding its vectors.
func CollectionFor(t canon.EntityType) (Collection, error) {
	switch t {
	case canon.Task:
		return TaskVectors, nil
	case canon.User:
		return UserVectors, nil
	}
	return "", apperr.Validation("collection", "entity_type", fmt.Sprintf("unknown entity type %q", t))
}

// EntityType is the inverse of CollectionFor.
func (c Collection) EntityType() canon.EntityType {
	if c == UserVectors {
		return canon.User
	}
	return canon.Task
}

// Valid reports whether c is a known collection.
func (c Collection) Valid() bool {
	return c == TaskVectors || c == UserVectors
}

// ParseCollection accepts either the collection name or an entity type.
func ParseCollection(s string) (Collection, error) {
	switch Collection(s) {
	case TaskVectors, UserVectors:
		return Collection(s), nil
	}
	t, err := canon.ParseEntityType(s)
	if err != nil {
		return "", apperr.Validation("collection", "collection", fmt.Sprintf("unknown collection %q", s))
	}
	return CollectionFor(t)
}

// EntryID formats the vector id for a source record, e.g. "task_7".
func EntryID(t canon.EntityType, sourceID int64) string {
	return string(t) + "_" + strconv.FormatInt(sourceID, 10)
}

// ParseEntryID splits an id produced by EntryID.
func ParseEntryID(id string) (canon.EntityType, int64, error) {
	prefix, num, ok := strings.Cut(id, "_")
	if !ok {
		return "", 0, apperr.Validation("entry", "id", fmt.Sprintf("malformed id %q", id))
	}
	t := canon.EntityType(prefix)
	if !t.Valid() {
		return "", 0, apperr.Validation("entry", "id", fmt.Sprintf("unknown entity prefix in %q", id))
	}
	n, err := strconv.ParseInt(num, 10, 64)
	if err != nil || n <= 0 {
		return "", 0, apperr.Validation("entry", "id", fmt.Sprintf("bad source id in %q", id))
	}
	return t, n, nil
}

// Entry is one stored vector with the text that produced it.
type Entry struct {
	ID        string
	Text      string
	Embedding []float32
	Metadata  Metadata
}

// Validate checks an entry before it is written to c.
func (e Entry) Validate(c Collection) error {
	if !c.Valid() {
		return apperr.Validation("entry", "collection", fmt.Sprintf("unknown collection %q", c))
	}
	t, sourceID, err := ParseEntryID(e.ID)
	if err != nil {
		return err
	}
	if t != c.EntityType() {
		return apperr.Validation("entry", "id", fmt.Sprintf("%s does not belong in %s", e.ID, c))
	}
	if strings.TrimSpace(e.Text) == "" {
		return apperr.Validation("entry", "text", "must not be empty")
	}
	if len(e.Embedding) == 0 {
		return apperr.Validation("entry", "embedding", "must not be empty")
	}
	if e.Metadata == nil {
		return apperr.Validation("entry", "metadata", "is required")
	}
	if e.Metadata.EntityType() != t {
		return apperr.Validation("entry", "metadata", fmt.Sprintf("%s metadata on %s entry", e.Metadata.EntityType(), t))
	}
	if e.Metadata.SourceID() != sourceID {
		return apperr.Validation("entry", "metadata", fmt.Sprintf("source id %d does not match %s", e.Metadata.SourceID(), e.ID))
	}
	return e.Metadata.Validate()
}

// SearchResult is one k-NN hit. Distance is the raw cosine distance
// (1 - cosine similarity).
type SearchResult struct {
	ID       string
	Text     string
	Metadata Metadata
	Distance float64
}
