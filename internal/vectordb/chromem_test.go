package vectordb

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/ziadkadry99/crewmatch/internal/apperr"
	"github.com/ziadkadry99/crewmatch/internal/canon"
	"github.com/ziadkadry99/crewmatch/internal/embeddings"
)

var testEmbedder = embeddings.NewHashEmbedder(64)

func embed(t *testing.T, text string) []float32 {
	t.Helper()
	vec, err := embeddings.Encode(context.Background(), testEmbedder, text)
	if err != nil {
		t.Fatalf("Encode(%q): %v", text, err)
	}
	return vec
}

func taskEntry(t *testing.T, id int64, title string, skills ...string) Entry {
	t.Helper()
	md := TaskMetadata{TaskID: id, Title: title, SkillRequirements: skills, Status: "open"}
	text := canon.TaskTemplate.Render(canon.Fields{"title": title, "skill_requirements": skills, "status": "open"})
	return Entry{ID: EntryID(canon.Task, id), Text: text, Embedding: embed(t, text), Metadata: md}
}

func userEntry(t *testing.T, id int64, name string, skills ...string) Entry {
	t.Helper()
	md := UserMetadata{UserID: id, Name: name, Role: "worker", ExperienceYears: 3, PrimarySkills: skills}
	text := canon.UserTemplate.Render(canon.Fields{"name": name, "primary_skills": skills})
	return Entry{ID: EntryID(canon.User, id), Text: text, Embedding: embed(t, text), Metadata: md}
}

func newMemStore(t *testing.T) *ChromemStore {
	t.Helper()
	s, err := NewChromemStore("")
	if err != nil {
		t.Fatalf("NewChromemStore: %v", err)
	}
	return s
}

func TestChromemStore_UpsertAndGet(t *testing.T) {
	ctx := context.Background()
	s := newMemStore(t)

	e := taskEntry(t, 7, "Installation caméras sécurité", "electrical_installation")
	if err := s.Upsert(ctx, TaskVectors, e); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := s.Get(ctx, TaskVectors, "task_7")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Text != e.Text {
		t.Errorf("Text = %q, want %q", got.Text, e.Text)
	}
	md, ok := got.Metadata.(TaskMetadata)
	if !ok {
		t.Fatalf("metadata type %T", got.Metadata)
	}
	if !reflect.DeepEqual(md, e.Metadata) {
		t.Errorf("metadata = %+v, want %+v", md, e.Metadata)
	}
}

func TestChromemStore_UpsertOverwrites(t *testing.T) {
	ctx := context.Background()
	s := newMemStore(t)

	if err := s.Upsert(ctx, UserVectors, userEntry(t, 3, "Sam", "plumbing_repair", "drainage")); err != nil {
		t.Fatal(err)
	}
	updated := userEntry(t, 3, "Sam", "hvac_repair")
	if err := s.Upsert(ctx, UserVectors, updated); err != nil {
		t.Fatal(err)
	}

	n, _ := s.Count(ctx, UserVectors)
	if n != 1 {
		t.Fatalf("Count = %d, want 1", n)
	}
	got, err := s.Get(ctx, UserVectors, "user_3")
	if err != nil {
		t.Fatal(err)
	}
	if skills := got.Metadata.(UserMetadata).PrimarySkills; !reflect.DeepEqual(skills, []string{"hvac_repair"}) {
		t.Errorf("PrimarySkills = %v, want no merge with the old entry", skills)
	}
	if !strings.Contains(got.Text, "hvac_repair") || strings.Contains(got.Text, "plumbing") {
		t.Errorf("Text not fully replaced: %q", got.Text)
	}
}

func TestChromemStore_InsertDuplicate(t *testing.T) {
	ctx := context.Background()
	s := newMemStore(t)

	e := taskEntry(t, 1, "Pour slab")
	if err := s.Insert(ctx, TaskVectors, e); err != nil {
		t.Fatalf("first Insert: %v", err)
	}
	err := s.Insert(ctx, TaskVectors, e)
	if !apperr.IsDuplicateKey(err) {
		t.Fatalf("second Insert err = %v, want duplicate key", err)
	}
}

func TestChromemStore_QueryOrderingAndLimit(t *testing.T) {
	ctx := context.Background()
	s := newMemStore(t)

	titles := []string{
		"electrical lighting repair office",
		"office lighting replacement",
		"plumbing leak basement",
		"roof membrane inspection",
		"electrical panel upgrade",
	}
	for i, title := range titles {
		if err := s.Upsert(ctx, TaskVectors, taskEntry(t, int64(i+1), title)); err != nil {
			t.Fatal(err)
		}
	}

	results, err := s.Query(ctx, TaskVectors, embed(t, "electrical lighting repair office"), 3)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("len = %d, want 3", len(results))
	}
	if results[0].ID != "task_1" {
		t.Errorf("top hit = %s, want task_1", results[0].ID)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Distance < results[i-1].Distance {
			t.Errorf("results not in ascending distance at %d: %v < %v", i, results[i].Distance, results[i-1].Distance)
		}
	}
}

func TestChromemStore_QueryFewerThanK(t *testing.T) {
	ctx := context.Background()
	s := newMemStore(t)

	if res, err := s.Query(ctx, UserVectors, embed(t, "anything"), 5); err != nil || len(res) != 0 {
		t.Fatalf("empty collection: res=%v err=%v", res, err)
	}

	_ = s.Upsert(ctx, UserVectors, userEntry(t, 1, "A", "tiling"))
	_ = s.Upsert(ctx, UserVectors, userEntry(t, 2, "B", "carpentry"))

	res, err := s.Query(ctx, UserVectors, embed(t, "tiling"), 10)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(res) != 2 {
		t.Errorf("len = %d, want 2", len(res))
	}
}

func TestChromemStore_DimensionInvariant(t *testing.T) {
	ctx := context.Background()
	s := newMemStore(t)

	if err := s.Upsert(ctx, TaskVectors, taskEntry(t, 1, "Frame walls")); err != nil {
		t.Fatal(err)
	}
	bad := taskEntry(t, 2, "Hang drywall")
	bad.Embedding = bad.Embedding[:10]
	if err := s.Upsert(ctx, TaskVectors, bad); !apperr.IsValidation(err) {
		t.Errorf("err = %v, want validation error for wrong dimension", err)
	}
	if _, err := s.Query(ctx, TaskVectors, make([]float32, 10), 1); !apperr.IsValidation(err) {
		t.Errorf("query err = %v, want validation error for wrong dimension", err)
	}
}

func TestChromemStore_DropAndRecreate(t *testing.T) {
	ctx := context.Background()
	s := newMemStore(t)

	_ = s.Upsert(ctx, TaskVectors, taskEntry(t, 1, "Frame walls"))
	_ = s.Upsert(ctx, UserVectors, userEntry(t, 1, "Ana", "framing"))

	if err := s.DropAndRecreate(ctx, TaskVectors, 32); err != nil {
		t.Fatalf("DropAndRecreate: %v", err)
	}
	if n, _ := s.Count(ctx, TaskVectors); n != 0 {
		t.Errorf("TaskVectors count = %d, want 0", n)
	}
	if n, _ := s.Count(ctx, UserVectors); n != 1 {
		t.Errorf("UserVectors should be untouched, count = %d", n)
	}

	// The new dimension is enforced immediately.
	if err := s.Upsert(ctx, TaskVectors, taskEntry(t, 2, "Hang drywall")); !apperr.IsValidation(err) {
		t.Errorf("err = %v, want validation error after recreate with 32 dims", err)
	}
}

func TestChromemStore_Reset(t *testing.T) {
	ctx := context.Background()
	s := newMemStore(t)
	_ = s.Upsert(ctx, TaskVectors, taskEntry(t, 1, "Frame walls"))
	_ = s.Upsert(ctx, UserVectors, userEntry(t, 1, "Ana", "framing"))

	if err := s.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	for _, c := range Collections {
		if n, _ := s.Count(ctx, c); n != 0 {
			t.Errorf("%s count = %d after reset", c, n)
		}
	}
}

func TestChromemStore_Persistent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s1, err := NewChromemStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := s1.Upsert(ctx, UserVectors, userEntry(t, 4, "Lee", "welding")); err != nil {
		t.Fatal(err)
	}

	s2, err := NewChromemStore(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := s2.Get(ctx, UserVectors, "user_4")
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if got.Metadata.(UserMetadata).Name != "Lee" {
		t.Errorf("Name = %q", got.Metadata.(UserMetadata).Name)
	}
}

func TestChromemStore_GetMissing(t *testing.T) {
	s := newMemStore(t)
	if _, err := s.Get(context.Background(), TaskVectors, "task_99"); !apperr.IsNotFound(err) {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestChromemStore_RejectsInvalidEntries(t *testing.T) {
	ctx := context.Background()
	s := newMemStore(t)

	wrongCollection := userEntry(t, 1, "Ana", "framing")
	if err := s.Upsert(ctx, TaskVectors, wrongCollection); !apperr.IsValidation(err) {
		t.Errorf("user entry in TaskVectors: err = %v", err)
	}

	noTitle := taskEntry(t, 2, "x")
	noTitle.Metadata = TaskMetadata{TaskID: 2}
	if err := s.Upsert(ctx, TaskVectors, noTitle); !apperr.IsValidation(err) {
		t.Errorf("missing title: err = %v", err)
	}

	mismatched := taskEntry(t, 3, "Pour slab")
	mismatched.Metadata = TaskMetadata{TaskID: 4, Title: "Pour slab"}
	if err := s.Upsert(ctx, TaskVectors, mismatched); !apperr.IsValidation(err) {
		t.Errorf("source id mismatch: err = %v", err)
	}
}
