package vectordb

import (
	"reflect"
	"strings"
	"testing"

	"github.com/ziadkadry99/crewmatch/internal/canon"
)

func TestEntryIDRoundTrip(t *testing.T) {
	id := EntryID(canon.User, 3)
	if id != "user_3" {
		t.Fatalf("EntryID = %q", id)
	}
	et, n, err := ParseEntryID(id)
	if err != nil || et != canon.User || n != 3 {
		t.Errorf("ParseEntryID = %v, %d, %v", et, n, err)
	}
	for _, bad := range []string{"user", "crane_1", "task_x", "task_0", ""} {
		if _, _, err := ParseEntryID(bad); err == nil {
			t.Errorf("ParseEntryID(%q) should fail", bad)
		}
	}
}

func TestParseCollection(t *testing.T) {
	tests := map[string]Collection{
		"TaskVectors": TaskVectors,
		"users":       UserVectors,
		"task":        TaskVectors,
	}
	for in, want := range tests {
		got, err := ParseCollection(in)
		if err != nil || got != want {
			t.Errorf("ParseCollection(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseCollection("Equipment"); err == nil {
		t.Error("expected error for unknown collection")
	}
}

func TestDecodeMetadata(t *testing.T) {
	user := UserMetadata{
		UserID:          5,
		Name:            "Rui",
		Role:            "electrician",
		ExperienceYears: 12,
		PrimarySkills:   []string{"electrical_installation", "conduit, bending"},
		Certifications:  []string{"IPAF"},
	}
	got, err := DecodeMetadata(UserVectors, user.ToMap())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, user) {
		t.Errorf("got %+v\nwant %+v", got, user)
	}

	if _, err := DecodeMetadata(TaskVectors, map[string]string{"task_id": "abc"}); err == nil {
		t.Error("expected error for non-numeric task_id")
	}
}

func TestFormatEntry(t *testing.T) {
	e := &Entry{
		ID:        "task_7",
		Text:      "Title: Install cameras",
		Embedding: make([]float32, 8),
		Metadata:  TaskMetadata{TaskID: 7, Title: "Install cameras"},
	}
	out := FormatEntry(TaskVectors, e)
	for _, want := range []string{"task_7", "Dimensions: 8", "title:", "Install cameras"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "skill_requirements") {
		t.Error("empty list fields should be omitted")
	}
}
