package canon

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestBuildTextTaskOrder(t *testing.T) {
	fields := Fields{
		"location":           "Block B",
		"title":              "Install security cameras",
		"skill_requirements": []string{"electrical_installation", "cctv"},
		"priority":           "high",
		"ignored":            "not in template",
	}

	got, err := BuildText(Task, fields)
	if err != nil {
		t.Fatalf("BuildText: %v", err)
	}
	want := "Title: Install security cameras | Skill Requirements: electrical_installation, cctv | Priority: high | Location: Block B"
	if got != want {
		t.Errorf("got %q\nwant %q", got, want)
	}
}

func TestBuildTextUserOrder(t *testing.T) {
	fields := Fields{
		"bio":              "Ten years on commercial sites.",
		"name":             "Amina",
		"role":             "electrician",
		"primary_skills":   []any{"electrical_installation", "", "wiring"},
		"experience_years": float64(10),
	}

	got, err := BuildText(User, fields)
	if err != nil {
		t.Fatalf("BuildText: %v", err)
	}
	want := "Name: Amina | Role: electrician | Primary Skills: electrical_installation, wiring | Experience Years: 10 | Bio: Ten years on commercial sites."
	if got != want {
		t.Errorf("got %q\nwant %q", got, want)
	}
}

func TestBuildTextSkipsEmpty(t *testing.T) {
	got, err := BuildText(Task, Fields{
		"title":              "  ",
		"description":        "",
		"skill_requirements": []string{},
		"status":             "open",
	})
	if err != nil {
		t.Fatalf("BuildText: %v", err)
	}
	if got != "Status: open" {
		t.Errorf("got %q, want %q", got, "Status: open")
	}
}

func TestBuildTextDeterministic(t *testing.T) {
	fields := Fields{
		"name":             "Jo",
		"role":             "plumber",
		"primary_skills":   []string{"plumbing_repair"},
		"certifications":   []string{"gas safe"},
		"trade_categories": []string{"plumbing"},
	}
	first, _ := BuildText(User, fields)
	for i := 0; i < 50; i++ {
		got, _ := BuildText(User, fields)
		if got != first {
			t.Fatalf("iteration %d: %q != %q", i, got, first)
		}
	}
}

func TestBuildTextUnknownEntity(t *testing.T) {
	if _, err := BuildText(EntityType("crane"), Fields{}); err == nil {
		t.Error("expected error for unknown entity type")
	}
}

func TestNormalizeQuery(t *testing.T) {
	if got := NormalizeQuery("  hvac \n technician\t "); got != "hvac technician" {
		t.Errorf("got %q", got)
	}
}

func TestFieldsGetters(t *testing.T) {
	var decoded Fields
	if err := json.Unmarshal([]byte(`{"skills":["a","b"],"years":7,"raw":"[\"x\",\"y\"]","one":"solo"}`), &decoded); err != nil {
		t.Fatal(err)
	}

	if got := decoded.Strings("skills"); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Strings(skills) = %v", got)
	}
	if got := decoded.Strings("raw"); !reflect.DeepEqual(got, []string{"x", "y"}) {
		t.Errorf("Strings(raw) = %v", got)
	}
	if got := decoded.Strings("one"); !reflect.DeepEqual(got, []string{"solo"}) {
		t.Errorf("Strings(one) = %v", got)
	}
	if n, ok := decoded.Int("years"); !ok || n != 7 {
		t.Errorf("Int(years) = %d, %v", n, ok)
	}
	if _, ok := decoded.Int("missing"); ok {
		t.Error("Int(missing) should report absent")
	}
}

func TestParseEntityType(t *testing.T) {
	for in, want := range map[string]EntityType{"tasks": Task, "User": User, "workers": User} {
		got, err := ParseEntityType(in)
		if err != nil || got != want {
			t.Errorf("ParseEntityType(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseEntityType("site"); err == nil {
		t.Error("expected error")
	}
}
