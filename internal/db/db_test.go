package db

import (
	"path/filepath"
	"testing"
)

func TestOpenMemory(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error: %v", err)
	}
	defer d.Close()

	for _, table := range []string{"tasks", "users"} {
		var count int
		err := d.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count)
		if err != nil {
			t.Errorf("table %s: %v", table, err)
		}
	}
}

func TestMigrateIdempotent(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error: %v", err)
	}
	defer d.Close()

	if err := d.migrate(); err != nil {
		t.Fatalf("second migrate() error: %v", err)
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "crewmatch.db")
	d, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer d.Close()

	if d.Path() != path {
		t.Errorf("Path() = %q, want %q", d.Path(), path)
	}
	if _, err := d.Exec(`INSERT INTO users (name) VALUES ('Ana')`); err != nil {
		t.Fatalf("insert: %v", err)
	}
}

func TestSchemaChecks(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	if _, err := d.Exec(`INSERT INTO tasks (title, priority) VALUES ('x', 'whenever')`); err == nil {
		t.Error("expected CHECK constraint failure for priority")
	}
	if _, err := d.Exec(`INSERT INTO users (name, experience_years) VALUES ('x', -1)`); err == nil {
		t.Error("expected CHECK constraint failure for experience_years")
	}
}
