package repo

import (
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"
)

func TestLoadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_visits.sql": {Data: []byte("CREATE TABLE visits ();")},
		"0001_init.sql":   {Data: []byte("CREATE TABLE patients ();")},
		"0010_later.sql":  {Data: []byte("SELECT 1;")},
		"README.md":       {Data: []byte("docs")},
		"notes.sql":       {Data: []byte("-- no version")},
	}

	got, err := LoadMigrations(fsys)
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}

	wantVersions := []int{1, 2, 10}
	if len(got) != len(wantVersions) {
		t.Fatalf("got %d migrations, want %d", len(got), len(wantVersions))
	}
	for i, v := range wantVersions {
		if got[i].Version != v {
			t.Errorf("migration[%d].Version = %d, want %d", i, got[i].Version, v)
		}
	}
	if got[0].SQL != "CREATE TABLE patients ();" {
		t.Errorf("unexpected SQL: %q", got[0].SQL)
	}
}

func TestLoadMigrationsRejectsDuplicateVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"0001_a.sql": {Data: []byte("SELECT 1;")},
		"001_b.sql":  {Data: []byte("SELECT 2;")},
	}
	if _, err := LoadMigrations(fsys); err == nil {
		t.Fatal("expected duplicate version error")
	}
}

func TestEmbeddedMigrationsDeclareUniqueSlots(t *testing.T) {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		t.Fatal(err)
	}
	migrations, err := LoadMigrations(sub)
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}
	if len(migrations) == 0 || migrations[0].Version != 1 {
		t.Fatalf("expected embedded migrations starting at version 1, got %+v", migrations)
	}

	var all strings.Builder
	for _, m := range migrations {
		all.WriteString(m.SQL)
	}
	for _, want := range []string{
		"ON appointments (professional_id, scheduled_at)",
		"ON visits (appointment_id)",
	} {
		if !strings.Contains(all.String(), want) {
			t.Errorf("migrations missing unique index %q", want)
		}
	}
}
