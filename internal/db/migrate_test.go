package db

import (
	"reflect"
	"testing"
	"testing/fstest"

	"wastewatch/db/migrations"
)

func TestListMigrationFiles(t *testing.T) {
	f := fstest.MapFS{
		"notes.txt":            {Data: []byte("ignore")},
		"0002_indexes.sql":     {Data: []byte("--")},
		"0001_init.sql":        {Data: []byte("--")},
		"nested/0003_more.sql": {Data: []byte("--")},
	}

	got, err := listMigrationFiles(f)
	if err != nil {
		t.Fatalf("listMigrationFiles returned error: %v", err)
	}
	want := []string{"0001_init.sql", "0002_indexes.sql"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected migration list: got=%v want=%v", got, want)
	}
}

func TestEmbeddedMigrationsPresent(t *testing.T) {
	got, err := listMigrationFiles(migrations.Files)
	if err != nil {
		t.Fatalf("listMigrationFiles returned error: %v", err)
	}
	if len(got) == 0 || got[0] != "0001_init.sql" {
		t.Fatalf("expected 0001_init.sql first, got %v", got)
	}
}
