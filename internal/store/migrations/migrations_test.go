package migrations

import "testing"

func TestEmbeddedMigrationsPresent(t *testing.T) {
	entries, err := files.ReadDir(".")
	if err != nil {
		t.Fatalf("read migrations: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("expected at least one embedded migration file")
	}

	var hasUp, hasDown bool
	for _, e := range entries {
		switch e.Name() {
		case "0001_init.up.sql":
			hasUp = true
		case "0001_init.down.sql":
			hasDown = true
		}
	}
	if !hasUp || !hasDown {
		t.Fatalf("expected 0001_init up/down migrations, got %v", entries)
	}
}
