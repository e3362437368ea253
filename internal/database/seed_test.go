package database

import (
	"context"
	"testing"
)

func TestSeedIdempotent(t *testing.T) {
	db, err := Connect(testDSN())
	if err != nil {
		t.Skipf("skipping: DB not available: %v", err)
	}
	defer db.Close()

	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	// Seed only fills empty tables. We don't clear the database first
	// because other test packages may be running against it concurrently.
	ctx := context.Background()
	if err := Seed(ctx, db); err != nil {
		t.Fatalf("first Seed: %v", err)
	}
	if err := Seed(ctx, db); err != nil {
		t.Fatalf("second Seed: %v", err)
	}

	var types int
	if err := db.QueryRow("SELECT COUNT(*) FROM content_types WHERE slug = 'post'").Scan(&types); err != nil {
		t.Fatalf("count content types: %v", err)
	}
	if types != 1 {
		t.Errorf("expected exactly one post type, got %d", types)
	}

	var pages int
	if err := db.QueryRow("SELECT COUNT(*) FROM pages").Scan(&pages); err != nil {
		t.Fatalf("count pages: %v", err)
	}
	if pages < 1 {
		t.Errorf("expected at least one page, got %d", pages)
	}
}
