// store_test.go provides a shared test database helper for all store
// integration tests. Tests are skipped if PostgreSQL is not available.
package store

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"pagecraft/internal/database"
	"pagecraft/internal/models"
)

// testDSN returns the PostgreSQL connection string for testing.
// Uses environment variables with defaults matching docker-compose.yml.
func testDSN() string {
	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "pagecraft")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "pagecraft")
	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test database and runs migrations.
// If the database is unavailable, the test is skipped. A cleanup
// function is registered to close the connection when the test finishes.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("pgx", testDSN())
	if err != nil {
		t.Skipf("skipping integration test: cannot open DB: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping integration test: DB not reachable: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}
	goose.SetBaseFS(nil)

	t.Cleanup(func() { db.Close() })
	return db
}

// testDefinitions registers widget definitions with unique slugs and
// removes them, together with any widgets using them, when the test ends.
func testDefinitions(t *testing.T, db *sql.DB, names ...string) map[string]string {
	t.Helper()
	suffix := uuid.NewString()[:8]
	slugs := make(map[string]string, len(names))
	defs := make([]models.WidgetDefinition, 0, len(names))
	for _, n := range names {
		slugs[n] = n + "-" + suffix
		defs = append(defs, models.WidgetDefinition{Slug: slugs[n], Name: n, Theme: "test"})
	}
	if _, err := NewWidgetDefinitionStore(db).Sync(context.Background(), defs); err != nil {
		t.Fatalf("sync definitions: %v", err)
	}
	t.Cleanup(func() {
		for _, s := range slugs {
			db.Exec("DELETE FROM widgets WHERE definition = $1", s)
			db.Exec("DELETE FROM widget_definitions WHERE slug = $1", s)
		}
	})
	return slugs
}

// testPage creates an empty draft page that is deleted when the test ends.
func testPage(t *testing.T, db *sql.DB) *models.Page {
	t.Helper()
	slug := "test-page-" + uuid.NewString()[:8]
	p, err := NewPageStore(db).Create(context.Background(), &models.Page{Title: "Test Page", Slug: slug})
	if err != nil {
		t.Fatalf("create page: %v", err)
	}
	t.Cleanup(func() { db.Exec("DELETE FROM pages WHERE id = $1", p.ID) })
	return p
}
