// Package testutil provides shared test helpers for stores and services.
package testutil

import (
	"os"
	"testing"

	"github.com/starford/bomberos/internal/catalog"
	"github.com/starford/bomberos/internal/observability"
	"github.com/starford/bomberos/internal/store"
	"github.com/starford/bomberos/internal/toolkit"
)

// TestDB creates a temporary SQLite key-value store that is automatically cleaned up.
func TestDB(t *testing.T, opts ...store.Option) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "bomberos-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name(), opts...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestService builds a toolkit service over the default catalogue, a temporary
// store and unregistered metrics.
func TestService(t *testing.T) (*toolkit.Service, *store.DB, *observability.Metrics) {
	t.Helper()
	db := TestDB(t)
	metrics := observability.NewMetrics(nil)
	svc := toolkit.NewService(catalog.NewSource(catalog.Default()), db, metrics)
	return svc, db, metrics
}
