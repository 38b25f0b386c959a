package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/intraylabs/intray/internal/store"
	"github.com/intraylabs/intray/internal/store/storetest"
)

func makePGStore(t *testing.T) store.Store {
	t.Helper()
	dsn := os.Getenv("INTRAY_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("INTRAY_TEST_POSTGRES_DSN not set; skipping postgres store integration test")
	}
	db, err := Open(dsn)
	if err != nil {
		t.Fatalf("postgres open: %v", err)
	}
	if err := Migrate(context.Background(), db); err != nil {
		t.Fatalf("postgres migrate: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewWithDB(db)
}

func TestPostgresStore_Compliance(t *testing.T) {
	storetest.Run(t, makePGStore)
}

// TestPostgresStore_Container runs the compliance suite against a throwaway
// Postgres container. Opt in with INTRAY_TEST_WITH_DOCKER=1.
func TestPostgresStore_Container(t *testing.T) {
	if os.Getenv("INTRAY_TEST_WITH_DOCKER") == "" {
		t.Skip("INTRAY_TEST_WITH_DOCKER not set; skipping container test")
	}
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "intray",
			"POSTGRES_PASSWORD": "intray",
			"POSTGRES_DB":       "intray",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("container port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://intray:intray@%s:%s/intray?sslmode=disable", host, port.Port())

	if err := Bootstrap(ctx, dsn); err != nil {
		t.Fatalf("postgres bootstrap: %v", err)
	}

	storetest.Run(t, func(t *testing.T) store.Store {
		t.Helper()
		db, err := Open(dsn)
		if err != nil {
			t.Fatalf("postgres open: %v", err)
		}
		t.Cleanup(func() { _ = db.Close() })
		return NewWithDB(db)
	})
}
