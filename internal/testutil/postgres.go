// Package testutil provides test helpers: a PostgreSQL container and
// ruleset and scenario fixtures.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/cory-johannsen/tactics/internal/config"
	"github.com/cory-johannsen/tactics/internal/storage/postgres"
	"github.com/cory-johannsen/tactics/migrations"
)

const (
	postgresImage = "postgres:16-alpine"
	postgresPort  = "5432/tcp"
	// postgresLogin is the user, password and database name of the container.
	postgresLogin = "tactics"
)

// PostgresContainer is a throwaway database for one test.
type PostgresContainer struct {
	Pool    *postgres.Pool
	RawPool *pgxpool.Pool
	Config  config.DatabaseConfig
}

// NewPostgresContainer starts an empty database and connects a Pool to
// it. The container is removed when the test ends.
//
// Precondition: Docker must be available; the test is skipped with -short.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container needs docker")
	}
	ctx := context.Background()
	start := time.Now()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        postgresImage,
			ExposedPorts: []string{postgresPort},
			Env: map[string]string{
				"POSTGRES_USER":     postgresLogin,
				"POSTGRES_PASSWORD": postgresLogin,
				"POSTGRES_DB":       postgresLogin,
			},
			// The server restarts once after initdb.
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("testutil: starting %s: %v", postgresImage, err)
	}
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	cfg, err := containerConfig(ctx, c)
	if err != nil {
		t.Fatalf("testutil: %v", err)
	}
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		t.Fatalf("testutil: connecting to %s:%d: %v", cfg.Host, cfg.Port, err)
	}
	t.Cleanup(pool.Close)
	t.Logf("postgres ready on %s:%d after %s", cfg.Host, cfg.Port, time.Since(start).Round(time.Millisecond))

	return &PostgresContainer{Pool: pool, RawPool: pool.DB(), Config: cfg}
}

func containerConfig(ctx context.Context, c testcontainers.Container) (config.DatabaseConfig, error) {
	host, err := c.Host(ctx)
	if err != nil {
		return config.DatabaseConfig{}, err
	}
	port, err := c.MappedPort(ctx, postgresPort)
	if err != nil {
		return config.DatabaseConfig{}, err
	}
	return config.DatabaseConfig{
		Host:            host,
		Port:            port.Int(),
		User:            postgresLogin,
		Password:        postgresLogin,
		Name:            postgresLogin,
		SSLMode:         "disable",
		MaxConns:        4,
		MinConns:        1,
		MaxConnLifetime: time.Minute,
	}, nil
}

// ApplyMigrations brings the schema up to date with golang-migrate, the
// same way the migrate command does.
//
// Postcondition: The unit_ai_state and city_threats tables exist.
func (pc *PostgresContainer) ApplyMigrations(t *testing.T) {
	t.Helper()
	m, err := migrations.New(pc.DSN())
	if err != nil {
		t.Fatalf("testutil: %v", err)
	}
	defer m.Close()
	if err := migrations.Apply(m, "up", 0); err != nil {
		t.Fatalf("testutil: migrating up: %v", err)
	}
}

// DSN returns the connection string of the container database.
func (pc *PostgresContainer) DSN() string {
	return pc.Config.DSN()
}
