package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/clinicadesk/clinica_backend/config"
)

// InitializeDatabases creates the databases listed in server.databases (or
// database.dbname when the list is empty) through the maintenance database.
func InitializeDatabases(ctx context.Context, cfg *config.Config) ([]string, error) {
	names := cfg.Server.Databases
	if len(names) == 0 && cfg.Database.DBName != "" {
		names = []string{cfg.Database.DBName}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no database names provided")
	}

	admin := FromCentralConfig(cfg.Database)
	admin.DBName = "postgres"
	conn, err := openSQLDB(ctx, admin)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres database: %w", err)
	}
	defer conn.Close()

	var created []string
	for _, name := range names {
		ok, err := createDatabaseIfNotExists(ctx, conn, name)
		if err != nil {
			return created, fmt.Errorf("failed to create database %q: %w", name, err)
		}
		if ok {
			created = append(created, name)
		}
	}
	return created, nil
}

func createDatabaseIfNotExists(ctx context.Context, conn *sql.DB, name string) (bool, error) {
	var exists bool
	err := conn.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)`, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check if database exists: %w", err)
	}
	if exists {
		return false, nil
	}
	if _, err := conn.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(name)); err != nil {
		return false, err
	}
	return true, nil
}
