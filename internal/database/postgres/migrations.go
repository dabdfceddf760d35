package postgres

import (
	"context"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"fmt"
	"path"
	"slices"
	"strconv"
	"strings"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrationLockID serializes migrations of concurrently starting servers.
const migrationLockID = 0x636f6c6c // "coll"

// migration is one embedded SQL file named NNN_description.sql.
type migration struct {
	file     string
	number   int
	sql      string
	checksum string
}

// loadMigrations reads the embedded migrations ordered by their number.
func loadMigrations() ([]migration, error) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations directory: %w", err)
	}

	var out []migration
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || path.Ext(name) != ".sql" {
			continue
		}
		prefix, _, ok := strings.Cut(name, "_")
		if !ok {
			return nil, fmt.Errorf("migration %s: missing NNN_ prefix", name)
		}
		number, err := strconv.Atoi(prefix)
		if err != nil {
			return nil, fmt.Errorf("migration %s: invalid number %q", name, prefix)
		}
		content, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		sum := sha256.Sum256(content)
		out = append(out, migration{file: name, number: number, sql: string(content), checksum: hex.EncodeToString(sum[:])})
	}

	slices.SortFunc(out, func(a, b migration) int { return a.number - b.number })
	for i := 1; i < len(out); i++ {
		if out[i].number == out[i-1].number {
			return nil, fmt.Errorf("migrations %s and %s share number %d", out[i-1].file, out[i].file, out[i].number)
		}
	}
	return out, nil
}

func (p *Pool) ensureMigrationsTable(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(255) PRIMARY KEY,
			checksum VARCHAR(64) NOT NULL DEFAULT '',
			applied_at TIMESTAMPTZ DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}
	return nil
}

// appliedChecksums maps applied migration files to their recorded checksum.
func (p *Pool) appliedChecksums(ctx context.Context) (map[string]string, error) {
	rows, err := p.db.QueryContext(ctx, "SELECT version, checksum FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]string)
	for rows.Next() {
		var version, checksum string
		if err := rows.Scan(&version, &checksum); err != nil {
			return nil, fmt.Errorf("scan migration version: %w", err)
		}
		applied[version] = checksum
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applied migrations: %w", err)
	}
	return applied, nil
}

// Migrate applies pending migrations in order, each in its own transaction.
// An applied migration whose file changed since is reported but not re-run.
func (p *Pool) Migrate(ctx context.Context) error {
	migrations, err := loadMigrations()
	if err != nil {
		return err
	}
	if err := p.ensureMigrationsTable(ctx); err != nil {
		return err
	}
	applied, err := p.appliedChecksums(ctx)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if sum, ok := applied[m.file]; ok {
			if sum != "" && sum != m.checksum {
				p.logger.Warn("applied migration changed on disk", "file", m.file)
			}
			continue
		}
		if err := p.apply(ctx, m); err != nil {
			return err
		}
		p.logger.Info("applied migration", "file", m.file)
	}
	return nil
}

func (p *Pool) apply(ctx context.Context, m migration) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction for %s: %w", m.file, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", migrationLockID); err != nil {
		return fmt.Errorf("lock for %s: %w", m.file, err)
	}
	// Another server may have applied it while we waited for the lock.
	var done bool
	if err := tx.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)", m.file).Scan(&done); err != nil {
		return fmt.Errorf("check migration %s: %w", m.file, err)
	}
	if done {
		return nil
	}

	if _, err := tx.ExecContext(ctx, m.sql); err != nil {
		return fmt.Errorf("execute migration %s: %w", m.file, err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, checksum) VALUES ($1, $2)", m.file, m.checksum); err != nil {
		return fmt.Errorf("record migration %s: %w", m.file, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %s: %w", m.file, err)
	}
	return nil
}

// MigrationsApplied returns the applied migration files in order.
func (p *Pool) MigrationsApplied(ctx context.Context) ([]string, error) {
	applied, err := p.appliedChecksums(ctx)
	if err != nil {
		return nil, err
	}
	versions := make([]string, 0, len(applied))
	for v := range applied {
		versions = append(versions, v)
	}
	slices.Sort(versions)
	return versions, nil
}
