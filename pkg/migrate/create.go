package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var nameSanitizeRe = regexp.MustCompile(`[^a-z0-9_]+`)

// lockTimeout bounds how long a migration waits for the vendor and order rows
// the ledger holds FOR UPDATE.
const lockTimeout = "5s"

// SourceDir is where new migrations are written so they get embedded on the next build.
const SourceDir = "pkg/migrate/migrations"

// CreateSQLMigration writes <dir>/<YYYYMMDDHHMMSS>_<name>.sql with a goose
// skeleton that sets a lock timeout before any DDL.
func CreateSQLMigration(dir string, name string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("dir is required")
	}
	safe := migrationSlug(name)
	if safe == "" {
		return "", fmt.Errorf("name %q has no usable characters", name)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %q: %w", dir, err)
	}

	version := time.Now().UTC().Format("20060102150405")
	filename := fmt.Sprintf("%s_%s.sql", version, safe)
	fullpath := filepath.Join(dir, filename)

	if _, err := os.Stat(fullpath); err == nil {
		return "", fmt.Errorf("migration already exists: %s", fullpath)
	}

	template := fmt.Sprintf(`-- +goose Up
SET lock_timeout = '%[1]s';
-- +goose StatementBegin
-- %[2]s
-- +goose StatementEnd

-- +goose Down
SET lock_timeout = '%[1]s';
-- +goose StatementBegin
-- rollback %[2]s
-- +goose StatementEnd
`, lockTimeout, safe)

	if err := os.WriteFile(fullpath, []byte(template), 0o644); err != nil {
		return "", fmt.Errorf("write migration %q: %w", fullpath, err)
	}

	return fullpath, nil
}

func migrationSlug(name string) string {
	safe := strings.ToLower(strings.TrimSpace(name))
	safe = nameSanitizeRe.ReplaceAllString(safe, "_")
	return strings.Trim(safe, "_")
}
