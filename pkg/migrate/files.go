package migrate

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var (
	fileNameRe     = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)
	nameSanitizeRe = regexp.MustCompile(`[^a-z0-9_]+`)
)

const migrationTemplate = `-- +goose Up
-- +goose StatementBegin
-- %[1]s
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- rollback %[1]s
-- +goose StatementEnd
`

// Validate checks every .sql file at the root of fsys for a versioned name,
// a unique version and both goose section markers.
func Validate(fsys fs.FS) error {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	versions := make(map[string]string)
	count := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".sql" {
			continue
		}
		m := fileNameRe.FindStringSubmatch(name)
		if m == nil {
			return fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
		}
		if prev, dup := versions[m[1]]; dup {
			return fmt.Errorf("migrations %q and %q share version %s", prev, name, m[1])
		}
		versions[m[1]] = name

		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("read %q: %w", name, err)
		}
		for _, marker := range []string{"-- +goose Up", "-- +goose Down"} {
			if !strings.Contains(string(body), marker) {
				return fmt.Errorf("migration %q missing %q", name, marker)
			}
		}
		count++
	}
	if count == 0 {
		return fmt.Errorf("no migrations found")
	}
	return nil
}

// CreateSQLMigration writes an empty goose migration named <timestamp>_<name>.sql into dir.
func CreateSQLMigration(dir string, name string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("dir is required")
	}
	slug := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
	slug = strings.Trim(nameSanitizeRe.ReplaceAllString(slug, "_"), "_")
	if slug == "" {
		return "", fmt.Errorf("migration name %q has no usable characters", name)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %q: %w", dir, err)
	}
	path := filepath.Join(dir, time.Now().UTC().Format("20060102150405")+"_"+slug+".sql")

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create %q: %w", path, err)
	}
	defer f.Close()
	if _, err := fmt.Fprintf(f, migrationTemplate, slug); err != nil {
		return "", fmt.Errorf("write %q: %w", path, err)
	}
	return path, nil
}
