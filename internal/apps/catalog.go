package apps

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/angelmondragon/roasapp-backend/pkg/db/models"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{1,63}$`)

type catalogFile struct {
	Apps []catalogEntry `yaml:"apps"`
}

type catalogEntry struct {
	Name        string `yaml:"name"`
	Slug        string `yaml:"slug"`
	Description string `yaml:"description"`
}

type catalogUpserter interface {
	Upsert(ctx context.Context, app *models.App) error
}

// LoadCatalog decodes the YAML app catalog. Slugs are lowercased and must be unique.
func LoadCatalog(r io.Reader) ([]models.App, error) {
	var file catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("catalog is empty")
		}
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(file.Apps) == 0 {
		return nil, fmt.Errorf("catalog lists no apps")
	}

	seen := make(map[string]struct{}, len(file.Apps))
	out := make([]models.App, 0, len(file.Apps))
	for i, entry := range file.Apps {
		slug := strings.ToLower(strings.TrimSpace(entry.Slug))
		name := strings.TrimSpace(entry.Name)
		if name == "" {
			return nil, fmt.Errorf("catalog entry %d: name required", i)
		}
		if !slugPattern.MatchString(slug) {
			return nil, fmt.Errorf("catalog entry %d: invalid slug %q", i, entry.Slug)
		}
		if _, dup := seen[slug]; dup {
			return nil, fmt.Errorf("catalog entry %d: duplicate slug %q", i, slug)
		}
		seen[slug] = struct{}{}
		out = append(out, models.App{
			Name:        name,
			Slug:        slug,
			Description: strings.TrimSpace(entry.Description),
		})
	}
	return out, nil
}

// SeedCatalog upserts every catalog app and returns how many were written.
func SeedCatalog(ctx context.Context, repo catalogUpserter, catalog []models.App) (int, error) {
	for i := range catalog {
		if err := repo.Upsert(ctx, &catalog[i]); err != nil {
			return i, fmt.Errorf("upsert app %s: %w", catalog[i].Slug, err)
		}
	}
	return len(catalog), nil
}
