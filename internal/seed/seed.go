// Package seed loads the reference data a fresh catalog needs: ad
// placements, categories and tags.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/serroba/ringtones/internal/catalog"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var defaultSeed []byte

type Placement struct {
	Name string `yaml:"name"`
	Slug string `yaml:"slug"`
}

type Category struct {
	Name        string `yaml:"name"`
	Slug        string `yaml:"slug"`
	Icon        string `yaml:"icon"`
	Description string `yaml:"description"`
}

// Data is the parsed seed file. Tags are listed by slug; their display
// name is the slug with its first letter upper-cased.
type Data struct {
	Placements []Placement `yaml:"placements"`
	Categories []Category  `yaml:"categories"`
	Tags       []string    `yaml:"tags"`
}

// Default returns the built-in seed data.
func Default() (*Data, error) {
	return Parse(defaultSeed)
}

func Parse(raw []byte) (*Data, error) {
	var d Data
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}

	if err := d.validate(); err != nil {
		return nil, err
	}

	return &d, nil
}

func (d *Data) validate() error {
	for _, p := range d.Placements {
		if p.Slug == "" || p.Name == "" {
			return errors.New("placement needs a name and a slug")
		}
	}

	for _, c := range d.Categories {
		if c.Slug == "" || c.Name == "" {
			return errors.New("category needs a name and a slug")
		}
	}

	for _, t := range d.Tags {
		if strings.TrimSpace(t) == "" {
			return errors.New("empty tag slug")
		}
	}

	return nil
}

// Apply upserts everything into repo. Existing rows are left as they are,
// so running it twice is harmless. Categories are ordered as listed.
func (d *Data) Apply(ctx context.Context, repo catalog.Repository, logger *zap.Logger) error {
	for _, p := range d.Placements {
		if err := repo.UpsertPlacement(ctx, &catalog.Placement{Name: p.Name, Slug: p.Slug}); err != nil {
			return fmt.Errorf("placement %s: %w", p.Slug, err)
		}
	}

	logger.Info("ad placements seeded", zap.Int("count", len(d.Placements)))

	for i, c := range d.Categories {
		err := repo.UpsertCategory(ctx, &catalog.Category{
			Name:        c.Name,
			Slug:        c.Slug,
			Icon:        c.Icon,
			Description: c.Description,
			Order:       i,
		})
		if err != nil {
			return fmt.Errorf("category %s: %w", c.Slug, err)
		}
	}

	logger.Info("categories seeded", zap.Int("count", len(d.Categories)))

	for _, slug := range d.Tags {
		slug = strings.TrimSpace(slug)
		if err := repo.UpsertTag(ctx, &catalog.Tag{Name: tagName(slug), Slug: slug}); err != nil {
			return fmt.Errorf("tag %s: %w", slug, err)
		}
	}

	logger.Info("tags seeded", zap.Int("count", len(d.Tags)))

	return nil
}

func tagName(slug string) string {
	r, size := utf8.DecodeRuneInString(slug)

	return string(unicode.ToUpper(r)) + slug[size:]
}
