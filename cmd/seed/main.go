// Seed tool: creates or updates groups.
// - -file loads a YAML list of groups
// - -title/-slug/-description seed a single group
// Existing groups are matched by slug and have their title and description refreshed.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/anonto42/concordance/backend/internal/models"
	"github.com/anonto42/concordance/backend/internal/repositories"
	"github.com/anonto42/concordance/backend/pkg/config"
	"github.com/anonto42/concordance/backend/pkg/logger"
	"github.com/anonto42/concordance/backend/validators"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

func main() {
	var file, title, slug, description string
	flag.StringVar(&file, "file", "", "YAML file with a list of groups (title, slug, description)")
	flag.StringVar(&title, "title", "", "title of a single group to seed")
	flag.StringVar(&slug, "slug", "", "slug of a single group to seed")
	flag.StringVar(&description, "description", "", "description of a single group to seed")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	var groups []models.SeedGroup
	switch {
	case file != "":
		groups, err = loadGroups(file)
		if err != nil {
			logrus.Fatalf("Failed to read %s: %v", file, err)
		}
	case slug != "":
		groups = []models.SeedGroup{{Title: title, Slug: slug, Description: description}}
	default:
		flag.Usage()
		os.Exit(2)
	}

	db, err := config.InitDB(cfg)
	if err != nil {
		logrus.Fatalf("Failed to initialize databases: %v", err)
	}
	defer db.CloseDB()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	start := time.Now()
	n, err := seed(ctx, repositories.NewPostgresGroupRepository(db.SQL), groups)
	if err != nil {
		logrus.Fatalf("Seeding failed after %d groups: %v", n, err)
	}
	logrus.WithField("groups", n).Infof("done in %s", time.Since(start).Truncate(time.Millisecond))
}

// loadGroups parses a YAML list of groups
func loadGroups(path string) ([]models.SeedGroup, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var groups []models.SeedGroup
	if err := yaml.Unmarshal(data, &groups); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return groups, nil
}

// seed validates every group first, then upserts them in order
func seed(ctx context.Context, repo repositories.GroupRepository, groups []models.SeedGroup) (int, error) {
	v := validators.NewValidator()
	var errs []error
	for i, g := range groups {
		if err := v.Validate(g); err != nil {
			errs = append(errs, fmt.Errorf("group %d (%q): %v", i+1, g.Slug, validators.FieldErrors(err)))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return 0, err
	}

	for i, g := range groups {
		group := &models.Group{Title: g.Title, Slug: g.Slug, Description: g.Description}
		if err := repo.UpsertGroupBySlug(ctx, group); err != nil {
			return i, fmt.Errorf("upsert %q: %w", g.Slug, err)
		}
		logrus.WithFields(logrus.Fields{"slug": group.Slug, "id": group.ID}).Info("Group seeded")
	}
	return len(groups), nil
}
