package db

import (
	"context" // Store calls
	"fmt"     // Error wrapping
	"os"      // Reading the catalog file

	"ajosave/internal/domain" // Plan types
	"ajosave/internal/store"  // Persistence

	"github.com/sirupsen/logrus" // Logging
	"gopkg.in/yaml.v3"           // Catalog format
)

// Catalog is the plan types file layout
type Catalog struct {
	PlanTypes []domain.PlanType `yaml:"plan_types"`
}

// LoadCatalog reads and validates a plan catalog file
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates catalog YAML
func ParseCatalog(data []byte) (*Catalog, error) {
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	seen := map[string]bool{}
	for i, pt := range cat.PlanTypes {
		switch {
		case pt.Code == "":
			return nil, fmt.Errorf("plan type %d: code is required", i)
		case seen[pt.Code]:
			return nil, fmt.Errorf("plan type %q: duplicate code", pt.Code)
		case pt.DurationWeeks < 0:
			return nil, fmt.Errorf("plan type %q: duration_weeks must not be negative", pt.Code)
		case pt.MinContribution.IsNegative():
			return nil, fmt.Errorf("plan type %q: min_contribution must not be negative", pt.Code)
		}
		switch pt.Frequency {
		case domain.FrequencyDaily, domain.FrequencyWeekly, domain.FrequencyMonthly:
		default:
			return nil, fmt.Errorf("plan type %q: unknown frequency %q", pt.Code, pt.Frequency)
		}
		if pt.Name == "" {
			cat.PlanTypes[i].Name = pt.Code
		}
		seen[pt.Code] = true
	}
	return &cat, nil
}

// Seed upserts every catalog entry by code
func (c *Catalog) Seed(ctx context.Context, repo store.Repository) error {
	for i := range c.PlanTypes {
		pt := c.PlanTypes[i]
		if err := repo.UpsertPlanType(ctx, &pt); err != nil {
			return fmt.Errorf("seeding plan type %q: %w", pt.Code, err)
		}
		logrus.WithFields(logrus.Fields{"code": pt.Code, "active": pt.Active}).Info("Plan type seeded")
	}
	return nil
}
