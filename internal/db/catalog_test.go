package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"ajosave/internal/store/storetest"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
plan_types:
  - code: ajo-weekly
    name: Ajo Circle (weekly)
    frequency: weekly
    duration_weeks: 12
    min_contribution: 5000
    interest_rate: "0"
    active: true
  - code: sprint
    frequency: daily
    duration_weeks: 4
    min_contribution: "250.50"
    interest_rate: 2.5
    active: false
`

func TestParseCatalog(t *testing.T) {
	cat, err := ParseCatalog([]byte(sample))
	require.NoError(t, err)
	require.Len(t, cat.PlanTypes, 2)

	ajo := cat.PlanTypes[0]
	assert.Equal(t, "ajo-weekly", ajo.Code)
	assert.Equal(t, 12, ajo.DurationWeeks)
	assert.True(t, decimal.NewFromInt(5000).Equal(ajo.MinContribution))
	assert.True(t, ajo.Active)

	sprint := cat.PlanTypes[1]
	assert.Equal(t, "sprint", sprint.Name)
	assert.True(t, decimal.RequireFromString("250.5").Equal(sprint.MinContribution))
	assert.True(t, decimal.RequireFromString("2.5").Equal(sprint.InterestRate))
	assert.False(t, sprint.Active)
}

func TestParseCatalog_Invalid(t *testing.T) {
	cases := map[string]string{
		"missing code":  "plan_types:\n  - frequency: weekly\n",
		"duplicate":     "plan_types:\n  - {code: a, frequency: weekly}\n  - {code: a, frequency: weekly}\n",
		"bad frequency": "plan_types:\n  - {code: a, frequency: hourly}\n",
		"negative":      "plan_types:\n  - {code: a, frequency: weekly, min_contribution: -1}\n",
		"not yaml":      "plan_types: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plans.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))
	cat, err := LoadCatalog(path)
	require.NoError(t, err)

	ctx := context.Background()
	repo := storetest.NewMemory()
	require.NoError(t, cat.Seed(ctx, repo))
	require.NoError(t, cat.Seed(ctx, repo))

	all, err := repo.ListPlanTypes(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	active, err := repo.ListPlanTypes(ctx, true)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestModels(t *testing.T) {
	assert.Len(t, Models(), 7)
}
