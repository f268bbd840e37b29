package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/egov-portal/reserve-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureYAML = `
reservations:
  - id: 6f1c2b9e-3a4d-4c55-9b7e-1d2e3f4a5b6c
    item_id: 7
    category: equipment
    quantity: 30
    purpose: conference
    start: 2024-09-10
    end: 2024-09-12
    status: approve
    requester_id: user-1
  - item_id: 9
    category: education
    quantity: 2
    start: 2024-09-15
    end: 2024-09-15
    inventory_held: true
    requester_id: user-2
`

func TestParseFixtures(t *testing.T) {
	now := time.Date(2024, time.September, 1, 0, 0, 0, 0, time.UTC)

	reservations, err := parseFixtures([]byte(fixtureYAML), now)

	require.NoError(t, err)
	require.Len(t, reservations, 2)

	first := reservations[0]
	assert.Equal(t, "6f1c2b9e-3a4d-4c55-9b7e-1d2e3f4a5b6c", first.ReservationID)
	assert.Equal(t, models.CategoryEquipment, first.CategoryID)
	assert.Equal(t, models.StatusApprove, first.Status)
	assert.Equal(t, time.Date(2024, time.September, 12, 0, 0, 0, 0, time.UTC), first.EndDate)
	assert.Equal(t, now, first.CreatedAt)

	second := reservations[1]
	assert.NotEmpty(t, second.ReservationID)
	assert.Equal(t, models.StatusRequest, second.Status)
	assert.True(t, second.InventoryHeld)
}

func TestParseFixtures_Invalid(t *testing.T) {
	tests := map[string]string{
		"missing requester": "reservations:\n  - item_id: 7\n    quantity: 1\n    start: 2024-09-10\n    end: 2024-09-10\n",
		"inverted period":   "reservations:\n  - item_id: 7\n    quantity: 1\n    requester_id: u\n    start: 2024-09-12\n    end: 2024-09-10\n",
		"bad date":          "reservations:\n  - item_id: 7\n    quantity: 1\n    requester_id: u\n    start: tomorrow\n    end: 2024-09-10\n",
		"bad id":            "reservations:\n  - id: nope\n    item_id: 7\n    quantity: 1\n    requester_id: u\n    start: 2024-09-10\n    end: 2024-09-10\n",
		"bad yaml":          "reservations: [",
	}

	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := parseFixtures([]byte(data), time.Now())
			assert.Error(t, err)
		})
	}
}

func TestFixtureFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte(fixtureYAML), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yml"), []byte(fixtureYAML), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0600))

	files, err := fixtureFiles(dir, "")
	require.NoError(t, err)
	assert.Len(t, files, 2)

	files, err = fixtureFiles(dir, "x.yaml,y.yaml")
	require.NoError(t, err)
	assert.Equal(t, []string{"x.yaml", "y.yaml"}, files)
}
