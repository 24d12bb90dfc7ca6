package ruleset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func datePtr(s string) *time.Time {
	d := date(s)
	return &d
}

func TestSelect_NilCandidates(t *testing.T) {
	t.Parallel()

	_, err := Select(nil, date("2026-01-20"))
	require.ErrorIs(t, err, ErrNilCandidates)
}

func TestSelect(t *testing.T) {
	t.Parallel()

	v1 := Version{ID: "v1", JurisdictionCode: "CA", VersionLabel: "2026.1", EffectiveDate: date("2026-01-01"), Status: StatusActive}
	v2 := Version{ID: "v2", JurisdictionCode: "CA", VersionLabel: "2026.2", EffectiveDate: date("2026-01-15"), Status: StatusActive}
	v3 := Version{ID: "v3", JurisdictionCode: "CA", VersionLabel: "2026.3", EffectiveDate: date("2026-01-25"), Status: StatusActive}

	tests := []struct {
		name        string
		versions    []Version
		requestDate time.Time
		wantID      string // "" means nil result
	}{
		{
			name:        "empty list is a normal no-match",
			versions:    []Version{},
			requestDate: date("2026-01-20"),
			wantID:      "",
		},
		{
			name:        "latest effective version wins, future version excluded",
			versions:    []Version{v1, v2, v3},
			requestDate: date("2026-01-20"),
			wantID:      "v2",
		},
		{
			name:        "order of candidates does not matter",
			versions:    []Version{v3, v1, v2},
			requestDate: date("2026-01-20"),
			wantID:      "v2",
		},
		{
			name: "retired versions are excluded",
			versions: []Version{
				v1,
				{ID: "v2r", VersionLabel: "2026.2", EffectiveDate: date("2026-01-15"), Status: StatusRetired},
			},
			requestDate: date("2026-01-20"),
			wantID:      "v1",
		},
		{
			name: "ended versions are excluded",
			versions: []Version{
				{ID: "vold", VersionLabel: "2025.9", EffectiveDate: date("2025-06-01"), EndDate: datePtr("2025-12-31"), Status: StatusActive},
			},
			requestDate: date("2026-01-20"),
			wantID:      "",
		},
		{
			name: "end date is inclusive",
			versions: []Version{
				{ID: "vend", VersionLabel: "2025.9", EffectiveDate: date("2025-06-01"), EndDate: datePtr("2026-01-20"), Status: StatusActive},
			},
			requestDate: date("2026-01-20"),
			wantID:      "vend",
		},
		{
			name:        "effective date is inclusive",
			versions:    []Version{v2},
			requestDate: date("2026-01-15"),
			wantID:      "v2",
		},
		{
			name: "tie on effective date breaks by greatest version label",
			versions: []Version{
				{ID: "tie-a", VersionLabel: "2026.1a", EffectiveDate: date("2026-01-15"), Status: StatusActive},
				{ID: "tie-b", VersionLabel: "2026.1b", EffectiveDate: date("2026-01-15"), Status: StatusActive},
			},
			requestDate: date("2026-01-20"),
			wantID:      "tie-b",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Select(tt.versions, tt.requestDate)
			require.NoError(t, err)

			if tt.wantID == "" {
				assert.Nil(t, got)
				return
			}

			require.NotNil(t, got)
			assert.Equal(t, tt.wantID, got.ID)
		})
	}
}

func TestSelect_ReturnsDefensiveCopy(t *testing.T) {
	t.Parallel()

	versions := []Version{
		{ID: "v1", VersionLabel: "2026.1", EffectiveDate: date("2026-01-01"), Status: StatusActive},
	}

	got, err := Select(versions, date("2026-01-20"))
	require.NoError(t, err)
	require.NotNil(t, got)

	got.VersionLabel = "mutated"
	assert.Equal(t, "2026.1", versions[0].VersionLabel)
}
