package userstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mealmind/pkg/mealtypes"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "users.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testDraft(name string) mealtypes.ProfileDraft {
	height, weight := 170.0, 65.0
	return mealtypes.ProfileDraft{
		Name:           name,
		Age:            30,
		Height:         &height,
		Weight:         &weight,
		PrimaryCuisine: "italian",
		Conditions: []mealtypes.MedicalCondition{
			{Condition: "diabetes", Intensity: mealtypes.IntensityMild},
		},
	}
}

func TestCreateAndFindByID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Create(ctx, testDraft("Alice"))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	rec, err := s.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Alice", rec.Name)
	assert.Equal(t, 30, rec.Age)
	require.NotNil(t, rec.Height)
	assert.Equal(t, 170.0, *rec.Height)
	require.Len(t, rec.Conditions, 1)
	assert.Equal(t, "diabetes", rec.Conditions[0].Condition)
}

func TestFindByNameIsCaseInsensitive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, testDraft("Alice"))
	require.NoError(t, err)

	for _, name := range []string{"alice", "ALICE", "  Alice  "} {
		rec, err := s.FindByName(ctx, name)
		require.NoError(t, err, "lookup %q", name)
		assert.Equal(t, "Alice", rec.Name)
	}
}

func TestFindMissingUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.FindByName(ctx, "nobody")
	assert.ErrorIs(t, err, mealtypes.ErrUserNotFound)

	_, err = s.FindByID(ctx, "missing-id")
	assert.ErrorIs(t, err, mealtypes.ErrUserNotFound)
}

func TestDuplicateNameRejected(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, testDraft("Bob"))
	require.NoError(t, err)

	_, err = s.Create(ctx, testDraft("BOB"))
	assert.Error(t, err)
}

func TestAllAndDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	idA, err := s.Create(ctx, testDraft("Charlie"))
	require.NoError(t, err)
	_, err = s.Create(ctx, testDraft("Alice"))
	require.NoError(t, err)

	all, err := s.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Alice", all[0].Name)

	require.NoError(t, s.Delete(ctx, idA))
	assert.ErrorIs(t, s.Delete(ctx, idA), mealtypes.ErrUserNotFound)

	all, err = s.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestNilConditionsPersistAsEmptyList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	draft := testDraft("Dana")
	draft.Conditions = nil
	id, err := s.Create(ctx, draft)
	require.NoError(t, err)

	rec, err := s.FindByID(ctx, id)
	require.NoError(t, err)
	assert.NotNil(t, rec.Conditions)
	assert.Empty(t, rec.Conditions)
}

func TestMemoryStoreMatchesSQLiteBehavior(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	id, err := m.Create(ctx, testDraft("Eve"))
	require.NoError(t, err)

	rec, err := m.FindByName(ctx, "eve")
	require.NoError(t, err)
	assert.Equal(t, id, rec.ID)

	// Mutating a returned record must not leak back into the store.
	rec.Conditions[0].Condition = "changed"
	fresh, err := m.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "diabetes", fresh.Conditions[0].Condition)

	_, err = m.Create(ctx, testDraft("EVE"))
	assert.Error(t, err)
}

func TestCreateRejectsInvalidDrafts(t *testing.T) {
	badHeight := 999.0

	tests := []struct {
		name   string
		mutate func(*mealtypes.ProfileDraft)
	}{
		{"empty name", func(d *mealtypes.ProfileDraft) { d.Name = "  " }},
		{"age below minimum", func(d *mealtypes.ProfileDraft) { d.Age = 5 }},
		{"height out of range", func(d *mealtypes.ProfileDraft) { d.Height = &badHeight }},
	}

	s := newTestStore(t)
	m := NewMemoryStore()
	ctx := context.Background()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			draft := testDraft("Frank")
			tt.mutate(&draft)

			_, err := s.Create(ctx, draft)
			require.ErrorIs(t, err, mealtypes.ErrValidation)

			_, err = m.Create(ctx, draft)
			require.ErrorIs(t, err, mealtypes.ErrValidation)
		})
	}
}
