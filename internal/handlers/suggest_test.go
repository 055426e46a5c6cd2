package handlers

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mealmind/internal/testutils"
	"mealmind/internal/userstore"
	"mealmind/pkg/mealtypes"
)

func completeDraft() mealtypes.ProfileDraft {
	height, weight := 170.0, 65.0
	return mealtypes.ProfileDraft{
		Name: "Alice", Age: 30, Height: &height, Weight: &weight,
		PrimaryCuisine: "italian",
		Conditions: []mealtypes.MedicalCondition{
			{Condition: "diabetes", Intensity: mealtypes.IntensityMild},
		},
	}
}

func TestSuggestWithCompleteDraft(t *testing.T) {
	gen := testutils.NewMockGenerator("How about a fresh caprese salad with grilled chicken?")
	h := NewSuggestHandler(gen, userstore.NewMemoryStore(), nil, "suggest")

	sess := &mealtypes.Session{ID: "s1", Profile: completeDraft()}
	res := h.Handle(context.Background(), sess, "what should I eat?")

	assert.Equal(t, mealtypes.StateSatisfactionCheck, res.NextState)
	assert.Equal(t, res.Reply, sess.Meal.LastSuggestion)
	assert.Equal(t, mealtypes.SatisfactionUnknown, sess.Satisfaction.Level)

	prompt := gen.Calls[0][0].Content
	assert.Contains(t, prompt, "Age: 30")
	assert.Contains(t, prompt, "- BMI: 22.5 (normal)\n")
	assert.NotContains(t, prompt, "(normal) (normal)")
	assert.Contains(t, prompt, "diabetes")
	assert.Contains(t, prompt, "italian")
}

func TestSuggestPrefersStoredProfile(t *testing.T) {
	users := userstore.NewMemoryStore()
	id, err := users.Create(context.Background(), completeDraft())
	require.NoError(t, err)

	gen := testutils.NewMockGenerator("Try a mushroom risotto!")
	h := NewSuggestHandler(gen, users, nil, "suggest")

	sess := &mealtypes.Session{ID: "s1", UserID: id, Profile: mealtypes.NewProfileDraft()}
	res := h.Handle(context.Background(), sess, "lunch ideas?")

	assert.Equal(t, mealtypes.StateSatisfactionCheck, res.NextState)
	assert.Contains(t, gen.Calls[0][0].Content, "Alice")
}

func TestSuggestWithoutProfileAsksToCollect(t *testing.T) {
	gen := testutils.NewMockGenerator("should not be called")
	h := NewSuggestHandler(gen, userstore.NewMemoryStore(), nil, "suggest")

	sess := &mealtypes.Session{ID: "s1", Profile: mealtypes.NewProfileDraft()}
	res := h.Handle(context.Background(), sess, "feed me")

	assert.Empty(t, res.NextState)
	assert.Contains(t, res.Reply, "profile information")
	assert.Equal(t, 0, gen.CallCount())
}

func TestSuggestAvoidsPriorSuggestionAfterDissatisfaction(t *testing.T) {
	gen := testutils.NewMockGenerator("How about pad thai instead?")
	h := NewSuggestHandler(gen, userstore.NewMemoryStore(), nil, "suggest")

	wantsNew := true
	sess := &mealtypes.Session{
		ID:      "s1",
		Profile: completeDraft(),
		Meal:    mealtypes.MealState{LastSuggestion: "caprese salad with grilled chicken"},
		Satisfaction: mealtypes.Satisfaction{
			Level:    mealtypes.NotSatisfied,
			WantsNew: &wantsNew,
		},
	}
	res := h.Handle(context.Background(), sess, "something else please")

	prompt := gen.Calls[0][0].Content
	assert.Contains(t, prompt, "DIFFERENT meal")
	assert.Contains(t, prompt, "caprese salad")
	assert.Equal(t, "How about pad thai instead?", sess.Meal.LastSuggestion)
	assert.Equal(t, mealtypes.SatisfactionUnknown, sess.Satisfaction.Level)
	assert.Nil(t, sess.Satisfaction.WantsNew)
	assert.Equal(t, mealtypes.StateSatisfactionCheck, res.NextState)
}

func TestSuggestExcerptTruncatesOnRuneBoundary(t *testing.T) {
	gen := testutils.NewMockGenerator("Something new!")
	h := NewSuggestHandler(gen, userstore.NewMemoryStore(), nil, "suggest")

	prior := strings.Repeat("é", priorSuggestionExcerpt+20)
	wantsNew := true
	sess := &mealtypes.Session{
		ID:      "s1",
		Profile: completeDraft(),
		Meal:    mealtypes.MealState{LastSuggestion: prior},
		Satisfaction: mealtypes.Satisfaction{
			Level:    mealtypes.NotSatisfied,
			WantsNew: &wantsNew,
		},
	}
	h.Handle(context.Background(), sess, "something else")

	prompt := gen.Calls[0][0].Content
	assert.True(t, utf8.ValidString(prompt))
	assert.Contains(t, prompt, strings.Repeat("é", priorSuggestionExcerpt)+"...")
	assert.NotContains(t, prompt, strings.Repeat("é", priorSuggestionExcerpt+1))
}

func TestSuggestNoAvoidClauseWithoutDissatisfaction(t *testing.T) {
	gen := testutils.NewMockGenerator("Pasta!")
	h := NewSuggestHandler(gen, userstore.NewMemoryStore(), nil, "suggest")

	sess := &mealtypes.Session{
		ID:      "s1",
		Profile: completeDraft(),
		Meal:    mealtypes.MealState{LastSuggestion: "old suggestion"},
	}
	h.Handle(context.Background(), sess, "dinner?")

	assert.NotContains(t, gen.Calls[0][0].Content, "DIFFERENT meal")
}

type stubRecipes struct {
	result  string
	queries []string
}

func (s *stubRecipes) Search(_ context.Context, query, cuisine string) string {
	s.queries = append(s.queries, query+"|"+cuisine)
	return s.result
}

func TestSuggestIncludesRecipeSearchResults(t *testing.T) {
	recipes := &stubRecipes{result: "1. Margherita pizza (30 min)"}
	gen := testutils.NewMockGenerator("Pizza night!")
	h := NewSuggestHandler(gen, userstore.NewMemoryStore(), recipes, "suggest")

	sess := &mealtypes.Session{ID: "s1", Profile: completeDraft()}
	h.Handle(context.Background(), sess, "dinner?")

	require.Len(t, recipes.queries, 1)
	assert.Contains(t, recipes.queries[0], "italian")
	assert.Contains(t, gen.Calls[0][0].Content, "Margherita pizza")
}

func TestSuggestGeneratorFailureLeavesSessionUnchanged(t *testing.T) {
	gen := testutils.NewMockGenerator()
	gen.Err = errors.New("provider down")
	h := NewSuggestHandler(gen, userstore.NewMemoryStore(), nil, "suggest")

	sess := &mealtypes.Session{
		ID:      "s1",
		Profile: completeDraft(),
		Meal:    mealtypes.MealState{LastSuggestion: "old"},
	}
	res := h.Handle(context.Background(), sess, "dinner?")

	assert.Empty(t, res.NextState)
	assert.Contains(t, res.Reply, "error while suggesting meals")
	assert.Equal(t, "old", sess.Meal.LastSuggestion)
}
