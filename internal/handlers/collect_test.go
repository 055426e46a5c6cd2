package handlers

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mealmind/internal/testutils"
	"mealmind/internal/userstore"
	"mealmind/pkg/mealtypes"
)

func extractionReply(fields, response string) string {
	return fmt.Sprintf("```json\n{\"extracted_data\": {%s}, \"conversation_response\": %q}\n```", fields, response)
}

func collectSession() *mealtypes.Session {
	return &mealtypes.Session{
		ID:      "s1",
		State:   mealtypes.StateProfileCollection,
		Profile: mealtypes.NewProfileDraft(),
	}
}

func TestCollectMergesExtractedFields(t *testing.T) {
	gen := testutils.NewMockGenerator(extractionReply(
		`"name": "Alice", "age": 30`, "Nice to meet you, Alice! How tall are you?"))
	h := NewCollectHandler(gen, userstore.NewMemoryStore(), "collect")

	sess := collectSession()
	res := h.Handle(context.Background(), sess, "Hi, I'm Alice and I'm 30")

	assert.Equal(t, "Nice to meet you, Alice! How tall are you?", res.Reply)
	assert.Empty(t, res.NextState)
	assert.Equal(t, "Alice", sess.Profile.Name)
	assert.Equal(t, 30, sess.Profile.Age)
	assert.Empty(t, sess.UserID)
}

func TestCollectRecognizesReturningUser(t *testing.T) {
	users := userstore.NewMemoryStore()
	height, weight := 170.0, 65.0
	id, err := users.Create(context.Background(), mealtypes.ProfileDraft{
		Name: "Bob", Age: 40, Height: &height, Weight: &weight,
		PrimaryCuisine: "chinese", Conditions: []mealtypes.MedicalCondition{},
	})
	require.NoError(t, err)

	gen := testutils.NewMockGenerator(extractionReply(`"name": "bob"`, "Hi Bob!"))
	h := NewCollectHandler(gen, users, "collect")

	sess := collectSession()
	res := h.Handle(context.Background(), sess, "I'm bob")

	assert.Equal(t, mealtypes.StateMealSuggestion, res.NextState)
	assert.Equal(t, id, sess.UserID)
	assert.Equal(t, "Bob", sess.Profile.Name)
	assert.Equal(t, "chinese", sess.Profile.PrimaryCuisine)
	assert.Contains(t, res.Reply, "Welcome back, Bob")
}

func TestCollectCompletesProfileAndPersists(t *testing.T) {
	users := userstore.NewMemoryStore()
	gen := testutils.NewMockGenerator(extractionReply(
		`"name": "Cara", "age": 25, "height": 165, "weight": 60, "primary_cuisine": "indian"`,
		"Great, I have everything I need!"))
	h := NewCollectHandler(gen, users, "collect")

	sess := collectSession()
	res := h.Handle(context.Background(), sess, "Cara, 25, 165cm, 60kg, love indian food")

	assert.Equal(t, mealtypes.StateMealSuggestion, res.NextState)
	require.NotEmpty(t, sess.UserID)

	stored, err := users.FindByID(context.Background(), sess.UserID)
	require.NoError(t, err)
	assert.Equal(t, "Cara", stored.Name)
}

func TestCollectIncompleteProfileStays(t *testing.T) {
	gen := testutils.NewMockGenerator(extractionReply(`"age": 25`, "And your name?"))
	h := NewCollectHandler(gen, userstore.NewMemoryStore(), "collect")

	sess := collectSession()
	res := h.Handle(context.Background(), sess, "I'm 25")

	assert.Empty(t, res.NextState)
	assert.Empty(t, sess.UserID)
}

func TestCollectMalformedBlockLeavesDraftUntouched(t *testing.T) {
	gen := testutils.NewMockGenerator("Tell me more about yourself!")
	h := NewCollectHandler(gen, userstore.NewMemoryStore(), "collect")

	sess := collectSession()
	res := h.Handle(context.Background(), sess, "I'm Dave, 35 years old")

	assert.Empty(t, res.NextState)
	assert.Equal(t, mealtypes.NewProfileDraft(), sess.Profile)
	assert.Equal(t, "Tell me more about yourself!", res.Reply)
}

func TestCollectGeneratorFailure(t *testing.T) {
	gen := testutils.NewMockGenerator()
	gen.Err = errors.New("provider down")
	h := NewCollectHandler(gen, userstore.NewMemoryStore(), "collect")

	sess := collectSession()
	res := h.Handle(context.Background(), sess, "I'm Eve")

	assert.Empty(t, res.NextState)
	assert.Contains(t, res.Reply, "trouble")
	assert.Equal(t, mealtypes.NewProfileDraft(), sess.Profile)
}

func TestCollectNameIsFirstWriteWins(t *testing.T) {
	gen := testutils.NewMockGenerator(
		extractionReply(`"name": "Frank"`, "Hi Frank!"),
		extractionReply(`"name": "Franklin"`, "Got it!"),
	)
	h := NewCollectHandler(gen, userstore.NewMemoryStore(), "collect")

	sess := collectSession()
	h.Handle(context.Background(), sess, "I'm Frank")
	h.Handle(context.Background(), sess, "actually call me Franklin")

	assert.Equal(t, "Frank", sess.Profile.Name)
}
