package orchestrator

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mealmind/internal/handlers"
	"mealmind/internal/intent"
	"mealmind/internal/session"
	"mealmind/internal/testutils"
	"mealmind/internal/userstore"
	"mealmind/pkg/mealtypes"
)

func extractionReply(fields, response string) string {
	return fmt.Sprintf("```json\n{\"extracted_data\": {%s}, \"conversation_response\": %q}\n```", fields, response)
}

// testRouter builds a full router over mocks. Separate generators per concern
// keep the scripted replies independent of call ordering across handlers.
type routerFixture struct {
	router    *Router
	sessions  *session.Store
	users     *userstore.MemoryStore
	intentGen *testutils.MockGenerator
	chatGen   *testutils.MockGenerator
	collect   *testutils.MockGenerator
	suggest   *testutils.MockGenerator
	satisfy   *testutils.MockGenerator
}

func newFixture(t *testing.T) *routerFixture {
	t.Helper()

	f := &routerFixture{
		sessions:  session.NewStore(),
		users:     userstore.NewMemoryStore(),
		intentGen: testutils.NewMockGenerator(),
		chatGen:   testutils.NewMockGenerator("chat reply"),
		collect:   testutils.NewMockGenerator(),
		suggest:   testutils.NewMockGenerator("How about spaghetti carbonara?"),
		satisfy:   testutils.NewMockGenerator(),
	}
	t.Cleanup(f.sessions.Close)

	table := map[mealtypes.ConversationState]handlers.Handler{
		mealtypes.StateNormalChat:        handlers.NewChatHandler(f.chatGen, "persona"),
		mealtypes.StateProfileCollection: handlers.NewCollectHandler(f.collect, f.users, "collect"),
		mealtypes.StateMealSuggestion:    handlers.NewSuggestHandler(f.suggest, f.users, nil, "suggest"),
		mealtypes.StateSatisfactionCheck: handlers.NewSatisfactionHandler(f.satisfy, "sentiment", "wants-new"),
	}
	f.router = NewRouter(f.sessions, intent.NewClassifier(f.intentGen, "intent"), table)
	return f
}

func (f *routerFixture) state(t *testing.T, id string) mealtypes.ConversationState {
	t.Helper()
	summary, err := f.router.GetSessionSummary(id)
	require.NoError(t, err)
	return summary.State
}

func TestMealRequestRoutesToProfileCollection(t *testing.T) {
	f := newFixture(t)
	f.intentGen.Replies = []string{"meal_request"}
	f.collect.Replies = []string{extractionReply(``, "I'd love to help! What's your name?")}

	id, reply := f.router.ProcessTurn(context.Background(), "", "I want a meal suggestion")

	assert.NotEmpty(t, id)
	assert.Contains(t, reply, "What's your name?")
	assert.Equal(t, mealtypes.StateProfileCollection, f.state(t, id))
}

func TestNormalChatIntentRoutesToChat(t *testing.T) {
	f := newFixture(t)
	f.intentGen.Replies = []string{"normal_chat"}

	id, reply := f.router.ProcessTurn(context.Background(), "", "hello there")

	assert.Equal(t, "chat reply", reply)
	assert.Equal(t, mealtypes.StateNormalChat, f.state(t, id))
}

func TestCompleteDraftProducesSuggestion(t *testing.T) {
	f := newFixture(t)

	id := f.sessions.Create().ID
	height, weight := 165.0, 60.0
	require.NoError(t, f.sessions.WithSession(id, func(sess *mealtypes.Session) error {
		sess.State = mealtypes.StateMealSuggestion
		sess.Profile = mealtypes.ProfileDraft{
			Name: "Ana", Age: 30, Height: &height, Weight: &weight,
			PrimaryCuisine: "Italian", Conditions: []mealtypes.MedicalCondition{},
		}
		return nil
	}))

	_, reply := f.router.ProcessTurn(context.Background(), id, "dinner please")

	assert.Equal(t, "How about spaghetti carbonara?", reply)
	assert.Equal(t, mealtypes.StateSatisfactionCheck, f.state(t, id))

	summary, err := f.router.GetSessionSummary(id)
	require.NoError(t, err)
	assert.Len(t, summary.History, 2)
	assert.Equal(t, "user", summary.History[0].Role)
	assert.Equal(t, "assistant", summary.History[1].Role)
}

func TestDissatisfactionLoopsBackAndAvoidsRepeat(t *testing.T) {
	f := newFixture(t)
	f.satisfy.Replies = []string{"NOT_SATISFIED", "YES"}
	f.suggest.Replies = []string{"How about spaghetti carbonara?", "How about a thai green curry?"}

	id := f.sessions.Create().ID
	height, weight := 165.0, 60.0
	require.NoError(t, f.sessions.WithSession(id, func(sess *mealtypes.Session) error {
		sess.State = mealtypes.StateMealSuggestion
		sess.Profile = mealtypes.ProfileDraft{
			Name: "Ana", Age: 30, Height: &height, Weight: &weight,
			PrimaryCuisine: "Italian", Conditions: []mealtypes.MedicalCondition{},
		}
		return nil
	}))

	f.router.ProcessTurn(context.Background(), id, "dinner please")
	_, reply := f.router.ProcessTurn(context.Background(), id, "no I don't like it, try something else")

	assert.Contains(t, reply, "something different")
	assert.Equal(t, mealtypes.StateMealSuggestion, f.state(t, id))

	_, reply = f.router.ProcessTurn(context.Background(), id, "ok, what else?")
	assert.Equal(t, "How about a thai green curry?", reply)

	// The retry instruction must reference the first suggestion.
	prompt := f.suggest.Calls[1][0].Content
	assert.Contains(t, prompt, "DIFFERENT meal")
	assert.Contains(t, prompt, "spaghetti carbonara")
}

func TestSatisfiedReturnsToNormalChat(t *testing.T) {
	f := newFixture(t)
	f.satisfy.Replies = []string{"SATISFIED"}

	id := f.sessions.Create().ID
	require.NoError(t, f.sessions.SetState(id, mealtypes.StateSatisfactionCheck))

	_, reply := f.router.ProcessTurn(context.Background(), id, "looks great, thanks!")

	assert.Contains(t, reply, "Enjoy your meal")
	assert.Equal(t, mealtypes.StateNormalChat, f.state(t, id))
}

func TestReturningUserSkipsCollection(t *testing.T) {
	f := newFixture(t)
	height, weight := 160.0, 55.0
	_, err := f.users.Create(context.Background(), mealtypes.ProfileDraft{
		Name: "Ana", Age: 28, Height: &height, Weight: &weight,
		PrimaryCuisine: "italian", Conditions: []mealtypes.MedicalCondition{},
	})
	require.NoError(t, err)

	f.intentGen.Replies = []string{"meal_request"}
	f.collect.Replies = []string{extractionReply(`"name": "ana"`, "Hi!")}

	id, reply := f.router.ProcessTurn(context.Background(), "", "I'm ana and I'd like a meal")

	assert.Contains(t, reply, "Welcome back, Ana")
	assert.Equal(t, mealtypes.StateMealSuggestion, f.state(t, id))

	summary, err := f.router.GetSessionSummary(id)
	require.NoError(t, err)
	assert.NotEmpty(t, summary.UserID)
	assert.Equal(t, 28, summary.Profile.Age)
}

func TestKnownUserNeverReentersCollection(t *testing.T) {
	f := newFixture(t)
	f.intentGen.Replies = []string{"meal_request"}

	id := f.sessions.Create().ID
	height, weight := 165.0, 60.0
	require.NoError(t, f.sessions.WithSession(id, func(sess *mealtypes.Session) error {
		sess.UserID = "user-0001"
		sess.Profile = mealtypes.ProfileDraft{
			Name: "Ana", Age: 30, Height: &height, Weight: &weight,
			PrimaryCuisine: "Italian", Conditions: []mealtypes.MedicalCondition{},
		}
		return nil
	}))
	_, err := f.users.Create(context.Background(), mealtypes.ProfileDraft{
		Name: "Ana", Age: 30, Height: &height, Weight: &weight,
		PrimaryCuisine: "Italian", Conditions: []mealtypes.MedicalCondition{},
	})
	require.NoError(t, err)

	f.router.ProcessTurn(context.Background(), id, "I want a meal suggestion")

	assert.NotEqual(t, mealtypes.StateProfileCollection, f.state(t, id))
	assert.Equal(t, 0, f.collect.CallCount())
}

func TestUnknownSessionGetsFreshOne(t *testing.T) {
	f := newFixture(t)
	f.intentGen.Replies = []string{"normal_chat"}

	id, reply := f.router.ProcessTurn(context.Background(), "no-such-session", "hi")

	assert.NotEqual(t, "no-such-session", id)
	assert.Equal(t, "chat reply", reply)
}

func TestClearSession(t *testing.T) {
	f := newFixture(t)
	id := f.sessions.Create().ID

	assert.True(t, f.router.ClearSession(id))
	assert.False(t, f.router.ClearSession(id))

	_, err := f.router.GetSessionSummary(id)
	assert.ErrorIs(t, err, mealtypes.ErrSessionNotFound)
}
