package chat

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/campus-assistant/internal/domain"
	"github.com/kailas-cloud/campus-assistant/internal/metrics"
	"github.com/kailas-cloud/campus-assistant/internal/usecase/conversation"
	"github.com/kailas-cloud/campus-assistant/internal/usecase/retrieval"
)

func TestMain(m *testing.M) {
	metrics.RegisterPipelineMetrics()
	os.Exit(m.Run())
}

// --- Mocks ---

type mockAnswerer struct {
	queries []retrieval.Query
	resp    domain.Response
}

func (m *mockAnswerer) Answer(_ context.Context, q retrieval.Query) domain.Response {
	m.queries = append(m.queries, q)
	return m.resp
}

func newService(answers *mockAnswerer) *Service {
	resolver := conversation.New(conversation.Config{
		Anchors:         []string{"canteen", "hostel", "library"},
		FactKeywords:    []string{"phone", "fee"},
		DefaultDepth:    5,
		AnchorDepth:     15,
		FactDepth:       20,
		AnchorMaxTokens: 5,
		MergeMaxTokens:  2,
	})
	return New(resolver, answers, 50)
}

// --- Tests ---

func TestAsk_EmptyQuestion(t *testing.T) {
	answers := &mockAnswerer{}
	_, err := newService(answers).Ask(context.Background(), domain.Request{Question: "   "})

	require.ErrorIs(t, err, domain.ErrInputEmpty)
	assert.Empty(t, answers.queries)
}

func TestAsk_TooLong(t *testing.T) {
	answers := &mockAnswerer{}
	_, err := newService(answers).Ask(context.Background(), domain.Request{Question: strings.Repeat("é", 51)})

	require.ErrorIs(t, err, domain.ErrInputTooLong)
	assert.True(t, domain.IsInputError(err))
	assert.Empty(t, answers.queries)
}

func TestAsk_LengthCountsRunes(t *testing.T) {
	answers := &mockAnswerer{}
	_, err := newService(answers).Ask(context.Background(), domain.Request{Question: strings.Repeat("é", 50)})

	require.NoError(t, err)
	assert.Len(t, answers.queries, 1)
}

func TestAsk_NavigationShortCircuits(t *testing.T) {
	answers := &mockAnswerer{}
	resp, err := newService(answers).Ask(context.Background(), domain.Request{
		Question:     "take me to the science lab",
		PanoNames:    []string{"Science Lab", "Main Gate"},
		ProjectNames: []string{"Solar Car"},
	})

	require.NoError(t, err)
	assert.Equal(t, domain.IntentPano, resp.Intent)
	assert.Equal(t, "Science Lab", resp.Target)
	assert.Equal(t, "pano", resp.Action)
	assert.Equal(t, "Opening Science Lab...", resp.Answer)
	assert.Equal(t, 1.0, resp.Confidence)
	assert.Equal(t, domain.BranchNavigate, resp.Branch)
	assert.Empty(t, answers.queries, "navigation never reaches retrieval")
}

func TestAsk_ProjectNavigation(t *testing.T) {
	resp, err := newService(&mockAnswerer{}).Ask(context.Background(), domain.Request{
		Question:     "open solar car",
		ProjectNames: []string{"Solar Car"},
	})

	require.NoError(t, err)
	assert.Equal(t, domain.IntentProject, resp.Intent)
	assert.Equal(t, "project", resp.Action)
}

func TestAsk_UnknownTargetFallsThrough(t *testing.T) {
	answers := &mockAnswerer{resp: domain.Response{Answer: "ok", Branch: domain.BranchDirect}}
	resp, err := newService(answers).Ask(context.Background(), domain.Request{
		Question:  "show me the fee structure",
		PanoNames: []string{"Main Gate"},
	})

	require.NoError(t, err)
	assert.Equal(t, domain.IntentSchool, resp.Intent)
	assert.Empty(t, resp.Target)
	require.Len(t, answers.queries, 1)
	assert.Equal(t, 20, answers.queries[0].FetchDepth)
}

func TestAsk_AnchorCarriedOver(t *testing.T) {
	answers := &mockAnswerer{resp: domain.Response{Answer: "Veg meals.", Confidence: 0.9, Branch: domain.BranchDirect}}
	resp, err := newService(answers).Ask(context.Background(), domain.Request{
		Question: "what food is served",
		History:  []domain.Turn{{User: "is there a canteen"}},
	})

	require.NoError(t, err)
	require.Len(t, answers.queries, 1)
	assert.Equal(t, retrieval.Query{Text: "canteen what food is served", Anchor: "canteen", FetchDepth: 15}, answers.queries[0])
	assert.Equal(t, domain.IntentSchool, resp.Intent)
	assert.Equal(t, "Veg meals.", resp.Answer)
}

func TestAsk_ShortFollowUpMerged(t *testing.T) {
	answers := &mockAnswerer{}
	_, err := newService(answers).Ask(context.Background(), domain.Request{
		Question: "and saturday",
		History:  []domain.Turn{{User: "office hours"}},
	})

	require.NoError(t, err)
	require.Len(t, answers.queries, 1)
	assert.Equal(t, "office hours and saturday", answers.queries[0].Text)
	assert.Empty(t, answers.queries[0].Anchor)
	assert.Equal(t, 5, answers.queries[0].FetchDepth)
}

func TestAsk_TrimsQuestion(t *testing.T) {
	answers := &mockAnswerer{}
	_, err := newService(answers).Ask(context.Background(), domain.Request{Question: "  library timings \n"})

	require.NoError(t, err)
	assert.Equal(t, "library timings", answers.queries[0].Text)
}
