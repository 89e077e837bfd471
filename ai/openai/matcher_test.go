package openai

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/poiesic/llmerge/ai"
	"github.com/poiesic/llmerge/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

// fakeModel replays canned choices and records what it was sent.
type fakeModel struct {
	mu        sync.Mutex
	responses []*llms.ContentChoice
	err       error
	calls     int
	messages  [][]llms.MessageContent
	options   []llms.CallOptions
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var opts llms.CallOptions
	for _, opt := range options {
		opt(&opts)
	}
	f.messages = append(f.messages, messages)
	f.options = append(f.options, opts)
	f.calls++

	if f.err != nil {
		return nil, f.err
	}
	if len(f.responses) == 0 {
		return &llms.ContentResponse{}, nil
	}
	idx := min(f.calls-1, len(f.responses)-1)
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{f.responses[idx]}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func toolChoice(args string) *llms.ContentChoice {
	return &llms.ContentChoice{
		ToolCalls: []llms.ToolCall{{
			ID:   "call_1",
			Type: "function",
			FunctionCall: &llms.FunctionCall{
				Name:      matchToolName,
				Arguments: args,
			},
		}},
	}
}

func testConfig(mode ai.MatchMode) *ai.Config {
	return ai.NewConfig(ai.WithMatchMode(mode), ai.WithMaxParseAttempts(3))
}

func textOf(msg llms.MessageContent) string {
	var text string
	for _, part := range msg.Parts {
		if tc, ok := part.(llms.TextContent); ok {
			text += tc.Text
		}
	}
	return text
}

func TestMatcher_ToolsMode(t *testing.T) {
	model := &fakeModel{responses: []*llms.ContentChoice{
		toolChoice(`{"items":[{"index_1":0,"index_2":2,"similarity":0.93},{"index_1":1,"index_2":null}]}`),
	}}
	m, err := newMatcherWithModel(model, testConfig(ai.MatchModeTools))
	require.NoError(t, err)

	matches, err := m.Match(context.Background(), "0: Vollmilch\n1: Zwiebel", "0: Butter\n1: Cheese\n2: Milk, whole")
	require.NoError(t, err)
	require.Len(t, matches, 2)

	assert.Equal(t, 0, matches[0].LeftIndex)
	require.NotNil(t, matches[0].RightIndex)
	assert.Equal(t, 2, *matches[0].RightIndex)
	assert.Equal(t, 0.93, matches[0].Extra["similarity"])
	assert.Nil(t, matches[1].RightIndex)

	require.Len(t, model.options, 1)
	opts := model.options[0]
	require.Len(t, opts.Tools, 1)
	assert.Equal(t, matchToolName, opts.Tools[0].Function.Name)
	assert.Equal(t, llms.ToolChoice{Type: "function", Function: &llms.FunctionReference{Name: matchToolName}}, opts.ToolChoice)
	assert.False(t, opts.JSONMode)

	msgs := model.messages[0]
	require.Len(t, msgs, 2)
	assert.Equal(t, llms.ChatMessageTypeSystem, msgs[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, msgs[1].Role)
	assert.Contains(t, textOf(msgs[1]), "0: Vollmilch\n1: Zwiebel")
	assert.Contains(t, textOf(msgs[1]), "2: Milk, whole")
}

func TestMatcher_ToolsModeFallsBackToContent(t *testing.T) {
	model := &fakeModel{responses: []*llms.ContentChoice{
		{Content: "```json\n{\"items\":[{\"index_1\":3,\"index_2\":4}]}\n```"},
	}}
	m, err := newMatcherWithModel(model, testConfig(ai.MatchModeTools))
	require.NoError(t, err)

	matches, err := m.Match(context.Background(), "3: a", "4: b")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, 4, *matches[0].RightIndex)
}

func TestMatcher_JSONMode(t *testing.T) {
	model := &fakeModel{responses: []*llms.ContentChoice{
		{Content: `{"items":[{"index_1":"5","index_2":"1","similarity":"0.5"},]}`},
	}}
	m, err := newMatcherWithModel(model, testConfig(ai.MatchModeJSON))
	require.NoError(t, err)

	matches, err := m.Match(context.Background(), "5: a", "1: b")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, 5, matches[0].LeftIndex)
	assert.Equal(t, 1, *matches[0].RightIndex)
	assert.Equal(t, 0.5, matches[0].Extra["similarity"])

	opts := model.options[0]
	assert.True(t, opts.JSONMode)
	assert.Empty(t, opts.Tools)
	assert.Contains(t, textOf(model.messages[0][1]), `{"items": [...]}`)
}

func TestMatcher_RetriesUnparsableResponses(t *testing.T) {
	model := &fakeModel{responses: []*llms.ContentChoice{
		{Content: "I think the first row matches the second"},
		toolChoice(`{"items":[{"index_1":0,"index_2":0}]}`),
	}}
	m, err := newMatcherWithModel(model, testConfig(ai.MatchModeTools))
	require.NoError(t, err)

	matches, err := m.Match(context.Background(), "0: a", "0: b")
	require.NoError(t, err)
	assert.Len(t, matches, 1)
	assert.Equal(t, 2, model.calls)
}

func TestMatcher_GivesUpAfterMaxParseAttempts(t *testing.T) {
	model := &fakeModel{responses: []*llms.ContentChoice{{Content: "not json"}}}
	m, err := newMatcherWithModel(model, testConfig(ai.MatchModeJSON))
	require.NoError(t, err)

	_, err = m.Match(context.Background(), "0: a", "0: b")
	assert.ErrorIs(t, err, ai.ErrUnparsableResponse)
	assert.Equal(t, 3, model.calls)
}

func TestMatcher_MissingItemsKey(t *testing.T) {
	model := &fakeModel{responses: []*llms.ContentChoice{{Content: `{"matches":[]}`}}}
	m, err := newMatcherWithModel(model, ai.NewConfig(ai.WithMatchMode(ai.MatchModeJSON), ai.WithMaxParseAttempts(1)))
	require.NoError(t, err)

	_, err = m.Match(context.Background(), "0: a", "0: b")
	assert.ErrorIs(t, err, ai.ErrUnparsableResponse)
	assert.Equal(t, 1, model.calls)
}

func TestMatcher_TransportErrorNotRetried(t *testing.T) {
	boom := errors.New("connection refused")
	model := &fakeModel{err: boom}
	m, err := newMatcherWithModel(model, testConfig(ai.MatchModeTools))
	require.NoError(t, err)

	_, err = m.Match(context.Background(), "0: a", "0: b")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, model.calls)
}

func TestMatcher_NoChoices(t *testing.T) {
	m, err := newMatcherWithModel(&fakeModel{}, testConfig(ai.MatchModeTools))
	require.NoError(t, err)

	_, err = m.Match(context.Background(), "0: a", "0: b")
	assert.ErrorIs(t, err, ai.ErrEmptyResponse)
}

func TestMatcher_MalformedRecord(t *testing.T) {
	model := &fakeModel{responses: []*llms.ContentChoice{
		toolChoice(`{"items":[{"index_2":1}]}`),
	}}
	m, err := newMatcherWithModel(model, testConfig(ai.MatchModeTools))
	require.NoError(t, err)

	_, err = m.Match(context.Background(), "0: a", "1: b")
	assert.ErrorIs(t, err, core.ErrMalformedMatch)
}

func TestMatcher_CustomSystemPrompt(t *testing.T) {
	model := &fakeModel{responses: []*llms.ContentChoice{toolChoice(`{"items":[]}`)}}
	cfg := testConfig(ai.MatchModeTools)
	cfg.SystemPrompt = "Match {{.left_rows}} against the catalogue."
	m, err := newMatcherWithModel(model, cfg)
	require.NoError(t, err)

	matches, err := m.Match(context.Background(), "0: Apfel", "0: Apple")
	require.NoError(t, err)
	assert.Empty(t, matches)
	assert.Equal(t, "Match 0: Apfel against the catalogue.", textOf(model.messages[0][0]))
}

func TestMatcher_CustomSchema(t *testing.T) {
	model := &fakeModel{responses: []*llms.ContentChoice{
		toolChoice(`{"items":[{"rewe":7,"fdc":1,"reason":"same"}]}`),
	}}
	cfg := testConfig(ai.MatchModeTools)
	cfg.Schema = core.MatchSchema{
		LeftIndexField:  "rewe",
		RightIndexField: "fdc",
		Extra:           []core.SchemaField{{Name: "reason", Type: "string"}},
	}
	m, err := newMatcherWithModel(model, cfg)
	require.NoError(t, err)

	matches, err := m.Match(context.Background(), "7: a", "1: b")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, 7, matches[0].LeftIndex)
	assert.Equal(t, "same", matches[0].Extra["reason"])

	params := model.options[0].Tools[0].Function.Parameters.(map[string]any)
	items := params["properties"].(map[string]any)["items"].(map[string]any)["items"].(map[string]any)
	assert.Equal(t, []string{"rewe", "fdc"}, items["required"])
	assert.Contains(t, items["properties"], "reason")
}

func TestDecodeItems(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    int
		wantErr bool
	}{
		{name: "object", raw: `{"items":[{"a":1},{"a":2}]}`, want: 2},
		{name: "bare array", raw: `[{"a":1}]`, want: 1},
		{name: "fenced", raw: "```json\n{\"items\":[]}\n```", want: 0},
		{name: "trailing comma", raw: `{"items":[{"a":1},]}`, want: 1},
		{name: "missing items", raw: `{"rows":[]}`, wantErr: true},
		{name: "item not object", raw: `{"items":[1]}`, wantErr: true},
		{name: "scalar", raw: `42`, wantErr: true},
		{name: "garbage", raw: `nope`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := decodeItems(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, items, tt.want)
		})
	}
}
