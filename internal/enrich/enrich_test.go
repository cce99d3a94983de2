package enrich

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type stubModel struct {
	answers []string
	errs    []error
	prompts []string
}

func (m *stubModel) Generate(_ context.Context, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	i := len(m.prompts) - 1
	if i < len(m.errs) && m.errs[i] != nil {
		return "", m.errs[i]
	}
	if i < len(m.answers) {
		return m.answers[i], nil
	}
	return `{"tldr": "fallback", "challenge": "practice"}`, nil
}

func fastOptions() Options {
	return Options{MinInterval: -1, Backoff: time.Millisecond}
}

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := OpenCache(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestHash(t *testing.T) {
	// md5("a|b|c|d")
	assert.Equal(t, "1505af083312c1e59b5821e07f573203", Hash("a", "b", "c", "d"))
	assert.NotEqual(t, Hash("a", "b", "c", ""), Hash("a", "b", "", "c"))
}

func TestCache_GetPutStats(t *testing.T) {
	ctx := context.Background()
	c := openTestCache(t)
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	c.now = func() time.Time { return fixed }

	st, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, CacheStats{}, st)

	_, ok, err := c.Get(ctx, "h1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put(ctx, "h1", Annotation{TLDR: "one", Challenge: ChallengePractice}))
	require.NoError(t, c.Put(ctx, "h1", Annotation{TLDR: "two", Challenge: ChallengeExpert}))

	a, ok, err := c.Get(ctx, "h1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, Annotation{TLDR: "two", Challenge: ChallengeExpert}, a)

	st, err = c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Entries)
	assert.True(t, fixed.Equal(st.Latest))
}

func TestCache_RejectsUnknownChallenge(t *testing.T) {
	c := openTestCache(t)
	err := c.Put(context.Background(), "h", Annotation{TLDR: "x", Challenge: "hard"})
	assert.Error(t, err)
}

func TestCache_Reopen(t *testing.T) {
	dir := t.TempDir()
	c, err := OpenCache(dir)
	require.NoError(t, err)
	require.NoError(t, c.Put(context.Background(), "h", Annotation{TLDR: "kept", Challenge: ChallengePractice}))
	require.NoError(t, c.Close())

	c, err = OpenCache(dir)
	require.NoError(t, err)
	defer c.Close()
	a, ok, err := c.Get(context.Background(), "h")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "kept", a.TLDR)
}

func TestEnrich_CachesAnswer(t *testing.T) {
	m := &stubModel{answers: []string{`{"tldr": "Hire well.", "challenge": "expert"}`}}
	e := New(m, openTestCache(t), fastOptions())

	for range 2 {
		tldr, challenge, err := e.Enrich(context.Background(), "People", "", "Hiring", "Find people")
		require.NoError(t, err)
		assert.Equal(t, "Hire well", tldr)
		assert.Equal(t, ChallengeExpert, challenge)
	}
	assert.Len(t, m.prompts, 1)
	assert.Contains(t, m.prompts[0], "- Subcategory: N/A")
	assert.Contains(t, m.prompts[0], "- Topic: Hiring")
}

func TestEnrich_InvalidChallengeDefaultsToPractice(t *testing.T) {
	m := &stubModel{answers: []string{`{"tldr": "x", "challenge": "hard"}`}}
	_, challenge, err := New(m, nil, fastOptions()).Enrich(context.Background(), "c", "s", "t", "d")
	require.NoError(t, err)
	assert.Equal(t, ChallengePractice, challenge)
}

func TestEnrich_MalformedAnswer(t *testing.T) {
	for _, answer := range []string{`not json`, `{"tldr": ""}`} {
		m := &stubModel{answers: []string{answer}}
		_, _, err := New(m, nil, fastOptions()).Enrich(context.Background(), "c", "s", "t", "d")
		assert.Error(t, err, answer)
	}
}

func TestEnrich_RetriesTransientErrors(t *testing.T) {
	rateLimited := genai.APIError{Code: 429, Message: "RESOURCE_EXHAUSTED"}
	m := &stubModel{errs: []error{rateLimited, rateLimited}}
	tldr, _, err := New(m, nil, fastOptions()).Enrich(context.Background(), "c", "s", "t", "d")
	require.NoError(t, err)
	assert.Equal(t, "fallback", tldr)
	assert.Len(t, m.prompts, 3)
}

func TestEnrich_GivesUp(t *testing.T) {
	server := genai.APIError{Code: 503}
	m := &stubModel{errs: []error{server, server, server}}
	_, _, err := New(m, nil, fastOptions()).Enrich(context.Background(), "c", "s", "t", "d")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "giving up after 3 attempts")
	assert.Len(t, m.prompts, 3)
}

func TestEnrich_DoesNotRetryClientErrors(t *testing.T) {
	m := &stubModel{errs: []error{errors.New("invalid argument")}}
	_, _, err := New(m, nil, fastOptions()).Enrich(context.Background(), "c", "s", "t", "d")
	require.Error(t, err)
	assert.Len(t, m.prompts, 1)
}

func TestEnrich_Throttle(t *testing.T) {
	m := &stubModel{}
	e := New(m, nil, Options{MinInterval: 20 * time.Millisecond})

	start := time.Now()
	for _, topic := range []string{"a", "b", "c"} {
		_, _, err := e.Enrich(context.Background(), "c", "s", topic, "d")
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestBuildPrompt_TruncatesDescription(t *testing.T) {
	long := strings.Repeat("é", 600)
	p := BuildPrompt("", "", "Topic", long)
	assert.Contains(t, p, "- Category: N/A")
	assert.Contains(t, p, strings.Repeat("é", 500)+"\n")
	assert.NotContains(t, p, strings.Repeat("é", 501))

	assert.Contains(t, BuildPrompt("c", "s", "t", ""), "- Description: N/A")
}
