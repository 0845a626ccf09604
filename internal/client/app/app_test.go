package app

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/BagWardrobe/internal/collection"
	"github.com/atinyakov/BagWardrobe/internal/models"
)

type memPersister struct {
	mu         sync.Mutex
	bags       []models.BagRecord
	credential string
}

func (m *memPersister) LoadBags(context.Context) ([]models.BagRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.BagRecord{}, m.bags...), nil
}

func (m *memPersister) SaveBags(_ context.Context, bags []models.BagRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bags = append([]models.BagRecord{}, bags...)
	return nil
}

func (m *memPersister) LoadCredential(context.Context) (string, error) { return m.credential, nil }

func (m *memPersister) SaveCredential(_ context.Context, c string) error {
	m.credential = c
	return nil
}

type fakeDecoder struct{}

func (fakeDecoder) DecodeFile(path string) (string, error) {
	if path == "broken.txt" {
		return "", collection.ErrNotImage
	}
	return "data:image/png;base64,AAAA", nil
}

type mockAnalyzer struct {
	AnalyzeFunc func(ctx context.Context, credential string, bags []models.BagRecord, prompt string) ([]byte, error)
}

func (m *mockAnalyzer) Analyze(ctx context.Context, credential string, bags []models.BagRecord, prompt string) ([]byte, error) {
	return m.AnalyzeFunc(ctx, credential, bags, prompt)
}

const okReply = `{"content":[{"type":"text","text":"Here: {\"overview\":\"ok\",\"gaps\":[\"tote\"],\"outdated\":[],\"recommendations\":[{\"type\":\"crossbody\",\"reason\":\"versatile\",\"priority\":\"high\"}]}"}]}`

func newApp(t *testing.T, credential string, analyzer Analyzer, paths ...string) *App {
	t.Helper()
	p := &memPersister{credential: credential}
	store, err := collection.Open(context.Background(), p, fakeDecoder{})
	require.NoError(t, err)
	a := New(store, analyzer, nil)
	if len(paths) > 0 {
		_, err := a.Upload(context.Background(), paths)
		require.NoError(t, err)
	}
	return a
}

func TestAnalyze_Success(t *testing.T) {
	var gotCredential, gotPrompt string
	var gotBags []models.BagRecord
	analyzer := &mockAnalyzer{AnalyzeFunc: func(_ context.Context, credential string, bags []models.BagRecord, prompt string) ([]byte, error) {
		gotCredential, gotBags, gotPrompt = credential, bags, prompt
		return []byte(okReply), nil
	}}
	a := newApp(t, "sk-1", analyzer, "a.jpg", "b.jpg")

	result, err := a.Analyze(context.Background(), "custom")
	require.NoError(t, err)

	assert.Equal(t, "ok", result.Overview)
	assert.Equal(t, []string{"tote"}, result.Gaps)
	require.Len(t, result.Recommendations, 1)
	assert.Equal(t, models.PriorityHigh, result.Recommendations[0].Priority)
	assert.Equal(t, result, a.Store.Analysis())
	assert.Equal(t, "sk-1", gotCredential)
	assert.Equal(t, "custom", gotPrompt)
	assert.Len(t, gotBags, 2)
	assert.False(t, a.InProgress())
}

func TestAnalyze_DegradedReplyIsNotAnError(t *testing.T) {
	analyzer := &mockAnalyzer{AnalyzeFunc: func(context.Context, string, []models.BagRecord, string) ([]byte, error) {
		return []byte(`{"content":[{"type":"text","text":"I cannot help with that"}]}`), nil
	}}
	a := newApp(t, "sk-1", analyzer, "a.jpg")

	result, err := a.Analyze(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "I cannot help with that", result.Overview)
	assert.Empty(t, result.Gaps)
	assert.NotNil(t, result.Recommendations)
}

func TestAnalyze_Preconditions(t *testing.T) {
	called := false
	analyzer := &mockAnalyzer{AnalyzeFunc: func(context.Context, string, []models.BagRecord, string) ([]byte, error) {
		called = true
		return []byte(okReply), nil
	}}

	t.Run("empty collection", func(t *testing.T) {
		a := newApp(t, "sk-1", analyzer)
		_, err := a.Analyze(context.Background(), "")
		assert.ErrorIs(t, err, ErrEmptyCollection)
	})

	t.Run("missing credential", func(t *testing.T) {
		a := newApp(t, "", analyzer, "a.jpg")
		_, err := a.Analyze(context.Background(), "")
		assert.ErrorIs(t, err, ErrMissingCredential)
		assert.Nil(t, a.Store.Analysis())
	})

	assert.False(t, called, "no request may be sent when preconditions fail")
}

func TestAnalyze_FailuresAreWrapped(t *testing.T) {
	boom := errors.New("API Error: 502")
	cases := []struct {
		name  string
		reply []byte
		err   error
	}{
		{"transport", nil, boom},
		{"undecodable reply", []byte("not json"), nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			analyzer := &mockAnalyzer{AnalyzeFunc: func(context.Context, string, []models.BagRecord, string) ([]byte, error) {
				return tc.reply, tc.err
			}}
			a := newApp(t, "sk-1", analyzer, "a.jpg")

			_, err := a.Analyze(context.Background(), "")
			require.Error(t, err)
			assert.Contains(t, err.Error(), "analysis failed: ")
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
			}
			assert.False(t, a.InProgress())
			assert.Nil(t, a.Store.Analysis())
		})
	}
}

func TestAnalyze_RejectsOverlappingCalls(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	analyzer := &mockAnalyzer{AnalyzeFunc: func(context.Context, string, []models.BagRecord, string) ([]byte, error) {
		close(entered)
		<-release
		return []byte(okReply), nil
	}}
	a := newApp(t, "sk-1", analyzer, "a.jpg")

	done := make(chan error, 1)
	go func() {
		_, err := a.Analyze(context.Background(), "")
		done <- err
	}()

	<-entered
	assert.True(t, a.InProgress())
	_, err := a.Analyze(context.Background(), "")
	assert.ErrorIs(t, err, ErrAnalysisInProgress)

	close(release)
	require.NoError(t, <-done)
	assert.False(t, a.InProgress())
}

func TestUpload_RejectsNonImages(t *testing.T) {
	a := newApp(t, "", nil)

	_, err := a.Upload(context.Background(), []string{"broken.txt"})
	assert.ErrorIs(t, err, collection.ErrNotImage)

	added, err := a.Upload(context.Background(), []string{"x.jpg"})
	require.NoError(t, err)
	require.Len(t, added, 1)
	assert.Equal(t, "x.jpg", added[0].Name)
	assert.Len(t, a.Store.Records(), 1)
}
