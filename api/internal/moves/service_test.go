package moves

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"chess-moves/api/internal/moves/types"
)

const fencedReply = "```json\n{\"whiteBestMove\":{\"from\":\"e2\",\"to\":\"e4\",\"comments\":\"x\"},\"blackBestMove\":null}\n```"

var pngBytes = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 1, 2, 3, 4}

type fakeModel struct {
	mu      sync.Mutex
	calls   int
	replies []string
	errs    []error
	images  []Image
	prompts []string
}

func (m *fakeModel) Name() string     { return "fake" }
func (m *fakeModel) GetModel() string { return "fake-1" }

func (m *fakeModel) Generate(ctx context.Context, prompt string, img Image) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.calls
	m.calls++
	m.images = append(m.images, img)
	m.prompts = append(m.prompts, prompt)
	if i < len(m.errs) && m.errs[i] != nil {
		return "", m.errs[i]
	}
	if i < len(m.replies) {
		return m.replies[i], nil
	}
	return m.replies[len(m.replies)-1], nil
}

type mapCache struct {
	m    map[string]types.MoveResult
	sets int
}

func (c *mapCache) Get(_ context.Context, key string) (types.MoveResult, bool, error) {
	r, ok := c.m[key]
	return r, ok, nil
}

func (c *mapCache) Set(_ context.Context, key string, res types.MoveResult) error {
	c.sets++
	c.m[key] = res
	return nil
}

type memHistory struct{ rows []types.Analysis }

func (h *memHistory) Insert(_ context.Context, a types.Analysis) (int64, error) {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	a.ID = int64(len(h.rows) + 1)
	h.rows = append(h.rows, a)
	return a.ID, nil
}

func (h *memHistory) FindByHash(_ context.Context, hash, engine, model string, maxAge time.Duration) (*types.Analysis, error) {
	for i := len(h.rows) - 1; i >= 0; i-- {
		a := h.rows[i]
		if a.ImageHash != hash || a.Engine != engine || a.Model != model {
			continue
		}
		if maxAge > 0 && time.Since(a.CreatedAt) > maxAge {
			return nil, types.ErrNotFound
		}
		return &a, nil
	}
	return nil, types.ErrNotFound
}

func b64(b []byte) string { return base64.StdEncoding.EncodeToString(b) }

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var de *types.DomainError
	require.True(t, errors.As(err, &de), "want DomainError, got %T", err)
	assert.Equal(t, code, de.Code)
}

func TestBestMoves_FencedReply(t *testing.T) {
	m := &fakeModel{replies: []string{fencedReply}}
	s := NewService(m, Options{})

	res, err := s.BestMoves(context.Background(), types.MovesRequest{ImageBase64: b64(pngBytes)})
	require.NoError(t, err)

	want := types.MoveResult{WhiteBestMove: &types.Move{From: "e2", To: "e4", Comments: "x"}}
	assert.Equal(t, want, res)
	assert.Equal(t, 1, m.calls)
	assert.Equal(t, Prompt, m.prompts[0])
	assert.Equal(t, pngBytes, m.images[0].Data)
}

func TestBestMoves_EmptyInputNeverCallsModel(t *testing.T) {
	for _, in := range []string{"", "   ", "data:image/png;base64,", "%%%"} {
		m := &fakeModel{replies: []string{fencedReply}}
		s := NewService(m, Options{})
		_, err := s.BestMoves(context.Background(), types.MovesRequest{ImageBase64: in})
		requireCode(t, err, types.CodeInvalidInput)
		assert.Zero(t, m.calls, "input %q", in)
	}
}

func TestBestMoves_RejectsNonImageMIME(t *testing.T) {
	m := &fakeModel{replies: []string{fencedReply}}
	s := NewService(m, Options{})
	_, err := s.BestMoves(context.Background(), types.MovesRequest{ImageBase64: b64(pngBytes), MIMEType: "application/pdf"})
	requireCode(t, err, types.CodeInvalidInput)
	assert.Zero(t, m.calls)
}

func TestBestMoves_ForwardsMIME(t *testing.T) {
	cases := []struct {
		name string
		req  types.MovesRequest
		want string
	}{
		{"explicit wins", types.MovesRequest{ImageBase64: b64(pngBytes), MIMEType: "image/webp"}, "image/webp"},
		{"data url", types.MovesRequest{ImageBase64: "data:image/gif;base64," + b64(pngBytes)}, "image/gif"},
		{"sniffed", types.MovesRequest{ImageBase64: b64(pngBytes)}, "image/png"},
		{"fallback", types.MovesRequest{ImageBase64: b64([]byte("??"))}, "image/jpeg"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := &fakeModel{replies: []string{fencedReply}}
			_, err := NewService(m, Options{}).BestMoves(context.Background(), tc.req)
			require.NoError(t, err)
			assert.Equal(t, tc.want, m.images[0].MIMEType)
		})
	}
}

func TestBestMoves_ProseIsBadResponse(t *testing.T) {
	m := &fakeModel{replies: []string{"I cannot analyze this."}}
	_, err := NewService(m, Options{}).BestMoves(context.Background(), types.MovesRequest{ImageBase64: b64(pngBytes)})
	requireCode(t, err, types.CodeBadResponse)
	assert.Equal(t, types.MsgBadResponse, err.Error())
}

func TestBestMoves_ModelErrorIsOpaque(t *testing.T) {
	m := &fakeModel{errs: []error{errors.New("googleapi: Error 500")}, replies: []string{fencedReply}}
	_, err := NewService(m, Options{}).BestMoves(context.Background(), types.MovesRequest{ImageBase64: b64(pngBytes)})
	requireCode(t, err, types.CodeModelFailure)
	assert.Equal(t, types.MsgModelFailure, err.Error())
	assert.Equal(t, 1, m.calls, "single attempt by default")
}

func TestBestMoves_BoundedRetry(t *testing.T) {
	m := &fakeModel{
		errs:    []error{errors.New("unavailable"), errors.New("unavailable")},
		replies: []string{"", "", fencedReply},
	}
	s := NewService(m, Options{MaxAttempts: 3, Backoff: time.Millisecond})
	res, err := s.BestMoves(context.Background(), types.MovesRequest{ImageBase64: b64(pngBytes)})
	require.NoError(t, err)
	assert.NotNil(t, res.WhiteBestMove)
	assert.Equal(t, 3, m.calls)
}

func TestBestMoves_BlockedIsNotRetried(t *testing.T) {
	m := &fakeModel{errs: []error{ErrBlocked}, replies: []string{fencedReply}}
	s := NewService(m, Options{MaxAttempts: 3, Backoff: time.Millisecond})
	_, err := s.BestMoves(context.Background(), types.MovesRequest{ImageBase64: b64(pngBytes)})
	requireCode(t, err, types.CodeModelFailure)
	assert.ErrorIs(t, err, ErrBlocked)
	assert.Equal(t, 1, m.calls)
}

func TestBestMoves_BadResponseIsNotRetried(t *testing.T) {
	m := &fakeModel{replies: []string{"nope"}}
	s := NewService(m, Options{MaxAttempts: 3, Backoff: time.Millisecond})
	_, err := s.BestMoves(context.Background(), types.MovesRequest{ImageBase64: b64(pngBytes)})
	requireCode(t, err, types.CodeBadResponse)
	assert.Equal(t, 1, m.calls)
}

type slowModel struct{ fakeModel }

func (m *slowModel) Generate(ctx context.Context, _ string, _ Image) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestBestMoves_DeadlineIsTimeout(t *testing.T) {
	s := NewService(&slowModel{}, Options{AttemptTimeout: 10 * time.Millisecond})
	_, err := s.BestMoves(context.Background(), types.MovesRequest{ImageBase64: b64(pngBytes)})
	requireCode(t, err, types.CodeTimeout)
}

func TestBestMoves_CacheAndHistory(t *testing.T) {
	m := &fakeModel{replies: []string{fencedReply}}
	c := &mapCache{m: map[string]types.MoveResult{}}
	h := &memHistory{}
	s := NewService(m, Options{Cache: c, History: h})
	req := types.MovesRequest{ImageBase64: b64(pngBytes)}

	first, err := s.BestMoves(context.Background(), req)
	require.NoError(t, err)
	second, err := s.BestMoves(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, m.calls, "second call served from cache")
	assert.Equal(t, 1, c.sets)
	require.Len(t, h.rows, 1)
	assert.Equal(t, ImageHash(pngBytes), h.rows[0].ImageHash)
	assert.Equal(t, "fake-1", h.rows[0].Model)
	assert.Equal(t, "image/png", h.rows[0].MIMEType)
}

func TestBestMoves_HistoryAnswersOnCacheMiss(t *testing.T) {
	stored, err := DecodeModelText(fencedReply)
	require.NoError(t, err)
	hash := ImageHash(pngBytes)

	m := &fakeModel{replies: []string{"unused"}}
	c := &mapCache{m: map[string]types.MoveResult{}}
	h := &memHistory{rows: []types.Analysis{{
		ID: 7, CreatedAt: time.Now().Add(-time.Hour),
		ImageHash: hash, Engine: "fake", Model: "fake-1", Result: stored,
	}}}
	s := NewService(m, Options{Cache: c, History: h, HistoryMaxAge: 24 * time.Hour})

	res, err := s.BestMoves(context.Background(), types.MovesRequest{ImageBase64: b64(pngBytes)})
	require.NoError(t, err)
	assert.Equal(t, stored, res)
	assert.Zero(t, m.calls)
	assert.Len(t, h.rows, 1, "history hit is not re-inserted")
	assert.Equal(t, stored, c.m[CacheKey("fake-1", hash)], "cache warmed from history")
}

func TestBestMoves_HistoryIgnoresOtherModelAndStaleRows(t *testing.T) {
	stored, err := DecodeModelText(fencedReply)
	require.NoError(t, err)
	hash := ImageHash(pngBytes)

	cases := map[string]types.Analysis{
		"other model": {CreatedAt: time.Now(), ImageHash: hash, Engine: "fake", Model: "fake-0", Result: stored},
		"stale":       {CreatedAt: time.Now().Add(-48 * time.Hour), ImageHash: hash, Engine: "fake", Model: "fake-1", Result: stored},
	}
	for name, row := range cases {
		t.Run(name, func(t *testing.T) {
			m := &fakeModel{replies: []string{fencedReply}}
			h := &memHistory{rows: []types.Analysis{row}}
			s := NewService(m, Options{History: h, HistoryMaxAge: 24 * time.Hour})

			_, err := s.BestMoves(context.Background(), types.MovesRequest{ImageBase64: b64(pngBytes)})
			require.NoError(t, err)
			assert.Equal(t, 1, m.calls)
			assert.Len(t, h.rows, 2)
		})
	}
}

func TestBestMoves_SaturatedLimiterIsTimeout(t *testing.T) {
	lim := rate.NewLimiter(rate.Every(time.Hour), 1)
	require.True(t, lim.Allow())

	m := &fakeModel{replies: []string{fencedReply}}
	s := NewService(m, Options{Limiter: lim})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := s.BestMoves(ctx, types.MovesRequest{ImageBase64: b64(pngBytes)})
	requireCode(t, err, types.CodeTimeout)
	assert.Zero(t, m.calls)
}

func TestBestMoves_ConcurrentCallsAreIndependent(t *testing.T) {
	m := &fakeModel{replies: []string{fencedReply}}
	s := NewService(m, Options{})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.BestMoves(context.Background(), types.MovesRequest{ImageBase64: b64(pngBytes)})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 16, m.calls)
}

func TestDecodeModelText(t *testing.T) {
	res, err := DecodeModelText(fencedReply)
	require.NoError(t, err)
	plain, err := DecodeModelText(`{"whiteBestMove":{"from":"e2","to":"e4","comments":"x"},"blackBestMove":null}`)
	require.NoError(t, err)
	assert.Equal(t, plain, res)

	bare, err := DecodeModelText("```\n{\"whiteBestMove\":null,\"blackBestMove\":null}\n```")
	require.NoError(t, err)
	assert.Equal(t, types.MoveResult{}, bare)
}
