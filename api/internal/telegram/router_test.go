package telegram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chess-moves/api/internal/moves/types"
)

const (
	timeoutForTest = 2 * time.Second
	tick           = 5 * time.Millisecond
)

type fakeBot struct {
	mu    sync.Mutex
	texts map[int64][]string
	base  string
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	m, ok := c.(tgbotapi.MessageConfig)
	if !ok {
		return tgbotapi.Message{}, errors.New("unexpected chattable")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.texts == nil {
		b.texts = map[int64][]string{}
	}
	b.texts[m.ChatID] = append(b.texts[m.ChatID], m.Text)
	return tgbotapi.Message{}, nil
}

func (b *fakeBot) GetFileDirectURL(fileID string) (string, error) {
	if fileID == "missing" {
		return "", errors.New("file not found")
	}
	return b.base + "/" + fileID, nil
}

func (b *fakeBot) sent(chatID int64) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.texts[chatID]...)
}

type gateService struct {
	mu    sync.Mutex
	reqs  []types.MovesRequest
	gates map[string]chan struct{}
	res   map[string]types.MoveResult
	err   error
}

func (s *gateService) BestMoves(ctx context.Context, in types.MovesRequest) (types.MoveResult, error) {
	s.mu.Lock()
	s.reqs = append(s.reqs, in)
	gate := s.gates[in.ImageBase64]
	res := s.res[in.ImageBase64]
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return res, s.err
}

func newFileServer(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/empty" {
			return
		}
		_, _ = w.Write([]byte(r.URL.Path[1:]))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func photo(chatID int64, fileID string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:  &tgbotapi.Chat{ID: chatID},
		Photo: []tgbotapi.PhotoSize{{FileID: "thumb"}, {FileID: fileID}},
	}}
}

func command(chatID int64, cmd string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: chatID},
		Text:     cmd,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}},
	}}
}

func TestRouter_PhotoGetsMoves(t *testing.T) {
	bot := &fakeBot{base: newFileServer(t).URL}
	svc := &gateService{res: map[string]types.MoveResult{
		encodeBase64([]byte("board")): {WhiteBestMove: &types.Move{From: "e2", To: "e4", Comments: "x"}},
	}}
	r := &Router{Bot: bot, Service: svc}

	r.HandleUpdate(photo(101, "board"))
	r.Wait()

	require.Len(t, svc.reqs, 1)
	assert.Equal(t, "image/jpeg", svc.reqs[0].MIMEType)
	assert.Equal(t, []string{
		textPending,
		"Best Moves:\nWhite: e2 to e4\nx\nBlack: No move found or suggested.",
	}, bot.sent(101))
}

func TestRouter_DocumentNonImage(t *testing.T) {
	bot := &fakeBot{base: newFileServer(t).URL}
	svc := &gateService{}
	r := &Router{Bot: bot, Service: svc}

	r.HandleUpdate(tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: 102},
		Document: &tgbotapi.Document{FileID: "doc", FileName: "a.pdf", MimeType: "application/pdf"},
	}})
	r.Wait()

	assert.Empty(t, svc.reqs)
	assert.Equal(t, []string{textNotImage}, bot.sent(102))
}

func TestRouter_DocumentImageForwardsMIME(t *testing.T) {
	bot := &fakeBot{base: newFileServer(t).URL}
	svc := &gateService{}
	r := &Router{Bot: bot, Service: svc}

	r.HandleUpdate(tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: 103},
		Document: &tgbotapi.Document{FileID: "png", FileName: "b.png", MimeType: "image/png"},
	}})
	r.Wait()

	require.Len(t, svc.reqs, 1)
	assert.Equal(t, "image/png", svc.reqs[0].MIMEType)
}

func TestRouter_NewerPhotoSupersedes(t *testing.T) {
	bot := &fakeBot{base: newFileServer(t).URL}
	first := encodeBase64([]byte("one"))
	gate := make(chan struct{})
	svc := &gateService{
		gates: map[string]chan struct{}{first: gate},
		res: map[string]types.MoveResult{
			first:                       {WhiteBestMove: &types.Move{From: "a2", To: "a3"}},
			encodeBase64([]byte("two")): {BlackBestMove: &types.Move{From: "g8", To: "f6"}},
		},
	}
	r := &Router{Bot: bot, Service: svc}

	r.HandleUpdate(photo(104, "one"))
	require.Eventually(t, func() bool {
		svc.mu.Lock()
		defer svc.mu.Unlock()
		return len(svc.reqs) == 1
	}, timeoutForTest, tick)
	r.HandleUpdate(photo(104, "two"))
	require.Eventually(t, func() bool { return len(bot.sent(104)) == 3 }, timeoutForTest, tick)
	close(gate)
	r.Wait()

	sent := bot.sent(104)
	require.Len(t, sent, 3)
	assert.Contains(t, sent[2], "Black: g8 to f6")
}

func TestRouter_Failures(t *testing.T) {
	bot := &fakeBot{base: newFileServer(t).URL}
	svc := &gateService{err: types.BadResponse(errors.New("eof"))}
	r := &Router{Bot: bot, Service: svc}

	r.HandleUpdate(photo(105, "board"))
	r.Wait()
	r.HandleUpdate(photo(105, "missing"))
	r.Wait()
	r.HandleUpdate(photo(105, "empty"))
	r.Wait()

	assert.Equal(t, []string{
		textPending, "Failed to get moves: " + types.MsgBadResponse,
		textPending, types.MsgReadFailed,
		textPending, types.MsgReadFailed,
	}, bot.sent(105))
}

func TestRouter_Commands(t *testing.T) {
	bot := &fakeBot{}
	r := &Router{Bot: bot, Model: "gemini-2.5-flash"}

	r.HandleUpdate(command(106, "/start"))
	r.HandleUpdate(command(106, "/health"))
	r.HandleUpdate(command(106, "/nope"))
	r.HandleUpdate(tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 106}, Text: "hi"}})
	r.HandleUpdate(tgbotapi.Update{})

	assert.Equal(t, []string{textStart, "✅ OK (gemini-2.5-flash)", "Unknown command", textNotImage}, bot.sent(106))
}

func TestRouter_SendTruncatesOnRuneBoundary(t *testing.T) {
	bot := &fakeBot{}
	r := &Router{Bot: bot}

	long := "a" + strings.Repeat("ферзь ", 1000)
	r.send(107, long)

	got := bot.sent(107)
	require.Len(t, got, 1)
	assert.True(t, utf8.ValidString(got[0]))
	assert.LessOrEqual(t, len(got[0]), maxMessageBytes+len("…"))
	assert.True(t, strings.HasSuffix(got[0], "…"))
}
