package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"chess-moves/api/internal/moves/types"
	"chess-moves/api/internal/obslog"
	"chess-moves/api/internal/util"
	"chess-moves/api/internal/widget"
)

// Bot is the part of *tgbotapi.BotAPI the router uses.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetFileDirectURL(fileID string) (string, error)
}

type MovesService interface {
	BestMoves(ctx context.Context, in types.MovesRequest) (types.MoveResult, error)
}

type Router struct {
	Bot     Bot
	Service MovesService
	Model   string
	Timeout time.Duration

	wg sync.WaitGroup
}

const (
	textStart    = "Send a photo of a chessboard and I will suggest the best move for White and for Black.\nCommands: /help, /health"
	textHelp     = "Send the board as a photo or as an image file. Only the first image of a message is analyzed; a newer image replaces the one in progress."
	textNotImage = "Please send an image of a chessboard."
	textPending  = "Analyzing Image..."
)

func (r *Router) HandleCommand(upd tgbotapi.Update) {
	cid := upd.Message.Chat.ID
	switch upd.Message.Command() {
	case "start":
		r.send(cid, textStart)
	case "help":
		r.send(cid, textHelp)
	case "health":
		msg := "✅ OK"
		if r.Model != "" {
			msg += " (" + r.Model + ")"
		}
		r.send(cid, msg)
	default:
		r.send(cid, "Unknown command")
	}
}

func (r *Router) HandleUpdate(upd tgbotapi.Update) {
	if upd.Message == nil || upd.Message.Chat == nil {
		return
	}
	msg := upd.Message
	cid := msg.Chat.ID

	if msg.IsCommand() {
		r.HandleCommand(upd)
		return
	}

	file := r.fileOf(msg)
	if file == nil {
		if strings.TrimSpace(msg.Text) != "" {
			r.send(cid, textNotImage)
		}
		return
	}

	f, err := widget.Normalize(widget.SourceChat, []widget.File{file})
	if err != nil {
		// не картинка: текущий анализ больше не актуален
		nextSeq(cid)
		r.send(cid, textNotImage)
		return
	}

	seq := nextSeq(cid)
	r.send(cid, textPending)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.analyze(cid, seq, f)
	}()
}

// Wait blocks until every started analysis has replied or been dropped.
func (r *Router) Wait() { r.wg.Wait() }

func (r *Router) analyze(chatID int64, seq uint64, f widget.File) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = widget.DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	log := obslog.L().With(zap.Int64("chat_id", chatID), zap.Uint64("seq", seq))

	data, err := f.Bytes(ctx)
	if err != nil || len(data) == 0 {
		log.Warn("telegram file download failed", zap.Error(err))
		r.reply(chatID, seq, types.MsgReadFailed)
		return
	}

	res, err := r.Service.BestMoves(ctx, types.MovesRequest{
		ImageBase64: encodeBase64(data),
		MIMEType:    f.Type(),
	})
	if err != nil {
		r.reply(chatID, seq, widget.ErrorPrefix+errorText(err))
		return
	}
	r.reply(chatID, seq, widget.RenderText(res))
}

// reply sends text only if seq is still the newest analysis of the chat.
func (r *Router) reply(chatID int64, seq uint64, text string) {
	if !isLatest(chatID, seq) {
		obslog.L().Debug("stale analysis dropped", zap.Int64("chat_id", chatID), zap.Uint64("seq", seq))
		return
	}
	r.send(chatID, text)
}

// Telegram caps a message at 4096 characters.
const maxMessageBytes = 3900

func (r *Router) send(chatID int64, text string) {
	text = util.Truncate(text, maxMessageBytes)
	if _, err := r.Bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		obslog.L().Warn("telegram send failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func errorText(err error) string {
	var de *types.DomainError
	if errors.As(err, &de) {
		return de.Error()
	}
	return types.MsgModelFailure
}
