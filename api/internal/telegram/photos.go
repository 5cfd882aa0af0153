package telegram

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"chess-moves/api/internal/util"
)

// remoteFile is a Telegram file fetched on first Bytes call.
type remoteFile struct {
	bot    Bot
	fileID string
	name   string
	mime   string
}

func (f *remoteFile) Name() string { return f.name }
func (f *remoteFile) Type() string { return f.mime }

func (f *remoteFile) Bytes(ctx context.Context) ([]byte, error) {
	url, err := f.bot.GetFileDirectURL(f.fileID)
	if err != nil {
		return nil, err
	}
	return download(ctx, url)
}

// fileOf returns the image carried by msg: the largest photo size, or an
// attached document. Photos are always re-encoded to JPEG by Telegram.
func (r *Router) fileOf(msg *tgbotapi.Message) *remoteFile {
	if n := len(msg.Photo); n > 0 {
		ph := msg.Photo[n-1]
		return &remoteFile{bot: r.Bot, fileID: ph.FileID, name: "photo.jpg", mime: util.DefaultImageMIME}
	}
	if d := msg.Document; d != nil {
		return &remoteFile{bot: r.Bot, fileID: d.FileID, name: d.FileName, mime: d.MimeType}
	}
	return nil
}

func download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(b))
	}
	return io.ReadAll(resp.Body)
}

func httpClient() *http.Client {
	return &http.Client{Timeout: 60 * time.Second}
}

func encodeBase64(b []byte) string { return base64.StdEncoding.EncodeToString(b) }
