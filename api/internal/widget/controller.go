package widget

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"time"

	"chess-moves/api/internal/moves/types"
	"chess-moves/api/internal/util"
)

const (
	// DefaultTimeout outlasts the server's 120s request deadline so its 504 reaches the user.
	DefaultTimeout = 130 * time.Second
	ErrorPrefix    = "Failed to get moves: "
)

// View receives every state the controller enters, in order.
type View interface {
	Render(UploadState)
}

// Previewer turns a file into a displayable reference (an object URL in the browser).
type Previewer interface {
	Preview(f File) (string, error)
	Revoke(ref string)
}

type Option func(*Controller)

func WithTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithPreviewer(p Previewer) Option {
	return func(c *Controller) { c.previewer = p }
}

// Controller owns the UploadState. Each accepted selection gets a new sequence
// number; a completion is applied only while its number is still the latest.
type Controller struct {
	transport Transport
	view      View
	previewer Previewer
	timeout   time.Duration

	mu     sync.Mutex
	seq    uint64
	state  UploadState
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewController(t Transport, v View, opts ...Option) *Controller {
	c := &Controller{transport: t, view: v, timeout: DefaultTimeout, state: Idle()}
	for _, o := range opts {
		o(c)
	}
	return c
}

// State returns the current state.
func (c *Controller) State() UploadState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Select handles one selection event. ErrNoFile leaves everything untouched;
// ErrNotImage resets to Idle and drops any in-flight call. An accepted image
// is previewed before the request starts.
func (c *Controller) Select(src Source, files []File) error {
	f, err := Normalize(src, files)
	if errors.Is(err, ErrNoFile) {
		return err
	}
	if err != nil {
		c.mu.Lock()
		c.supersedeLocked()
		c.setLocked(Idle())
		c.mu.Unlock()
		return err
	}

	var preview string
	if c.previewer != nil {
		// без превью продолжаем: запрос важнее картинки
		preview, _ = c.previewer.Preview(f)
	}

	c.mu.Lock()
	id := c.supersedeLocked()
	c.setLocked(Pending(preview))
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	c.cancel = cancel
	c.wg.Add(1)
	c.mu.Unlock()

	go c.run(ctx, cancel, id, preview, f)
	return nil
}

// Wait blocks until every started request has finished.
func (c *Controller) Wait() { c.wg.Wait() }

// Close cancels the in-flight request, if any.
func (c *Controller) Close() {
	c.mu.Lock()
	c.supersedeLocked()
	c.mu.Unlock()
	c.wg.Wait()
}

func (c *Controller) run(ctx context.Context, cancel context.CancelFunc, id uint64, preview string, f File) {
	defer c.wg.Done()
	defer cancel()

	data, err := f.Bytes(ctx)
	if err == nil && len(data) == 0 {
		err = ErrEmptyFile
	}
	if err != nil {
		c.finish(id, Failed(preview, types.MsgReadFailed))
		return
	}

	req := types.MovesRequest{
		ImageBase64: base64.StdEncoding.EncodeToString(data),
		MIMEType:    util.NormalizeMIME(f.Type()),
	}
	res, err := c.transport.FetchMoves(ctx, req)
	if err != nil {
		c.finish(id, Failed(preview, ErrorPrefix+failureText(err)))
		return
	}
	c.finish(id, Succeeded(preview, res))
}

func (c *Controller) finish(id uint64, st UploadState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id != c.seq {
		return
	}
	c.cancel = nil
	c.setLocked(st)
}

// supersedeLocked starts a new sequence segment and cancels the previous request.
func (c *Controller) supersedeLocked() uint64 {
	c.seq++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	return c.seq
}

func (c *Controller) setLocked(st UploadState) {
	if old := c.state.Preview; old != "" && old != st.Preview && c.previewer != nil {
		c.previewer.Revoke(old)
	}
	c.state = st
	if c.view != nil {
		c.view.Render(st)
	}
}

func failureText(err error) string {
	var de *types.DomainError
	switch {
	case errors.As(err, &de):
		return de.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return "request timed out"
	default:
		return err.Error()
	}
}
