package widget

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"chess-moves/api/internal/moves/types"
)

// Transport delivers one MovesRequest and returns the validated result.
type Transport interface {
	FetchMoves(ctx context.Context, req types.MovesRequest) (types.MoveResult, error)
}

// HTTPTransport posts to the /api/moves endpoint. Under js/wasm net/http rides on fetch.
type HTTPTransport struct {
	Endpoint string
	Client   *http.Client
}

func NewHTTPTransport(endpoint string) *HTTPTransport {
	if strings.TrimSpace(endpoint) == "" {
		endpoint = "/api/moves"
	}
	return &HTTPTransport{Endpoint: endpoint, Client: http.DefaultClient}
}

func (t *HTTPTransport) FetchMoves(ctx context.Context, in types.MovesRequest) (types.MoveResult, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return types.MoveResult{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.Endpoint, bytes.NewReader(body))
	if err != nil {
		return types.MoveResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	cl := t.Client
	if cl == nil {
		cl = http.DefaultClient
	}
	resp, err := cl.Do(req)
	if err != nil {
		return types.MoveResult{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.MoveResult{}, err
	}
	if resp.StatusCode/100 != 2 {
		var er types.ErrorResponse
		if json.Unmarshal(raw, &er) == nil && er.Error != "" {
			return types.MoveResult{}, &types.DomainError{Code: er.Code, Message: er.Error}
		}
		return types.MoveResult{}, fmt.Errorf("%s", http.StatusText(resp.StatusCode))
	}
	return types.ParseMoveResult(string(raw))
}
