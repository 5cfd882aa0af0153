package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

var (
	resultKeys = []string{"blackBestMove", "whiteBestMove"}
	moveKeys   = []string{"comments", "from", "to"}
)

// ParseMoveResult decodes cleaned model output and validates it strictly:
// exactly whiteBestMove and blackBestMove at the top level, each either null or
// an object with exactly the string fields from, to and comments.
// Any deviation is a BadResponse error.
func ParseMoveResult(text string) (MoveResult, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &top); err != nil {
		return MoveResult{}, BadResponse(fmt.Errorf("decode: %w", err))
	}
	if top == nil {
		return MoveResult{}, BadResponse(fmt.Errorf("top level is null"))
	}
	if err := exactKeys("result", top, resultKeys); err != nil {
		return MoveResult{}, BadResponse(err)
	}

	white, err := parseMove("whiteBestMove", top["whiteBestMove"])
	if err != nil {
		return MoveResult{}, BadResponse(err)
	}
	black, err := parseMove("blackBestMove", top["blackBestMove"])
	if err != nil {
		return MoveResult{}, BadResponse(err)
	}
	return MoveResult{WhiteBestMove: white, BlackBestMove: black}, nil
}

func parseMove(side string, raw json.RawMessage) (*Move, error) {
	if isNull(raw) {
		return nil, nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("%s: want object or null: %w", side, err)
	}
	if err := exactKeys(side, obj, moveKeys); err != nil {
		return nil, err
	}

	var m Move
	for _, f := range []struct {
		key string
		dst *string
	}{
		{"from", &m.From},
		{"to", &m.To},
		{"comments", &m.Comments},
	} {
		v := obj[f.key]
		// null декодируется в string без ошибки, отсекаем явно
		if isNull(v) {
			return nil, fmt.Errorf("%s.%s: want string, got null", side, f.key)
		}
		if err := json.Unmarshal(v, f.dst); err != nil {
			return nil, fmt.Errorf("%s.%s: want string: %w", side, f.key, err)
		}
	}
	return &m, nil
}

func exactKeys(where string, obj map[string]json.RawMessage, want []string) error {
	var missing, extra []string
	for _, k := range want {
		if _, ok := obj[k]; !ok {
			missing = append(missing, k)
		}
	}
	for k := range obj {
		if !contains(want, k) {
			extra = append(extra, k)
		}
	}
	if len(missing) == 0 && len(extra) == 0 {
		return nil
	}
	sort.Strings(extra)
	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "missing "+strings.Join(missing, ","))
	}
	if len(extra) > 0 {
		parts = append(parts, "unexpected "+strings.Join(extra, ","))
	}
	return fmt.Errorf("%s: %s", where, strings.Join(parts, "; "))
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
