package util

import (
	"encoding/base64"
	"errors"
	"mime"
	"net/http"
	"strings"
)

const DefaultImageMIME = "image/jpeg"

var ErrEmptyPayload = errors.New("empty payload")

// SniffImageMIME определяет тип картинки по сигнатуре; "" если не распознали.
func SniffImageMIME(b []byte) string {
	if len(b) >= 2 && b[0] == 0xFF && b[1] == 0xD8 {
		return "image/jpeg"
	}
	if len(b) >= 8 &&
		b[0] == 0x89 && b[1] == 0x50 && b[2] == 0x4E && b[3] == 0x47 &&
		b[4] == 0x0D && b[5] == 0x0A && b[6] == 0x1A && b[7] == 0x0A {
		return "image/png"
	}
	if len(b) > 0 {
		if ct := http.DetectContentType(b); IsImageMIME(ct) {
			return ct
		}
	}
	return ""
}

// IsImageMIME reports whether a declared content type is image/*.
// Parameters (";charset=...") and case are ignored.
func IsImageMIME(ct string) bool {
	ct = strings.TrimSpace(ct)
	if ct == "" {
		return false
	}
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		ct = mt
	}
	return strings.HasPrefix(strings.ToLower(ct), "image/")
}

// NormalizeMIME lower-cases the media type and drops parameters.
func NormalizeMIME(ct string) string {
	ct = strings.TrimSpace(ct)
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		return mt
	}
	return strings.ToLower(ct)
}

// DecodeBase64MaybeDataURL декодирует base64. Если это data:URI, вернёт MIME из префикса.
func DecodeBase64MaybeDataURL(s string) ([]byte, string, error) {
	s = strings.TrimSpace(s)
	var hintMIME string
	if strings.HasPrefix(strings.ToLower(s), "data:") {
		// data:<mime>;base64,<payload>
		if idx := strings.IndexByte(s, ','); idx > 0 {
			meta := s[len("data:"):idx]
			if semi := strings.IndexByte(meta, ';'); semi >= 0 {
				hintMIME = meta[:semi]
			} else {
				hintMIME = meta
			}
			s = s[idx+1:]
		}
	}
	if s == "" {
		return nil, "", ErrEmptyPayload
	}
	// стандартная база64, затем URL-safe и без паддинга
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		var err2 error
		if b, err2 = base64.URLEncoding.DecodeString(s); err2 != nil {
			if b, err2 = base64.RawStdEncoding.DecodeString(s); err2 != nil {
				return nil, "", err
			}
		}
	}
	if len(b) == 0 {
		return nil, "", ErrEmptyPayload
	}
	return b, hintMIME, nil
}

// PickMIME берём явный MIME, затем из data:URI, затем по байтам, иначе image/jpeg.
func PickMIME(explicit, hint string, data []byte) string {
	if exp := strings.TrimSpace(explicit); exp != "" {
		return NormalizeMIME(exp)
	}
	if h := strings.TrimSpace(hint); IsImageMIME(h) {
		return NormalizeMIME(h)
	}
	if s := SniffImageMIME(data); s != "" {
		return s
	}
	return DefaultImageMIME
}
