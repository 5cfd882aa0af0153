package widget

import (
	"errors"

	"chess-moves/api/internal/util"
)

var (
	ErrNoFile   = errors.New("no file in selection")
	ErrNotImage = errors.New("selected file is not an image")
)

// Normalize picks the file a selection event stands for: the first one.
// The declared type must be image/*; contents are not inspected.
func Normalize(_ Source, files []File) (File, error) {
	if len(files) == 0 || files[0] == nil {
		return nil, ErrNoFile
	}
	f := files[0]
	if !util.IsImageMIME(f.Type()) {
		return nil, ErrNotImage
	}
	return f, nil
}
