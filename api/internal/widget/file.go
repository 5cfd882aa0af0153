// Package widget is the image-intake widget: it normalizes dropped, pasted or
// picked files, drives the upload state machine and renders it. It has no
// browser dependencies; cmd/widget binds it to the DOM.
package widget

import (
	"context"
	"errors"
)

// Source is where a selection came from.
type Source int

const (
	SourceDrop Source = iota
	SourcePaste
	SourcePicker
	SourceChat
)

func (s Source) String() string {
	switch s {
	case SourceDrop:
		return "drop"
	case SourcePaste:
		return "paste"
	case SourcePicker:
		return "picker"
	case SourceChat:
		return "chat"
	default:
		return "unknown"
	}
}

// File is one user-supplied file. Bytes may block (the browser reads files asynchronously).
type File interface {
	Name() string
	Type() string
	Bytes(ctx context.Context) ([]byte, error)
}

// MemFile is a File already held in memory.
type MemFile struct {
	FileName    string
	ContentType string
	Data        []byte
	Err         error
}

func (f *MemFile) Name() string { return f.FileName }
func (f *MemFile) Type() string { return f.ContentType }

func (f *MemFile) Bytes(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Data, nil
}

var ErrEmptyFile = errors.New("file is empty")
