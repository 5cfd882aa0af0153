//go:build js && wasm

package main

import (
	"context"
	"errors"
	"syscall/js"

	"chess-moves/api/internal/widget"
)

// jsFile adapts a DOM File.
type jsFile struct{ v js.Value }

func (f *jsFile) Name() string { return f.v.Get("name").String() }
func (f *jsFile) Type() string { return f.v.Get("type").String() }

func (f *jsFile) Bytes(ctx context.Context) ([]byte, error) {
	buf, err := await(ctx, f.v.Call("arrayBuffer"))
	if err != nil {
		return nil, err
	}
	u8 := js.Global().Get("Uint8Array").New(buf)
	out := make([]byte, u8.Get("length").Int())
	js.CopyBytesToGo(out, u8)
	return out, nil
}

func filesOf(list js.Value) []widget.File {
	if !truthy(list) {
		return nil
	}
	n := list.Get("length").Int()
	out := make([]widget.File, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, &jsFile{v: list.Call("item", i)})
	}
	return out
}

// await blocks the calling goroutine until the promise settles. Never call it
// from inside a js.FuncOf callback.
func await(ctx context.Context, promise js.Value) (js.Value, error) {
	type result struct {
		v   js.Value
		err error
	}
	ch := make(chan result, 1)
	then := js.FuncOf(func(this js.Value, args []js.Value) any {
		ch <- result{v: args[0]}
		return nil
	})
	catch := js.FuncOf(func(this js.Value, args []js.Value) any {
		msg := "promise rejected"
		if len(args) > 0 && truthy(args[0]) {
			msg = args[0].Call("toString").String()
		}
		ch <- result{err: errors.New(msg)}
		return nil
	})
	promise.Call("then", then).Call("catch", catch)
	select {
	case r := <-ch:
		then.Release()
		catch.Release()
		return r.v, r.err
	case <-ctx.Done():
		// промис ещё может вызвать колбэки, поэтому не освобождаем их
		return js.Undefined(), ctx.Err()
	}
}

type objectURLs struct{}

func (objectURLs) Preview(f widget.File) (string, error) {
	jf, ok := f.(*jsFile)
	if !ok {
		return "", errors.New("not a DOM file")
	}
	return js.Global().Get("URL").Call("createObjectURL", jf.v).String(), nil
}

func (objectURLs) Revoke(ref string) {
	js.Global().Get("URL").Call("revokeObjectURL", ref)
}

type domView struct {
	root     js.Value
	renderer *widget.Renderer
}

func (v *domView) Render(st widget.UploadState) {
	html, err := v.renderer.HTML(st)
	if err != nil {
		js.Global().Get("console").Call("error", "widget render:", err.Error())
		return
	}
	v.root.Set("innerHTML", string(html))
}

func truthy(v js.Value) bool { return !v.IsUndefined() && !v.IsNull() && v.Truthy() }
