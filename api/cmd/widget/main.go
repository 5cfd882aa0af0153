//go:build js && wasm

// Command widget is the browser build of the image-intake widget:
// GOOS=js GOARCH=wasm go build -o web/static/widget.wasm ./api/cmd/widget
package main

import (
	"syscall/js"

	"chess-moves/api/internal/widget"
)

func main() {
	doc := js.Global().Get("document")
	root := doc.Call("getElementById", "widget")
	if root.IsNull() {
		js.Global().Get("console").Call("error", "widget: #widget not found")
		return
	}

	view := &domView{root: root, renderer: widget.MustRenderer()}
	ctrl := widget.NewController(
		widget.NewHTTPTransport("/api/moves"),
		view,
		widget.WithPreviewer(objectURLs{}),
	)

	onDrop := js.FuncOf(func(this js.Value, args []js.Value) any {
		e := args[0]
		e.Call("preventDefault")
		e.Call("stopPropagation")
		if dt := e.Get("dataTransfer"); truthy(dt) {
			_ = ctrl.Select(widget.SourceDrop, filesOf(dt.Get("files")))
		}
		return nil
	})
	onDragOver := js.FuncOf(func(this js.Value, args []js.Value) any {
		args[0].Call("preventDefault")
		args[0].Call("stopPropagation")
		return nil
	})
	onPaste := js.FuncOf(func(this js.Value, args []js.Value) any {
		if cd := args[0].Get("clipboardData"); truthy(cd) {
			_ = ctrl.Select(widget.SourcePaste, filesOf(cd.Get("files")))
		}
		return nil
	})
	onChange := js.FuncOf(func(this js.Value, args []js.Value) any {
		target := args[0].Get("target")
		if target.Get("id").String() != "file-upload" {
			return nil
		}
		_ = ctrl.Select(widget.SourcePicker, filesOf(target.Get("files")))
		// тот же файл должен снова вызывать change
		target.Set("value", "")
		return nil
	})

	handlers := map[string]js.Func{
		"drop":     onDrop,
		"dragover": onDragOver,
		"paste":    onPaste,
		"change":   onChange,
	}
	// слушаем контейнер: содержимое перерисовывается целиком
	for ev, fn := range handlers {
		root.Call("addEventListener", ev, fn, false)
	}

	view.Render(widget.Idle())
	// обработчики живут, пока открыта страница
	select {}
}
