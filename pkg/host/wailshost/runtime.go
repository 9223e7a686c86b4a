package wailshost

import (
	"context"

	"github.com/wailsapp/wails/v2/pkg/runtime"
)

// Runtime is the part of the Wails runtime the host drives.
type Runtime interface {
	WindowShow(ctx context.Context)
	WindowHide(ctx context.Context)
	WindowExecJS(ctx context.Context, js string)
	EventsEmit(ctx context.Context, name string, data ...interface{})
	EventsOn(ctx context.Context, name string, fn func(data ...interface{})) func()
	Quit(ctx context.Context)
}

type wailsRuntime struct{}

func (wailsRuntime) WindowShow(ctx context.Context) { runtime.WindowShow(ctx) }

func (wailsRuntime) WindowHide(ctx context.Context) { runtime.WindowHide(ctx) }

func (wailsRuntime) WindowExecJS(ctx context.Context, js string) { runtime.WindowExecJS(ctx, js) }

func (wailsRuntime) EventsEmit(ctx context.Context, name string, data ...interface{}) {
	runtime.EventsEmit(ctx, name, data...)
}

func (wailsRuntime) EventsOn(ctx context.Context, name string, fn func(data ...interface{})) func() {
	return runtime.EventsOn(ctx, name, fn)
}

func (wailsRuntime) Quit(ctx context.Context) { runtime.Quit(ctx) }
