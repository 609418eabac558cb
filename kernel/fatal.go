package kernel

import (
	"sync"
	"sync/atomic"
)

// FatalInfo describes an unrecoverable condition.
type FatalInfo struct {
	Err   error
	Stack []byte
}

var (
	fatalActive atomic.Bool
	fatalOnce   sync.Once

	fatalHandler atomic.Value // func(FatalInfo)
)

// InFatal reports whether the system has hit a fatal condition.
func InFatal() bool {
	return fatalActive.Load()
}

// SetFatalHandler installs a process-wide fatal handler.
//
// The handler is invoked at most once (on the first fatal error). It must not
// call Fatal.
func SetFatalHandler(fn func(FatalInfo)) {
	fatalHandler.Store(fn)
}

// ResetFatal leaves fatal mode and removes the handler, so the next Fatal is
// reported again. Boot calls it before installing a handler; it must not run
// concurrently with Fatal.
func ResetFatal() {
	fatalOnce = sync.Once{}
	fatalActive.Store(false)
	SetFatalHandler(nil)
}

// Fatal reports err through the fatal handler and halts by panicking with
// it. It does not return.
func Fatal(err error) {
	triggerFatal(FatalInfo{Err: err})
	panic(err)
}

func triggerFatal(info FatalInfo) {
	fatalOnce.Do(func() {
		fatalActive.Store(true)
		info.Stack = captureStack()
		if v := fatalHandler.Load(); v != nil {
			if fn, ok := v.(func(FatalInfo)); ok && fn != nil {
				fn(info)
			}
		}
	})
}
