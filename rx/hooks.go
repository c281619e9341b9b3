package rx

import (
	"sync"

	reactive "github.com/iamtaegu/reactiveProgramming"
)

var log = reactive.NewLogger("rx")

var (
	hookMu       sync.RWMutex
	errorDropped func(error)
)

// SetOnErrorDropped replaces the handler for errors that can no longer be
// delivered, and returns a func restoring the previous one.
func SetOnErrorDropped(f func(error)) (restore func()) {
	hookMu.Lock()
	prev := errorDropped
	errorDropped = f
	hookMu.Unlock()
	return func() {
		hookMu.Lock()
		errorDropped = prev
		hookMu.Unlock()
	}
}

// OnErrorDropped reports an error raised after its subscription already
// terminated or was cancelled. By default it is logged.
func OnErrorDropped(err error) {
	hookMu.RLock()
	f := errorDropped
	hookMu.RUnlock()
	if f != nil {
		f(err)
		return
	}
	log.WithError(err).Warn("error dropped after terminal signal")
}

func onNextDropped(v interface{}) {
	log.Debugf("onNext(%v) dropped after terminal signal", v)
}
