package watch

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain ensures the watcher's fsnotify event loop and debounce timer
// goroutines never outlive a test.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}
