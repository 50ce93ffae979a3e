package indexing

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain ensures the parallel parse stage's errgroup workers never leak
// past a test.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
		goleak.IgnoreTopFunction("sync.runtime_Semacquire"),
	)
}
