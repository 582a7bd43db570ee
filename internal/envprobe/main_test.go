package envprobe

import (
	"testing"

	"go.uber.org/goleak"
)

// Probes and queries fan out goroutines around child processes; none
// may outlive the call that started them.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
