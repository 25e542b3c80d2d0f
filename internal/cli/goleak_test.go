package cli

import (
	"testing"

	"go.uber.org/goleak"
)

// TestPackageLeaks verifies no goroutines leak from this package's tests.
func TestPackageLeaks(t *testing.T) {
	defer goleak.VerifyNone(t,
		// database/sql keeps a connection opener per handle until Close.
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"),
	)
}
