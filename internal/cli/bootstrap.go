package cli

import (
	gocontext "context"

	"github.com/example/quoteflow/internal/ctxutil"
)

// globalHolder names who is acting for lock acquisitions made by this command.
var globalHolder = "cli"

// SetHolder overrides the lock holder recorded by commands, from the --as flag.
func SetHolder(holder string) {
	if holder != "" {
		globalHolder = holder
	}
}

// NewContext creates a context.Background() with the current holder embedded.
// CLI commands should use this instead of context.Background() directly.
func NewContext() gocontext.Context {
	return ctxutil.WithHolder(gocontext.Background(), globalHolder)
}
