package cli

import (
	"context"
	"fmt"
)

func (a *App) getStatus() string {
	if !a.isLoggedIn() {
		return ""
	}
	if a.userName == "" {
		return "(logged in)"
	}
	return fmt.Sprintf("(%s)", a.userName)
}

// Root prints the greeting and runs the REPL until exit or EOF.
func (a *App) Root(ctx context.Context) {
	printlnFn("Welcome to demoauth CLI (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.reader)
}
