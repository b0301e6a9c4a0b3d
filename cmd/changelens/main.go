package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"changelens/internal/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		if !stderrors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, describeError(err))
		}
		os.Exit(1)
	}
}

// describeError renders err for a terminal, with the code for typed errors
func describeError(err error) string {
	if typed, ok := errors.As(err); ok {
		return fmt.Sprintf("Error: %s [%s]", typed.Describe(), typed.Code)
	}
	return fmt.Sprintf("Error: %v", err)
}
