package cmd

import (
	"os"
	"os/signal"
	"syscall"
)

// waitForShutdownSignal blocks until SIGINT or SIGTERM is received, so
// every long-running role shuts down gracefully on either signal rather
// than spinning or dying abruptly.
func waitForShutdownSignal() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch
}
