// Command pdftrans translates the text (and optionally the embedded images) of
// PDF documents while keeping their page layout.
//
//	pdftrans translate paper.pdf --target ko
//	pdftrans info paper.pdf --json
//	pdftrans serve --addr :8080
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"github.com/euel88/law-chatbot/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	logger.Close()
	if err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// version is overridden at link time with -ldflags "-X main.version=...".
var version = "dev"

func versionString() string {
	return fmt.Sprintf("pdftrans %s", version)
}
