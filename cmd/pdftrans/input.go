package main

import (
	"context"
	"os"
	"time"

	"github.com/euel88/law-chatbot/internal/downloader"
	"github.com/euel88/law-chatbot/internal/types"
)

// readInput loads a PDF from a local path or an http(s) URL. The returned path
// is where a default output name is derived from: the input itself for local
// files, the URL's file name in the working directory for downloads.
func readInput(ctx context.Context, arg string, timeout time.Duration) ([]byte, string, error) {
	if downloader.IsURL(arg) {
		data, name, err := downloader.New(timeout).Fetch(ctx, arg)
		if err != nil {
			return nil, "", err
		}
		return data, name, nil
	}

	data, err := os.ReadFile(arg)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", types.NewAppErrorWithDetails(types.ErrFileNotFound, "input file not found", arg, err)
		}
		return nil, "", types.NewAppError(types.ErrInvalidInput, "failed to read input", err)
	}
	return data, arg, nil
}
