package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/euel88/law-chatbot/internal/app"
	"github.com/euel88/law-chatbot/internal/pdf"
	"github.com/euel88/law-chatbot/internal/types"
)

type translateOptions struct {
	output      string
	source      string
	target      string
	text        bool
	images      bool
	mode        string
	engine      string
	concurrency int
	font        string
	quiet       bool
}

func newTranslateCmd(c *cli) *cobra.Command {
	opts := &translateOptions{}
	cmd := &cobra.Command{
		Use:   "translate <input.pdf|url>",
		Short: "Translate a PDF file or URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(cmd, c, opts, args[0])
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.output, "output", "o", "", "output file (default <input>_translated.pdf)")
	f.StringVarP(&opts.source, "source", "s", "", "source language (default from config)")
	f.StringVarP(&opts.target, "target", "t", "", "target language (default from config)")
	f.BoolVar(&opts.text, "text", true, "translate text blocks")
	f.BoolVar(&opts.images, "images", false, "OCR and translate text inside images")
	f.StringVar(&opts.mode, "mode", "", "render mode: overlay or replace (default from config)")
	f.StringVar(&opts.engine, "engine", "", "PDF writer: gofpdf or gopdf2 (default from config)")
	f.IntVar(&opts.concurrency, "concurrency", 0, "translation calls in flight (default from config)")
	f.StringVar(&opts.font, "font", "", "TrueType font for translated text")
	f.BoolVarP(&opts.quiet, "quiet", "q", false, "do not print progress")
	return cmd
}

// defaultOutputPath returns <dir>/<name>_translated.pdf for input.
func defaultOutputPath(input string) string {
	ext := filepath.Ext(input)
	base := strings.TrimSuffix(filepath.Base(input), ext)
	return filepath.Join(filepath.Dir(input), base+"_translated.pdf")
}

func runTranslate(cmd *cobra.Command, c *cli, opts *translateOptions, input string) error {
	cfg := c.config.GetConfig()
	data, source, err := readInput(cmd.Context(), input, cfg.Timeout())
	if err != nil {
		return err
	}
	output := opts.output
	if output == "" {
		output = defaultOutputPath(source)
	}

	if opts.concurrency > 0 {
		cfg.Concurrency = opts.concurrency
	}
	if opts.font != "" {
		cfg.FontPath = opts.font
	}
	if opts.engine != "" {
		engine, err := pdf.ParseRenderEngine(opts.engine)
		if err != nil {
			return types.NewAppError(types.ErrInvalidInput, "invalid render engine", err)
		}
		cfg.RenderEngine = string(engine)
	}

	a, err := app.NewFromConfig(cmd.Context(), c.config)
	if err != nil {
		return err
	}
	defer a.Close()

	req := app.Request{
		SourceLang:      opts.source,
		TargetLang:      opts.target,
		TranslateText:   opts.text,
		TranslateImages: opts.images,
		Mode:            opts.mode,
	}
	req, err = a.Normalize(req)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	stderr := cmd.ErrOrStderr()
	if !a.HasBackend() && req.TranslateText {
		color.New(color.FgYellow).Fprintln(stderr, "warning: no API key configured, text is copied untranslated")
	}
	if req.TranslateImages && !a.OCRAvailable() {
		color.New(color.FgYellow).Fprintln(stderr, "warning: OCR is not available in this build, images are left as is")
	}

	fmt.Fprintf(w, "Input:  %s\n", input)
	fmt.Fprintf(w, "Output: %s\n", output)
	fmt.Fprintf(w, "Languages: %s -> %s (%s)\n", req.SourceLang, req.TargetLang, req.Mode)

	var progress func(float64, string)
	if !opts.quiet {
		progress = progressPrinter(stderr)
	}
	start := time.Now()
	out, err := a.TranslatePDF(cmd.Context(), data, req, progress)
	if !opts.quiet {
		fmt.Fprintln(stderr)
	}
	if err != nil {
		return err
	}

	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return types.NewAppError(types.ErrStorage, "failed to create output directory", err)
		}
	}
	if err := os.WriteFile(output, out, 0644); err != nil {
		return types.NewAppError(types.ErrStorage, "failed to write output", err)
	}

	color.New(color.FgGreen, color.Bold).Fprintln(w, "Translation complete")
	fmt.Fprintf(w, "  written %d bytes in %v\n", len(out), time.Since(start).Round(time.Millisecond))
	for pair, s := range a.Stats() {
		fmt.Fprintf(w, "  %s: %d segments, %d cached, %d calls, %d failed\n", pair, s.Requests, s.CacheHits, s.Calls, s.Failures)
	}
	return nil
}

// progressPrinter redraws a single status line on w.
func progressPrinter(w io.Writer) func(float64, string) {
	cyan := color.New(color.FgCyan)
	return func(fraction float64, message string) {
		cyan.Fprintf(w, "\r[%3.0f%%]", fraction*100)
		fmt.Fprintf(w, " %-60s", truncate(message, 60))
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
