package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/euel88/law-chatbot/internal/pdf"
)

func newInfoCmd(c *cli) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "info <input.pdf|url>",
		Short: "Show page count, metadata and block counts of a PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, _, err := readInput(cmd.Context(), args[0], c.config.GetConfig().Timeout())
			if err != nil {
				return err
			}
			info, err := pdf.GetPDFInfo(data)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}
			printInfo(cmd.OutOrStdout(), args[0], info)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func printInfo(w io.Writer, name string, info *pdf.PDFInfo) {
	bold := color.New(color.Bold)
	bold.Fprintln(w, name)
	fmt.Fprintf(w, "  Pages:       %d\n", info.PageCount)
	fmt.Fprintf(w, "  Text blocks: %d\n", info.TextBlockCount)
	fmt.Fprintf(w, "  Images:      %d\n", info.ImageCount)

	keys := make([]string, 0, len(info.Metadata))
	for k, v := range info.Metadata {
		if v != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return
	}
	sort.Strings(keys)
	bold.Fprintln(w, "  Metadata")
	for _, k := range keys {
		fmt.Fprintf(w, "    %-14s %s\n", k+":", info.Metadata[k])
	}
}
