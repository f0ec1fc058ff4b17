package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/euel88/law-chatbot/internal/translator"
)

func newLanguagesCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List supported languages",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()
			for _, code := range translator.SupportedLanguages {
				fmt.Fprintf(w, "%-4s %-10s %s\n", code, translator.LanguageName(code), translator.NativeName(code))
			}
		},
	}
}
