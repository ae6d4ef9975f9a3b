package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yanizio/pesquisa/internal/survey"
)

// maskCmd prints the display mask of a value
var maskCmd = &cobra.Command{
	Use:   "mask <phone|cpf> <value>",
	Short: "Print the display mask of a phone number or CPF",
	Long: `Apply the same progressive mask the intake form applies while typing.

Examples:
  pesquisactl mask phone 11987654321   # (11) 98765-4321
  pesquisactl mask cpf 12345678901     # 123.456.789-01`,
	Args: cobra.ExactArgs(2),
	RunE: runMask,
}

func runMask(cmd *cobra.Command, args []string) error {
	kind, ok := survey.ParseFieldKind(args[0])
	if !ok {
		return fmt.Errorf("unknown field %q: want phone or cpf", args[0])
	}
	fmt.Fprintln(cmd.OutOrStdout(), survey.Mask(kind, args[1]))
	return nil
}
