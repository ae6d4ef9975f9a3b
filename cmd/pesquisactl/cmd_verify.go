package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yanizio/pesquisa/internal/survey"
)

// verifyCmd checks a number against stored surveys
var verifyCmd = &cobra.Command{
	Use:   "verify <whatsapp|cpf> <number>",
	Short: "Check whether a WhatsApp number or CPF was already used",
	Long: `Ask the backend whether a number already appears in a survey.

Masked input is accepted; only the digits are sent.`,
	Args: cobra.ExactArgs(2),
	RunE: runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	kind, ok := survey.ParseFieldKind(args[0])
	if !ok {
		return fmt.Errorf("unknown field %q: want whatsapp or cpf", args[0])
	}
	digits := survey.Digits(args[1])
	if digits == "" {
		return fmt.Errorf("%q has no digits", args[1])
	}

	cli, err := newClient(ctx)
	if err != nil {
		return err
	}

	var exists bool
	if kind == survey.FieldPhone {
		exists, err = cli.WhatsAppExists(ctx, digits)
	} else {
		exists, err = cli.CPFExists(ctx, digits)
	}
	if err != nil {
		return err
	}

	status := "disponível"
	if exists {
		status = "já cadastrado"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %s\n", args[0], survey.Mask(kind, digits), status)
	return nil
}
