package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/yanizio/pesquisa/internal/api"
	"github.com/yanizio/pesquisa/internal/export"
	"github.com/yanizio/pesquisa/internal/session"
)

var (
	exportOut      string
	exportUser     string
	exportPassword string
	exportQuery    api.ListQuery
)

// exportCmd writes stored surveys to an .xlsx workbook
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every stored survey to an Excel workbook",
	Long: `Log in as an operator, page through every survey matching the filters,
and write them with the spreadsheet columns used by the dashboard export.

The password may also come from PESQUISA_PASSWORD.`,
	RunE: runExport,
}

func init() {
	f := exportCmd.Flags()
	f.StringVarP(&exportOut, "out", "o", "", "Output file (default: pesquisas_mercado_<date>.xlsx)")
	f.StringVarP(&exportUser, "user", "u", "", "Operator username (required)")
	f.StringVarP(&exportPassword, "password", "p", "", "Operator password (or set PESQUISA_PASSWORD)")
	f.StringVar(&exportQuery.Search, "search", "", "Free-text search")
	f.StringVar(&exportQuery.Bairro, "bairro", "", "Neighbourhood filter")
	f.StringVar(&exportQuery.ProvedorAtual, "provedor", "", "Current provider filter")
	f.StringVar(&exportQuery.FiltroSatisfacao, "filtro-satisfacao", "", "satisfeitos or insatisfeitos")
	f.StringVar(&exportQuery.FiltroInteresse, "filtro-interesse", "", "interessados or nao_interessados")
	_ = exportCmd.MarkFlagRequired("user")
}

func runExport(cmd *cobra.Command, args []string) error {
	// Exports page through the whole table; allow more than one request's
	// worth of time.
	ctx, cancel := context.WithTimeout(cmd.Context(), 10*timeout)
	defer cancel()

	password := exportPassword
	if password == "" {
		password = os.Getenv("PESQUISA_PASSWORD")
	}
	if password == "" {
		return errors.New("no password: use --password or PESQUISA_PASSWORD")
	}

	cli, err := newClient(ctx)
	if err != nil {
		return err
	}

	res, err := cli.Login(ctx, api.Credentials{Username: exportUser, Password: password})
	if err != nil {
		if api.IsUnauthorized(err) {
			return errors.New("login rejected")
		}
		return fmt.Errorf("login: %w", err)
	}
	sess := session.NewStore(1, 0).Create(res.User, res.Tokens)
	authed := cli.WithCredentials(sess)
	defer func() { _ = authed.Logout(context.WithoutCancel(ctx)) }()

	items, err := export.Collect(ctx, authed, exportQuery)
	if err != nil {
		return err
	}

	path := exportOut
	if path == "" {
		path = export.Filename(time.Now())
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := export.Write(f, items, time.Local); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d pesquisas exportadas para %s\n", len(items), path)
	return nil
}
