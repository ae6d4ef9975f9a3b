package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/yanizio/pesquisa/internal/delivery"
	"github.com/yanizio/pesquisa/internal/payload"
	"github.com/yanizio/pesquisa/internal/submission"
	"github.com/yanizio/pesquisa/internal/survey"
)

var (
	submitFile   string
	submitMode   string
	submitNoOpen bool
)

// submitCmd delivers one record
var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Validate and deliver one survey record from a YAML file",
	Long: `Run one record through validation, normalisation, and delivery.

The YAML keys match the backend field names:

  nome: Maria Lima
  whatsapp: "11987654321"
  cpf: ""
  provedor_atual: NetX
  satisfacao: Satisfeito
  bairro: Centro
  velocidade: 300 Mega
  valor_mensal: R$ 99,90
  uso_internet: [trabalho, estudos]
  interesse_proposta: Sim, tenho interesse
  responsavel: Ana

In messaging mode the WhatsApp link is opened in the desktop browser, or
only printed with --no-open.  The exit code is non-zero unless the record
was delivered.`,
	RunE: runSubmit,
}

func init() {
	submitCmd.Flags().StringVarP(&submitFile, "file", "f", "", "YAML record (required, - for stdin)")
	submitCmd.Flags().StringVar(&submitMode, "mode", string(delivery.ModeRemote), "Delivery mode: remote or messaging")
	submitCmd.Flags().BoolVar(&submitNoOpen, "no-open", false, "Messaging mode: print the link instead of opening it")
	_ = submitCmd.MarkFlagRequired("file")
}

// recordFile is the YAML shape of one record.
type recordFile struct {
	Nome              string   `yaml:"nome"`
	WhatsApp          string   `yaml:"whatsapp"`
	CPF               string   `yaml:"cpf"`
	ProvedorAtual     string   `yaml:"provedor_atual"`
	Satisfacao        string   `yaml:"satisfacao"`
	Bairro            string   `yaml:"bairro"`
	Velocidade        string   `yaml:"velocidade"`
	ValorMensal       string   `yaml:"valor_mensal"`
	UsoInternet       []string `yaml:"uso_internet"`
	InteresseProposta string   `yaml:"interesse_proposta"`
	Responsavel       string   `yaml:"responsavel"`
}

// Record maps the file onto a survey record through the same setters the
// form uses.
func (f recordFile) Record() survey.Record {
	rec := survey.NewRecord("")
	for k, v := range map[survey.Key]string{
		survey.KeyFullName:     f.Nome,
		survey.KeyPhone:        f.WhatsApp,
		survey.KeyNationalID:   f.CPF,
		survey.KeyProvider:     f.ProvedorAtual,
		survey.KeySatisfaction: f.Satisfacao,
		survey.KeyNeighborhood: f.Bairro,
		survey.KeyPlanSpeed:    f.Velocidade,
		survey.KeyMonthlyFee:   f.ValorMensal,
		survey.KeyInterest:     f.InteresseProposta,
		survey.KeyResponsible:  f.Responsavel,
	} {
		rec.Set(k, v)
	}
	rec.SetUsage(f.UsoInternet)
	return rec
}

func readRecord(path string, stdin io.Reader) (survey.Record, error) {
	var raw []byte
	var err error
	if path == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return survey.Record{}, err
	}
	var f recordFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return survey.Record{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return f.Record(), nil
}

func runSubmit(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()
	out := cmd.OutOrStdout()

	rec, err := readRecord(submitFile, cmd.InOrStdin())
	if err != nil {
		return err
	}

	strategy, err := buildStrategy(ctx, delivery.Mode(submitMode), out)
	if err != nil {
		return err
	}

	ctl := submission.New(strategy, "")
	ctl.Submit(ctx, rec)
	st := ctl.State()

	switch st.Phase {
	case submission.Success:
		if st.ReceiptID != "" {
			fmt.Fprintf(out, "enviado: %s\n", st.ReceiptID)
		} else {
			fmt.Fprintln(out, "enviado")
		}
		return nil
	case submission.ValidationFailed:
		for _, m := range st.Messages() {
			fmt.Fprintf(out, "  - %s\n", m)
		}
		return errors.New("record failed validation")
	default:
		return fmt.Errorf("%s: %s", st.Phase, st.Message)
	}
}

// buildStrategy returns the delivery strategy for mode.  The messaging
// opener either launches the browser or prints the link to out.
func buildStrategy(ctx context.Context, mode delivery.Mode, out io.Writer) (delivery.Strategy, error) {
	s := delivery.Settings{Mode: mode}

	switch mode {
	case delivery.ModeMessaging:
		m := &delivery.Messaging{Open: delivery.BrowserOpener{}}
		if submitNoOpen {
			m.Open = delivery.OpenerFunc(func(_ context.Context, link string) error {
				_, err := fmt.Fprintln(out, link)
				return err
			})
		}
		if cfg, err := loadConfig(ctx); err == nil {
			m.Host, m.Country, m.Recipient = cfg.Delivery.Host, cfg.Delivery.Country, cfg.Delivery.Recipient
			m.Message = payload.MessageOptions{System: cfg.Delivery.System, Location: cfg.Delivery.Location()}
		}
		s.Messaging = m
	default:
		cli, err := newClient(ctx)
		if err != nil {
			return nil, err
		}
		s.Client = cli
	}
	return delivery.New(s)
}
