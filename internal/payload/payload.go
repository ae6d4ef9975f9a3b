// internal/payload/payload.go
//
// Pesquisa – delivery payload shapes.
//
// Context
//   A validated record leaves the service in one of two shapes:
//
//   •  RemotePayload – the JSON body of POST /pesquisas.  Field names follow
//      the backend's snake_case contract, phone and CPF travel as canonical
//      digits, and a blank CPF is omitted entirely.
//   •  Message text  – a fixed, human-read template handed to the messaging
//      app.  Line order and labels are part of the contract with the people
//      reading the chat, so change them deliberately.
//
//   Both functions are pure.  The message timestamp is taken from the caller.
//
//------------------------------------------------------------------------------

package payload

import (
	"strings"
	"time"

	"github.com/yanizio/pesquisa/internal/survey"
)

// RemotePayload is the backend wire shape of one submission.
type RemotePayload struct {
	Nome              string `json:"nome"`
	WhatsApp          string `json:"whatsapp"`
	CPF               string `json:"cpf,omitempty"`
	ProvedorAtual     string `json:"provedor_atual"`
	Satisfacao        string `json:"satisfacao"`
	Bairro            string `json:"bairro"`
	Velocidade        string `json:"velocidade"`
	ValorMensal       string `json:"valor_mensal"`
	UsoInternet       string `json:"uso_internet"`
	InteresseProposta string `json:"interesse_proposta"`
	Responsavel       string `json:"responsavel"`
}

// ToRemote maps r onto the backend contract.
func ToRemote(r survey.Record) RemotePayload {
	return RemotePayload{
		Nome:              strings.TrimSpace(r.FullName),
		WhatsApp:          r.PhoneDigits(),
		CPF:               r.NationalIDDigits(),
		ProvedorAtual:     strings.TrimSpace(r.CurrentProvider),
		Satisfacao:        string(r.Satisfaction),
		Bairro:            strings.TrimSpace(r.Neighborhood),
		Velocidade:        strings.TrimSpace(r.PlanSpeed),
		ValorMensal:       strings.TrimSpace(r.MonthlyFee),
		UsoInternet:       r.UsageLabels(),
		InteresseProposta: string(r.Interest),
		Responsavel:       strings.TrimSpace(r.Responsible),
	}
}

/*──────────────────────────── message shape ────────────────────────────────*/

// DefaultSystem names the originating system in the message footer.
const DefaultSystem = "Pesquisa de Mercado"

const notInformed = "Não informado"

// MessageOptions tunes ToMessage.  Zero values fall back to DefaultSystem and
// time.Local.
type MessageOptions struct {
	System   string
	Location *time.Location
}

// ToMessage renders the chat text for r, stamped with now.
func ToMessage(r survey.Record, now time.Time, opts MessageOptions) string {
	system := opts.System
	if system == "" {
		system = DefaultSystem
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	now = now.In(loc)

	var b strings.Builder
	b.WriteString("🆕 NOVA PESQUISA DE MERCADO\n\n")
	line(&b, "👤 Nome", r.FullName)
	line(&b, "📱 WhatsApp", r.Phone)
	line(&b, "📄 CPF", orNotInformed(r.NationalID))
	line(&b, "🌐 Provedor Atual", r.CurrentProvider)
	line(&b, "😊 Satisfação", string(r.Satisfaction))
	line(&b, "📍 Bairro", r.Neighborhood)
	line(&b, "⚡ Velocidade", orNotInformed(r.PlanSpeed))
	line(&b, "💰 Valor Mensal", r.MonthlyFee)
	line(&b, "💻 Uso da Internet", r.UsageLabels())
	line(&b, "🎯 Interesse em Proposta", string(r.Interest))
	line(&b, "👨‍💼 Responsável", r.Responsible)
	b.WriteString("\n━━━━━━━━━━━━━━━━━━━━\n")
	b.WriteString("📊 Dados coletados em: " + now.Format("02/01/2006, 15:04:05") + "\n")
	b.WriteString("🏢 Sistema: " + system)

	return b.String()
}

func line(b *strings.Builder, label, value string) {
	b.WriteString(label)
	b.WriteString(": ")
	b.WriteString(strings.TrimSpace(value))
	b.WriteByte('\n')
}

func orNotInformed(s string) string {
	if strings.TrimSpace(s) == "" {
		return notInformed
	}
	return s
}
