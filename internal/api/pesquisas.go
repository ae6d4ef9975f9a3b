// internal/api/pesquisas.go
//
// Survey endpoints: create, list with filters, fetch one, statistics, and the
// duplicate pre-checks.

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/yanizio/pesquisa/internal/payload"
)

// Duplicate discriminators sent with HTTP 409.
const (
	CodeWhatsAppDuplicate = "WHATSAPP_DUPLICATE"
	CodeCPFDuplicate      = "CPF_DUPLICATE"
)

// ID accepts both numeric and string identifiers.
type ID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// Pesquisa is one stored survey as the backend returns it.
type Pesquisa struct {
	ID                ID        `json:"id"`
	MongoID           ID        `json:"_id"`
	Nome              string    `json:"nome"`
	WhatsApp          string    `json:"whatsapp"`
	CPF               string    `json:"cpf,omitempty"`
	ProvedorAtual     string    `json:"provedor_atual"`
	Satisfacao        string    `json:"satisfacao"`
	Bairro            string    `json:"bairro"`
	Velocidade        string    `json:"velocidade,omitempty"`
	ValorMensal       string    `json:"valor_mensal"`
	UsoInternet       string    `json:"uso_internet"`
	InteresseProposta string    `json:"interesse_proposta"`
	Responsavel       string    `json:"responsavel"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// Key returns whichever identifier the backend filled.
func (p Pesquisa) Key() string {
	if p.MongoID != "" {
		return string(p.MongoID)
	}
	return string(p.ID)
}

// CreatePesquisa stores one survey.  A 409 comes back as *StatusError with
// Code set to CodeWhatsAppDuplicate or CodeCPFDuplicate.
func (c *Client) CreatePesquisa(ctx context.Context, p payload.RemotePayload) (Pesquisa, error) {
	var env Envelope[Pesquisa]
	if err := c.do(ctx, http.MethodPost, "/pesquisas", nil, p, &env); err != nil {
		return Pesquisa{}, err
	}
	if err := rejected(http.StatusOK, env); err != nil {
		return Pesquisa{}, err
	}
	return env.Data, nil
}

// -----------------------------------------------------------------------------
// Listing
// -----------------------------------------------------------------------------

// Named filter shortcuts understood by the backend.
const (
	FilterSatisfied     = "satisfeitos"
	FilterDissatisfied  = "insatisfeitos"
	FilterInterested    = "interessados"
	FilterNotInterested = "nao_interessados"
)

// DefaultPageSize applies when ListQuery.Limit is unset.
const DefaultPageSize = 10

// ListQuery selects one page of surveys.  Blank fields are not sent.
type ListQuery struct {
	Page             int
	Limit            int
	Search           string
	Nome             string
	Bairro           string
	ProvedorAtual    string
	Satisfacao       string
	Interesse        string
	FiltroSatisfacao string // FilterSatisfied | FilterDissatisfied
	FiltroInteresse  string // FilterInterested | FilterNotInterested
}

// Values renders q as query parameters.
func (q ListQuery) Values() url.Values {
	page, limit := q.Page, q.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	v := url.Values{
		"page":  {strconv.Itoa(page)},
		"limit": {strconv.Itoa(limit)},
	}
	for k, s := range map[string]string{
		"search":            q.Search,
		"nome":              q.Nome,
		"bairro":            q.Bairro,
		"provedor_atual":    q.ProvedorAtual,
		"satisfacao":        q.Satisfacao,
		"interesse":         q.Interesse,
		"filtro_satisfacao": q.FiltroSatisfacao,
		"filtro_interesse":  q.FiltroInteresse,
	} {
		if s != "" {
			v.Set(k, s)
		}
	}
	return v
}

// Page is one list result.
type Page struct {
	Items      []Pesquisa
	Pagination Pagination
}

// ListPesquisas fetches one page.  The backend returns data either as a bare
// array or as {"pesquisas": [...]}; both are accepted.
func (c *Client) ListPesquisas(ctx context.Context, q ListQuery) (Page, error) {
	var env Envelope[json.RawMessage]
	if err := c.do(ctx, http.MethodGet, "/pesquisas", q.Values(), nil, &env); err != nil {
		return Page{}, err
	}
	if err := rejected(http.StatusOK, env); err != nil {
		return Page{}, err
	}

	var out Page
	if len(env.Data) > 0 && env.Data[0] == '[' {
		if err := json.Unmarshal(env.Data, &out.Items); err != nil {
			return Page{}, err
		}
	} else if len(env.Data) > 0 {
		var wrapped struct {
			Pesquisas []Pesquisa `json:"pesquisas"`
		}
		if err := json.Unmarshal(env.Data, &wrapped); err != nil {
			return Page{}, err
		}
		out.Items = wrapped.Pesquisas
	}
	if env.Pagination != nil {
		out.Pagination = *env.Pagination
	}
	return out, nil
}

// GetPesquisa fetches one survey by id.
func (c *Client) GetPesquisa(ctx context.Context, id string) (Pesquisa, error) {
	var env Envelope[Pesquisa]
	if err := c.do(ctx, http.MethodGet, "/pesquisas/"+url.PathEscape(id), nil, nil, &env); err != nil {
		return Pesquisa{}, err
	}
	if err := rejected(http.StatusOK, env); err != nil {
		return Pesquisa{}, err
	}
	return env.Data, nil
}

// -----------------------------------------------------------------------------
// Statistics and pre-checks
// -----------------------------------------------------------------------------

// Count pairs a label with an occurrence count.
type Count struct {
	Provedor   string `json:"provedor,omitempty"`
	Bairro     string `json:"bairro,omitempty"`
	Quantidade int    `json:"quantidade"`
}

// Stats is the dashboard summary.
type Stats struct {
	Total            int            `json:"total_pesquisas"`
	PorSatisfacao    map[string]int `json:"por_satisfacao"`
	PorInteresse     map[string]int `json:"por_interesse"`
	TopProvedores    []Count        `json:"provedores_mais_citados"`
	TopBairros       []Count        `json:"bairros_mais_pesquisados"`
	MediaValorMensal string         `json:"media_valor_mensal"`
}

// Stats fetches the dashboard summary.
func (c *Client) Stats(ctx context.Context) (Stats, error) {
	var env Envelope[Stats]
	if err := c.do(ctx, http.MethodGet, "/pesquisas/estatisticas", nil, nil, &env); err != nil {
		return Stats{}, err
	}
	return env.Data, rejected(http.StatusOK, env)
}

type existence struct {
	Exists bool `json:"jaExiste"`
}

// WhatsAppExists asks whether digits were already used in a survey.
func (c *Client) WhatsAppExists(ctx context.Context, digits string) (bool, error) {
	return c.exists(ctx, "/pesquisas/verificar-whatsapp/"+url.PathEscape(digits))
}

// CPFExists asks whether digits were already used in a survey.
func (c *Client) CPFExists(ctx context.Context, digits string) (bool, error) {
	return c.exists(ctx, "/pesquisas/verificar-cpf/"+url.PathEscape(digits))
}

func (c *Client) exists(ctx context.Context, p string) (bool, error) {
	var env Envelope[existence]
	if err := c.do(ctx, http.MethodGet, p, nil, nil, &env); err != nil {
		return false, err
	}
	return env.Data.Exists, rejected(http.StatusOK, env)
}

// Health pings the backend.
func (c *Client) Health(ctx context.Context) error {
	var env Envelope[json.RawMessage]
	if err := c.do(ctx, http.MethodGet, "/health", nil, nil, &env); err != nil {
		return err
	}
	return rejected(http.StatusOK, env)
}
