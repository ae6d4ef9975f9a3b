// internal/export/export.go
//
// Dashboard spreadsheet export.
//
// Context
//   Operators download every survey matching the active dashboard filters
//   as one spreadsheet.  The column set and labels are what the field team
//   already imports into their sheets, so they are fixed here.
//
// Notes
//   •  One .xlsx workbook with a single named sheet and fixed column widths
//      (excelize).
//   •  Blank CPF and speed print "Não informado".
//
//------------------------------------------------------------------------------

package export

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/yanizio/pesquisa/internal/api"
)

// SheetName names the only sheet of the workbook.
const SheetName = "Pesquisas de Mercado"

// ContentType is the MIME type of the workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Header is the fixed column set.
var Header = []string{
	"ID",
	"Nome",
	"WhatsApp",
	"CPF",
	"Provedor Atual",
	"Velocidade",
	"Valor Mensal",
	"Bairro",
	"Satisfação",
	"Uso da Internet",
	"Interesse na Proposta",
	"Responsável",
	"Data de Criação",
}

// widths holds one column width (in characters) per Header entry.
var widths = []float64{5, 25, 15, 15, 20, 15, 15, 20, 20, 25, 20, 20, 20}

const (
	notInformed = "Não informado"
	dateLayout  = "02/01/2006 15:04"
	pageSize    = 100
	maxPages    = 1000
)

// Filename returns the download name for an export made at now.
func Filename(now time.Time) string {
	return "pesquisas_mercado_" + now.Format("2006-01-02") + ".xlsx"
}

// Lister is the slice of api.Client the export needs.
type Lister interface {
	ListPesquisas(ctx context.Context, q api.ListQuery) (api.Page, error)
}

// Collect pages through every survey matching q.  q.Page and q.Limit are
// overridden.
func Collect(ctx context.Context, l Lister, q api.ListQuery) ([]api.Pesquisa, error) {
	var all []api.Pesquisa
	q.Limit = pageSize
	for q.Page = 1; q.Page <= maxPages; q.Page++ {
		page, err := l.ListPesquisas(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("export page %d: %w", q.Page, err)
		}
		all = append(all, page.Items...)
		if len(page.Items) == 0 || q.Page >= page.Pagination.TotalPages {
			break
		}
	}
	return all, nil
}

// Write renders items as an xlsx workbook.  Timestamps are shown in loc
// (time.Local when nil).
func Write(w io.Writer, items []api.Pesquisa, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return err
	}
	for i, wd := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(SheetName, col, col, wd); err != nil {
			return err
		}
	}

	if err := f.SetSheetRow(SheetName, "A1", &Header); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(SheetName, 1, 1, bold); err != nil {
		return err
	}

	for i, p := range items {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		r := row(p, loc)
		if err := f.SetSheetRow(SheetName, cell, &r); err != nil {
			return fmt.Errorf("export row %d: %w", i+1, err)
		}
	}

	return f.Write(w)
}

func row(p api.Pesquisa, loc *time.Location) []string {
	id := p.Key()
	if id == "" {
		id = "N/A"
	}
	created := ""
	if !p.CreatedAt.IsZero() {
		created = p.CreatedAt.In(loc).Format(dateLayout)
	}
	return []string{
		id,
		p.Nome,
		p.WhatsApp,
		orNotInformed(p.CPF),
		p.ProvedorAtual,
		orNotInformed(p.Velocidade),
		p.ValorMensal,
		p.Bairro,
		p.Satisfacao,
		p.UsoInternet,
		p.InteresseProposta,
		p.Responsavel,
		created,
	}
}

func orNotInformed(s string) string {
	if s == "" {
		return notInformed
	}
	return s
}
