// Package output renders a renewal proposal as an exportable report.
package output

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"html"
	"io"
	"strconv"
	"strings"

	"github.com/iwvelando/rent-renewal/internal/proposal"
	"github.com/iwvelando/rent-renewal/pkg/constants"
	"github.com/iwvelando/rent-renewal/pkg/format"
	"github.com/iwvelando/rent-renewal/pkg/validation"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// ReportTitle heads every rendered report.
const ReportTitle = "Relatório de Análise Comparativa"

// FileBaseName is the suggested download name, without extension.
const FileBaseName = "analise-renovacao"

const dateLayout = "02/01/2006 15:04"

var markdown = goldmark.New(goldmark.WithExtensions(extension.Table))

// Render writes p to w in the requested export format.
func Render(w io.Writer, exportFormat string, p *proposal.Proposal) error {
	if err := validation.ValidateExportFormat(exportFormat); err != nil {
		return err
	}

	switch exportFormat {
	case constants.ExportFormatHTML:
		page, err := HTML(p)
		if err != nil {
			return err
		}
		_, err = w.Write(page)
		return err
	case constants.ExportFormatCSV:
		return CSV(w, p)
	case constants.ExportFormatText:
		_, err := io.WriteString(w, Text(p))
		return err
	default:
		_, err := io.WriteString(w, Markdown(p))
		return err
	}
}

// ContentType returns the MIME type for an export format.
func ContentType(exportFormat string) string {
	switch exportFormat {
	case constants.ExportFormatHTML:
		return "text/html; charset=utf-8"
	case constants.ExportFormatCSV:
		return "text/csv; charset=utf-8"
	case constants.ExportFormatMarkdown:
		return "text/markdown; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

// FileName returns the suggested download name for an export format.
func FileName(exportFormat string) string {
	ext := map[string]string{
		constants.ExportFormatHTML:     "html",
		constants.ExportFormatCSV:      "csv",
		constants.ExportFormatMarkdown: "md",
		constants.ExportFormatText:     "txt",
	}[exportFormat]
	if ext == "" {
		ext = "txt"
	}
	return FileBaseName + "." + ext
}

// indexLabel names the applied index the way the form shows it.
func indexLabel(c proposal.ContractAnalysis) string {
	if c.IndexLabel != "" {
		return c.IndexLabel
	}
	return strings.ToUpper(c.IndexName)
}

func marketRange(p *proposal.Proposal) string {
	return fmt.Sprintf("%s a %s", format.Currency(p.Market.Min), format.Currency(p.Market.Max))
}

// marketPosition places the final value relative to the market band.
func marketPosition(p *proposal.Proposal) string {
	switch {
	case p.WithinMarket():
		return "dentro da faixa de mercado"
	case p.FinalValue > p.Market.Max:
		return "acima da faixa de mercado"
	default:
		return "abaixo da faixa de mercado"
	}
}

// escapeCell keeps free text from breaking a Markdown table row.
func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// Markdown renders the full report.
func Markdown(p *proposal.Proposal) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", ReportTitle)
	fmt.Fprintf(&b, "Proposta `%s` gerada em %s.\n\n", p.ID, p.GeneratedAt.Format(dateLayout))

	b.WriteString("## Valor Contratual Corrigido\n\n")
	b.WriteString("| Item | Valor |\n|---|---|\n")
	fmt.Fprintf(&b, "| Valor do Aluguel Atual | %s |\n", format.Currency(p.Contract.CurrentRent))
	fmt.Fprintf(&b, "| Índice Aplicado (%s) | %s |\n", escapeCell(indexLabel(p.Contract)), format.Percent(p.Contract.IndexPercent))
	fmt.Fprintf(&b, "| Valor Corrigido pelo Índice | %s |\n\n", format.Currency(p.Contract.AdjustedRent))

	b.WriteString("## Valor de Mercado Estimado\n\n")
	fmt.Fprintf(&b, "%s\n\n", marketRange(p))
	if p.Market.BaseValue > 0 {
		b.WriteString("| Item | Valor |\n|---|---|\n")
		fmt.Fprintf(&b, "| Preço base por m² | %s |\n", format.Currency(p.Market.BasePricePerArea))
		fmt.Fprintf(&b, "| Valor base | %s |\n", format.Currency(p.Market.BaseValue))
		fmt.Fprintf(&b, "| Valor médio da faixa | %s |\n", format.Currency(p.Market.Midpoint()))
		fmt.Fprintf(&b, "| Ajuste líquido | %s |\n", format.Percent(p.Market.NetAdjustment*constants.PercentageMultiplier))
		if p.Market.Neighborhood != "" {
			fmt.Fprintf(&b, "| Bairro | %s |\n", escapeCell(p.Market.Neighborhood))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Proposta Final\n\n")
	fmt.Fprintf(&b, "- Ajuste de Mercado Proposto: %s\n", format.Percent(p.MarketAdjustmentPercent))
	fmt.Fprintf(&b, "- **NOVO VALOR PROPOSTO: %s**\n", format.Currency(p.FinalValue))
	if p.Market.Max > 0 {
		fmt.Fprintf(&b, "- Situação: %s\n", marketPosition(p))
	}

	if p.Justification != "" {
		b.WriteString("\n### Justificativa\n\n")
		b.WriteString(p.Justification)
		b.WriteString("\n")
	}
	return b.String()
}

// HTML renders the Markdown report into a standalone page. Raw HTML in the
// justification is dropped by the renderer.
func HTML(p *proposal.Proposal) ([]byte, error) {
	var body bytes.Buffer
	if err := markdown.Convert([]byte(Markdown(p)), &body); err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}

	var page bytes.Buffer
	page.WriteString("<!DOCTYPE html>\n<html lang=\"pt-BR\">\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&page, "<title>%s</title>\n", html.EscapeString(ReportTitle))
	page.WriteString("</head>\n<body>\n")
	page.Write(body.Bytes())
	page.WriteString("</body>\n</html>\n")
	return page.Bytes(), nil
}

// CSV writes labeled field,value rows.
func CSV(w io.Writer, p *proposal.Proposal) error {
	writer := csv.NewWriter(w)
	rows := [][]string{
		{"field", "value"},
		{"id", p.ID},
		{"generatedAt", p.GeneratedAt.Format(dateLayout)},
		{"currentRent", format.NumericCurrency(p.Contract.CurrentRent)},
		{"index", indexLabel(p.Contract)},
		{"indexPercent", format.Percent(p.Contract.IndexPercent)},
		{"adjustedRent", format.NumericCurrency(p.Contract.AdjustedRent)},
		{"marketMin", format.NumericCurrency(p.Market.Min)},
		{"marketMax", format.NumericCurrency(p.Market.Max)},
		{"marketMidpoint", format.NumericCurrency(p.Market.Midpoint())},
		{"marketAdjustmentPercent", format.Percent(p.MarketAdjustmentPercent)},
		{"finalValue", format.NumericCurrency(p.FinalValue)},
		{"withinMarket", strconv.FormatBool(p.WithinMarket())},
		{"justification", p.Justification},
	}
	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return nil
}

// Text is the four-line summary.
func Text(p *proposal.Proposal) string {
	return strings.Join([]string{
		ReportTitle,
		"Valor Contratual Corrigido: " + format.Currency(p.Contract.AdjustedRent),
		"Valor de Mercado Estimado: " + marketRange(p),
		"Proposta Final: " + format.Currency(p.FinalValue),
	}, "\n") + "\n"
}
