package delivery

import (
	"fmt"
	"strings"

	"github.com/kenyawebs/Tana-Delta/internal/models"
)

const (
	queryFooter    = "For more detailed information, please visit our website at www.sureintel.co.ke or reply with any follow-up questions."
	documentFooter = "For more detailed analysis, please visit our website at www.sureintel.co.ke or reply with any follow-up questions."
)

// RenderQuery lays out a completed query for WhatsApp. Empty reference and
// case-law lists leave their sections out.
func RenderQuery(q *models.Query) string {
	var b strings.Builder
	b.WriteString("*Legal Query Response*\n\n")
	fmt.Fprintf(&b, "*Your Question:*\n%s\n\n", q.QueryText)
	fmt.Fprintf(&b, "*Answer:*\n%s\n\n", q.Answer)

	if len(q.References) > 0 {
		b.WriteString("*References:*\n")
		for i, r := range q.References {
			fmt.Fprintf(&b, "%d. %s %s: %s\n", i+1, r.Title, r.Section, r.Text)
		}
		b.WriteString("\n")
	}
	writeCaseLaws(&b, q.CaseLaws)

	b.WriteString(queryFooter)
	return b.String()
}

func RenderDocument(d *models.Document) string {
	var b strings.Builder
	b.WriteString("*Document Analysis*\n\n")
	fmt.Fprintf(&b, "*Document:* %s\n\n", d.Title)
	fmt.Fprintf(&b, "*Analysis:*\n%s\n\n", d.Analysis)

	if len(d.Recommendations) > 0 {
		b.WriteString("*Recommendations:*\n")
		for i, r := range d.Recommendations {
			fmt.Fprintf(&b, "%d. %s\n", i+1, r)
		}
		b.WriteString("\n")
	}
	writeCaseLaws(&b, d.CaseLawReferences)

	b.WriteString(documentFooter)
	return b.String()
}

func writeCaseLaws(b *strings.Builder, cases []models.CaseLaw) {
	if len(cases) == 0 {
		return
	}
	b.WriteString("*Relevant Case Law:*\n")
	for i, c := range cases {
		fmt.Fprintf(b, "%d. %s (%s): %s\n", i+1, c.Title, c.Citation, c.Summary)
	}
	b.WriteString("\n")
}

// RenderFailure is sent instead of a result when processing failed. kind is
// "query" or "document".
func RenderFailure(kind string) string {
	return fmt.Sprintf("Sorry, we encountered an error while processing your %s. Please try again later or contact support.", kind)
}
