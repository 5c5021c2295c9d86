// Package output renders search results for terminal display.
package output

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/grantsight/grantsight/internal/search"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	scoreStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	metaStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	snippetStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("7")).PaddingLeft(2)
	headerStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
)

// RenderResponse formats a full search response for the terminal.
func RenderResponse(resp *search.Response) string {
	var sb strings.Builder

	sb.WriteString(headerStyle.Render(fmt.Sprintf("Results for %q", resp.Query)))
	sb.WriteString("\n")
	sb.WriteString(metaStyle.Render(fmt.Sprintf(
		"%d hybrid / %d lexical / %d semantic, alpha=%.2f beta=%.2f, %dms",
		resp.Metadata.TotalHybrid, resp.Metadata.TotalLexical, resp.Metadata.TotalSemantic,
		resp.Metadata.Alpha, resp.Metadata.Beta, resp.Metadata.TookMS)))
	sb.WriteString("\n\n")

	if len(resp.HybridResults) == 0 {
		sb.WriteString(metaStyle.Render("No results."))
		sb.WriteString("\n")
		return sb.String()
	}

	for i, g := range resp.HybridResults {
		sb.WriteString(renderGroup(i+1, g))
		sb.WriteString("\n")
	}
	return sb.String()
}

func renderGroup(rank int, g search.GroupedResult) string {
	var sb strings.Builder

	title := g.Award.Title
	if title == "" {
		title = g.AwardID
	}
	sb.WriteString(fmt.Sprintf("%2d. %s\n", rank, titleStyle.Render(title)))

	sb.WriteString("    ")
	sb.WriteString(scoreStyle.Render(fmt.Sprintf(
		"final=%.3f semantic=%.3f lexical=%.3f", g.FinalScore, g.SemanticScore, g.LexicalScore)))
	sb.WriteString("\n")

	var meta []string
	if g.Award.Agency != "" {
		meta = append(meta, g.Award.Agency)
	}
	if g.Award.Institution != "" {
		meta = append(meta, g.Award.Institution)
	}
	if g.Award.PIName != "" {
		meta = append(meta, g.Award.PIName)
	}
	meta = append(meta, fmt.Sprintf("award %s", g.AwardID))
	if len(g.Chunks) > 1 {
		meta = append(meta, fmt.Sprintf("%d chunks", len(g.Chunks)))
	}
	sb.WriteString("    ")
	sb.WriteString(metaStyle.Render(strings.Join(meta, " | ")))
	sb.WriteString("\n")

	if g.Snippet != "" {
		sb.WriteString(snippetStyle.Render(g.Snippet))
		sb.WriteString("\n")
	}
	return sb.String()
}
