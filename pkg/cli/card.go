package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines the colors used by Card.
type Theme struct {
	Primary lipgloss.Color
	Dim     lipgloss.Color
}

// DefaultTheme is bright green on the terminal default.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	Dim:     lipgloss.Color("#6e7681"),
}

// Styles holds the styles derived from a theme.
type Styles struct {
	Title  lipgloss.Style
	Label  lipgloss.Style
	Border lipgloss.Style
	Help   lipgloss.Style
}

// NewStyles derives styles from a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Title:  lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Label:  lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Border: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(t.Primary).Padding(0, 1),
		Help:   lipgloss.NewStyle().Foreground(t.Dim),
	}
}

// Field is one "key: value" line of a card.
type Field struct {
	Key   string
	Value string
}

// Section is a labeled block of fields or bullet items.
type Section struct {
	Label  string
	Fields []Field
	Items  []string
}

// Card is a bordered summary rendered for humans.
type Card struct {
	Styles   Styles
	Title    string
	Status   string
	Sections []Section
	Footer   string
}

// Render renders the card. Width 0 sizes the card to its content.
func (c Card) Render(width int) string {
	var lines []string
	head := c.Styles.Title.Render(c.Title)
	if c.Status != "" {
		head += " " + c.Styles.Help.Render("["+c.Status+"]")
	}
	lines = append(lines, head)

	for _, sec := range c.Sections {
		lines = append(lines, "")
		if sec.Label != "" {
			lines = append(lines, c.Styles.Label.Render(sec.Label))
		}
		keyWidth := 0
		for _, f := range sec.Fields {
			keyWidth = max(keyWidth, lipgloss.Width(f.Key))
		}
		for _, f := range sec.Fields {
			pad := strings.Repeat(" ", keyWidth-lipgloss.Width(f.Key))
			lines = append(lines, c.Styles.Help.Render(f.Key+":")+pad+" "+f.Value)
		}
		for _, it := range sec.Items {
			lines = append(lines, "• "+it)
		}
	}

	border := c.Styles.Border
	if width > 0 {
		border = border.Width(width - 2)
	}
	out := border.Render(strings.Join(lines, "\n"))
	if c.Footer != "" {
		out += "\n" + c.Styles.Help.Render(c.Footer)
	}
	return out
}
