package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Shimmer animation for the header logo.
type shimmerTickMsg time.Time

func shimmerTickCmd() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg {
		return shimmerTickMsg(t)
	})
}

// renderShimmerLogo renders "C U R S O S" as a wave of light moving across
// the letters, deep scout green to bright lime.
func renderShimmerLogo(frame int) string {
	const text = "CURSOS"
	n := len(text)
	t := float64(frame)

	var out strings.Builder
	for i := 0; i < n; i++ {
		x := float64(i) / float64(n-1)
		phase := t*0.1 - x*3.0 + math.Sin(t*0.023)*2.0

		b := math.Pow(math.Sin(phase)*0.5+0.5, 1.3)
		b = b*0.75 + math.Sin(t*0.035)*0.12 + 0.18
		b = math.Max(0.05, math.Min(1.0, b))

		// #1f3b1a -> #a3e635
		r := clampByte(31 + b*(163-31))
		g := clampByte(59 + b*(230-59))
		bl := clampByte(26 + b*(53-26))

		out.WriteString(lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(fmt.Sprintf("#%02X%02X%02X", r, g, bl))).
			Render(string(text[i])))
		if i < n-1 {
			out.WriteString("  ")
		}
	}
	return out.String()
}

func clampByte(v float64) int {
	if v > 255 {
		return 255
	}
	if v < 0 {
		return 0
	}
	return int(v)
}

var (
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8a9488"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#eef0e6")).
			Bold(true)

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#c6cabc"))

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#58604f"))

	// Help bar
	helpKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8a9488"))

	helpLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#58604f"))

	accentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#84cc16"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#4ade80"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e06060"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e8b23a"))

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#c9b06a")).
			Italic(true)

	// Pending (offline) record marker
	pendingDotStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e8b23a"))

	sectionHeaderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#687260"))

	inputPromptStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#84cc16")).
				Bold(true)

	inputPlaceholderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#3a4234"))

	selectedRowBg = lipgloss.NewStyle().Background(lipgloss.Color("#1f241b"))

	// Audit action colors
	actionColors = map[string]lipgloss.Color{
		"LOGIN_SUCCESS":   lipgloss.Color("#4ade80"),
		"LOGIN_FAILED":    lipgloss.Color("#f0944a"),
		"ACCOUNT_LOCKED":  lipgloss.Color("#d05050"),
		"LOGOUT":          lipgloss.Color("#60a0e0"),
		"SESSION_EXPIRED": lipgloss.Color("#c084e0"),
	}
)

// ActionStyle returns a bold style colored for an audit action.
func ActionStyle(action string) lipgloss.Style {
	if c, ok := actionColors[action]; ok {
		return lipgloss.NewStyle().Foreground(c).Bold(true)
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color("#687260")).Bold(true)
}

// helpEntry renders a single "key label" pair for help bars.
func helpEntry(key, label string) string {
	return helpKeyStyle.Render(key) + " " + helpLabelStyle.Render(label)
}

// helpItem is a selectable link in the help overlay.
type helpItem struct {
	label string
	desc  string
	url   string
}

func helpItemsFor(webURL string) []helpItem {
	return []helpItem{
		{"Web app", webURL, webURL},
		{"Pagos", webURL + "/pagos", webURL + "/pagos"},
		{"Personas", webURL + "/personas", webURL + "/personas"},
		{"Cursos", webURL + "/cursos", webURL + "/cursos"},
	}
}

// helpView renders the interactive help overlay with a cursor.
func helpView(items []helpItem, cursor int, version string) string {
	title := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#84cc16")).
		Bold(true).
		Render("C U R S O S")

	cmdStyle := lipgloss.NewStyle().Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("246"))
	sectionStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("246")).Bold(true)
	cursorStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#84cc16"))
	linkDescStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("246")).Italic(true)

	commands := []struct{ cmd, desc string }{
		{"cursos", "Open the terminal client"},
		{"cursos sync", "Replay offline records"},
		{"cursos pending", "Count offline records"},
		{"cursos web", "Open the web app"},
		{"cursos devserver", "Run the reference backend"},
		{"cursos version", "Show version"},
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n  %s  %s\n\n", title, metaStyle.Render(version))

	fmt.Fprintf(&b, "  %s\n", sectionStyle.Render("Commands"))
	for _, c := range commands {
		fmt.Fprintf(&b, "    %s  %s\n", cmdStyle.Render(fmt.Sprintf("%-20s", c.cmd)), descStyle.Render(c.desc))
	}

	fmt.Fprintf(&b, "\n  %s\n", sectionStyle.Render("Links (enter to open)"))
	for i, item := range items {
		label := cmdStyle.Render(fmt.Sprintf("%-20s", item.label))
		prefix := "    "
		if i == cursor {
			label = cursorStyle.Render(fmt.Sprintf("%-20s", item.label))
			prefix = "  > "
		}
		fmt.Fprintf(&b, "%s%s  %s\n", prefix, label, linkDescStyle.Render(item.desc))
	}
	return b.String()
}
