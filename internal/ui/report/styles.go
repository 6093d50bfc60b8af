package report

import "github.com/charmbracelet/lipgloss"

var (
	colorIris  = lipgloss.Color("#5D3FD3")
	colorSlate = lipgloss.Color("#667085")
	colorWhite = lipgloss.Color("#FFFFFF")

	pendingStyle = lipgloss.NewStyle().
			Foreground(colorSlate)

	buildingStyle = lipgloss.NewStyle().
			Foreground(colorIris).
			Bold(true)

	builtStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	failedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	detailStyle = lipgloss.NewStyle().
			Foreground(colorSlate).
			Faint(true)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			Background(colorIris).
			Foreground(colorWhite)
)

// Icons.
const (
	iconBuilt    = "✓"
	iconFailed   = "✗"
	iconBuilding = "●"
	iconUnbuilt  = "○"
)
