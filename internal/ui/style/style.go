// Package style provides shared styling primitives: brand colors and icons
// for consistent presentation across the CLI.
package style

import "github.com/charmbracelet/lipgloss"

// Brand Colors.
var (
	Moss  = lipgloss.Color("#22A06B")
	Slate = lipgloss.Color("#667085")
	Ink   = lipgloss.Color("#101828")
	Red   = lipgloss.Color("#D92D20")
	Amber = lipgloss.Color("#F79009")
)

// Icons.
const (
	Check   = "✓"
	Cross   = "✗"
	Warning = "!"
	Dot     = "●"
)
