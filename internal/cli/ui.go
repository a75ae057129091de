package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/pipescope/pkg/lineage"
)

// Palette
var (
	colorCyan   = lipgloss.Color("36")
	colorGreen  = lipgloss.Color("35")
	colorYellow = lipgloss.Color("220")
	colorRed    = lipgloss.Color("167")
	colorBlue   = lipgloss.Color("75")
	colorWhite  = lipgloss.Color("255")
	colorGray   = lipgloss.Color("245")
	colorDim    = lipgloss.Color("240")
)

var (
	// StyleTitle renders node labels and screen titles.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	// StyleHighlight renders the active mode and section headings.
	StyleHighlight = lipgloss.NewStyle().Foreground(colorCyan)
	// StyleLink renders the server URL.
	StyleLink = lipgloss.NewStyle().Foreground(colorBlue).Underline(true)
	// StyleDim renders secondary text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)
	// StyleValue renders paths and node labels in listings.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)
	// StyleNumber renders counts.
	StyleNumber = lipgloss.NewStyle().Foreground(colorCyan)
	// StyleWarning renders warnings and omitted counts.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)
	styleCommand     = lipgloss.NewStyle().Foreground(colorBlue)
	styleCached      = lipgloss.NewStyle().Foreground(colorGreen)

	styleTableHeader = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	styleTableBorder = lipgloss.NewStyle().Foreground(colorDim)
)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
)

func printSuccess(format string, args ...any) {
	fmt.Println(styleIconSuccess.Render(iconSuccess) + " " + fmt.Sprintf(format, args...))
}

func printError(format string, args ...any) {
	fmt.Println(styleIconError.Render(iconError) + " " + fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...any) {
	fmt.Println(StyleWarning.Render(iconWarning) + " " + StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func printInfo(format string, args ...any) {
	fmt.Println(styleIconInfo.Render(iconInfo) + " " + fmt.Sprintf(format, args...))
}

// printDetail prints an indented secondary line.
func printDetail(format string, args ...any) {
	fmt.Println("  " + StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile prints the path of a written payload or layout.
func printFile(path string) {
	fmt.Println("  " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(path))
}

// printKeyValue prints a labeled value in a fixed-width key column.
func printKeyValue(key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(12)
	fmt.Println(keyStyle.Render(key) + " " + StyleValue.Render(value))
}

// printNextStep suggests the command to run next.
func printNextStep(description, cmd string) {
	fmt.Println(StyleDim.Render(description+":") + " " + styleCommand.Render(cmd))
}

func printNewline() {
	fmt.Println()
}

// pipelineCell is the pipeline column of node tables.
func pipelineCell(n lineage.Node) string {
	if n.DAG == "" {
		return "—"
	}
	return n.DAG
}

// viewStats summarizes a built payload or a composed view.
type viewStats struct {
	Mode       string
	Nodes      int
	Edges      int
	Containers int
	Omitted    int
	// Composed marks numbers taken from a layout; only those carry a cache
	// state.
	Composed bool
	Cached   bool
}

// statSegment is one " · " separated part of the stats line.
type statSegment struct {
	text  string
	style lipgloss.Style
}

func (s viewStats) segments() []statSegment {
	var segs []statSegment
	add := func(text string, style lipgloss.Style) {
		segs = append(segs, statSegment{text: text, style: style})
	}
	if s.Mode != "" {
		add(s.Mode+" view", StyleHighlight)
	}
	add(plural(s.Nodes, "node"), StyleDim)
	add(plural(s.Edges, "edge"), StyleDim)
	if s.Containers > 0 {
		add(plural(s.Containers, "container"), StyleDim)
	}
	if s.Omitted > 0 {
		add(fmt.Sprintf("%d omitted", s.Omitted), StyleWarning)
	}
	if s.Composed {
		if s.Cached {
			add("cached", styleCached)
		} else {
			add("fresh", StyleDim)
		}
	}
	return segs
}

// String is the unstyled stats line.
func (s viewStats) String() string {
	segs := s.segments()
	texts := make([]string, len(segs))
	for i, seg := range segs {
		texts[i] = seg.text
	}
	return strings.Join(texts, " · ")
}

// printStats prints s on a single indented line.
func printStats(s viewStats) {
	segs := s.segments()
	rendered := make([]string, len(segs))
	for i, seg := range segs {
		rendered[i] = seg.style.Render(seg.text)
	}
	fmt.Println("  " + strings.Join(rendered, StyleDim.Render(" · ")))
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
