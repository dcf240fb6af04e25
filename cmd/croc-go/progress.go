package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

var (
	bannerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	codeStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	barFillStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	barVoidStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// printCodeBanner prints the code a receiver must type, styled so it stands
// out among the rest of the sender's output.
func printCodeBanner(code string) {
	fmt.Println(bannerStyle.Render("Share this code with the receiving side:"))
	fmt.Println(codeStyle.Render("  " + code))
}

// progressLine renders a one-line, in-place progress bar for a progress
// callback. The returned string starts with a carriage return and has no
// newline, so printing it overwrites the previous line.
func progressLine(done, total int64) string {
	const width = 30

	var frac float64
	if total > 0 {
		frac = float64(done) / float64(total)
	}
	if frac > 1 {
		frac = 1
	}
	filled := int(frac * width)

	bar := barFillStyle.Render(strings.Repeat("=", filled)) +
		barVoidStyle.Render(strings.Repeat(" ", width-filled))

	sizeLabel := humanize.Bytes(uint64(done))
	if total > 0 {
		sizeLabel = fmt.Sprintf("%s/%s", humanize.Bytes(uint64(done)), humanize.Bytes(uint64(total)))
	}

	return fmt.Sprintf("\r[%s] %3.0f%% %s", bar, frac*100, sizeLabel)
}
