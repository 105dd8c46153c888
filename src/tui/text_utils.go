package tui

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
)

// VisualWidth returns the display width of text, ignoring ANSI escape
// sequences and accounting for wide characters.
func VisualWidth(s string) int {
	return ansi.StringWidth(s)
}

// StripANSI removes terminal escape sequences from s.
func StripANSI(s string) string {
	return ansi.Strip(s)
}

// Truncate truncates text to maxLen columns with optional ellipsis.
// Escape sequences are removed first.
func Truncate(s string, maxLen int, ellipsis bool) string {
	s = strings.TrimSpace(StripANSI(s))
	if maxLen <= 0 {
		return ""
	}

	if runewidth.StringWidth(s) > maxLen {
		if ellipsis && maxLen > 3 {
			return runewidth.Truncate(s, maxLen-3, "") + "..."
		}
		return runewidth.Truncate(s, maxLen, "")
	}
	return s
}

// TruncateAndPad truncates text with optional ellipsis and pads to exact width.
// Used for table cells to maintain consistent column widths.
func TruncateAndPad(s string, width int, ellipsis bool) string {
	s = Truncate(s, width, ellipsis)
	if w := runewidth.StringWidth(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}
