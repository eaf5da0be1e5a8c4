package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/tanq16/downloader/internal/utils"
)

// ProgressBar renders a fixed-width bar followed by the integer percentage.
// An unknown total renders an empty bar at 0%.
func ProgressBar(current, total int64, width int) string {
	if width <= 0 {
		width = 30
	}
	percent := utils.Percentage(current, total)
	filled := max(0, min(percent*width/100, width))
	bar := StyleSymbols["bullet"]
	bar += strings.Repeat(StyleSymbols["hline"], filled)
	bar += strings.Repeat(" ", width-filled)
	bar += StyleSymbols["bullet"]
	return fmt.Sprintf("%s %d%%", bar, percent)
}

// ProgressText is the byte-count part of a progress line. Raw counts stand
// in when the total is unknown.
func ProgressText(current, total int64, elapsed time.Duration) string {
	speed := utils.FormatSpeed(current, elapsed.Seconds())
	if total > 0 {
		return fmt.Sprintf("%s / %s %s %s", utils.FormatBytes(uint64(max(current, 0))), utils.FormatBytes(uint64(total)), StyleSymbols["bullet"], speed)
	}
	return fmt.Sprintf("%s (%d bytes, total unknown) %s %s", utils.FormatBytes(uint64(max(current, 0))), current, StyleSymbols["bullet"], speed)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func getTerminalSize(w io.Writer) (int, int) {
	if f, ok := w.(*os.File); ok {
		if width, height, err := term.GetSize(int(f.Fd())); err == nil && width > 0 && height > 0 {
			return width, height
		}
	}
	return 80, 24
}

func truncate(text string, width int) string {
	if width <= 10 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= width {
		return text
	}
	return string(runes[:width-1]) + "…"
}
