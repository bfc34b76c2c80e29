package color

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

const themeEnv = "DEVSTACK_THEME"

// For mocking in tests
var lookupEnv = os.LookupEnv

// Initialize sets whether adaptive colors render for a dark background.
func Initialize(isDarkMode bool) {
	lipgloss.SetHasDarkBackground(isDarkMode)
}

// Setup applies NO_COLOR and DEVSTACK_THEME. Without either, lipgloss keeps
// its own terminal detection.
func Setup() {
	if _, ok := lookupEnv("NO_COLOR"); ok {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	theme, ok := lookupEnv(themeEnv)
	if !ok {
		return
	}
	switch strings.ToLower(strings.TrimSpace(theme)) {
	case "dark":
		Initialize(true)
	case "light":
		Initialize(false)
	}
}
