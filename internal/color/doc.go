// Package color configures terminal colors for devstack output.
//
// Initialize fixes the background mode that lipgloss adaptive colors resolve
// against. Setup derives the mode and color profile from the environment:
//   - NO_COLOR disables all color output
//   - DEVSTACK_THEME=light or DEVSTACK_THEME=dark forces a theme
//
// Setup is called once by the root command before any output is rendered.
package color
