package ui

import (
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

const (
	envNoInteraction = "NO_INTERACTION"
	envCI            = "CI"
	envTerm          = "TERM"
)

var interactionState struct {
	mu          sync.RWMutex
	initialized bool
	interactive bool
}

// ConfigureInteraction picks the lipgloss color profile once, up
// front, so every later render call in the process agrees on it.
func ConfigureInteraction() {
	interactive := detectInteractiveMode()

	interactionState.mu.Lock()
	interactionState.initialized = true
	interactionState.interactive = interactive
	interactionState.mu.Unlock()

	if interactive {
		lipgloss.SetColorProfile(termenv.ColorProfile())
		return
	}
	lipgloss.SetColorProfile(termenv.Ascii)
}

// IsInteractive reports whether stderr is a real terminal the
// debugger's step rendering should colorize.
func IsInteractive() bool {
	interactionState.mu.RLock()
	if interactionState.initialized {
		interactive := interactionState.interactive
		interactionState.mu.RUnlock()
		return interactive
	}
	interactionState.mu.RUnlock()

	ConfigureInteraction()

	interactionState.mu.RLock()
	defer interactionState.mu.RUnlock()
	return interactionState.interactive
}

func detectInteractiveMode() bool {
	if envTruthy(envNoInteraction) || envTruthy(envCI) {
		return false
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv(envTerm)), "dumb") {
		return false
	}
	return stderrIsTerminal()
}

func stderrIsTerminal() bool {
	info, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

func envTruthy(key string) bool {
	switch strings.TrimSpace(strings.ToLower(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
