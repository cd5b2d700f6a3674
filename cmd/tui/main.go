package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"terabox-extractor/internal/app"
	"terabox-extractor/internal/config"
	"terabox-extractor/internal/tui"
)

func main() {
	configManager := config.NewManager()
	cfg, err := configManager.Load(os.Getenv("TBX_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	defer configManager.Close()

	// Log lines would corrupt the alternate screen
	a, err := app.New(cfg, zerolog.Nop())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building resolver: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	// Initialize the TUI application
	model := tui.InitialModel(a.Resolver)

	// Create a new Bubble Tea program
	p := tea.NewProgram(model, tea.WithAltScreen())

	// Run the program
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}
}
