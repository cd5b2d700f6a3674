package main

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"

	"terabox-extractor/internal/batch"
	"terabox-extractor/pkg/models"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#04B575"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF5F87"))
	labelStyle   = lipgloss.NewStyle().Bold(true).Width(10)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
)

func printResult(w io.Writer, link string, result *models.VideoResult) {
	if !result.Playable() {
		fmt.Fprintf(w, "%s %s\n", errorStyle.Render("❌ Failed:"), link)
		fmt.Fprintf(w, "   %s\n\n", result.Error)
		return
	}

	fmt.Fprintf(w, "%s %s\n", successStyle.Render("✅ Video Found:"), link)
	fmt.Fprintf(w, "   %s %s\n", labelStyle.Render("Title:"), result.Title)
	fmt.Fprintf(w, "   %s %s\n", labelStyle.Render("Size:"), result.SizeStr)
	fmt.Fprintf(w, "   %s %s\n", labelStyle.Render("Share ID:"), result.Surl)
	fmt.Fprintf(w, "   %s %s\n\n", labelStyle.Render("Stream:"), result.StreamURL)
}

func printSummary(w io.Writer, job *batch.BatchJob) {
	summary := fmt.Sprintf("Summary: %d resolved, %d failed", job.Progress.Completed, job.Progress.Failed)
	if job.Progress.Skipped > 0 {
		summary += fmt.Sprintf(", %d skipped", job.Progress.Skipped)
	}
	if job.CompletedAt != nil {
		summary += fmt.Sprintf(" in %s", job.CompletedAt.Sub(job.StartedAt).Round(time.Millisecond))
	}
	fmt.Fprintln(w, titleStyle.Render(summary))
}
