// Package ui provides terminal UI utilities including colors, spinners, and prompts.
package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Color functions for styled output
var (
	Green  = color.New(color.FgGreen).SprintFunc()
	Yellow = color.New(color.FgYellow).SprintFunc()
	Red    = color.New(color.FgRed).SprintFunc()
	Blue   = color.New(color.FgBlue).SprintFunc()
	Cyan   = color.New(color.FgCyan).SprintFunc()
	Bold   = color.New(color.Bold).SprintFunc()
	Dim    = color.New(color.Faint).SprintFunc()
)

// SetNoColor disables colored output.
func SetNoColor(disabled bool) {
	color.NoColor = disabled
}

// Success prints a success message with a green checkmark.
func Success(msg string) {
	fmt.Printf("%s %s\n", Green("✓"), msg)
}

// Successf prints a formatted success message.
func Successf(format string, args ...interface{}) {
	Success(fmt.Sprintf(format, args...))
}

// Warning prints a warning message with a yellow warning symbol.
func Warning(msg string) {
	fmt.Printf("%s %s\n", Yellow("⚠"), msg)
}

// Warningf prints a formatted warning message.
func Warningf(format string, args ...interface{}) {
	Warning(fmt.Sprintf(format, args...))
}

// Error prints an error message with a red X.
func Error(msg string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", Red("✗"), msg)
}

// Errorf prints a formatted error message.
func Errorf(format string, args ...interface{}) {
	Error(fmt.Sprintf(format, args...))
}

// Info prints an info message with a blue arrow.
func Info(msg string) {
	fmt.Printf("%s %s\n", Blue("→"), msg)
}

// Infof prints a formatted info message.
func Infof(format string, args ...interface{}) {
	Info(fmt.Sprintf(format, args...))
}

// Header prints a styled header box.
func Header(title string) {
	fmt.Print(headerBox(title))
}

func headerBox(title string) string {
	width := 62
	padding := width - len(title) - 2 // two spaces before the title
	if padding < 0 {
		padding = 0
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(Cyan("╔"+strings.Repeat("═", width)+"╗") + "\n")
	b.WriteString(Cyan("║") + "  " + Bold(title) + strings.Repeat(" ", padding) + Cyan("║") + "\n")
	b.WriteString(Cyan("╚"+strings.Repeat("═", width)+"╝") + "\n\n")
	return b.String()
}

// KeyValue prints a formatted key-value pair.
func KeyValue(key, value string) {
	fmt.Printf("  %-18s %s\n", Dim(key+":"), value)
}

// NewLine prints a blank line.
func NewLine() {
	fmt.Println()
}

// PrintSession prints the identity and state of an organization's session.
func PrintSession(orgID, clientID, code, reason string) {
	KeyValue("Organization", Cyan(orgID))
	if clientID == "" {
		clientID = Dim("(none)")
	}
	KeyValue("Client ID", clientID)
	KeyValue("Status", CodeColor(code))
	if reason != "" {
		KeyValue("Reason", Yellow(reason))
	}
}

// CodeColor returns the session code colored by severity.
func CodeColor(code string) string {
	switch strings.ToLower(code) {
	case "ready":
		return Green(code)
	case "waiting_qr", "authenticated":
		return Cyan(code)
	case "connecting", "reconnecting":
		return Yellow(code)
	case "error", "auth_failure":
		return Red(code)
	default:
		return Dim(code)
	}
}
