package ui

import (
	"os"
	"time"

	"github.com/briandowns/spinner"
)

// Spinner wraps the briandowns/spinner package for consistent styling. It
// draws on stderr so command output on stdout stays pipeable.
type Spinner struct {
	s *spinner.Spinner
}

// NewSpinner creates a new spinner with the given message.
func NewSpinner(msg string) *Spinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + msg
	_ = s.Color("cyan")
	return &Spinner{s: s}
}

// Start starts the spinner.
func (sp *Spinner) Start() {
	sp.s.Start()
}

// Stop stops the spinner.
func (sp *Spinner) Stop() {
	sp.s.Stop()
}

// WithSpinner runs a function while showing a spinner.
func WithSpinner(msg string, fn func() error) error {
	sp := NewSpinner(msg)
	sp.Start()
	defer sp.Stop()
	return fn()
}
