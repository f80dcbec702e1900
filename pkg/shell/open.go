package shell

import (
	"context"
	"errors"
	"fmt"
	"runtime"
)

// ErrNoHelper is returned when no suitable system helper is installed.
var ErrNoHelper = errors.New("no suitable system helper found")

// openCommand returns the command that opens a file with the desktop's
// default application.
func openCommand(goos, path string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{path}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", path}
	default:
		return "xdg-open", []string{path}
	}
}

// OpenFile opens path with the default application.
func OpenFile(ctx context.Context, r Runner, path string) error {
	name, args := openCommand(runtime.GOOS, path)
	if _, err := r.LookPath(name); err != nil {
		return fmt.Errorf("%w: %s", ErrNoHelper, name)
	}
	res, err := r.Run(ctx, name, args...)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("%s exited with code %d: %s", name, res.ExitCode, res.Stderr)
	}
	return nil
}

// clipboardCommands lists clipboard writers in order of preference.
func clipboardCommands(goos string) [][]string {
	switch goos {
	case "darwin":
		return [][]string{{"pbcopy"}}
	case "windows":
		return [][]string{{"clip"}}
	default:
		return [][]string{
			{"wl-copy"},
			{"xclip", "-selection", "clipboard"},
			{"xsel", "--clipboard", "--input"},
		}
	}
}

// CopyToClipboard writes text to the system clipboard using the first
// available helper.
func CopyToClipboard(ctx context.Context, r Runner, text string) error {
	for _, c := range clipboardCommands(runtime.GOOS) {
		if _, err := r.LookPath(c[0]); err != nil {
			continue
		}
		res, err := r.RunWithInput(ctx, text, c[0], c[1:]...)
		if err != nil {
			return err
		}
		if res.ExitCode != 0 {
			return fmt.Errorf("%s exited with code %d: %s", c[0], res.ExitCode, res.Stderr)
		}
		return nil
	}
	return fmt.Errorf("%w: clipboard", ErrNoHelper)
}
