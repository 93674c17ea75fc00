package commands

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// readSecret reads a secret from the terminal without echoing.
// Falls back to regular stdin reading if terminal is not available.
func readSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)

	fd := int(os.Stdin.Fd())
	secret, err := term.ReadPassword(fd)
	if err != nil {
		// Fallback: read from stdin (with echo — for piped input or non-TTY).
		var buf [1024]byte
		n, readErr := os.Stdin.Read(buf[:])
		if readErr != nil {
			return "", fmt.Errorf("reading secret: %w", readErr)
		}
		secret = buf[:n]
	}

	fmt.Fprintln(os.Stderr) // Move to next line after hidden input.

	return strings.TrimRight(string(secret), "\r\n"), nil
}

// isInteractive reports whether stdin is attached to a terminal, so
// one-shot commands driven by scripts or cron never hang on a prompt.
func isInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}
