// Package terminalio reads secret factors from the terminal with echo
// disabled. Raw mode is scoped to the read and restored on every exit path;
// nothing else in the process touches terminal state.
package terminalio

import (
	"bytes"
	"fmt"
	"os"
	"runtime"

	"golang.org/x/term"
)

// ZeroBytes overwrites a byte slice with zeros.
func ZeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}

// ReadSecret returns the value of envVar if set, otherwise prompts on stderr
// and reads with echo disabled. The returned bytes are exactly what the user
// typed: no trimming, no normalization.
func ReadSecret(prompt, envVar string) ([]byte, error) {
	if envVar != "" {
		if v, ok := os.LookupEnv(envVar); ok && v != "" {
			return []byte(v), nil
		}
	}
	return readHidden(prompt, envVar)
}

// ReadSecretConfirmed prompts twice and requires both entries to match. The
// env override skips the confirmation.
func ReadSecretConfirmed(prompt, confirmPrompt, envVar string) ([]byte, error) {
	if envVar != "" {
		if v, ok := os.LookupEnv(envVar); ok && v != "" {
			return []byte(v), nil
		}
	}
	secret, err := readHidden(prompt, envVar)
	if err != nil {
		return nil, err
	}
	confirm, err := readHidden(confirmPrompt, envVar)
	if err != nil {
		ZeroBytes(secret)
		return nil, err
	}
	if !bytes.Equal(secret, confirm) {
		ZeroBytes(secret)
		ZeroBytes(confirm)
		return nil, fmt.Errorf("entries do not match")
	}
	ZeroBytes(confirm)
	return secret, nil
}

func readHidden(prompt, envVar string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		secret, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		return secret, err
	}

	// STDIN is piped; fall back to the controlling terminal so the piped
	// stream is not mistaken for the secret.
	tty, err := os.Open("/dev/tty")
	if err != nil {
		if envVar != "" {
			return nil, fmt.Errorf("stdin is not a terminal; set %s instead", envVar)
		}
		return nil, fmt.Errorf("stdin is not a terminal and /dev/tty is unavailable")
	}
	defer tty.Close()

	secret, err := term.ReadPassword(int(tty.Fd()))
	fmt.Fprintln(os.Stderr)
	return secret, err
}
