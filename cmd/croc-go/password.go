package main

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// promptRelayPassword reads a relay password from the controlling terminal
// with input echo disabled, the same masked-entry idiom the teacher's hash
// and management-key commands use for secrets typed at the console.
func promptRelayPassword() (string, error) {
	fmt.Print("Relay password: ")
	pwBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read relay password: %w", err)
	}
	return string(pwBytes), nil
}
