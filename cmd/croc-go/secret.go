package main

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// wordlist supplies the human-typeable portion of a generated code; it is
// deliberately small — this is a CLI convenience, not a security boundary,
// since the PAKE derives its strength from the full code plus curve math,
// not from wordlist size.
var wordlist = []string{
	"amber", "birch", "cedar", "delta", "ember", "frost", "glade", "heron",
	"ivory", "juniper", "kelp", "lumen", "maple", "nectar", "opal", "pebble",
	"quartz", "raven", "sable", "thistle", "umber", "violet", "willow", "zephyr",
}

// generateCode returns a code of the form "####-word-word": a 4-digit room
// prefix (the first 3 bytes become the relay room name per the wire
// protocol, see internal/transfer) followed by two random words so the
// whole thing stays easy to read aloud or retype.
func generateCode() (string, error) {
	digits, err := randomDigits(4)
	if err != nil {
		return "", err
	}
	w1, err := randomWord()
	if err != nil {
		return "", err
	}
	w2, err := randomWord()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s-%s", digits, w1, w2), nil
}

func randomDigits(n int) (string, error) {
	out := make([]byte, n)
	for i := range out {
		d, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		out[i] = byte('0') + byte(d.Int64())
	}
	return string(out), nil
}

func randomWord() (string, error) {
	idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(wordlist))))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return wordlist[idx.Int64()], nil
}
