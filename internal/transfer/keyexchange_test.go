package transfer

import (
	"net"
	"testing"

	"github.com/postalsys/croc-go/internal/protocol"
)

func pipeFramers(t *testing.T) (*protocol.Framer, *protocol.Framer) {
	t.Helper()
	a, b := net.Pipe()
	t.Cleanup(func() {
		a.Close()
		b.Close()
	})
	return protocol.NewFramer(a), protocol.NewFramer(b)
}

func TestInnerKeyExchangeDerivesMatchingEnvelope(t *testing.T) {
	receiverFramer, senderFramer := pipeFramers(t)
	weakKey := []byte("shared-secret-suffix")

	results := make(chan *controlChannel, 2)
	errs := make(chan error, 2)

	go func() {
		cc, err := keyExchangeAsReceiver(receiverFramer, weakKey)
		errs <- err
		results <- cc
	}()
	go func() {
		cc, err := keyExchangeAsSender(senderFramer, weakKey)
		errs <- err
		results <- cc
	}()

	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("key exchange error: %v", err)
		}
	}
	ccA := <-results
	ccB := <-results

	plaintext := []byte("hello inner pake")
	ct, err := ccA.env.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt error = %v", err)
	}
	got, err := ccB.env.Decrypt(ct)
	if err != nil {
		t.Fatalf("Decrypt error = %v", err)
	}
	if string(got) != string(plaintext) {
		t.Errorf("Decrypt() = %q, want %q", got, plaintext)
	}
}

func TestKeyExchangeAsSenderRejectsBadCurve(t *testing.T) {
	receiverFramer, senderFramer := pipeFramers(t)

	go func() {
		raw, _ := protocol.Encode(protocol.PakeMessage{B: []byte(`{"Role":0}`), B2: []byte("not-siec")})
		receiverFramer.WriteFrame(raw)
	}()

	_, err := keyExchangeAsSender(senderFramer, []byte("weak"))
	if err == nil {
		t.Fatal("expected error for unsupported curve name")
	}
}
