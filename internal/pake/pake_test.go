package pake

import (
	"bytes"
	"math/big"
	"testing"
)

var bigOne = big.NewInt(1)

func TestRoundTripDerivesEqualKeys(t *testing.T) {
	weakKey := []byte("correct horse battery staple")

	sender, err := New(Sender, weakKey)
	if err != nil {
		t.Fatalf("New(Sender) error = %v", err)
	}
	receiver, err := New(Receiver, weakKey)
	if err != nil {
		t.Fatalf("New(Receiver) error = %v", err)
	}

	if err := receiver.Update(sender.Public()); err != nil {
		t.Fatalf("receiver.Update error = %v", err)
	}
	if err := sender.Update(receiver.Public()); err != nil {
		t.Fatalf("sender.Update error = %v", err)
	}

	senderKey, err := sender.SessionKey()
	if err != nil {
		t.Fatalf("sender.SessionKey error = %v", err)
	}
	receiverKey, err := receiver.SessionKey()
	if err != nil {
		t.Fatalf("receiver.SessionKey error = %v", err)
	}

	if !bytes.Equal(senderKey, receiverKey) {
		t.Fatalf("sender key %x != receiver key %x", senderKey, receiverKey)
	}
	if len(senderKey) != 32 {
		t.Fatalf("derived key length = %d, want 32", len(senderKey))
	}
}

func TestMismatchedSecretsDeriveDifferentKeys(t *testing.T) {
	sender, _ := New(Sender, []byte("secretA"))
	receiver, _ := New(Receiver, []byte("secretB"))

	// Both sides complete the exchange without error (a passive PAKE run
	// can't detect a mismatch on its own) but must derive different keys.
	if err := receiver.Update(sender.Public()); err != nil {
		t.Fatalf("receiver.Update error = %v", err)
	}
	if err := sender.Update(receiver.Public()); err != nil {
		t.Fatalf("sender.Update error = %v", err)
	}

	senderKey, _ := sender.SessionKey()
	receiverKey, _ := receiver.SessionKey()
	if bytes.Equal(senderKey, receiverKey) {
		t.Fatal("expected different keys for mismatched secrets")
	}
}

func TestSameRoleRejected(t *testing.T) {
	a, _ := New(Sender, []byte("pw"))
	b, _ := New(Sender, []byte("pw"))

	if err := a.Update(b.Public()); err != ErrSameRole {
		t.Fatalf("Update with same role = %v, want ErrSameRole", err)
	}
}

func TestSessionKeyBeforeUpdateFails(t *testing.T) {
	a, _ := New(Receiver, []byte("pw"))
	if _, err := a.SessionKey(); err != ErrInvalidAlpha {
		t.Fatalf("SessionKey before Update = %v, want ErrInvalidAlpha", err)
	}
}

func TestInvalidPartialPointRejected(t *testing.T) {
	sender, _ := New(Sender, []byte("pw"))
	receiver, _ := New(Receiver, []byte("pw"))

	if err := receiver.Update(sender.Public()); err != nil {
		t.Fatalf("receiver.Update error = %v", err)
	}
	peerPub := receiver.Public()
	peerPub.Yv = nil // corrupt: only one coordinate present

	if err := sender.Update(peerPub); err != ErrInvalidPoint {
		t.Fatalf("Update with partial point = %v, want ErrInvalidPoint", err)
	}
}

func TestOffCurvePointRejected(t *testing.T) {
	sender, _ := New(Sender, []byte("pw"))
	receiver, _ := New(Receiver, []byte("pw"))

	if err := receiver.Update(sender.Public()); err != nil {
		t.Fatalf("receiver.Update error = %v", err)
	}
	peerPub := receiver.Public()
	peerPub.Yu.Add(peerPub.Yu, bigOne)

	if err := sender.Update(peerPub); err != ErrPointNotOnCurve {
		t.Fatalf("Update with off-curve point = %v, want ErrPointNotOnCurve", err)
	}
}

func TestPublicRoleMatchesConstructor(t *testing.T) {
	sender, _ := New(Sender, []byte("pw"))
	if sender.Public().Role != Sender {
		t.Errorf("Public().Role = %v, want Sender", sender.Public().Role)
	}
	if sender.Public().Xu == nil {
		t.Error("sender should have X populated immediately")
	}
	if sender.Public().Yu != nil {
		t.Error("sender should not have Y populated")
	}
}
