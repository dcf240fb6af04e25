package confirm

import "testing"

func TestAutoConfirmerTrue(t *testing.T) {
	var c Confirmer = AutoConfirmer(true)
	if !c.Confirm(3, 4096) {
		t.Error("AutoConfirmer(true).Confirm() = false, want true")
	}
}

func TestAutoConfirmerFalse(t *testing.T) {
	var c Confirmer = AutoConfirmer(false)
	if c.Confirm(3, 4096) {
		t.Error("AutoConfirmer(false).Confirm() = true, want false")
	}
}
