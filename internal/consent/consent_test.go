package consent

import (
	"errors"
	"strings"
	"testing"
)

func TestCheckBlocksWithoutConfirmation(t *testing.T) {
	err := Gate{}.Check("pseudosession_1_abcd1234", false)
	if err == nil {
		t.Fatal("unconfirmed transfer admitted")
	}

	var cerr *Error
	if !errors.As(err, &cerr) {
		t.Fatalf("err type %T", err)
	}
	if len(cerr.Steps) == 0 || len(cerr.LegalBasis) == 0 {
		t.Error("consent error missing steps or legal basis")
	}
	for _, basis := range cerr.LegalBasis {
		if !strings.Contains(basis, "LOPDP") {
			t.Errorf("citation without legal reference: %q", basis)
		}
	}
}

func TestCheckBlocksConfirmationWithoutSession(t *testing.T) {
	err := Gate{}.Check("", true)
	if err == nil {
		t.Fatal("confirmation without session admitted")
	}
}

func TestCheckAdmitsConfirmedSession(t *testing.T) {
	if err := (Gate{}).Check("pseudosession_1_abcd1234", true); err != nil {
		t.Fatalf("confirmed transfer blocked: %v", err)
	}
}
