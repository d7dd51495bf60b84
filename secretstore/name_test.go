package secretstore

import "testing"

func TestVerifyName(t *testing.T) {
	valid := []string{"ab", "github", "my_store", "Store123", "a1"}
	for _, name := range valid {
		if !VerifyName(name) {
			t.Errorf("expected %q to be valid", name)
		}
	}

	invalid := []string{"", "a", "-leading", "trailing-", "with space", "!bad", "_leading", "my-store"}
	for _, name := range invalid {
		if VerifyName(name) {
			t.Errorf("expected %q to be invalid", name)
		}
	}
}
