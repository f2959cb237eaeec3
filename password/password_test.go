package password

import (
	"strings"
	"testing"
)

func TestHashNeverEqualsPlaintext(t *testing.T) {
	h := NewHasher()
	hash, err := h.Hash("hunter22")
	if err != nil {
		t.Fatal(err)
	}
	if hash == "hunter22" || strings.Contains(hash, "hunter22") {
		t.Fatal("hash leaks the plaintext")
	}
	if !h.Verify("hunter22", hash) {
		t.Fatal("hash does not verify against its own plaintext")
	}
}

func TestVerifyMismatchIsFalseNotError(t *testing.T) {
	h := NewHasher()
	hash, err := h.Hash("correct-horse")
	if err != nil {
		t.Fatal(err)
	}
	if h.Verify("wrong-horse", hash) {
		t.Fatal("wrong password verified")
	}
	if h.Verify("correct-horse", "not-a-bcrypt-hash") {
		t.Fatal("garbage hash verified")
	}
}

func TestHashesAreSalted(t *testing.T) {
	h := NewHasher()
	first, err := h.Hash("same-password")
	if err != nil {
		t.Fatal(err)
	}
	second, err := h.Hash("same-password")
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Fatal("two hashes of the same password should differ")
	}
}
