package registry

import (
	"bytes"
	"math/big"
	"testing"
)

func addr(fill byte) [20]byte {
	var a [20]byte
	copy(a[:], bytes.Repeat([]byte{fill}, 20))
	return a
}

func TestFungibleTransfer(t *testing.T) {
	book := NewBook()
	reg := addr(0xA1)
	alice := addr(0x01)
	bob := addr(0x02)
	book.MintFungible(reg, alice, big.NewInt(100))

	if err := book.TransferFungible(reg, alice, bob, big.NewInt(40)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if got := book.FungibleBalance(reg, alice); got.Cmp(big.NewInt(60)) != 0 {
		t.Fatalf("alice balance %s", got)
	}
	if got := book.FungibleBalance(reg, bob); got.Cmp(big.NewInt(40)) != 0 {
		t.Fatalf("bob balance %s", got)
	}
	if err := book.TransferFungible(reg, alice, bob, big.NewInt(100)); err == nil {
		t.Fatalf("expected insufficient balance")
	}
	if err := book.TransferFungible(reg, alice, bob, big.NewInt(0)); err == nil {
		t.Fatalf("expected rejection of zero amount")
	}
}

func TestSemiFungibleTransfer(t *testing.T) {
	book := NewBook()
	reg := addr(0xA2)
	alice := addr(0x01)
	bob := addr(0x02)
	token := big.NewInt(7)
	book.MintSemiFungible(reg, token, alice, big.NewInt(10))

	if err := book.TransferSemiFungible(reg, alice, bob, token, big.NewInt(4)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if got := book.SemiFungibleBalance(reg, token, bob); got.Cmp(big.NewInt(4)) != 0 {
		t.Fatalf("bob balance %s", got)
	}
	if err := book.TransferSemiFungible(reg, alice, bob, big.NewInt(8), big.NewInt(1)); err == nil {
		t.Fatalf("expected failure for unknown token")
	}
}

func TestUniqueTransfer(t *testing.T) {
	book := NewBook()
	reg := addr(0xA3)
	alice := addr(0x01)
	bob := addr(0x02)
	token := big.NewInt(3)
	if err := book.MintUnique(reg, token, alice); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := book.MintUnique(reg, token, bob); err == nil {
		t.Fatalf("expected duplicate mint rejection")
	}

	if err := book.TransferNonFungible(reg, bob, alice, token); err == nil {
		t.Fatalf("expected non-owner transfer rejection")
	}
	if err := book.TransferNonFungible(reg, alice, bob, token); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	owner, ok := book.UniqueOwner(reg, token)
	if !ok || owner != bob {
		t.Fatalf("unexpected owner %x", owner[:2])
	}
}
