package market

import (
	"errors"
	"testing"
)

func TestAdminTransfer(t *testing.T) {
	first := newTestAddress(0x01)
	second := newTestAddress(0x02)
	outsider := newTestAddress(0x03)
	admin := NewAdmin(first)

	if err := admin.Transfer(outsider, second); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("expected ErrNotAdmin, got %v", err)
	}
	if err := admin.Transfer(first, second); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if admin.CurrentAdmin() != second {
		t.Fatalf("admin role not handed over")
	}
	// Revoking by handing to the zero principal locks the role for good.
	if err := admin.Transfer(second, [20]byte{}); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if err := admin.Transfer([20]byte{}, first); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("zero principal must not act as admin, got %v", err)
	}
}

func TestAllowlistAdminGating(t *testing.T) {
	adminAddr := newTestAddress(0x01)
	outsider := newTestAddress(0x02)
	registry := newTestAddress(0xA1)
	allowlist := NewAllowlist(NewAdmin(adminAddr))

	if err := allowlist.SetAllowed(outsider, registry, true); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("expected ErrNotAdmin, got %v", err)
	}
	if err := allowlist.SetDisabled(outsider, true); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("expected ErrNotAdmin, got %v", err)
	}
	if allowlist.IsAllowed(registry) || allowlist.Disabled() {
		t.Fatalf("denied mutations must not change the gate")
	}

	if err := allowlist.SetAllowed(adminAddr, registry, true); err != nil {
		t.Fatalf("SetAllowed: %v", err)
	}
	if !allowlist.IsAllowed(registry) {
		t.Fatalf("registry should be allowed")
	}
	if err := allowlist.SetAllowed(adminAddr, [20]byte{}, true); !errors.Is(err, ErrZeroRegistry) {
		t.Fatalf("expected ErrZeroRegistry, got %v", err)
	}
	if err := allowlist.SetAllowed(adminAddr, registry, false); err != nil {
		t.Fatalf("SetAllowed revoke: %v", err)
	}
	if allowlist.IsAllowed(registry) {
		t.Fatalf("registry should be revoked")
	}
}
