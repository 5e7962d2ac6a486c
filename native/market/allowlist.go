package market

// Admin is the minimal concrete holder of the market's privileged principal.
// It satisfies AdminView and supports handing the role to a new principal.
type Admin struct {
	current [20]byte
}

// NewAdmin returns an admin holder bound to the initial principal.
func NewAdmin(initial [20]byte) *Admin {
	return &Admin{current: initial}
}

// CurrentAdmin implements AdminView.
func (a *Admin) CurrentAdmin() [20]byte {
	if a == nil {
		return [20]byte{}
	}
	return a.current
}

// Transfer hands the admin role to the next principal. Only the current
// admin may transfer; handing the role to the zero principal revokes it.
func (a *Admin) Transfer(caller, next [20]byte) error {
	if a == nil || caller != a.current || a.current == ([20]byte{}) {
		return ErrNotAdmin
	}
	a.current = next
	return nil
}

// Allowlist is the concrete registry gate: registries are tradeable when
// explicitly allowed or when the gate is disabled globally. All mutations
// are admin-gated.
type Allowlist struct {
	admin    AdminView
	disabled bool
	allowed  map[[20]byte]bool
}

// NewAllowlist returns an enabled, empty allowlist guarded by the supplied
// admin view.
func NewAllowlist(admin AdminView) *Allowlist {
	return &Allowlist{
		admin:   admin,
		allowed: make(map[[20]byte]bool),
	}
}

// IsAllowed implements AllowlistView.
func (l *Allowlist) IsAllowed(registry [20]byte) bool {
	if l == nil {
		return false
	}
	return l.allowed[registry]
}

// Disabled implements AllowlistView.
func (l *Allowlist) Disabled() bool {
	if l == nil {
		return false
	}
	return l.disabled
}

// SetAllowed toggles a single registry. Admin only.
func (l *Allowlist) SetAllowed(caller, registry [20]byte, allowed bool) error {
	if err := l.requireAdmin(caller); err != nil {
		return err
	}
	if registry == ([20]byte{}) {
		return ErrZeroRegistry
	}
	if allowed {
		l.allowed[registry] = true
		return nil
	}
	delete(l.allowed, registry)
	return nil
}

// SetDisabled toggles the global gate. Admin only.
func (l *Allowlist) SetDisabled(caller [20]byte, disabled bool) error {
	if err := l.requireAdmin(caller); err != nil {
		return err
	}
	l.disabled = disabled
	return nil
}

func (l *Allowlist) requireAdmin(caller [20]byte) error {
	if l == nil || l.admin == nil {
		return ErrNotAdmin
	}
	admin := l.admin.CurrentAdmin()
	if admin == ([20]byte{}) || caller != admin {
		return ErrNotAdmin
	}
	return nil
}
