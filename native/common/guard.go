package common

import "errors"

// ErrModulePaused is returned by Guard when the named module is paused.
var ErrModulePaused = errors.New("module paused")

// PauseView reports the pause flag for a native module. The privileged
// surface that flips the flag lives outside the core engines.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard rejects mutations for paused modules. A nil view or an empty module
// name disables the check.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}
