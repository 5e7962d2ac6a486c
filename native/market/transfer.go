package market

import (
	"errors"
	"fmt"
	"math/big"
)

// registryState is the narrow surface the engine needs from the external
// asset registries. Implementations route each call to the registry named by
// the first argument and surface its failure verbatim; the engine never
// swallows or retries a registry rejection.
type registryState interface {
	TransferFungible(registry, from, to [20]byte, amount *big.Int) error
	TransferSemiFungible(registry, from, to [20]byte, tokenID, amount *big.Int) error
	TransferNonFungible(registry, from, to [20]byte, tokenID *big.Int) error
}

// AllowlistView gates which registries may be traded. A nil view disables
// the gate entirely.
type AllowlistView interface {
	IsAllowed(registry [20]byte) bool
	Disabled() bool
}

// AdminView exposes the privileged principal for the market module. The
// role-management surface that rotates it lives outside the engine.
type AdminView interface {
	CurrentAdmin() [20]byte
}

func registryAllowed(view AllowlistView, registry [20]byte) bool {
	if view == nil || view.Disabled() {
		return true
	}
	return view.IsAllowed(registry)
}

// transferBundle moves every asset in the bundle from one principal to the
// other. The whole bundle is validated against shape rules and the allowlist
// gate before the first external call. A registry failure mid-bundle reverses
// the entries already moved, so the bundle leg is all-or-nothing from the
// caller's point of view.
func (e *Engine) transferBundle(bundle Bundle, from, to [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if to == ([20]byte{}) {
		return fmt.Errorf("market: transfer to zero principal")
	}
	if err := bundle.Validate(); err != nil {
		return err
	}
	for i, asset := range bundle {
		if !registryAllowed(e.allowlist, asset.Registry) {
			return fmt.Errorf("asset %d: %w", i, ErrRegistryNotAllowed)
		}
	}
	for i, asset := range bundle {
		if err := e.dispatchTransfer(asset, from, to); err != nil {
			err = fmt.Errorf("asset %d: %w", i, err)
			for j := i - 1; j >= 0; j-- {
				if rerr := e.dispatchTransfer(bundle[j], to, from); rerr != nil {
					return errors.Join(err, fmt.Errorf("asset %d: compensation failed: %w", j, rerr))
				}
			}
			return err
		}
	}
	return nil
}

// dispatchTransfer routes a single asset to the class-appropriate registry
// entry point.
func (e *Engine) dispatchTransfer(asset Asset, from, to [20]byte) error {
	switch asset.Class {
	case ClassNonFungible:
		return e.state.TransferNonFungible(asset.Registry, from, to, cloneBigInt(asset.TokenID))
	case ClassSemiFungible:
		return e.state.TransferSemiFungible(asset.Registry, from, to, cloneBigInt(asset.TokenID), cloneBigInt(asset.Quantity))
	case ClassFungible:
		return e.state.TransferFungible(asset.Registry, from, to, cloneBigInt(asset.Quantity))
	default:
		return fmt.Errorf("%w: unknown class %d", ErrInvalidAssetShape, asset.Class)
	}
}
