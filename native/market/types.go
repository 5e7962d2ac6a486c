package market

import (
	"fmt"
	"math/big"
)

// AssetClass selects the transfer semantics of a bundle entry. The class
// decides which registry entry point moves the asset and which shape rules
// apply to its token identifier and quantity.
type AssetClass uint8

const (
	ClassFungible AssetClass = iota
	ClassSemiFungible
	ClassNonFungible
)

// Valid reports whether the class value is within the supported range.
func (c AssetClass) Valid() bool {
	switch c {
	case ClassFungible, ClassSemiFungible, ClassNonFungible:
		return true
	default:
		return false
	}
}

func (c AssetClass) String() string {
	switch c {
	case ClassFungible:
		return "fungible"
	case ClassSemiFungible:
		return "semi-fungible"
	case ClassNonFungible:
		return "non-fungible"
	default:
		return fmt.Sprintf("class(%d)", uint8(c))
	}
}

// Asset references a holding managed by an external registry. An asset is
// immutable once constructed; it is owned by whichever Sale carries it.
type Asset struct {
	Class    AssetClass
	Registry [20]byte
	TokenID  *big.Int
	Quantity *big.Int
}

// Clone returns a deep copy so the caller can hold the value without
// aliasing the stored bundle.
func (a Asset) Clone() Asset {
	clone := a
	clone.TokenID = cloneBigInt(a.TokenID)
	clone.Quantity = cloneBigInt(a.Quantity)
	return clone
}

// Validate enforces the per-class shape rules: non-fungible entries carry
// exactly one unit, fungible entries carry no token identifier. The registry
// must be non-zero for every class.
func (a Asset) Validate() error {
	if !a.Class.Valid() {
		return fmt.Errorf("%w: unknown class %d", ErrInvalidAssetShape, a.Class)
	}
	if a.Registry == ([20]byte{}) {
		return ErrZeroRegistry
	}
	tokenID := cloneBigInt(a.TokenID)
	quantity := cloneBigInt(a.Quantity)
	if tokenID.Sign() < 0 || quantity.Sign() < 0 {
		return fmt.Errorf("%w: negative token id or quantity", ErrInvalidAssetShape)
	}
	switch a.Class {
	case ClassNonFungible:
		if quantity.Cmp(big.NewInt(1)) != 0 {
			return fmt.Errorf("%w: non-fungible quantity must be 1", ErrInvalidAssetShape)
		}
	case ClassFungible:
		if tokenID.Sign() != 0 {
			return fmt.Errorf("%w: fungible token id must be 0", ErrInvalidAssetShape)
		}
		if quantity.Sign() == 0 {
			return fmt.Errorf("%w: fungible quantity must be positive", ErrInvalidAssetShape)
		}
	case ClassSemiFungible:
		if quantity.Sign() == 0 {
			return fmt.Errorf("%w: semi-fungible quantity must be positive", ErrInvalidAssetShape)
		}
	}
	return nil
}

// Bundle is an ordered list of assets traded as one unit.
type Bundle []Asset

// Clone returns a deep copy of the bundle.
func (b Bundle) Clone() Bundle {
	if b == nil {
		return nil
	}
	clone := make(Bundle, len(b))
	for i, asset := range b {
		clone[i] = asset.Clone()
	}
	return clone
}

// Validate rejects empty bundles and checks every entry's shape. Validation
// happens before any external call is attempted for the bundle.
func (b Bundle) Validate() error {
	if len(b) == 0 {
		return ErrMalformedBundle
	}
	for i, asset := range b {
		if err := asset.Validate(); err != nil {
			return fmt.Errorf("asset %d: %w", i, err)
		}
	}
	return nil
}

// Sale captures a single escrow listing: the bundle held in custody, the
// asking bundle and the designated buyer. Sales are never mutated in place
// after creation; settlement and abort remove them whole.
type Sale struct {
	ID     *big.Int
	Seller [20]byte
	Buyer  [20]byte
	Assets Bundle
	Prices Bundle
}

// Clone returns a deep copy of the sale so callers can safely hold the value
// after the ledger entry is removed or shifted.
func (s *Sale) Clone() *Sale {
	if s == nil {
		return nil
	}
	clone := *s
	clone.ID = cloneBigInt(s.ID)
	clone.Assets = s.Assets.Clone()
	clone.Prices = s.Prices.Clone()
	return &clone
}

// SanitizeSale validates the supplied sale definition and returns a cloned
// instance with non-nil numeric fields. The original value is not mutated.
func SanitizeSale(s *Sale) (*Sale, error) {
	if s == nil {
		return nil, fmt.Errorf("market: nil sale")
	}
	clone := s.Clone()
	if clone.ID == nil || clone.ID.Sign() < 0 {
		return nil, fmt.Errorf("market: sale id must be non-negative")
	}
	if clone.Buyer == ([20]byte{}) {
		return nil, ErrZeroBuyer
	}
	if err := clone.Assets.Validate(); err != nil {
		return nil, err
	}
	if err := clone.Prices.Validate(); err != nil {
		return nil, err
	}
	return clone, nil
}

// OfferRef is the buyer-side back-reference to a sale. It carries value
// types only so the buyer view never dangles into the seller's storage.
type OfferRef struct {
	Seller [20]byte
	SaleID *big.Int
}

// Clone returns a copy with an independent sale id.
func (o OfferRef) Clone() OfferRef {
	clone := o
	clone.SaleID = cloneBigInt(o.SaleID)
	return clone
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
