package market

import "errors"

var (
	// Validation failures, rejected before any state mutation.
	ErrMalformedBundle   = errors.New("market: malformed bundle")
	ErrInvalidAssetShape = errors.New("market: invalid asset shape")
	ErrZeroBuyer         = errors.New("market: buyer must be non-zero")
	ErrZeroRegistry      = errors.New("market: registry must be non-zero")

	// Allowlist gate rejections.
	ErrRegistryNotAllowed = errors.New("market: registry not allowlisted")

	// Lookup failures, pure read-path rejections.
	ErrNoSalesForSeller = errors.New("market: seller has no sales")
	ErrNoOffersForBuyer = errors.New("market: buyer has no offers")
	ErrIndexOutOfBounds = errors.New("market: index out of bounds")
	ErrSaleNotFound     = errors.New("market: sale not found")

	// Authorization failures on the privileged surface.
	ErrNotAdmin = errors.New("market: caller is not the admin")
)
