package market

import (
	"fmt"
	"math/big"
)

// Ledger is the dual-indexed bookkeeping structure at the heart of the
// market: an ordered list of live sales per seller and an ordered list of
// offer references per buyer. The two views are kept mutually consistent by
// construction: every mutation goes through the Add/Remove pair and touches
// both sides in one logical step.
//
// Removal preserves the relative order of the remaining entries in both
// collections. Callers hold index-based references for at most the duration
// of one operation, and the shifted sequence keeps enumeration stable.
type Ledger struct {
	sellers map[[20]byte][]*Sale
	buyers  map[[20]byte][]OfferRef
	nextID  *big.Int
}

// NewLedger returns an empty ledger with the id allocator at zero.
func NewLedger() *Ledger {
	return &Ledger{
		sellers: make(map[[20]byte][]*Sale),
		buyers:  make(map[[20]byte][]OfferRef),
		nextID:  big.NewInt(0),
	}
}

// allocateID returns the next sale identifier and advances the allocator.
// Identifiers are strictly increasing and never revisited, including after
// removals.
func (l *Ledger) allocateID() *big.Int {
	id := new(big.Int).Set(l.nextID)
	l.nextID.Add(l.nextID, big.NewInt(1))
	return id
}

// Add registers a new sale under the seller and the matching offer reference
// under the buyer, assigning a fresh identifier. The stored sale owns deep
// copies of both bundles.
func (l *Ledger) Add(seller [20]byte, assets, prices Bundle, buyer [20]byte) *Sale {
	sale := &Sale{
		ID:     l.allocateID(),
		Seller: seller,
		Buyer:  buyer,
		Assets: assets.Clone(),
		Prices: prices.Clone(),
	}
	l.sellers[seller] = append(l.sellers[seller], sale)
	l.buyers[buyer] = append(l.buyers[buyer], OfferRef{Seller: seller, SaleID: new(big.Int).Set(sale.ID)})
	return sale.Clone()
}

// HasSales reports whether the seller owns at least one live sale.
func (l *Ledger) HasSales(seller [20]byte) bool { return len(l.sellers[seller]) > 0 }

// HasOffers reports whether at least one live offer names the buyer.
func (l *Ledger) HasOffers(buyer [20]byte) bool { return len(l.buyers[buyer]) > 0 }

// SaleCount returns the number of live sales owned by the seller.
func (l *Ledger) SaleCount(seller [20]byte) int { return len(l.sellers[seller]) }

// OfferCount returns the number of live offers naming the buyer.
func (l *Ledger) OfferCount(buyer [20]byte) int { return len(l.buyers[buyer]) }

// SaleAt returns a copy of the seller's sale at the given position.
func (l *Ledger) SaleAt(seller [20]byte, index int) (*Sale, error) {
	list := l.sellers[seller]
	if len(list) == 0 {
		return nil, ErrNoSalesForSeller
	}
	if index < 0 || index >= len(list) {
		return nil, fmt.Errorf("%w: sale index %d of %d", ErrIndexOutOfBounds, index, len(list))
	}
	return list[index].Clone(), nil
}

// OfferAt returns a copy of the buyer's offer reference at the given
// position.
func (l *Ledger) OfferAt(buyer [20]byte, index int) (OfferRef, error) {
	list := l.buyers[buyer]
	if len(list) == 0 {
		return OfferRef{}, ErrNoOffersForBuyer
	}
	if index < 0 || index >= len(list) {
		return OfferRef{}, fmt.Errorf("%w: offer index %d of %d", ErrIndexOutOfBounds, index, len(list))
	}
	return list[index].Clone(), nil
}

// IndexOfSaleID scans the seller's list for the sale with the given
// identifier. Linear in the seller's live sale count, which stays small in
// practice.
func (l *Ledger) IndexOfSaleID(seller [20]byte, id *big.Int) (int, error) {
	if id == nil {
		return 0, ErrSaleNotFound
	}
	list := l.sellers[seller]
	if len(list) == 0 {
		return 0, ErrNoSalesForSeller
	}
	for i, sale := range list {
		if sale.ID.Cmp(id) == 0 {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: sale id %s", ErrSaleNotFound, id)
}

// Remove deletes the seller's sale at the given position together with the
// matching offer reference on the buyer side, in one logical step. Both
// deletes shift the remaining entries down by one, keeping relative order.
// The removed sale and the buyer-side position it occupied are returned so
// the caller can compensate with Reinsert if a later step fails.
func (l *Ledger) Remove(seller [20]byte, index int) (*Sale, int, error) {
	list := l.sellers[seller]
	if len(list) == 0 {
		return nil, 0, ErrNoSalesForSeller
	}
	if index < 0 || index >= len(list) {
		return nil, 0, fmt.Errorf("%w: sale index %d of %d", ErrIndexOutOfBounds, index, len(list))
	}
	sale := list[index]
	offerPos, err := l.offerPosition(sale)
	if err != nil {
		return nil, 0, err
	}

	l.sellers[seller] = append(list[:index], list[index+1:]...)
	if len(l.sellers[seller]) == 0 {
		delete(l.sellers, seller)
	}
	offers := l.buyers[sale.Buyer]
	l.buyers[sale.Buyer] = append(offers[:offerPos], offers[offerPos+1:]...)
	if len(l.buyers[sale.Buyer]) == 0 {
		delete(l.buyers, sale.Buyer)
	}
	return sale, offerPos, nil
}

// Reinsert restores a previously removed sale at its original positions in
// both views. It is the compensating half of Remove, used to roll back a
// settlement whose outbound transfer failed.
func (l *Ledger) Reinsert(sale *Sale, sellerIndex, offerIndex int) error {
	if sale == nil || sale.ID == nil {
		return fmt.Errorf("market: cannot reinsert nil sale")
	}
	list := l.sellers[sale.Seller]
	if sellerIndex < 0 || sellerIndex > len(list) {
		return fmt.Errorf("%w: reinsert sale index %d of %d", ErrIndexOutOfBounds, sellerIndex, len(list))
	}
	offers := l.buyers[sale.Buyer]
	if offerIndex < 0 || offerIndex > len(offers) {
		return fmt.Errorf("%w: reinsert offer index %d of %d", ErrIndexOutOfBounds, offerIndex, len(offers))
	}
	list = append(list, nil)
	copy(list[sellerIndex+1:], list[sellerIndex:])
	list[sellerIndex] = sale
	l.sellers[sale.Seller] = list

	ref := OfferRef{Seller: sale.Seller, SaleID: new(big.Int).Set(sale.ID)}
	offers = append(offers, OfferRef{})
	copy(offers[offerIndex+1:], offers[offerIndex:])
	offers[offerIndex] = ref
	l.buyers[sale.Buyer] = offers
	return nil
}

// offerPosition locates the single offer reference naming the sale. By the
// ledger invariant exactly one such reference exists for every live sale.
func (l *Ledger) offerPosition(sale *Sale) (int, error) {
	for i, ref := range l.buyers[sale.Buyer] {
		if ref.Seller == sale.Seller && ref.SaleID.Cmp(sale.ID) == 0 {
			return i, nil
		}
	}
	return 0, fmt.Errorf("market: ledger invariant violated: no offer for sale %s", sale.ID)
}
