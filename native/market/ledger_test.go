package market

import (
	"errors"
	"math/big"
	"testing"
)

func testBundles() (Bundle, Bundle) {
	goods := newTestAddress(0xA1)
	coin := newTestAddress(0xA2)
	return Bundle{nftAsset(goods, 1)}, Bundle{fungibleAsset(coin, 10)}
}

// checkInvariant verifies the central ledger contract: every sale has exactly
// one matching offer reference and every reference resolves to one sale.
func checkInvariant(t *testing.T, l *Ledger) {
	t.Helper()
	for seller, sales := range l.sellers {
		for _, sale := range sales {
			matches := 0
			for _, ref := range l.buyers[sale.Buyer] {
				if ref.Seller == seller && ref.SaleID.Cmp(sale.ID) == 0 {
					matches++
				}
			}
			for buyer, refs := range l.buyers {
				if buyer == sale.Buyer {
					continue
				}
				for _, ref := range refs {
					if ref.Seller == seller && ref.SaleID.Cmp(sale.ID) == 0 {
						t.Fatalf("sale %s referenced from foreign buyer list", sale.ID)
					}
				}
			}
			if matches != 1 {
				t.Fatalf("sale %s has %d offer references", sale.ID, matches)
			}
		}
	}
	for buyer, refs := range l.buyers {
		for _, ref := range refs {
			matches := 0
			for _, sale := range l.sellers[ref.Seller] {
				if sale.ID.Cmp(ref.SaleID) == 0 {
					if sale.Buyer != buyer {
						t.Fatalf("offer %s names the wrong buyer", ref.SaleID)
					}
					matches++
				}
			}
			if matches != 1 {
				t.Fatalf("offer %s resolves to %d sales", ref.SaleID, matches)
			}
		}
	}
}

func TestLedgerIDsMonotonic(t *testing.T) {
	ledger := NewLedger()
	seller := newTestAddress(0x01)
	buyer := newTestAddress(0x02)
	assets, prices := testBundles()

	for i := int64(0); i < 5; i++ {
		sale := ledger.Add(seller, assets, prices, buyer)
		if sale.ID.Cmp(big.NewInt(i)) != 0 {
			t.Fatalf("expected id %d, got %s", i, sale.ID)
		}
	}
	if _, _, err := ledger.Remove(seller, 4); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	// Removal never recycles an identifier.
	sale := ledger.Add(seller, assets, prices, buyer)
	if sale.ID.Cmp(big.NewInt(5)) != 0 {
		t.Fatalf("expected id 5 after removal, got %s", sale.ID)
	}
	checkInvariant(t, ledger)
}

func TestLedgerOrderedRemoval(t *testing.T) {
	ledger := NewLedger()
	seller := newTestAddress(0x01)
	buyer := newTestAddress(0x02)
	assets, prices := testBundles()
	for i := 0; i < 5; i++ {
		ledger.Add(seller, assets, prices, buyer)
	}

	removed, offerPos, err := ledger.Remove(seller, 1)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if removed.ID.Cmp(big.NewInt(1)) != 0 || offerPos != 1 {
		t.Fatalf("unexpected removal: id %s pos %d", removed.ID, offerPos)
	}
	wantIDs := []int64{0, 2, 3, 4}
	if ledger.SaleCount(seller) != len(wantIDs) {
		t.Fatalf("expected %d sales, got %d", len(wantIDs), ledger.SaleCount(seller))
	}
	for i, want := range wantIDs {
		sale, err := ledger.SaleAt(seller, i)
		if err != nil {
			t.Fatalf("SaleAt %d: %v", i, err)
		}
		if sale.ID.Cmp(big.NewInt(want)) != 0 {
			t.Fatalf("index %d: expected id %d, got %s", i, want, sale.ID)
		}
		offer, err := ledger.OfferAt(buyer, i)
		if err != nil {
			t.Fatalf("OfferAt %d: %v", i, err)
		}
		if offer.SaleID.Cmp(big.NewInt(want)) != 0 {
			t.Fatalf("offer index %d: expected id %d, got %s", i, want, offer.SaleID)
		}
	}
	checkInvariant(t, ledger)
}

func TestLedgerRemoveBuyerSideIndependentOrder(t *testing.T) {
	ledger := NewLedger()
	sellerA := newTestAddress(0x01)
	sellerB := newTestAddress(0x02)
	buyer := newTestAddress(0x03)
	assets, prices := testBundles()

	// Interleave two sellers offering to the same buyer, so seller-side and
	// buyer-side positions diverge.
	ledger.Add(sellerA, assets, prices, buyer) // id 0, buyer pos 0
	ledger.Add(sellerB, assets, prices, buyer) // id 1, buyer pos 1
	ledger.Add(sellerA, assets, prices, buyer) // id 2, buyer pos 2

	removed, offerPos, err := ledger.Remove(sellerA, 1)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if removed.ID.Cmp(big.NewInt(2)) != 0 || offerPos != 2 {
		t.Fatalf("unexpected removal: id %s buyer pos %d", removed.ID, offerPos)
	}
	offer, err := ledger.OfferAt(buyer, 1)
	if err != nil {
		t.Fatalf("OfferAt: %v", err)
	}
	if offer.Seller != sellerB || offer.SaleID.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("unexpected surviving offer: %+v", offer)
	}
	checkInvariant(t, ledger)
}

func TestLedgerReinsertRestoresPositions(t *testing.T) {
	ledger := NewLedger()
	seller := newTestAddress(0x01)
	buyer := newTestAddress(0x02)
	assets, prices := testBundles()
	for i := 0; i < 4; i++ {
		ledger.Add(seller, assets, prices, buyer)
	}

	removed, offerPos, err := ledger.Remove(seller, 2)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := ledger.Reinsert(removed, 2, offerPos); err != nil {
		t.Fatalf("Reinsert: %v", err)
	}
	for i := int64(0); i < 4; i++ {
		sale, err := ledger.SaleAt(seller, int(i))
		if err != nil {
			t.Fatalf("SaleAt %d: %v", i, err)
		}
		if sale.ID.Cmp(big.NewInt(i)) != 0 {
			t.Fatalf("index %d: expected id %d after reinsert, got %s", i, i, sale.ID)
		}
	}
	checkInvariant(t, ledger)
}

func TestLedgerLookupErrors(t *testing.T) {
	ledger := NewLedger()
	seller := newTestAddress(0x01)
	buyer := newTestAddress(0x02)
	assets, prices := testBundles()

	if _, err := ledger.SaleAt(seller, 0); !errors.Is(err, ErrNoSalesForSeller) {
		t.Fatalf("expected ErrNoSalesForSeller, got %v", err)
	}
	if _, err := ledger.OfferAt(buyer, 0); !errors.Is(err, ErrNoOffersForBuyer) {
		t.Fatalf("expected ErrNoOffersForBuyer, got %v", err)
	}
	if _, err := ledger.IndexOfSaleID(seller, big.NewInt(0)); !errors.Is(err, ErrNoSalesForSeller) {
		t.Fatalf("expected ErrNoSalesForSeller, got %v", err)
	}
	if _, _, err := ledger.Remove(seller, 0); !errors.Is(err, ErrNoSalesForSeller) {
		t.Fatalf("expected ErrNoSalesForSeller, got %v", err)
	}

	ledger.Add(seller, assets, prices, buyer)
	if _, err := ledger.SaleAt(seller, 3); !errors.Is(err, ErrIndexOutOfBounds) {
		t.Fatalf("expected ErrIndexOutOfBounds, got %v", err)
	}
	if _, err := ledger.OfferAt(buyer, -1); !errors.Is(err, ErrIndexOutOfBounds) {
		t.Fatalf("expected ErrIndexOutOfBounds, got %v", err)
	}
	if _, err := ledger.IndexOfSaleID(seller, big.NewInt(99)); !errors.Is(err, ErrSaleNotFound) {
		t.Fatalf("expected ErrSaleNotFound, got %v", err)
	}
	if !ledger.HasSales(seller) || !ledger.HasOffers(buyer) {
		t.Fatalf("existence predicates should report live entries")
	}
}
