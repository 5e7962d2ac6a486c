package market

import (
	"errors"
	"math/big"
	"testing"
)

func TestAssetValidateShapes(t *testing.T) {
	registry := newTestAddress(0xA1)
	cases := []struct {
		name  string
		asset Asset
		want  error
	}{
		{"fungible ok", Asset{Class: ClassFungible, Registry: registry, TokenID: big.NewInt(0), Quantity: big.NewInt(5)}, nil},
		{"fungible with token id", Asset{Class: ClassFungible, Registry: registry, TokenID: big.NewInt(3), Quantity: big.NewInt(5)}, ErrInvalidAssetShape},
		{"fungible zero quantity", Asset{Class: ClassFungible, Registry: registry, TokenID: big.NewInt(0), Quantity: big.NewInt(0)}, ErrInvalidAssetShape},
		{"semi ok", Asset{Class: ClassSemiFungible, Registry: registry, TokenID: big.NewInt(9), Quantity: big.NewInt(4)}, nil},
		{"semi zero quantity", Asset{Class: ClassSemiFungible, Registry: registry, TokenID: big.NewInt(9), Quantity: big.NewInt(0)}, ErrInvalidAssetShape},
		{"nft ok", Asset{Class: ClassNonFungible, Registry: registry, TokenID: big.NewInt(9), Quantity: big.NewInt(1)}, nil},
		{"nft quantity two", Asset{Class: ClassNonFungible, Registry: registry, TokenID: big.NewInt(9), Quantity: big.NewInt(2)}, ErrInvalidAssetShape},
		{"unknown class", Asset{Class: AssetClass(9), Registry: registry, TokenID: big.NewInt(0), Quantity: big.NewInt(1)}, ErrInvalidAssetShape},
		{"zero registry", Asset{Class: ClassFungible, TokenID: big.NewInt(0), Quantity: big.NewInt(1)}, ErrZeroRegistry},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.asset.Validate()
			if tc.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestBundleValidateEmpty(t *testing.T) {
	if err := (Bundle{}).Validate(); !errors.Is(err, ErrMalformedBundle) {
		t.Fatalf("expected ErrMalformedBundle, got %v", err)
	}
	var nilBundle Bundle
	if err := nilBundle.Validate(); !errors.Is(err, ErrMalformedBundle) {
		t.Fatalf("expected ErrMalformedBundle for nil bundle, got %v", err)
	}
}

func TestSaleCloneIsIndependent(t *testing.T) {
	registry := newTestAddress(0xA1)
	sale := &Sale{
		ID:     big.NewInt(7),
		Seller: newTestAddress(0x01),
		Buyer:  newTestAddress(0x02),
		Assets: Bundle{{Class: ClassFungible, Registry: registry, TokenID: big.NewInt(0), Quantity: big.NewInt(10)}},
		Prices: Bundle{{Class: ClassNonFungible, Registry: registry, TokenID: big.NewInt(4), Quantity: big.NewInt(1)}},
	}
	clone := sale.Clone()
	clone.ID.SetInt64(99)
	clone.Assets[0].Quantity.SetInt64(1)
	if sale.ID.Cmp(big.NewInt(7)) != 0 {
		t.Fatalf("clone mutated original id: %s", sale.ID)
	}
	if sale.Assets[0].Quantity.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("clone mutated original bundle: %s", sale.Assets[0].Quantity)
	}
}

func TestSanitizeSale(t *testing.T) {
	registry := newTestAddress(0xA1)
	good := &Sale{
		ID:     big.NewInt(0),
		Seller: newTestAddress(0x01),
		Buyer:  newTestAddress(0x02),
		Assets: Bundle{{Class: ClassFungible, Registry: registry, TokenID: big.NewInt(0), Quantity: big.NewInt(1)}},
		Prices: Bundle{{Class: ClassFungible, Registry: registry, TokenID: big.NewInt(0), Quantity: big.NewInt(2)}},
	}
	if _, err := SanitizeSale(good); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bad := good.Clone()
	bad.Buyer = [20]byte{}
	if _, err := SanitizeSale(bad); !errors.Is(err, ErrZeroBuyer) {
		t.Fatalf("expected ErrZeroBuyer, got %v", err)
	}
	if _, err := SanitizeSale(nil); err == nil {
		t.Fatalf("expected error for nil sale")
	}
}
