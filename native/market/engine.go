package market

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"otcmarket/core/events"
	"otcmarket/core/types"
	nativecommon "otcmarket/native/common"
)

var (
	errNilState  = errors.New("market engine: state not configured")
	errNilLedger = errors.New("market engine: ledger not configured")
)

const marketModuleName = "market"

// vaultSeed derives the custody principal for escrowed bundles. The vault is
// a plain principal from the registries' point of view; nothing but the
// engine may move assets out of it.
const vaultSeed = "otcmarket/market/vault"

// Engine drives the settlement protocol: it combines ledger mutation with
// registry transfers under a mutate-before-transfer ordering so a reentrant
// call can never observe a half-settled sale. Every top-level operation
// holds the engine mutex from first state read to last transfer.
type Engine struct {
	mu        sync.Mutex
	state     registryState
	ledger    *Ledger
	emitter   events.Emitter
	allowlist AllowlistView
	admin     AdminView
	pauses    nativecommon.PauseView
	vault     [20]byte
}

// NewEngine creates a market engine with a fresh ledger, a no-op emitter and
// the default derived vault principal.
func NewEngine() *Engine {
	return &Engine{
		ledger:  NewLedger(),
		emitter: events.NoopEmitter{},
		vault:   deriveVault(),
	}
}

func deriveVault() [20]byte {
	var vault [20]byte
	digest := ethcrypto.Keccak256([]byte(vaultSeed))
	copy(vault[:], digest[12:])
	return vault
}

// SetState configures the registry backend used for all asset movement.
func (e *Engine) SetState(state registryState) { e.state = state }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op
// implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetAllowlist configures the registry gate. A nil view disables gating.
func (e *Engine) SetAllowlist(view AllowlistView) { e.allowlist = view }

// SetAdmin configures the privileged principal view used by the recovery
// surface.
func (e *Engine) SetAdmin(view AdminView) { e.admin = view }

// SetPauses wires the module pause switchboard.
func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

// SetVault overrides the derived custody principal. Primarily used in tests.
func (e *Engine) SetVault(vault [20]byte) {
	if vault == ([20]byte{}) {
		e.vault = deriveVault()
		return
	}
	e.vault = vault
}

// Vault returns the custody principal holding escrowed bundles.
func (e *Engine) Vault() [20]byte { return e.vault }

func (e *Engine) emit(evt *types.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(marketEvent{evt: evt})
}

// Create validates both bundles, registers the sale in the ledger and only
// then moves the asset bundle into escrow custody. A failed escrow transfer
// compensates by removing the just-registered sale, so the operation is
// all-or-nothing.
func (e *Engine) Create(seller [20]byte, assets, prices Bundle, buyer [20]byte) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil, errNilState
	}
	if e.ledger == nil {
		return nil, errNilLedger
	}
	if err := nativecommon.Guard(e.pauses, marketModuleName); err != nil {
		return nil, err
	}
	if buyer == ([20]byte{}) {
		return nil, ErrZeroBuyer
	}
	if err := assets.Validate(); err != nil {
		return nil, err
	}
	if err := prices.Validate(); err != nil {
		return nil, err
	}

	sale := e.ledger.Add(seller, assets, prices, buyer)
	if err := e.transferBundle(assets, seller, e.vault); err != nil {
		// Registration happened first; undo it so no state survives the
		// failed escrow transfer.
		if _, _, rerr := e.ledger.Remove(seller, e.ledger.SaleCount(seller)-1); rerr != nil {
			return nil, errors.Join(err, rerr)
		}
		return nil, err
	}
	e.emit(NewSaleCreatedEvent(sale))
	return new(big.Int).Set(sale.ID), nil
}

// Conclude settles the buyer's offer at the given position: the sale leaves
// the ledger first, then the price bundle moves buyer to seller and the
// escrowed bundle moves to the buyer. The removal-first ordering makes a
// second conclude or abort of the same sale impossible.
func (e *Engine) Conclude(buyer [20]byte, offerIndex int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return errNilState
	}
	if e.ledger == nil {
		return errNilLedger
	}
	if err := nativecommon.Guard(e.pauses, marketModuleName); err != nil {
		return err
	}
	ref, err := e.ledger.OfferAt(buyer, offerIndex)
	if err != nil {
		return err
	}
	saleIndex, err := e.ledger.IndexOfSaleID(ref.Seller, ref.SaleID)
	if err != nil {
		return err
	}
	sale, offerPos, err := e.ledger.Remove(ref.Seller, saleIndex)
	if err != nil {
		return err
	}
	if err := e.transferBundle(sale.Prices, buyer, sale.Seller); err != nil {
		if rerr := e.ledger.Reinsert(sale, saleIndex, offerPos); rerr != nil {
			return errors.Join(err, rerr)
		}
		return err
	}
	if err := e.transferBundle(sale.Assets, e.vault, buyer); err != nil {
		// Compensate the already-settled price leg before restoring the
		// ledger entry.
		if rerr := e.transferBundle(sale.Prices, sale.Seller, buyer); rerr != nil {
			return errors.Join(err, rerr)
		}
		if rerr := e.ledger.Reinsert(sale, saleIndex, offerPos); rerr != nil {
			return errors.Join(err, rerr)
		}
		return err
	}
	e.emit(NewSaleConcludedEvent(sale))
	return nil
}

// Abort removes the seller's sale at the given position and returns the
// escrowed bundle. As with Conclude, the ledger mutation precedes the
// transfer and is compensated if the transfer fails.
func (e *Engine) Abort(seller [20]byte, saleIndex int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return errNilState
	}
	if e.ledger == nil {
		return errNilLedger
	}
	if err := nativecommon.Guard(e.pauses, marketModuleName); err != nil {
		return err
	}
	sale, offerPos, err := e.ledger.Remove(seller, saleIndex)
	if err != nil {
		return err
	}
	if err := e.transferBundle(sale.Assets, e.vault, seller); err != nil {
		if rerr := e.ledger.Reinsert(sale, saleIndex, offerPos); rerr != nil {
			return errors.Join(err, rerr)
		}
		return err
	}
	e.emit(NewSaleAbortedEvent(sale))
	return nil
}

// GetSale returns a copy of the seller's sale at the given position.
func (e *Engine) GetSale(seller [20]byte, index int) (*Sale, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ledger == nil {
		return nil, errNilLedger
	}
	return e.ledger.SaleAt(seller, index)
}

// GetOffer returns a copy of the buyer's offer reference at the given
// position.
func (e *Engine) GetOffer(buyer [20]byte, index int) (OfferRef, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ledger == nil {
		return OfferRef{}, errNilLedger
	}
	return e.ledger.OfferAt(buyer, index)
}

// SellerSaleCount returns the number of live sales owned by the seller.
func (e *Engine) SellerSaleCount(seller [20]byte) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ledger == nil {
		return 0
	}
	return e.ledger.SaleCount(seller)
}

// BuyerOfferCount returns the number of live offers naming the buyer.
func (e *Engine) BuyerOfferCount(buyer [20]byte) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ledger == nil {
		return 0
	}
	return e.ledger.OfferCount(buyer)
}

// Rescue moves a stray holding out of the vault, bypassing the sale ledger
// and the allowlist gate. Admin only: the vault accumulates assets sent to
// it directly, outside any sale, and this is the sole recovery path.
func (e *Engine) Rescue(caller [20]byte, asset Asset, to [20]byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return errNilState
	}
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if to == ([20]byte{}) {
		return fmt.Errorf("market: rescue to zero principal")
	}
	if err := asset.Validate(); err != nil {
		return err
	}
	return e.dispatchTransfer(asset, e.vault, to)
}

func (e *Engine) requireAdmin(caller [20]byte) error {
	if e == nil || e.admin == nil {
		return ErrNotAdmin
	}
	admin := e.admin.CurrentAdmin()
	if admin == ([20]byte{}) || caller != admin {
		return ErrNotAdmin
	}
	return nil
}
