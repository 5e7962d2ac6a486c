package registry

import (
	"fmt"
	"math/big"
	"sync"
)

// Book is an in-process implementation of the asset registries the market
// engine settles against: one balance book per registry principal, covering
// fungible balances, semi-fungible balances per token and unique-token
// owners. A single-node deployment wires the engine straight to a Book; a
// multi-node deployment replaces it with clients for the real registries.
type Book struct {
	mu       sync.Mutex
	fungible map[[20]byte]map[[20]byte]*big.Int
	semi     map[[20]byte]map[string]map[[20]byte]*big.Int
	unique   map[[20]byte]map[string][20]byte
}

// NewBook returns an empty registry book.
func NewBook() *Book {
	return &Book{
		fungible: make(map[[20]byte]map[[20]byte]*big.Int),
		semi:     make(map[[20]byte]map[string]map[[20]byte]*big.Int),
		unique:   make(map[[20]byte]map[string][20]byte),
	}
}

// MintFungible credits the holder's balance in the given registry.
func (b *Book) MintFungible(registry, holder [20]byte, amount *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fungible[registry] == nil {
		b.fungible[registry] = make(map[[20]byte]*big.Int)
	}
	current := b.fungible[registry][holder]
	if current == nil {
		current = big.NewInt(0)
	}
	b.fungible[registry][holder] = new(big.Int).Add(current, amount)
}

// MintSemiFungible credits the holder's balance for a specific token.
func (b *Book) MintSemiFungible(registry [20]byte, tokenID *big.Int, holder [20]byte, amount *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := tokenID.String()
	if b.semi[registry] == nil {
		b.semi[registry] = make(map[string]map[[20]byte]*big.Int)
	}
	if b.semi[registry][key] == nil {
		b.semi[registry][key] = make(map[[20]byte]*big.Int)
	}
	current := b.semi[registry][key][holder]
	if current == nil {
		current = big.NewInt(0)
	}
	b.semi[registry][key][holder] = new(big.Int).Add(current, amount)
}

// MintUnique assigns ownership of a token that must not exist yet.
func (b *Book) MintUnique(registry [20]byte, tokenID *big.Int, owner [20]byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := tokenID.String()
	if b.unique[registry] == nil {
		b.unique[registry] = make(map[string][20]byte)
	}
	if _, exists := b.unique[registry][key]; exists {
		return fmt.Errorf("registry: token %s already minted", tokenID)
	}
	b.unique[registry][key] = owner
	return nil
}

// FungibleBalance returns the holder's balance in the given registry.
func (b *Book) FungibleBalance(registry, holder [20]byte) *big.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if bal := b.fungible[registry][holder]; bal != nil {
		return new(big.Int).Set(bal)
	}
	return big.NewInt(0)
}

// SemiFungibleBalance returns the holder's balance for a specific token.
func (b *Book) SemiFungibleBalance(registry [20]byte, tokenID *big.Int, holder [20]byte) *big.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if bal := b.semi[registry][tokenID.String()][holder]; bal != nil {
		return new(big.Int).Set(bal)
	}
	return big.NewInt(0)
}

// UniqueOwner returns the owner of a unique token, if minted.
func (b *Book) UniqueOwner(registry [20]byte, tokenID *big.Int) ([20]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	owner, ok := b.unique[registry][tokenID.String()]
	return owner, ok
}

// TransferFungible moves a fungible amount between holders.
func (b *Book) TransferFungible(registry, from, to [20]byte, amount *big.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("registry: transfer amount must be positive")
	}
	balances := b.fungible[registry]
	if balances == nil || balances[from] == nil || balances[from].Cmp(amount) < 0 {
		return fmt.Errorf("registry: insufficient fungible balance")
	}
	balances[from] = new(big.Int).Sub(balances[from], amount)
	if balances[to] == nil {
		balances[to] = big.NewInt(0)
	}
	balances[to] = new(big.Int).Add(balances[to], amount)
	return nil
}

// TransferSemiFungible moves a quantity of a specific token between holders.
func (b *Book) TransferSemiFungible(registry, from, to [20]byte, tokenID, amount *big.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("registry: transfer amount must be positive")
	}
	if tokenID == nil {
		return fmt.Errorf("registry: token id required")
	}
	holders := b.semi[registry][tokenID.String()]
	if holders == nil || holders[from] == nil || holders[from].Cmp(amount) < 0 {
		return fmt.Errorf("registry: insufficient balance for token %s", tokenID)
	}
	holders[from] = new(big.Int).Sub(holders[from], amount)
	if holders[to] == nil {
		holders[to] = big.NewInt(0)
	}
	holders[to] = new(big.Int).Add(holders[to], amount)
	return nil
}

// TransferNonFungible moves ownership of a unique token.
func (b *Book) TransferNonFungible(registry, from, to [20]byte, tokenID *big.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if tokenID == nil {
		return fmt.Errorf("registry: token id required")
	}
	owners := b.unique[registry]
	key := tokenID.String()
	if owners == nil {
		return fmt.Errorf("registry: token %s not minted", tokenID)
	}
	if owners[key] != from {
		return fmt.Errorf("registry: token %s not owned by sender", tokenID)
	}
	owners[key] = to
	return nil
}
