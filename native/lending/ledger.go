package lending

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"corelend/native/fixedmath"
)

// ScaledBalanceLedger is the in-memory reference ledger. Balances are held
// scaled: real amounts are divided by the supplied ray index on entry, so a
// holder's claim grows with the index without per-holder writes.
type ScaledBalanceLedger struct {
	balances map[common.Address]*uint256.Int
	total    *uint256.Int
}

// NewScaledBalanceLedger returns an empty ledger.
func NewScaledBalanceLedger() *ScaledBalanceLedger {
	return &ScaledBalanceLedger{
		balances: make(map[common.Address]*uint256.Int),
		total:    new(uint256.Int),
	}
}

// ScaledBalanceOf returns a copy of the holder's scaled balance.
func (l *ScaledBalanceLedger) ScaledBalanceOf(user common.Address) *uint256.Int {
	if b, ok := l.balances[user]; ok {
		return new(uint256.Int).Set(b)
	}
	return new(uint256.Int)
}

// ScaledTotalSupply returns a copy of the scaled total supply.
func (l *ScaledBalanceLedger) ScaledTotalSupply() *uint256.Int {
	return new(uint256.Int).Set(l.total)
}

// Mint credits amount at the given index.
func (l *ScaledBalanceLedger) Mint(user common.Address, amount, index *uint256.Int) (bool, error) {
	scaled, err := fixedmath.RayDiv(amount, index)
	if err != nil {
		return false, err
	}
	if scaled.IsZero() {
		return false, errInvalidAmount
	}
	current, ok := l.balances[user]
	first := !ok || current.IsZero()
	if !ok {
		current = new(uint256.Int)
		l.balances[user] = current
	}
	current.Add(current, scaled)
	l.total.Add(l.total, scaled)
	return first, nil
}

// Burn debits amount at the given index.
func (l *ScaledBalanceLedger) Burn(user common.Address, amount, index *uint256.Int) (bool, *uint256.Int, error) {
	scaled, err := fixedmath.RayDiv(amount, index)
	if err != nil {
		return false, nil, err
	}
	if scaled.IsZero() {
		return false, nil, errInvalidAmount
	}
	current, ok := l.balances[user]
	if !ok || current.Lt(scaled) {
		return false, nil, errInsufficientBalance
	}
	current.Sub(current, scaled)
	l.total.Sub(l.total, scaled)
	cleared := current.IsZero()
	if cleared {
		delete(l.balances, user)
	}
	return cleared, new(uint256.Int).Set(l.total), nil
}

// Transfer moves amount between holders at the given index, leaving the total
// supply untouched.
func (l *ScaledBalanceLedger) Transfer(from, to common.Address, amount, index *uint256.Int) error {
	scaled, err := fixedmath.RayDiv(amount, index)
	if err != nil {
		return err
	}
	if scaled.IsZero() {
		return errInvalidAmount
	}
	source, ok := l.balances[from]
	if !ok || source.Lt(scaled) {
		return errInsufficientBalance
	}
	source.Sub(source, scaled)
	if source.IsZero() {
		delete(l.balances, from)
	}
	dest, ok := l.balances[to]
	if !ok {
		dest = new(uint256.Int)
		l.balances[to] = dest
	}
	dest.Add(dest, scaled)
	return nil
}

// MemoryLedgerRegistry hands out one deposit and one debt ledger per asset,
// created lazily on first use.
type MemoryLedgerRegistry struct {
	deposits map[common.Address]*ScaledBalanceLedger
	debts    map[common.Address]*ScaledBalanceLedger
}

// NewMemoryLedgerRegistry returns an empty registry.
func NewMemoryLedgerRegistry() *MemoryLedgerRegistry {
	return &MemoryLedgerRegistry{
		deposits: make(map[common.Address]*ScaledBalanceLedger),
		debts:    make(map[common.Address]*ScaledBalanceLedger),
	}
}

// Deposits resolves the asset's deposit ledger.
func (r *MemoryLedgerRegistry) Deposits(asset common.Address) (DepositLedger, error) {
	l, ok := r.deposits[asset]
	if !ok {
		l = NewScaledBalanceLedger()
		r.deposits[asset] = l
	}
	return l, nil
}

// Debts resolves the asset's debt ledger.
func (r *MemoryLedgerRegistry) Debts(asset common.Address) (ScaledLedger, error) {
	l, ok := r.debts[asset]
	if !ok {
		l = NewScaledBalanceLedger()
		r.debts[asset] = l
	}
	return l, nil
}
