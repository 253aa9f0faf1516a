package lending

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"corelend/core/types"
	nativecommon "corelend/native/common"
	"corelend/native/fixedmath"
)

const moduleName = "lending"

const (
	actionBorrow    = "borrow"
	actionLiquidate = "liquidate"
)

// Engine orchestrates every state transition of the lending ledger. The
// execution substrate serializes operations, so the engine holds no locks:
// one operation observes and mutates state to completion before the next
// begins. Loaded records are mutated in memory and persisted only after all
// validation passed, making each operation all-or-nothing.
type Engine struct {
	state    State
	ledgers  LedgerRegistry
	prices   PriceSource
	rates    RateStrategy
	clock    Clock
	pauses   nativecommon.PauseView
	sink     EventSink
	treasury common.Address
	emodes   map[uint8]EModeCategory
}

// NewEngine constructs an engine routing protocol fees to the given treasury
// account. Collaborators are wired with the Set methods before first use.
func NewEngine(treasury common.Address) *Engine {
	return &Engine{
		treasury: treasury,
		emodes:   make(map[uint8]EModeCategory),
	}
}

// SetState wires the engine to the persistence layer.
func (e *Engine) SetState(state State) { e.state = state }

// SetLedgers wires the scaled-balance ledger registry.
func (e *Engine) SetLedgers(ledgers LedgerRegistry) { e.ledgers = ledgers }

// SetPriceSource wires the base-currency price feed.
func (e *Engine) SetPriceSource(prices PriceSource) { e.prices = prices }

// SetRateStrategy wires the interest rate strategy.
func (e *Engine) SetRateStrategy(rates RateStrategy) { e.rates = rates }

// SetClock wires the time source used for accrual.
func (e *Engine) SetClock(clock Clock) { e.clock = clock }

// SetPauses wires the circuit breaker consulted on borrow and liquidation.
func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

// SetEventSink wires the receiver of operation records.
func (e *Engine) SetEventSink(sink EventSink) { e.sink = sink }

func (e *Engine) ready() error {
	switch {
	case e == nil || e.state == nil:
		return errNilState
	case e.ledgers == nil:
		return errNilLedgers
	case e.prices == nil:
		return errNilPrices
	case e.rates == nil:
		return errNilRates
	case e.clock == nil:
		return errNilClock
	}
	return nil
}

func (e *Engine) emit(ev *types.Event) {
	if e.sink != nil && ev != nil {
		e.sink.Emit(ev)
	}
}

// ListReserve registers a new asset and assigns it the next arena slot. The
// configuration is validated at this boundary; invalid parameters are never
// persisted.
func (e *Engine) ListReserve(asset common.Address, cfg ReserveConfiguration) (uint8, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	if err := cfg.Validate(); err != nil {
		return 0, err
	}
	existing, err := e.state.Reserve(asset)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		return 0, errAlreadyListed
	}
	count, err := e.state.ReserveCount()
	if err != nil {
		return 0, err
	}
	if count >= MaxReserves {
		return 0, errReserveLimit
	}
	r := &Reserve{ID: uint8(count), Asset: asset, Config: cfg, LastUpdateTimestamp: e.clock.Now()}
	r.ensureDefaults()
	if err := e.state.PutReserve(r); err != nil {
		return 0, err
	}
	return r.ID, nil
}

// SetLiquidationGracePeriod blocks liquidations touching the asset up to and
// including the given unix timestamp.
func (e *Engine) SetLiquidationGracePeriod(asset common.Address, until uint64) error {
	if err := e.ready(); err != nil {
		return err
	}
	r, err := e.ensureReserve(asset)
	if err != nil {
		return err
	}
	r.LiquidationGracePeriodUntil = until
	return e.state.PutReserve(r)
}

func (e *Engine) ensureReserve(asset common.Address) (*Reserve, error) {
	r, err := e.state.Reserve(asset)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, errReserveNotListed
	}
	r.ensureDefaults()
	return r, nil
}

func (e *Engine) ensurePosition(user common.Address) (*Position, error) {
	position, err := e.state.Position(user)
	if err != nil {
		return nil, err
	}
	if position == nil {
		position = &Position{User: user}
	}
	return position, nil
}

// snapshot loads and accrues a reserve, producing the cache every sub-step of
// the operation works against.
func (e *Engine) snapshot(asset common.Address) (*Reserve, *reserveCache, error) {
	r, err := e.ensureReserve(asset)
	if err != nil {
		return nil, nil, err
	}
	cache, err := e.cacheReserve(r)
	if err != nil {
		return nil, nil, err
	}
	if err := e.accrue(cache); err != nil {
		return nil, nil, err
	}
	return r, cache, nil
}

// Supply deposits amount of asset for onBehalfOf. A first deposit enables the
// reserve as collateral automatically when its parameters and the user's
// isolation status allow it.
func (e *Engine) Supply(asset common.Address, from, onBehalfOf common.Address, amount *uint256.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if amount == nil || amount.IsZero() {
		return errInvalidAmount
	}
	r, cache, err := e.snapshot(asset)
	if err != nil {
		return err
	}
	if err := e.validateSupply(cache, amount); err != nil {
		return err
	}
	position, err := e.ensurePosition(onBehalfOf)
	if err != nil {
		return err
	}
	if err := e.updateRatesAndBalance(cache, amount, nil); err != nil {
		return err
	}
	deposits, err := e.ledgers.Deposits(asset)
	if err != nil {
		return err
	}
	first, err := deposits.Mint(onBehalfOf, amount, cache.nextLiquidityIndex)
	if err != nil {
		return err
	}
	if first {
		enable, err := e.canAutoCollateralize(r, position)
		if err != nil {
			return err
		}
		if enable {
			position.Config.SetUsingAsCollateral(r.ID, true)
			e.emit(newCollateralEvent(true, asset, onBehalfOf))
		}
	}
	if err := e.state.PutReserve(r); err != nil {
		return err
	}
	if err := e.state.PutPosition(position); err != nil {
		return err
	}
	e.emit(newOperationEvent(EventTypeSupply, asset, from, onBehalfOf, amount))
	e.emit(newReserveDataUpdatedEvent(r))
	return nil
}

// canAutoCollateralize mirrors the manual enable rules minus the balance
// check: LTV-bearing, not isolation-capped, and not stacked next to isolated
// collateral.
func (e *Engine) canAutoCollateralize(r *Reserve, position *Position) (bool, error) {
	if r.Config.LTV == 0 || r.Config.DebtCeiling != 0 {
		return false, nil
	}
	isolated, err := e.hasIsolatedCollateral(position)
	if err != nil {
		return false, err
	}
	return !isolated, nil
}

// Withdraw redeems up to amount of the user's deposit, clamped to the
// balance. The collateral flag is cleared on full withdrawal. Returns the
// amount actually withdrawn.
func (e *Engine) Withdraw(asset common.Address, user common.Address, amount *uint256.Int) (*uint256.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if amount == nil || amount.IsZero() {
		return nil, errInvalidAmount
	}
	r, cache, err := e.snapshot(asset)
	if err != nil {
		return nil, err
	}
	if err := validateReserveUsable(cache.config); err != nil {
		return nil, err
	}
	deposits, err := e.ledgers.Deposits(asset)
	if err != nil {
		return nil, err
	}
	balance, err := fixedmath.RayMul(deposits.ScaledBalanceOf(user), cache.nextLiquidityIndex)
	if err != nil {
		return nil, err
	}
	if balance.IsZero() {
		return nil, errInsufficientBalance
	}
	withdrawn := new(uint256.Int).Set(amount)
	if withdrawn.Gt(balance) {
		withdrawn.Set(balance)
	}

	position, err := e.ensurePosition(user)
	if err != nil {
		return nil, err
	}
	usingAsCollateral := position.Config.IsUsingAsCollateral(r.ID)
	if usingAsCollateral {
		if err := e.validateCollateralDecrease(cache, position, withdrawn); err != nil {
			return nil, err
		}
	}

	if err := e.updateRatesAndBalance(cache, nil, withdrawn); err != nil {
		return nil, err
	}
	cleared, _, err := deposits.Burn(user, withdrawn, cache.nextLiquidityIndex)
	if err != nil {
		return nil, err
	}
	if cleared && usingAsCollateral {
		position.Config.SetUsingAsCollateral(r.ID, false)
		e.emit(newCollateralEvent(false, asset, user))
	}
	if err := e.state.PutReserve(r); err != nil {
		return nil, err
	}
	if err := e.state.PutPosition(position); err != nil {
		return nil, err
	}
	e.emit(newOperationEvent(EventTypeWithdraw, asset, user, user, withdrawn))
	e.emit(newReserveDataUpdatedEvent(r))
	return withdrawn, nil
}

// Borrow draws amount of asset against onBehalfOf's collateral.
func (e *Engine) Borrow(asset common.Address, caller, onBehalfOf common.Address, amount *uint256.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, moduleName, actionBorrow); err != nil {
		return err
	}
	if amount == nil || amount.IsZero() {
		return errInvalidAmount
	}
	r, cache, err := e.snapshot(asset)
	if err != nil {
		return err
	}
	position, err := e.ensurePosition(onBehalfOf)
	if err != nil {
		return err
	}
	if err := e.validateBorrow(cache, position, amount); err != nil {
		return err
	}
	if r.VirtualUnderlyingBalance.Lt(amount) {
		return errInsufficientLiquidity
	}

	isoReserve, isolated, err := e.isolationState(position, r)
	if err != nil {
		return err
	}
	if isolated {
		if !cache.config.BorrowableInIsolation {
			return errAssetNotBorrowableIso
		}
		if err := e.increaseIsolatedDebt(isoReserve, amount, cache.config.Decimals); err != nil {
			return err
		}
	}

	debts, err := e.ledgers.Debts(asset)
	if err != nil {
		return err
	}
	first, err := debts.Mint(onBehalfOf, amount, cache.nextBorrowIndex)
	if err != nil {
		return err
	}
	if first {
		position.Config.SetBorrowing(r.ID, true)
	}
	cache.nextScaledDebt = debts.ScaledTotalSupply()

	if err := e.updateRatesAndBalance(cache, nil, amount); err != nil {
		return err
	}
	if err := e.state.PutReserve(r); err != nil {
		return err
	}
	if isolated && isoReserve.Asset != r.Asset {
		if err := e.state.PutReserve(isoReserve); err != nil {
			return err
		}
	}
	if err := e.state.PutPosition(position); err != nil {
		return err
	}
	e.emit(newOperationEvent(EventTypeBorrow, asset, caller, onBehalfOf, amount))
	e.emit(newReserveDataUpdatedEvent(r))
	return nil
}

// Repay settles up to amount of onBehalfOf's debt, clamped to the
// outstanding balance. Returns the amount actually repaid.
func (e *Engine) Repay(asset common.Address, from, onBehalfOf common.Address, amount *uint256.Int) (*uint256.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if amount == nil || amount.IsZero() {
		return nil, errInvalidAmount
	}
	r, cache, err := e.snapshot(asset)
	if err != nil {
		return nil, err
	}
	if err := validateReserveUsable(cache.config); err != nil {
		return nil, err
	}
	position, err := e.ensurePosition(onBehalfOf)
	if err != nil {
		return nil, err
	}
	debts, err := e.ledgers.Debts(asset)
	if err != nil {
		return nil, err
	}
	debt, err := fixedmath.RayMul(debts.ScaledBalanceOf(onBehalfOf), cache.nextBorrowIndex)
	if err != nil {
		return nil, err
	}
	if !position.Config.IsBorrowing(r.ID) || debt.IsZero() {
		return nil, errNoDebtToRepay
	}
	repaid := new(uint256.Int).Set(amount)
	if repaid.Gt(debt) {
		repaid.Set(debt)
	}

	cleared, newScaledTotal, err := debts.Burn(onBehalfOf, repaid, cache.nextBorrowIndex)
	if err != nil {
		return nil, err
	}
	cache.nextScaledDebt = newScaledTotal
	if cleared {
		position.Config.SetBorrowing(r.ID, false)
	}

	isoReserve, isolated, err := e.isolationState(position, r)
	if err != nil {
		return nil, err
	}
	if isolated {
		reduceIsolatedDebt(isoReserve, repaid, cache.config.Decimals)
	}

	if err := e.updateRatesAndBalance(cache, repaid, nil); err != nil {
		return nil, err
	}
	if err := e.state.PutReserve(r); err != nil {
		return nil, err
	}
	if isolated && isoReserve.Asset != r.Asset {
		if err := e.state.PutReserve(isoReserve); err != nil {
			return nil, err
		}
	}
	if err := e.state.PutPosition(position); err != nil {
		return nil, err
	}
	e.emit(newOperationEvent(EventTypeRepay, asset, from, onBehalfOf, repaid))
	e.emit(newReserveDataUpdatedEvent(r))
	return repaid, nil
}

// SetUsingAsCollateral toggles the user's collateral flag for the asset.
// Enabling is subject to LTV and isolation constraints; disabling must leave
// the position healthy.
func (e *Engine) SetUsingAsCollateral(asset common.Address, user common.Address, enabled bool) error {
	if err := e.ready(); err != nil {
		return err
	}
	r, cache, err := e.snapshot(asset)
	if err != nil {
		return err
	}
	if err := validateReserveUsable(cache.config); err != nil {
		return err
	}
	position, err := e.ensurePosition(user)
	if err != nil {
		return err
	}
	if position.Config.IsUsingAsCollateral(r.ID) == enabled {
		return nil
	}

	deposits, err := e.ledgers.Deposits(asset)
	if err != nil {
		return err
	}
	balance, err := fixedmath.RayMul(deposits.ScaledBalanceOf(user), cache.nextLiquidityIndex)
	if err != nil {
		return err
	}

	if enabled {
		if balance.IsZero() {
			return errCollateralBalanceZero
		}
		if cache.config.LTV == 0 {
			return errLTVValidationFailed
		}
		if !position.Config.IsEmpty() {
			isolatedElsewhere, err := e.hasIsolatedCollateral(position)
			if err != nil {
				return err
			}
			if isolatedElsewhere || cache.config.DebtCeiling != 0 {
				return errIsolatedCollateral
			}
		}
		position.Config.SetUsingAsCollateral(r.ID, true)
	} else {
		if err := e.validateCollateralDecrease(cache, position, balance); err != nil {
			return err
		}
		position.Config.SetUsingAsCollateral(r.ID, false)
	}

	if err := e.state.PutReserve(r); err != nil {
		return err
	}
	if err := e.state.PutPosition(position); err != nil {
		return err
	}
	e.emit(newCollateralEvent(enabled, asset, user))
	return nil
}

// MintToTreasury converts the reserve's accrued treasury share into live
// deposit shares held by the treasury account.
func (e *Engine) MintToTreasury(asset common.Address) (*uint256.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	r, cache, err := e.snapshot(asset)
	if err != nil {
		return nil, err
	}
	if r.AccruedToTreasury.IsZero() {
		return new(uint256.Int), nil
	}
	amount, err := fixedmath.RayMul(r.AccruedToTreasury, cache.nextLiquidityIndex)
	if err != nil {
		return nil, err
	}
	deposits, err := e.ledgers.Deposits(asset)
	if err != nil {
		return nil, err
	}
	if _, err := deposits.Mint(e.treasury, amount, cache.nextLiquidityIndex); err != nil {
		return nil, err
	}
	r.AccruedToTreasury = new(uint256.Int)
	if err := e.state.PutReserve(r); err != nil {
		return nil, err
	}
	e.emit(newTreasuryMintedEvent(asset, amount))
	return amount, nil
}

// EliminateDeficit retires recorded bad debt by burning the caller's deposit
// shares against it, clamped to the outstanding deficit. Returns the amount
// actually eliminated.
func (e *Engine) EliminateDeficit(asset common.Address, caller common.Address, amount *uint256.Int) (*uint256.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if amount == nil || amount.IsZero() {
		return nil, errInvalidAmount
	}
	r, cache, err := e.snapshot(asset)
	if err != nil {
		return nil, err
	}
	if err := validateReserveUsable(cache.config); err != nil {
		return nil, err
	}
	if r.Deficit.IsZero() {
		return nil, errNoDeficit
	}
	covered := new(uint256.Int).Set(amount)
	if covered.Gt(r.Deficit) {
		covered.Set(r.Deficit)
	}
	deposits, err := e.ledgers.Deposits(asset)
	if err != nil {
		return nil, err
	}
	balance, err := fixedmath.RayMul(deposits.ScaledBalanceOf(caller), cache.nextLiquidityIndex)
	if err != nil {
		return nil, err
	}
	if balance.Lt(covered) {
		return nil, errInsufficientBalance
	}
	if _, _, err := deposits.Burn(caller, covered, cache.nextLiquidityIndex); err != nil {
		return nil, err
	}
	r.Deficit.Sub(r.Deficit, covered)
	if err := e.state.PutReserve(r); err != nil {
		return nil, err
	}
	e.emit(newDeficitEliminatedEvent(asset, caller, covered))
	return covered, nil
}
