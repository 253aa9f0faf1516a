package lending

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"corelend/core/types"
)

// State is the engine's persistence boundary. Implementations return nil for
// unknown assets and users; the engine loads records, mutates them in memory
// and persists them with Put calls only after every validation step passed,
// which is what makes each operation all-or-nothing.
type State interface {
	Reserve(asset common.Address) (*Reserve, error)
	ReserveByID(id uint8) (*Reserve, error)
	ReserveCount() (int, error)
	PutReserve(*Reserve) error
	Position(user common.Address) (*Position, error)
	PutPosition(*Position) error
}

// ScaledLedger is the opaque mintable/burnable balance ledger behind each
// reserve's deposits and debt. Balances are stored scaled: the ledger divides
// by the supplied index on mint/burn and the engine multiplies by the current
// index on read, all in ray half-up arithmetic.
type ScaledLedger interface {
	ScaledBalanceOf(user common.Address) *uint256.Int
	ScaledTotalSupply() *uint256.Int
	// Mint credits amount (in real units) at the given index and reports
	// whether this was the holder's first deposit.
	Mint(user common.Address, amount, index *uint256.Int) (firstDeposit bool, err error)
	// Burn debits amount (in real units) at the given index and reports
	// whether the holder's balance is now fully cleared, along with the new
	// scaled total supply.
	Burn(user common.Address, amount, index *uint256.Int) (cleared bool, newScaledTotal *uint256.Int, err error)
}

// DepositLedger additionally supports seizure transfers during liquidation.
type DepositLedger interface {
	ScaledLedger
	// Transfer moves amount (in real units) between holders at the given
	// index without touching the total supply.
	Transfer(from, to common.Address, amount, index *uint256.Int) error
}

// LedgerRegistry resolves the deposit and debt ledgers of a listed asset.
type LedgerRegistry interface {
	Deposits(asset common.Address) (DepositLedger, error)
	Debts(asset common.Address) (ScaledLedger, error)
}

// PriceSource quotes assets in the common base currency with a fixed number
// of decimals shared by every quote.
type PriceSource interface {
	Price(asset common.Address) (*uint256.Int, error)
}

// RateInput carries the utilization inputs handed to the rate strategy after
// a liquidity delta. LiquidityAdded and LiquidityTaken are never both
// non-zero in one call.
type RateInput struct {
	LiquidityAdded *uint256.Int
	LiquidityTaken *uint256.Int
	TotalDebt      *uint256.Int
	VirtualBalance *uint256.Int
	ReserveFactor  uint64
}

// RateStrategy derives the annualized ray rates from reserve utilization. It
// must be a pure function of its input.
type RateStrategy interface {
	Rates(in RateInput) (liquidityRate, borrowRate *uint256.Int, err error)
}

// Clock supplies the engine's notion of "now" in unix seconds. Threading it
// explicitly keeps accrual deterministic and testable.
type Clock interface {
	Now() uint64
}

// EventSink receives the structured record every mutating operation reports.
type EventSink interface {
	Emit(*types.Event)
}
