package lending

import (
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"corelend/core/types"
)

const (
	EventTypeSupply             = "lending.supply"
	EventTypeWithdraw           = "lending.withdraw"
	EventTypeBorrow             = "lending.borrow"
	EventTypeRepay              = "lending.repay"
	EventTypeLiquidation        = "lending.liquidation"
	EventTypeCollateralEnabled  = "lending.collateral.enabled"
	EventTypeCollateralDisabled = "lending.collateral.disabled"
	EventTypeEModeSet           = "lending.emode.set"
	EventTypeReserveDataUpdated = "lending.reserve.updated"
	EventTypeTreasuryMinted     = "lending.treasury.minted"
	// DeficitCreated is distinct from ordinary debt burns: it records debt
	// written off against the protocol rather than repaid.
	EventTypeDeficitCreated    = "lending.deficit.created"
	EventTypeDeficitEliminated = "lending.deficit.eliminated"
)

func amountAttr(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}

func newOperationEvent(eventType string, asset common.Address, user, onBehalfOf common.Address, amount *uint256.Int) *types.Event {
	attrs := map[string]string{
		"asset":  asset.Hex(),
		"user":   user.Hex(),
		"amount": amountAttr(amount),
	}
	if onBehalfOf != user {
		attrs["onBehalfOf"] = onBehalfOf.Hex()
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}

func newReserveDataUpdatedEvent(r *Reserve) *types.Event {
	return &types.Event{
		Type: EventTypeReserveDataUpdated,
		Attributes: map[string]string{
			"asset":          r.Asset.Hex(),
			"liquidityIndex": amountAttr(r.LiquidityIndex),
			"borrowIndex":    amountAttr(r.VariableBorrowIndex),
			"liquidityRate":  amountAttr(r.CurrentLiquidityRate),
			"borrowRate":     amountAttr(r.CurrentVariableBorrowRate),
		},
	}
}

func newLiquidationEvent(res *LiquidationResult) *types.Event {
	return &types.Event{
		Type: EventTypeLiquidation,
		Attributes: map[string]string{
			"collateralAsset":  res.CollateralAsset.Hex(),
			"debtAsset":        res.DebtAsset.Hex(),
			"user":             res.User.Hex(),
			"liquidator":       res.Liquidator.Hex(),
			"debtCovered":      amountAttr(res.DebtCovered),
			"collateralSeized": amountAttr(res.CollateralSeized),
			"protocolFee":      amountAttr(res.ProtocolFee),
			"receiveShares":    strconv.FormatBool(res.ReceiveShares),
		},
	}
}

func newDeficitCreatedEvent(asset common.Address, user common.Address, amount *uint256.Int) *types.Event {
	return &types.Event{
		Type: EventTypeDeficitCreated,
		Attributes: map[string]string{
			"asset":  asset.Hex(),
			"user":   user.Hex(),
			"amount": amountAttr(amount),
		},
	}
}

func newDeficitEliminatedEvent(asset common.Address, caller common.Address, amount *uint256.Int) *types.Event {
	return &types.Event{
		Type: EventTypeDeficitEliminated,
		Attributes: map[string]string{
			"asset":  asset.Hex(),
			"caller": caller.Hex(),
			"amount": amountAttr(amount),
		},
	}
}

func newCollateralEvent(enabled bool, asset common.Address, user common.Address) *types.Event {
	eventType := EventTypeCollateralDisabled
	if enabled {
		eventType = EventTypeCollateralEnabled
	}
	return &types.Event{
		Type: eventType,
		Attributes: map[string]string{
			"asset": asset.Hex(),
			"user":  user.Hex(),
		},
	}
}

func newEModeSetEvent(user common.Address, categoryID uint8) *types.Event {
	return &types.Event{
		Type: EventTypeEModeSet,
		Attributes: map[string]string{
			"user":     user.Hex(),
			"category": strconv.FormatUint(uint64(categoryID), 10),
		},
	}
}

func newTreasuryMintedEvent(asset common.Address, amount *uint256.Int) *types.Event {
	return &types.Event{
		Type: EventTypeTreasuryMinted,
		Attributes: map[string]string{
			"asset":  asset.Hex(),
			"amount": amountAttr(amount),
		},
	}
}
