package lending

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"corelend/native/fixedmath"
)

// ConfigureEMode registers or replaces an efficiency-mode category. Category
// 0 is reserved as "no category" and cannot be configured.
func (e *Engine) ConfigureEMode(id uint8, category EModeCategory) error {
	if id == 0 {
		return fmt.Errorf("lending engine: emode category 0 is reserved")
	}
	if category.LTV > maxValidPercent || category.LiquidationThreshold > maxValidPercent {
		return fmt.Errorf("lending engine: emode category %d parameters out of range", id)
	}
	if category.LTV > category.LiquidationThreshold {
		return fmt.Errorf("lending engine: emode category %d ltv exceeds liquidation threshold", id)
	}
	if category.LiquidationBonus <= maxValidPercent || category.LiquidationBonus > maxValidBonus {
		return fmt.Errorf("lending engine: emode category %d liquidation bonus out of range", id)
	}
	e.emodes[id] = category
	return nil
}

// SetUserEMode switches the user into the given category (0 leaves eMode).
// The switch is rejected when the user borrows any asset the category does
// not allow, and the position must stay healthy under the new parameters.
func (e *Engine) SetUserEMode(user common.Address, categoryID uint8) error {
	if err := e.ready(); err != nil {
		return err
	}
	position, err := e.ensurePosition(user)
	if err != nil {
		return err
	}
	if position.EModeCategory == categoryID {
		return nil
	}

	var category EModeCategory
	if categoryID != 0 {
		var ok bool
		category, ok = e.emodes[categoryID]
		if !ok {
			return errInvalidEModeCategory
		}
		err = position.Config.ForEach(func(id uint8, _, borrowing bool) error {
			if borrowing && !category.BorrowableEnabled(id) {
				return errNotBorrowableInEMode
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	// Health check under the prospective category before committing.
	data, err := e.accountData(accountDataParams{
		user:          user,
		position:      position,
		eModeOverride: &categoryID,
	})
	if err != nil {
		return err
	}
	if data.HealthFactor.Lt(fixedmath.Wad) {
		return errHealthFactorTooLow
	}

	position.EModeCategory = categoryID
	if err := e.state.PutPosition(position); err != nil {
		return err
	}
	e.emit(newEModeSetEvent(user, categoryID))
	return nil
}
