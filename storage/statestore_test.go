package storage

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"corelend/native/fixedmath"
	"corelend/native/lending"
)

func testReserve(id uint8, suffix byte) *lending.Reserve {
	var asset common.Address
	asset[len(asset)-1] = suffix
	return &lending.Reserve{
		ID:    id,
		Asset: asset,
		Config: lending.ReserveConfiguration{
			LTV:                  8_000,
			LiquidationThreshold: 8_500,
			LiquidationBonus:     10_500,
			Decimals:             18,
			Active:               true,
			BorrowingEnabled:     true,
			ReserveFactor:        1_000,
			DebtCeiling:          10_000,
		},
		LiquidityIndex:              new(uint256.Int).Set(fixedmath.Ray),
		VariableBorrowIndex:         new(uint256.Int).Set(fixedmath.Ray),
		CurrentLiquidityRate:        uint256.NewInt(42),
		CurrentVariableBorrowRate:   uint256.NewInt(1_337),
		LastUpdateTimestamp:         1_700_000_000,
		AccruedToTreasury:           uint256.NewInt(7),
		VirtualUnderlyingBalance:    uint256.NewInt(1_000_000),
		IsolationModeTotalDebt:      uint256.NewInt(55),
		Deficit:                     uint256.NewInt(3),
		LiquidationGracePeriodUntil: 1_700_000_100,
	}
}

func TestStateStoreReserveRoundTrip(t *testing.T) {
	store := NewStateStore(NewMemDB())
	want := testReserve(0, 0xaa)

	require.NoError(t, store.PutReserve(want))
	got, err := store.Reserve(want.Asset)
	require.NoError(t, err)
	require.NotNil(t, got)

	require.Equal(t, want.Config, got.Config)
	require.Zero(t, got.LiquidityIndex.Cmp(want.LiquidityIndex))
	require.Zero(t, got.VariableBorrowIndex.Cmp(want.VariableBorrowIndex))
	require.Zero(t, got.CurrentLiquidityRate.Cmp(want.CurrentLiquidityRate))
	require.Zero(t, got.CurrentVariableBorrowRate.Cmp(want.CurrentVariableBorrowRate))
	require.Equal(t, want.LastUpdateTimestamp, got.LastUpdateTimestamp)
	require.Equal(t, want.LiquidationGracePeriodUntil, got.LiquidationGracePeriodUntil)
	require.Zero(t, got.AccruedToTreasury.Cmp(want.AccruedToTreasury))
	require.Zero(t, got.VirtualUnderlyingBalance.Cmp(want.VirtualUnderlyingBalance))
	require.Zero(t, got.IsolationModeTotalDebt.Cmp(want.IsolationModeTotalDebt))
	require.Zero(t, got.Deficit.Cmp(want.Deficit))
}

func TestStateStoreSlotIndexAndCount(t *testing.T) {
	store := NewStateStore(NewMemDB())
	a := testReserve(0, 0xaa)
	b := testReserve(1, 0xbb)

	require.NoError(t, store.PutReserve(a))
	require.NoError(t, store.PutReserve(b))

	// Re-writing an existing reserve must not bump the count.
	a.Deficit = uint256.NewInt(99)
	require.NoError(t, store.PutReserve(a))

	count, err := store.ReserveCount()
	require.NoError(t, err)
	require.Equal(t, 2, count)

	got, err := store.ReserveByID(1)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, b.Asset, got.Asset)

	missing, err := store.ReserveByID(7)
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestStateStorePositionRoundTrip(t *testing.T) {
	store := NewStateStore(NewMemDB())
	var user common.Address
	user[0] = 0x42

	missing, err := store.Position(user)
	require.NoError(t, err)
	require.Nil(t, missing)

	p := &lending.Position{User: user, EModeCategory: 3}
	p.Config.SetBorrowing(2, true)
	p.Config.SetUsingAsCollateral(5, true)
	require.NoError(t, store.PutPosition(p))

	got, err := store.Position(user)
	require.NoError(t, err)
	require.Equal(t, user, got.User)
	require.Equal(t, uint8(3), got.EModeCategory)
	require.True(t, got.Config.IsBorrowing(2))
	require.True(t, got.Config.IsUsingAsCollateral(5))
}

func TestMemDBCopiesValues(t *testing.T) {
	db := NewMemDB()
	key := []byte("k")
	value := []byte{1, 2, 3}
	require.NoError(t, db.Put(key, value))

	value[0] = 9
	got, err := db.Get(key)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, got)

	got[1] = 9
	again, err := db.Get(key)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, again)

	_, err = db.Get([]byte("absent"))
	require.ErrorIs(t, err, ErrKeyNotFound)
}
