package storage

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"

	"corelend/native/lending"
)

// Key prefixes for the lending state records. Reserves are addressable both
// by asset and by arena slot; the slot index stores only the asset address so
// each reserve has a single authoritative record.
var (
	keyReserve      = []byte("lend/reserve/")
	keyReserveSlot  = []byte("lend/reserve-slot/")
	keyReserveCount = []byte("lend/reserve-count")
	keyPosition     = []byte("lend/position/")
)

// storedReserve is the wire form of a reserve. The configuration travels as
// its packed word, so records round-trip bit-compatibly with externally
// produced encodings.
type storedReserve struct {
	ID                          uint8
	Asset                       common.Address
	Config                      *uint256.Int
	LiquidityIndex              *uint256.Int
	VariableBorrowIndex         *uint256.Int
	CurrentLiquidityRate        *uint256.Int
	CurrentVariableBorrowRate   *uint256.Int
	LastUpdateTimestamp         uint64
	AccruedToTreasury           *uint256.Int
	VirtualUnderlyingBalance    *uint256.Int
	IsolationModeTotalDebt      *uint256.Int
	Deficit                     *uint256.Int
	LiquidationGracePeriodUntil uint64
}

type storedPosition struct {
	User          common.Address
	Config        *uint256.Int
	EModeCategory uint8
}

// StateStore persists the lending engine's reserves and positions as RLP
// records in a key-value database. Loads return fresh copies, so the engine's
// in-memory mutations only become visible through Put, which is what gives
// operations their all-or-nothing behavior.
type StateStore struct {
	db Database
}

func NewStateStore(db Database) *StateStore {
	return &StateStore{db: db}
}

func reserveKey(asset common.Address) []byte {
	return append(append([]byte{}, keyReserve...), asset.Bytes()...)
}

func reserveSlotKey(id uint8) []byte {
	return append(append([]byte{}, keyReserveSlot...), id)
}

func positionKey(user common.Address) []byte {
	return append(append([]byte{}, keyPosition...), user.Bytes()...)
}

// Reserve loads the reserve listed for asset, or nil when none is.
func (s *StateStore) Reserve(asset common.Address) (*lending.Reserve, error) {
	raw, err := s.db.Get(reserveKey(asset))
	if errors.Is(err, ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var stored storedReserve
	if err := rlp.DecodeBytes(raw, &stored); err != nil {
		return nil, fmt.Errorf("storage: decode reserve %s: %w", asset, err)
	}
	return &lending.Reserve{
		ID:                          stored.ID,
		Asset:                       stored.Asset,
		Config:                      lending.UnpackReserveConfiguration(stored.Config),
		LiquidityIndex:              stored.LiquidityIndex,
		VariableBorrowIndex:         stored.VariableBorrowIndex,
		CurrentLiquidityRate:        stored.CurrentLiquidityRate,
		CurrentVariableBorrowRate:   stored.CurrentVariableBorrowRate,
		LastUpdateTimestamp:         stored.LastUpdateTimestamp,
		AccruedToTreasury:           stored.AccruedToTreasury,
		VirtualUnderlyingBalance:    stored.VirtualUnderlyingBalance,
		IsolationModeTotalDebt:      stored.IsolationModeTotalDebt,
		Deficit:                     stored.Deficit,
		LiquidationGracePeriodUntil: stored.LiquidationGracePeriodUntil,
	}, nil
}

// ReserveByID resolves the arena slot to its asset and loads that reserve.
func (s *StateStore) ReserveByID(id uint8) (*lending.Reserve, error) {
	raw, err := s.db.Get(reserveSlotKey(id))
	if errors.Is(err, ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.Reserve(common.BytesToAddress(raw))
}

// ReserveCount returns the number of listed reserves.
func (s *StateStore) ReserveCount() (int, error) {
	raw, err := s.db.Get(keyReserveCount)
	if errors.Is(err, ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var count uint64
	if err := rlp.DecodeBytes(raw, &count); err != nil {
		return 0, fmt.Errorf("storage: decode reserve count: %w", err)
	}
	return int(count), nil
}

// PutReserve persists the reserve, maintaining the slot index and the count
// for first-time listings.
func (s *StateStore) PutReserve(r *lending.Reserve) error {
	_, err := s.db.Get(reserveKey(r.Asset))
	isNew := errors.Is(err, ErrKeyNotFound)
	if err != nil && !isNew {
		return err
	}

	stored := storedReserve{
		ID:                          r.ID,
		Asset:                       r.Asset,
		Config:                      r.Config.Pack(),
		LiquidityIndex:              r.LiquidityIndex,
		VariableBorrowIndex:         r.VariableBorrowIndex,
		CurrentLiquidityRate:        r.CurrentLiquidityRate,
		CurrentVariableBorrowRate:   r.CurrentVariableBorrowRate,
		LastUpdateTimestamp:         r.LastUpdateTimestamp,
		AccruedToTreasury:           r.AccruedToTreasury,
		VirtualUnderlyingBalance:    r.VirtualUnderlyingBalance,
		IsolationModeTotalDebt:      r.IsolationModeTotalDebt,
		Deficit:                     r.Deficit,
		LiquidationGracePeriodUntil: r.LiquidationGracePeriodUntil,
	}
	raw, err := rlp.EncodeToBytes(&stored)
	if err != nil {
		return fmt.Errorf("storage: encode reserve %s: %w", r.Asset, err)
	}
	if err := s.db.Put(reserveKey(r.Asset), raw); err != nil {
		return err
	}
	if !isNew {
		return nil
	}
	if err := s.db.Put(reserveSlotKey(r.ID), r.Asset.Bytes()); err != nil {
		return err
	}
	count, err := s.ReserveCount()
	if err != nil {
		return err
	}
	rawCount, err := rlp.EncodeToBytes(uint64(count + 1))
	if err != nil {
		return err
	}
	return s.db.Put(keyReserveCount, rawCount)
}

// Position loads the user's position record, or nil when none exists.
func (s *StateStore) Position(user common.Address) (*lending.Position, error) {
	raw, err := s.db.Get(positionKey(user))
	if errors.Is(err, ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var stored storedPosition
	if err := rlp.DecodeBytes(raw, &stored); err != nil {
		return nil, fmt.Errorf("storage: decode position %s: %w", user, err)
	}
	p := &lending.Position{User: stored.User, EModeCategory: stored.EModeCategory}
	p.Config.SetWord(stored.Config)
	return p, nil
}

// PutPosition persists the user's position record.
func (s *StateStore) PutPosition(p *lending.Position) error {
	stored := storedPosition{
		User:          p.User,
		Config:        p.Config.Word(),
		EModeCategory: p.EModeCategory,
	}
	raw, err := rlp.EncodeToBytes(&stored)
	if err != nil {
		return fmt.Errorf("storage: encode position %s: %w", p.User, err)
	}
	return s.db.Put(positionKey(p.User), raw)
}
