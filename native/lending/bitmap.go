package lending

import "github.com/holiman/uint256"

// MaxReserves bounds the reserve arena so every listed reserve owns a fixed
// two-bit slot in user bitmaps.
const MaxReserves = 128

// UserConfiguration is the two-bit-per-reserve position bitmap: bit 2*id
// flags an outstanding borrow, bit 2*id+1 flags the reserve being used as
// collateral. The layout makes skipping uninvolved reserves a shift-and-test
// with early exit once the remaining word is zero.
type UserConfiguration struct {
	data uint256.Int
}

func borrowBitIndex(id uint8) uint     { return uint(id) * 2 }
func collateralBitIndex(id uint8) uint { return uint(id)*2 + 1 }

func (c *UserConfiguration) bit(index uint) bool {
	v := new(uint256.Int).Rsh(&c.data, index)
	return v.Uint64()&1 == 1
}

func (c *UserConfiguration) setBit(index uint, on bool) {
	mask := uint256.NewInt(1)
	mask.Lsh(mask, index)
	if on {
		c.data.Or(&c.data, mask)
		return
	}
	c.data.And(&c.data, mask.Not(mask))
}

// IsBorrowing reports whether the user has outstanding debt in the reserve.
func (c *UserConfiguration) IsBorrowing(id uint8) bool {
	return c.bit(borrowBitIndex(id))
}

// IsUsingAsCollateral reports whether the reserve backs the user's position.
func (c *UserConfiguration) IsUsingAsCollateral(id uint8) bool {
	return c.bit(collateralBitIndex(id))
}

// SetBorrowing records or clears the borrow flag for the reserve. The write
// paths keep the flag consistent with the scaled debt balance; the bitmap
// itself does not enforce it.
func (c *UserConfiguration) SetBorrowing(id uint8, on bool) {
	c.setBit(borrowBitIndex(id), on)
}

// SetUsingAsCollateral records or clears the collateral flag for the reserve.
func (c *UserConfiguration) SetUsingAsCollateral(id uint8, on bool) {
	c.setBit(collateralBitIndex(id), on)
}

// IsEmpty reports whether the user has no flagged reserves at all.
func (c *UserConfiguration) IsEmpty() bool {
	return c.data.IsZero()
}

// IsBorrowingAny reports whether any borrow bit is set.
func (c *UserConfiguration) IsBorrowingAny() bool {
	for rest := new(uint256.Int).Set(&c.data); !rest.IsZero(); rest.Rsh(rest, 2) {
		if rest.Uint64()&0b01 != 0 {
			return true
		}
	}
	return false
}

// CollateralReserve returns the id of the single reserve used as collateral
// when exactly one collateral bit is set. The second return is false when the
// user has zero or multiple collateral reserves.
func (c *UserConfiguration) CollateralReserve() (uint8, bool) {
	found := false
	var id uint8
	rest := new(uint256.Int).Set(&c.data)
	for i := 0; !rest.IsZero() && i < MaxReserves; i++ {
		if rest.Uint64()&0b10 != 0 {
			if found {
				return 0, false
			}
			found = true
			id = uint8(i)
		}
		rest.Rsh(rest, 2)
	}
	return id, found
}

// ForEach walks the flagged reserves in ascending id order, skipping reserves
// with neither flag set and exiting as soon as the remaining bitmap is zero.
// Returning a non-nil error aborts the walk.
func (c *UserConfiguration) ForEach(fn func(id uint8, collateral, borrowing bool) error) error {
	rest := new(uint256.Int).Set(&c.data)
	for i := 0; !rest.IsZero() && i < MaxReserves; i++ {
		flags := rest.Uint64() & 0b11
		if flags != 0 {
			if err := fn(uint8(i), flags&0b10 != 0, flags&0b01 != 0); err != nil {
				return err
			}
		}
		rest.Rsh(rest, 2)
	}
	return nil
}

// Word exposes the raw backing word for serialization.
func (c *UserConfiguration) Word() *uint256.Int {
	return new(uint256.Int).Set(&c.data)
}

// SetWord restores the bitmap from its serialized form.
func (c *UserConfiguration) SetWord(w *uint256.Int) {
	if w == nil {
		c.data.Clear()
		return
	}
	c.data.Set(w)
}
