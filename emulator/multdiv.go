package emulator

// multUnsigned computes the 64 bit product of a and b the way the hardware
// multiplier does, from 16 bit partial products.
func multUnsigned(a, b uint32, hi, lo *uint32, accumulate bool) {
	ahi, alo := a>>16, a&0xffff
	bhi, blo := b>>16, b&0xffff

	c0 := alo * blo
	c1a := ahi * blo
	c1b := alo * bhi
	c2 := ahi * bhi

	c2 += (c1a >> 16) + (c1b >> 16)
	c1 := (c1a & 0xffff) + (c1b & 0xffff) + (c0 >> 16)
	c2 += c1 >> 16
	c0 = (c1 << 16) + (c0 & 0xffff)

	if accumulate {
		res := uint64(c2)<<32 | uint64(c0)
		res += uint64(*hi)<<32 | uint64(*lo)
		c2 = uint32(res >> 32)
		c0 = uint32(res)
	}

	*hi = c2
	*lo = c0
}

func multSigned(a, b uint32, hi, lo *uint32, accumulate bool) {
	res := int64(int32(a)) * int64(int32(b))
	if accumulate {
		res += int64(uint64(*hi)<<32 | uint64(*lo))
	}

	*hi = uint32(uint64(res) >> 32)
	*lo = uint32(res)
}

// signedRem returns the remainder with the sign of the dividend.
func signedRem(dividend, divisor int32) int32 {
	rem := dividend % divisor
	if (rem < 0 && dividend > 0) || (rem > 0 && dividend < 0) {
		return -rem
	}
	return rem
}

func countLeading(ones bool, src uint32) uint32 {
	mask := uint32(0x80000000)
	var bits uint32
	if ones {
		bits = 0xffffffff
	}

	var i uint32
	for ; i < 32; i++ {
		if src&mask != bits&mask {
			return i
		}
		mask >>= 1
	}
	return i
}

func bitfieldMask(word uint32) (uint32, uint32) {
	pos := (word >> 6) & 0x1f
	size := ((word >> 11) & 0x1f) + 1
	mask := uint32((uint64(1)<<size)-1) << pos
	return pos, mask
}

// extractBitfield implements EXT: pos in sa, size-1 in rd.
func extractBitfield(src, word uint32) uint32 {
	pos, mask := bitfieldMask(word)
	return (src & mask) >> pos
}

// insertBitfield implements INS with the same field layout as EXT.
func insertBitfield(target, src, word uint32) uint32 {
	pos, mask := bitfieldMask(word)
	return target&^mask | ((src << pos) & mask)
}
