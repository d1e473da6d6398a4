package crypto

import (
	"encoding/binary"
	"encoding/hex"
)

/*
Isaac is Bob Jenkins' ISAAC generator (32-bit). It derives the per-round salt
that shuffles delta entries, so its output is part of the consensus protocol:
every node must obtain the same salt from the same previous-delta hash.

Seeding rule, version 1:
  - the seed string is the lowercase hex encoding of the hash, no prefix;
  - the code of each character is written to one result word, in order, and at
    most 256 characters are used;
  - the generator is initialised with the seed and one block of results is
    produced;
  - Next returns the result words from index 0 upwards.

The salt is the first word returned by Next, as 4 little-endian bytes.
*/

const isaacGoldenRatio uint32 = 0x9e3779b9

// Isaac holds the state of an ISAAC generator.
type Isaac struct {
	rsl [256]uint32
	mm  [256]uint32

	aa, bb, cc uint32
	cnt        int
}

// NewIsaac seeds a generator with the bytes of seed.
func NewIsaac(seed []byte) *Isaac {
	r := &Isaac{}
	for i := 0; i < len(seed) && i < len(r.rsl); i++ {
		r.rsl[i] = uint32(seed[i])
	}
	r.init(true)
	return r
}

// Next returns the next 32-bit output.
func (r *Isaac) Next() uint32 {
	result := r.rsl[r.cnt]
	r.cnt++
	if r.cnt < len(r.rsl) {
		return result
	}

	r.isaac()
	r.cnt = 0

	return result
}

func (r *Isaac) isaac() {
	r.cc++
	r.bb += r.cc

	for i := 0; i < 256; i++ {
		x := r.mm[i]
		switch i & 3 {
		case 0:
			r.aa ^= r.aa << 13
		case 1:
			r.aa ^= r.aa >> 6
		case 2:
			r.aa ^= r.aa << 2
		case 3:
			r.aa ^= r.aa >> 16
		}
		r.aa = r.mm[(i+128)&255] + r.aa
		y := r.mm[(x>>2)&255] + r.aa + r.bb
		r.mm[i] = y
		r.bb = r.mm[(y>>10)&255] + x
		r.rsl[i] = r.bb
	}
}

func isaacMix(s *[8]uint32) {
	s[0] ^= s[1] << 11
	s[3] += s[0]
	s[1] += s[2]
	s[1] ^= s[2] >> 2
	s[4] += s[1]
	s[2] += s[3]
	s[2] ^= s[3] << 8
	s[5] += s[2]
	s[3] += s[4]
	s[3] ^= s[4] >> 16
	s[6] += s[3]
	s[4] += s[5]
	s[4] ^= s[5] << 10
	s[7] += s[4]
	s[5] += s[6]
	s[5] ^= s[6] >> 4
	s[0] += s[5]
	s[6] += s[7]
	s[6] ^= s[7] << 8
	s[1] += s[6]
	s[7] += s[0]
	s[7] ^= s[0] >> 9
	s[2] += s[7]
	s[0] += s[1]
}

func (r *Isaac) init(useSeed bool) {
	r.aa, r.bb, r.cc = 0, 0, 0

	var s [8]uint32
	for j := range s {
		s[j] = isaacGoldenRatio
	}
	for i := 0; i < 4; i++ {
		isaacMix(&s)
	}

	for i := 0; i < 256; i += 8 {
		if useSeed {
			for j := 0; j < 8; j++ {
				s[j] += r.rsl[i+j]
			}
		}
		isaacMix(&s)
		copy(r.mm[i:i+8], s[:])
	}

	if useSeed {
		// second pass so that every seed word affects every mm word
		for i := 0; i < 256; i += 8 {
			for j := 0; j < 8; j++ {
				s[j] += r.mm[i+j]
			}
			isaacMix(&s)
			copy(r.mm[i:i+8], s[:])
		}
	}

	r.isaac()
	r.cnt = 0
}

// Salt derives the 4-byte entry-shuffling salt from a previous-delta hash.
func Salt(previousHash []byte) []byte {
	seed := []byte(hex.EncodeToString(previousHash))
	salt := make([]byte, 4)
	binary.LittleEndian.PutUint32(salt, NewIsaac(seed).Next())
	return salt
}
