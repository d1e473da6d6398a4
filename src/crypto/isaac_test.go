package crypto

import (
	"bytes"
	"testing"
)

// Reference output of Bob Jenkins' readable.c: all-zero seed, first block
// printed after randinit.
func TestIsaacReferenceVector(t *testing.T) {
	r := NewIsaac(nil)
	r.isaac()

	exp := []uint32{0xf650e4c8, 0xe448e96d, 0x98db2fb4, 0xf5fad54f}
	for i, e := range exp {
		if r.rsl[i] != e {
			t.Fatalf("rsl[%d] should be %08x, not %08x", i, e, r.rsl[i])
		}
	}
}

func TestIsaacSequence(t *testing.T) {
	r := NewIsaac([]byte("abc"))

	exp := []uint32{0x60359064, 0x4d263c7c, 0x06891276}
	for i, e := range exp {
		if v := r.Next(); v != e {
			t.Fatalf("output %d should be %08x, not %08x", i, e, v)
		}
	}

	// crossing the end of the first block refills the results
	r = NewIsaac([]byte("abc"))
	var v []uint32
	for i := 0; i < 258; i++ {
		v = append(v, r.Next())
	}
	if v[255] != 0xcd45938a || v[256] != 0x70bad195 || v[257] != 0x5745a9b3 {
		t.Fatalf("refill outputs should be cd45938a 70bad195 5745a9b3, not %08x %08x %08x", v[255], v[256], v[257])
	}
}

func TestSalt(t *testing.T) {
	zero := make([]byte, 32)
	if salt := Salt(zero); !bytes.Equal(salt, []byte{0x22, 0x02, 0x18, 0x2d}) {
		t.Fatalf("Salt(zero) should be 2202182d, not %x", salt)
	}

	seq := make([]byte, 32)
	for i := range seq {
		seq[i] = byte(i)
	}
	if salt := Salt(seq); !bytes.Equal(salt, []byte{0xf2, 0x26, 0x53, 0x28}) {
		t.Fatalf("Salt(0..31) should be f2265328, not %x", salt)
	}

	if bytes.Equal(Salt(zero), Salt(seq)) {
		t.Fatalf("different hashes should give different salts")
	}
}

func TestHashers(t *testing.T) {
	for _, name := range []string{SHA256Name, Blake2bName} {
		h, err := NewHasher(name)
		if err != nil {
			t.Fatal(err)
		}
		if h.Name() != name {
			t.Fatalf("Name should be %s, not %s", name, h.Name())
		}

		whole := h.Hash([]byte("hello world"))
		parts := h.Hash([]byte("hello "), []byte("world"))
		if len(whole) != 32 || h.Size() != len(whole) {
			t.Fatalf("%s digest should be 32 bytes, not %d (Size %d)", name, len(whole), h.Size())
		}
		if !bytes.Equal(whole, parts) {
			t.Fatalf("%s should hash the concatenation of its arguments", name)
		}
	}

	if _, err := NewHasher("md5"); err == nil {
		t.Fatalf("NewHasher should reject unknown algorithms")
	}

	if !bytes.Equal(SHA256([]byte("x")), SHA256Hasher{}.Hash([]byte("x"))) {
		t.Fatalf("SHA256 helper should match SHA256Hasher")
	}
}
