package delta

import (
	"bytes"
	"testing"

	"github.com/mosaicnetworks/ballot/src/crypto/keys"
)

func newTestEntry(t *testing.T, payload string, fee uint64) *Entry {
	key, err := keys.GenerateECDSAKey()
	if err != nil {
		t.Fatal(err)
	}

	e := &Entry{
		Sender:   keys.FromPublicKey(&key.PublicKey),
		Payload:  []byte(payload),
		Nonce:    1,
		Fee:      fee,
		GasLimit: 21000,
		GasPrice: 1,
	}
	if err := e.Sign(key); err != nil {
		t.Fatal(err)
	}
	return e
}

func newTestDelta(prev []byte, content string, ts int64) *Delta {
	return &Delta{
		PreviousHash: prev,
		ContentHash:  []byte(content),
		Entries: []*Entry{
			{Payload: []byte(content), Fee: 1, GasLimit: 21000, GasPrice: 1},
		},
		Coinbase: CoinbaseEntry{
			Amount:            make([]byte, 32),
			ReceiverPublicKey: []byte("producer"),
		},
		Timestamp: ts,
	}
}

func TestDeltaMarshal(t *testing.T) {
	d := newTestDelta([]byte("prev"), "content", 42)

	b1, err := d.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	b2, err := d.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b1, b2) {
		t.Fatalf("Marshal should be deterministic")
	}

	var got Delta
	if err := got.Unmarshal(b1); err != nil {
		t.Fatal(err)
	}
	if err := got.Validate(); err != nil {
		t.Fatal(err)
	}
	if got.Timestamp != 42 {
		t.Fatalf("Timestamp should be 42, not %d", got.Timestamp)
	}
	if !bytes.Equal(got.PreviousHash, d.PreviousHash) {
		t.Fatalf("PreviousHash should be %s, not %s", d.PreviousHash, got.PreviousHash)
	}

	b3, err := got.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b1, b3) {
		t.Fatalf("decoded delta should marshal to the same bytes")
	}
}

func TestDeltaValidate(t *testing.T) {
	cases := map[string]*Delta{
		"nil":          nil,
		"no previous":  {ContentHash: []byte("c")},
		"no content":   {PreviousHash: []byte("p")},
		"nil entry":    {PreviousHash: []byte("p"), ContentHash: []byte("c"), Entries: []*Entry{nil}},
		"genesis-like": NewGenesisDelta(),
	}
	for name, d := range cases {
		if err := d.Validate(); err != ErrMalformed {
			t.Fatalf("%s: Validate should return ErrMalformed, not %v", name, err)
		}
	}
}

func TestEntrySignature(t *testing.T) {
	e := newTestEntry(t, "hello", 5)

	if !e.Verify() {
		t.Fatalf("signed entry should verify")
	}

	tampered := *e
	tampered.Fee = 6
	if tampered.Verify() {
		t.Fatalf("tampered entry should not verify")
	}

	unsigned := *e
	unsigned.Signature = nil
	if unsigned.Verify() {
		t.Fatalf("unsigned entry should not verify")
	}

	id1, err := e.ID()
	if err != nil {
		t.Fatal(err)
	}
	id2, err := tampered.ID()
	if err != nil {
		t.Fatal(err)
	}
	if id1 == id2 {
		t.Fatalf("different entries should have different IDs")
	}
}

func TestCandidateMarshal(t *testing.T) {
	c := CandidateProposal{
		Hash:         []byte("hash"),
		PreviousHash: []byte("prev"),
		ProducerID:   "0XABC",
	}

	data, err := c.Marshal()
	if err != nil {
		t.Fatal(err)
	}

	var got CandidateProposal
	if err := got.Unmarshal(data); err != nil {
		t.Fatal(err)
	}
	if !got.Equal(&c) {
		t.Fatalf("decoded candidate should be %v, not %v", c, got)
	}

	vote := FavouriteVote{Candidate: c, VoterID: "0XDEF"}
	data, err = vote.Marshal()
	if err != nil {
		t.Fatal(err)
	}

	var gotVote FavouriteVote
	if err := gotVote.Unmarshal(data); err != nil {
		t.Fatal(err)
	}
	if gotVote.Key() != vote.Key() {
		t.Fatalf("decoded vote key should be %v, not %v", vote.Key(), gotVote.Key())
	}
	if err := gotVote.Validate(); err != nil {
		t.Fatal(err)
	}

	if err := (&FavouriteVote{Candidate: c}).Validate(); err != ErrMalformed {
		t.Fatalf("vote without voter should be malformed")
	}
}

func TestValidateHashSize(t *testing.T) {
	c := CandidateProposal{
		Hash:         []byte("hash"),
		PreviousHash: []byte("prev"),
		ProducerID:   "0XABC",
	}

	if err := c.ValidateHashSize(4); err != nil {
		t.Fatalf("4 byte hash should be valid for size 4: %v", err)
	}
	for _, size := range []int{3, 5, 32} {
		if err := c.ValidateHashSize(size); err != ErrMalformed {
			t.Fatalf("4 byte hash should be malformed for size %d, not %v", size, err)
		}
	}

	vote := FavouriteVote{Candidate: c, VoterID: "0XDEF"}
	if err := vote.ValidateHashSize(4); err != nil {
		t.Fatal(err)
	}
	if err := vote.ValidateHashSize(32); err != ErrMalformed {
		t.Fatalf("vote for a 4 byte hash should be malformed for size 32, not %v", err)
	}
}
