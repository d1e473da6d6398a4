package keys

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"math/big"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestSimpleKeyfile(t *testing.T) {
	dir := t.TempDir()

	simpleKeyfile := NewSimpleKeyfile(filepath.Join(dir, "priv_key"))

	// Try a read, should get nothing
	key, err := simpleKeyfile.ReadKey()
	if err == nil {
		t.Fatalf("ReadKey should generate an error")
	}
	if key != nil {
		t.Fatalf("key is not nil")
	}

	key, _ = GenerateECDSAKey()

	if err := simpleKeyfile.WriteKey(key); err != nil {
		t.Fatalf("err: %v", err)
	}

	nKey, err := simpleKeyfile.ReadKey()
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	if nKey.D.Cmp(key.D) != 0 || !reflect.DeepEqual(FromPublicKey(&nKey.PublicKey), FromPublicKey(&key.PublicKey)) {
		t.Fatalf("Keys do not match")
	}
}

func TestFilePermissions(t *testing.T) {
	dir := t.TempDir()

	key, _ := GenerateECDSAKey()
	rawKey := PrivateKeyHex(key)

	badKeyPath := filepath.Join(dir, "priv_key_bad")

	shouldErr := []os.FileMode{
		0777, 0766, 0744,
		0677, 0666, 0644,
		0477, 0466, 0444,
	}

	for _, fm := range shouldErr {
		os.WriteFile(badKeyPath, []byte(rawKey), fm)
		os.Chmod(badKeyPath, fm)

		if _, err := NewSimpleKeyfile(badKeyPath).ReadKey(); err == nil {
			t.Fatalf("%o || badKeyFile should return permissions error", fm)
		}
	}

	goodKeyPath := filepath.Join(dir, "priv_key_good")

	shouldNotErr := []os.FileMode{
		0700, 0600, 0500, 0400,
	}

	for _, fm := range shouldNotErr {
		os.WriteFile(goodKeyPath, []byte(rawKey), fm)
		os.Chmod(goodKeyPath, fm)

		if _, err := NewSimpleKeyfile(goodKeyPath).ReadKey(); err != nil {
			t.Fatalf("%o || goodKeyFile should not return error. Got %v", fm, err)
		}
	}
}

func TestSignVerify(t *testing.T) {
	privKey, _ := GenerateECDSAKey()
	other, _ := GenerateECDSAKey()

	msg := []byte("J'aime mieux forger mon ame que la meubler")

	sig, err := Sign(privKey, msg)
	if err != nil {
		t.Fatal(err)
	}

	if !Verify(&privKey.PublicKey, msg, sig) {
		t.Fatalf("signature should verify")
	}
	if Verify(&other.PublicKey, msg, sig) {
		t.Fatalf("signature should not verify with another key")
	}
	if Verify(&privKey.PublicKey, []byte("tampered"), sig) {
		t.Fatalf("signature should not verify over other data")
	}
	if Verify(&privKey.PublicKey, msg, []byte("garbage")) {
		t.Fatalf("malformed signature should not verify")
	}
}

func TestSignatureEncoding(t *testing.T) {
	privKey, _ := GenerateECDSAKey()

	sig, _ := Sign(privKey, []byte("payload"))

	r, s, err := DecodeSignature(string(sig))
	if err != nil {
		t.Fatal(err)
	}

	if EncodeSignature(r, s) != string(sig) {
		t.Fatalf("EncodeSignature(DecodeSignature(sig)) should be sig")
	}
	if s.Cmp(secp256k1halfN) > 0 {
		t.Fatalf("S should be in low form")
	}
}

func TestVerifyRejectsOtherEncodings(t *testing.T) {
	privKey, _ := GenerateECDSAKey()
	msg := []byte("payload")

	sig, _ := Sign(privKey, msg)
	r, s, _ := DecodeSignature(string(sig))

	highS := new(big.Int).Sub(secp256k1N, s)

	variants := map[string]string{
		"high S":        EncodeSignature(r, highS),
		"leading zero":  "0" + string(sig),
		"plus sign":     "+" + string(sig),
		"zero padded s": r.Text(36) + "|0" + s.Text(36),
	}

	for name, v := range variants {
		// each variant decodes to a mathematically valid signature
		vr, vs, err := DecodeSignature(v)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if !ecdsa.Verify(&privKey.PublicKey, digest(msg), vr, vs) {
			t.Fatalf("%s should be a valid ECDSA signature", name)
		}
		if Verify(&privKey.PublicKey, msg, []byte(v)) {
			t.Fatalf("%s encoding should be rejected", name)
		}
	}

	if !Verify(&privKey.PublicKey, msg, sig) {
		t.Fatalf("the encoding produced by Sign should verify")
	}
}

func digest(data []byte) []byte {
	d := sha256.Sum256(data)
	return d[:]
}

func TestPublicKeyHex(t *testing.T) {
	key, _ := GenerateECDSAKey()

	pubHex := PublicKeyHex(&key.PublicKey)

	pub, err := ParsePublicKeyHex(pubHex)
	if err != nil {
		t.Fatal(err)
	}
	if pub.X.Cmp(key.PublicKey.X) != 0 || pub.Y.Cmp(key.PublicKey.Y) != 0 {
		t.Fatalf("ParsePublicKeyHex should invert PublicKeyHex")
	}

	if _, err := ParsePublicKeyHex("0XAABB"); err == nil {
		t.Fatalf("ParsePublicKeyHex should reject invalid points")
	}

	raw, _ := ParsePrivateKey(DumpPrivateKey(key))
	if PublicKeyHex(&raw.PublicKey) != pubHex {
		t.Fatalf("ParsePrivateKey(DumpPrivateKey(k)) should have the same public key")
	}
}
