package crypto_test

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"testing"

	"thinkgw/internal/crypto"
)

func TestDeviceID_IsSHA256OfPublicKey(t *testing.T) {
	for i := 0; i < 8; i++ {
		id, err := crypto.NewDeviceIdentity(nil)
		if err != nil {
			t.Fatalf("NewDeviceIdentity: %v", err)
		}
		sum := sha256.Sum256(id.PublicKey())
		want := hex.EncodeToString(sum[:])
		if id.DeviceID() != want {
			t.Fatalf("device id %q, want %q", id.DeviceID(), want)
		}
		if strings.ToLower(id.DeviceID()) != id.DeviceID() {
			t.Fatalf("device id not lowercase: %q", id.DeviceID())
		}
	}
}

func TestPublicKeyBase64URL_NoPadding(t *testing.T) {
	id, err := crypto.NewDeviceIdentity(nil)
	if err != nil {
		t.Fatalf("NewDeviceIdentity: %v", err)
	}
	enc := id.PublicKeyBase64URL()
	if strings.ContainsAny(enc, "=+/") {
		t.Fatalf("not unpadded base64url: %q", enc)
	}
	raw, err := crypto.DecodeB64URL(enc)
	if err != nil {
		t.Fatalf("DecodeB64URL: %v", err)
	}
	if !bytes.Equal(raw, id.PublicKey()) {
		t.Fatal("decoded public key mismatch")
	}
}

func TestDeviceIdentityFromSeed_Deterministic(t *testing.T) {
	id, err := crypto.NewDeviceIdentity(nil)
	if err != nil {
		t.Fatalf("NewDeviceIdentity: %v", err)
	}
	again, err := crypto.DeviceIdentityFromSeed(id.Seed())
	if err != nil {
		t.Fatalf("DeviceIdentityFromSeed: %v", err)
	}
	if again.DeviceID() != id.DeviceID() {
		t.Fatalf("device id changed: %s vs %s", again.DeviceID(), id.DeviceID())
	}

	if _, err := crypto.DeviceIdentityFromSeed([]byte{1, 2, 3}); err != crypto.ErrInvalidSeed {
		t.Fatalf("want ErrInvalidSeed, got %v", err)
	}
}

func TestSign_VerifiesAndRejectsTamperedMessage(t *testing.T) {
	id, err := crypto.NewDeviceIdentity(nil)
	if err != nil {
		t.Fatalf("NewDeviceIdentity: %v", err)
	}
	sig, err := id.Sign([]byte("hello"))
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	ok, err := crypto.VerifyBase64URL(id.PublicKeyBase64URL(), []byte("hello"), sig)
	if err != nil || !ok {
		t.Fatalf("verify: ok=%v err=%v", ok, err)
	}
	ok, err = crypto.VerifyBase64URL(id.PublicKeyBase64URL(), []byte("hellO"), sig)
	if err != nil || ok {
		t.Fatalf("tampered message verified: ok=%v err=%v", ok, err)
	}
}

func TestMarshalJSON_OmitsSeed(t *testing.T) {
	id, err := crypto.NewDeviceIdentity(nil)
	if err != nil {
		t.Fatalf("NewDeviceIdentity: %v", err)
	}
	b, err := json.Marshal(id)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var out map[string]string
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(out) != 2 || out["deviceId"] != id.DeviceID() || out["publicKey"] != id.PublicKeyBase64URL() {
		t.Fatalf("unexpected public view: %s", b)
	}
	if bytes.Contains(b, []byte(crypto.B64URL(id.Seed()))) {
		t.Fatal("seed leaked into JSON")
	}
}
