package deviceauth_test

import (
	"errors"
	"testing"

	"thinkgw/internal/crypto"
	"thinkgw/internal/protocol/deviceauth"
)

func TestCanonical_ExactFormat(t *testing.T) {
	cases := []struct {
		name string
		p    deviceauth.Payload
		want string
	}{
		{
			name: "all fields",
			p: deviceauth.Payload{
				DeviceID:   "abc",
				ClientID:   "cli",
				ClientMode: "cli",
				Role:       "operator",
				Scopes:     []string{"operator.admin", "operator.pairing"},
				SignedAtMs: 1700000000123,
				Token:      "tok",
				Nonce:      "n-1",
			},
			want: "v2|abc|cli|cli|operator|operator.admin,operator.pairing|1700000000123|tok|n-1",
		},
		{
			name: "no token or nonce",
			p: deviceauth.Payload{
				DeviceID:   "abc",
				ClientID:   "cli",
				ClientMode: "cli",
				Role:       "node",
				Scopes:     []string{"a"},
				SignedAtMs: 5,
			},
			want: "v2|abc|cli|cli|node|a|5||",
		},
		{
			name: "no scopes",
			p: deviceauth.Payload{
				DeviceID:   "d",
				ClientID:   "c",
				ClientMode: "m",
				Role:       "r",
				SignedAtMs: 0,
				Nonce:      "x",
			},
			want: "v2|d|c|m|r||0||x",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.p.Canonical(); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func basePayload() deviceauth.Payload {
	return deviceauth.Payload{
		ClientID:   "cli",
		ClientMode: "cli",
		Role:       "operator",
		Scopes:     []string{"operator.admin"},
		SignedAtMs: 1700000000000,
		Token:      "shared",
		Nonce:      "nonce-1",
	}
}

func TestSign_VerifiesAgainstSamePayload(t *testing.T) {
	id, err := crypto.NewDeviceIdentity(nil)
	if err != nil {
		t.Fatalf("NewDeviceIdentity: %v", err)
	}
	device, err := deviceauth.Sign(id, basePayload())
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if device.ID != id.DeviceID() || device.PublicKey != id.PublicKeyBase64URL() {
		t.Fatalf("device block does not describe identity: %+v", device)
	}
	if device.Nonce != "nonce-1" || device.SignedAt != 1700000000000 {
		t.Fatalf("device block lost nonce or timestamp: %+v", device)
	}
	if err := deviceauth.Verify(device, basePayload()); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestVerify_FailsWhenAnyFieldDiffers(t *testing.T) {
	id, err := crypto.NewDeviceIdentity(nil)
	if err != nil {
		t.Fatalf("NewDeviceIdentity: %v", err)
	}
	device, err := deviceauth.Sign(id, basePayload())
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	payloadEdits := map[string]func(*deviceauth.Payload){
		"client id":   func(p *deviceauth.Payload) { p.ClientID = "other" },
		"client mode": func(p *deviceauth.Payload) { p.ClientMode = "ui" },
		"role":        func(p *deviceauth.Payload) { p.Role = "node" },
		"scopes":      func(p *deviceauth.Payload) { p.Scopes = []string{"operator.read"} },
		"token":       func(p *deviceauth.Payload) { p.Token = "" },
	}
	for name, edit := range payloadEdits {
		t.Run(name, func(t *testing.T) {
			p := basePayload()
			edit(&p)
			if err := deviceauth.Verify(device, p); !errors.Is(err, deviceauth.ErrBadSignature) {
				t.Fatalf("want ErrBadSignature, got %v", err)
			}
		})
	}

	t.Run("nonce", func(t *testing.T) {
		d := device
		d.Nonce = "nonce-2"
		if err := deviceauth.Verify(d, basePayload()); !errors.Is(err, deviceauth.ErrBadSignature) {
			t.Fatalf("want ErrBadSignature, got %v", err)
		}
	})
	t.Run("signed at", func(t *testing.T) {
		d := device
		d.SignedAt++
		if err := deviceauth.Verify(d, basePayload()); !errors.Is(err, deviceauth.ErrBadSignature) {
			t.Fatalf("want ErrBadSignature, got %v", err)
		}
	})
	t.Run("device id", func(t *testing.T) {
		other, err := crypto.NewDeviceIdentity(nil)
		if err != nil {
			t.Fatalf("NewDeviceIdentity: %v", err)
		}
		d := device
		d.ID = other.DeviceID()
		if err := deviceauth.Verify(d, basePayload()); !errors.Is(err, deviceauth.ErrBadSignature) {
			t.Fatalf("want ErrBadSignature, got %v", err)
		}
	})
}

func TestSign_NilIdentity(t *testing.T) {
	if _, err := deviceauth.Sign(nil, basePayload()); err == nil {
		t.Fatal("expected error for nil identity")
	}
}
