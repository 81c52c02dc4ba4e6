package identity_test

import (
	"context"
	"testing"

	"thinkgw/internal/crypto"
	"thinkgw/internal/services/identity"
	"thinkgw/internal/store"
)

func TestFingerprintIdentity_StablePerInstance(t *testing.T) {
	ctx := context.Background()
	svc := identity.New(store.NewMemorySecretsStore())

	fp, pub, err := svc.FingerprintIdentity(ctx, "home")
	if err != nil {
		t.Fatalf("FingerprintIdentity: %v", err)
	}
	raw, err := crypto.DecodeB64URL(pub)
	if err != nil {
		t.Fatalf("public key: %v", err)
	}
	if crypto.Fingerprint(raw) != fp.String() {
		t.Fatalf("fingerprint %s does not match public key", fp)
	}

	again, _, err := svc.FingerprintIdentity(ctx, "home")
	if err != nil || again != fp {
		t.Fatalf("second call = %s %v, want %s", again, err, fp)
	}
	other, _, err := svc.FingerprintIdentity(ctx, "office")
	if err != nil || other == fp {
		t.Fatalf("instances share an identity: %s %v", other, err)
	}
}
