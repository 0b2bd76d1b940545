package address_test

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"testing"

	"github.com/unclebandit/crowdfund-backend/internal/address"
)

func newIdentity(t *testing.T) address.Address {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	a, err := address.FromPublicKey(pub)
	if err != nil {
		t.Fatalf("from public key: %v", err)
	}
	return a
}

func TestCampaignAddressIsDeterministic(t *testing.T) {
	creator := newIdentity(t)

	first := address.Campaign(creator, "Save the bees")
	second := address.Campaign(creator, "Save the bees")
	if first != second {
		t.Fatalf("expected identical addresses, got %s and %s", first, second)
	}

	if other := address.Campaign(creator, "Save the trees"); other == first {
		t.Errorf("different titles produced the same address %s", other)
	}
	if other := address.Campaign(newIdentity(t), "Save the bees"); other == first {
		t.Errorf("different creators produced the same address %s", other)
	}
}

func TestContributionAddressDependsOnBothInputs(t *testing.T) {
	campaign := address.Campaign(newIdentity(t), "Bees")
	alice := newIdentity(t)
	bob := newIdentity(t)

	if address.Contribution(campaign, alice) == address.Contribution(campaign, bob) {
		t.Fatal("contributors share a contribution address")
	}
	other := address.Campaign(newIdentity(t), "Bees")
	if address.Contribution(campaign, alice) == address.Contribution(other, alice) {
		t.Fatal("campaigns share a contribution address")
	}
	if address.Contribution(campaign, alice) == campaign {
		t.Fatal("contribution address equals campaign address")
	}
}

func TestDeriveSeedBoundaries(t *testing.T) {
	a := address.Derive([]byte("ab"), []byte("c"))
	b := address.Derive([]byte("a"), []byte("bc"))
	if a == b {
		t.Fatal("seed concatenation collided")
	}
}

func TestParseRoundTrip(t *testing.T) {
	id := newIdentity(t)

	parsed, err := address.Parse(id.String())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed != id {
		t.Errorf("expected %s, got %s", id, parsed)
	}

	raw, err := json.Marshal(map[string]address.Address{"creator": id})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]address.Address
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["creator"] != id {
		t.Errorf("json round trip changed address")
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, input := range []string{"", "0OIl", "3mJr7AoUXx2Wqd"} {
		if _, err := address.Parse(input); err == nil {
			t.Errorf("expected error for %q", input)
		}
	}
}

func TestScan(t *testing.T) {
	id := newIdentity(t)
	var a address.Address
	if err := a.Scan([]byte(id.String())); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if a != id {
		t.Errorf("expected %s, got %s", id, a)
	}
	if err := a.Scan(42); err == nil {
		t.Error("expected error scanning int")
	}
}
