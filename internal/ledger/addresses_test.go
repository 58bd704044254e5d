package ledger

import (
	"testing"

	"github.com/gagliardetto/solana-go"
)

var testProgramID = solana.MustPublicKeyFromBase58("H8713ke9JBR9uHkahFMP15482LH2XkMdjNvmyEwRzeaX")

func TestDerivationIsDeterministic(t *testing.T) {
	addrs := NewAddresses(testProgramID)

	a1, bump1, err := addrs.Policy(42)
	if err != nil {
		t.Fatalf("derive policy: %v", err)
	}
	a2, bump2, err := addrs.Policy(42)
	if err != nil {
		t.Fatalf("derive policy again: %v", err)
	}
	if !a1.Equals(a2) || bump1 != bump2 {
		t.Fatalf("derivation not deterministic: %s/%d vs %s/%d", a1, bump1, a2, bump2)
	}
}

func TestDerivationDistinguishesIDs(t *testing.T) {
	addrs := NewAddresses(testProgramID)

	for _, pair := range [][2]uint64{{0, 1}, {1, 2}, {0, ^uint64(0)}} {
		a, _, err := addrs.Policy(pair[0])
		if err != nil {
			t.Fatalf("derive policy %d: %v", pair[0], err)
		}
		b, _, err := addrs.Policy(pair[1])
		if err != nil {
			t.Fatalf("derive policy %d: %v", pair[1], err)
		}
		if a.Equals(b) {
			t.Fatalf("policies %d and %d derived the same address %s", pair[0], pair[1], a)
		}
	}
}

func TestDerivationDistinguishesLabels(t *testing.T) {
	addrs := NewAddresses(testProgramID)

	policy, _, err := addrs.Policy(7)
	if err != nil {
		t.Fatalf("derive policy: %v", err)
	}
	product, _, err := addrs.Product(7)
	if err != nil {
		t.Fatalf("derive product: %v", err)
	}
	if policy.Equals(product) {
		t.Fatalf("policy and product with same id derived the same address %s", policy)
	}
}

func TestBoundaryIDs(t *testing.T) {
	addrs := NewAddresses(testProgramID)

	if _, _, err := addrs.Product(0); err != nil {
		t.Fatalf("derive product 0: %v", err)
	}
	if _, _, err := addrs.Product(^uint64(0)); err != nil {
		t.Fatalf("derive product max: %v", err)
	}
}
