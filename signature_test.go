package ecsim

import "testing"

func TestSignatureWithWithout(t *testing.T) {
	var sig ComponentSignature
	sig = sig.With(3)
	sig = sig.With(70) // forces a second word

	if !sig.Contains(3) || !sig.Contains(70) {
		t.Fatal("signature should contain both 3 and 70")
	}
	if sig.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", sig.Count())
	}

	back := sig.Without(70)
	if back.Contains(70) {
		t.Error("Without(70) should clear bit 70")
	}
	if !back.Contains(3) {
		t.Error("Without(70) should not disturb bit 3")
	}
}

// TestSignatureRoundTrip is property R4: sig.with(a).without(a) == sig
// whenever sig does not already contain a.
func TestSignatureRoundTrip(t *testing.T) {
	var sig ComponentSignature
	sig = sig.With(5).With(9).With(130)

	roundTripped := sig.With(7).Without(7)
	if !roundTripped.Equals(sig) {
		t.Error("with(a).without(a) should equal the original signature")
	}
}

func TestSignatureEqualsPadsShorterWord(t *testing.T) {
	short := EmptySignature().With(1)
	long := EmptySignature().With(1).With(200).Without(200)

	if !short.Equals(long) {
		t.Error("signatures representing the same id set but built with different word counts should still be Equals")
	}
	if short.Hash() != long.Hash() {
		t.Error("Equals() == true should imply equal Hash()")
	}
}

func TestSignatureContainsAllAnyNone(t *testing.T) {
	sig := EmptySignature().With(1).With(2).With(3)
	want := EmptySignature().With(1).With(2)

	if !sig.ContainsAll(want) {
		t.Error("ContainsAll should be true for a subset")
	}
	if !sig.ContainsAny(want) {
		t.Error("ContainsAny should be true when bits overlap")
	}

	disjoint := EmptySignature().With(9)
	if sig.ContainsAny(disjoint) {
		t.Error("ContainsAny should be false for disjoint signatures")
	}
	if !sig.ContainsNone(disjoint) {
		t.Error("ContainsNone should be true for disjoint signatures")
	}
}

func TestSignatureHighIDStaysWordBounded(t *testing.T) {
	// Registering a component type with a very high id must still
	// produce a signature no larger than ceil((highestID+1)/64) words.
	const highID = 1_000_003
	sig := EmptySignature().With(ComponentTypeId(highID))

	wantWords := highID/signatureWordBits + 1
	if len(sig.words) != wantWords {
		t.Fatalf("len(words) = %d, want %d", len(sig.words), wantWords)
	}
	if !sig.Contains(ComponentTypeId(highID)) {
		t.Error("signature should contain the high id it was built with")
	}
}
