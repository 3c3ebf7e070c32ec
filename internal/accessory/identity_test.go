package accessory

import (
	"testing"

	"github.com/google/uuid"
)

func TestNewIdentity_Deterministic(t *testing.T) {
	first := NewIdentity("SN1")
	for i := 0; i < 10; i++ {
		if got := NewIdentity("SN1"); got != first {
			t.Fatalf("NewIdentity(SN1) = %s, want %s", got, first)
		}
	}
	if !first.Valid() {
		t.Errorf("%s is not a valid UUID", first)
	}
}

func TestNewIdentity_StableAcrossReleases(t *testing.T) {
	// Persisted caches depend on this value never changing.
	want := uuid.NewSHA1(
		uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/nerrad567/hood-bridge/accessory")),
		[]byte("000123456789"),
	).String()
	if got := NewIdentity("000123456789").String(); got != want {
		t.Errorf("NewIdentity() = %s, want %s", got, want)
	}

	parsed := uuid.MustParse(want)
	if parsed.Version() != 5 {
		t.Errorf("version = %d, want 5", parsed.Version())
	}
}

func TestNewIdentity_Distinct(t *testing.T) {
	serials := []string{"SN1", "SN2", "sn1", "SN1 ", ""}
	seen := make(map[Identity]string)
	for _, s := range serials {
		id := NewIdentity(s)
		if prev, dup := seen[id]; dup {
			t.Errorf("NewIdentity(%q) collides with NewIdentity(%q)", s, prev)
		}
		seen[id] = s
	}
}

func TestIdentity_Valid(t *testing.T) {
	if Identity("not-a-uuid").Valid() {
		t.Error("Valid() = true for garbage")
	}
	if Identity("").Valid() {
		t.Error("Valid() = true for empty identity")
	}
}
