package attrstore

import (
	"context"
	"testing"

	"github.com/authkit-dev/challengeq"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	user := challengeq.User{Username: "alice", TenantDomain: "carbon.super"}

	if err := store.SetAttributes(ctx, user, map[string]string{"claim/a": "x"}); err != nil {
		t.Fatalf("SetAttributes failed: %v", err)
	}
	got, err := store.GetAttributes(ctx, user, []string{"claim/a", "claim/b"})
	if err != nil {
		t.Fatalf("GetAttributes failed: %v", err)
	}
	if got["claim/a"] != "x" {
		t.Fatalf("GetAttributes = %v", got)
	}
	if _, ok := got["claim/b"]; ok {
		t.Error("absent attribute should not appear in the result map")
	}

	if err := store.DeleteAttributes(ctx, user, []string{"claim/a"}); err != nil {
		t.Fatalf("DeleteAttributes failed: %v", err)
	}
	got, err = store.GetAttributes(ctx, user, []string{"claim/a"})
	if err != nil {
		t.Fatalf("GetAttributes failed: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("attribute survived delete: %v", got)
	}
}

func TestMemoryStoreDeleteUnknownUser(t *testing.T) {
	store := NewMemoryStore()
	user := challengeq.User{Username: "ghost"}

	if err := store.DeleteAttributes(context.Background(), user, []string{"claim/a"}); err != nil {
		t.Fatalf("DeleteAttributes on unknown user failed: %v", err)
	}
}
