package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestCodeReserverSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	reserver := NewCodeReserver(newClient(mr), time.Minute)
	ctx := context.Background()

	ok, err := reserver.Reserve(ctx, "ABC123")
	if err != nil || !ok {
		t.Fatalf("reserve: ok=%v err=%v", ok, err)
	}
	if !mr.Exists("quiz:code:ABC123") {
		t.Fatalf("expected redis key to be set")
	}
	if ok, _ := reserver.Reserve(ctx, "ABC123"); ok {
		t.Fatalf("expected second reservation to fail")
	}

	reserver.Release(ctx, "ABC123")
	if mr.Exists("quiz:code:ABC123") {
		t.Fatalf("expected redis key to be removed")
	}
}

func TestCodeReserverExpires(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	reserver := NewCodeReserver(newClient(mr), time.Second)
	ctx := context.Background()
	if ok, _ := reserver.Reserve(ctx, "ZZZ999"); !ok {
		t.Fatalf("expected reservation")
	}
	mr.FastForward(2 * time.Second)
	if ok, _ := reserver.Reserve(ctx, "ZZZ999"); !ok {
		t.Fatalf("expected expired reservation to be reclaimable")
	}
}
