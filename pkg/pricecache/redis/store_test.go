package redis

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hallmark-app/hallmark/pkg/models"
)

// newTestStore connects to HALLMARK_TEST_REDIS_ADDR under a throwaway user.
func newTestStore(t *testing.T, user string) *Store {
	t.Helper()
	addr := os.Getenv("HALLMARK_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("HALLMARK_TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	s, err := New(ctx, addr, "", 0, fmt.Sprintf("%s-%d", user, time.Now().UnixNano()))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		iter := s.client.Scan(ctx, 0, fmt.Sprintf("hallmark:%s:*", s.user), 0).Iterator()
		for iter.Next(ctx) {
			s.client.Del(ctx, iter.Val())
		}
		_ = s.Close()
	})
	return s
}

func rec(sym models.Symbol, price string) models.PriceRecord {
	at := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	return models.PriceRecord{
		Symbol: sym,
		Price: models.SpotPrice{
			Symbol:        sym,
			PricePerOzGBP: decimal.RequireFromString(price),
			FetchedAt:     at,
			Origin:        models.OriginLive,
			Provider:      "metalpriceapi",
		},
		UpdatedAt: at,
	}
}

func TestKeyNamespace(t *testing.T) {
	s := &Store{user: "alice"}
	if got := s.key(models.XAU); got != "hallmark:alice:price:XAU" {
		t.Errorf("key = %q", got)
	}
}

func TestPutGetList(t *testing.T) {
	s := newTestStore(t, "putget")
	ctx := context.Background()

	if _, found, err := s.Get(ctx, models.XAU); err != nil || found {
		t.Fatalf("expected empty store, found=%v err=%v", found, err)
	}

	if err := s.Put(ctx, rec(models.XPT, "812.5")); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, rec(models.XAG, "24.1")); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, rec(models.XAG, "24.7")); err != nil {
		t.Fatal(err)
	}

	got, found, err := s.Get(ctx, models.XAG)
	if err != nil || !found {
		t.Fatalf("get XAG: found=%v err=%v", found, err)
	}
	if !got.Price.PricePerOzGBP.Equal(decimal.RequireFromString("24.7")) {
		t.Errorf("price = %s, want 24.7", got.Price.PricePerOzGBP)
	}

	recs, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 || recs[0].Symbol != models.XAG || recs[1].Symbol != models.XPT {
		t.Errorf("unexpected list: %+v", recs)
	}

	ttl, err := s.client.TTL(ctx, s.key(models.XAG)).Result()
	if err != nil {
		t.Fatal(err)
	}
	if ttl != -1 {
		t.Errorf("expected key without expiry, ttl = %v", ttl)
	}
}

func TestUsersAreIsolated(t *testing.T) {
	a := newTestStore(t, "alice")
	b := newTestStore(t, "bob")
	ctx := context.Background()

	if err := a.Put(ctx, rec(models.XAU, "1850")); err != nil {
		t.Fatal(err)
	}
	if _, found, _ := b.Get(ctx, models.XAU); found {
		t.Error("bob sees alice's price")
	}
}
