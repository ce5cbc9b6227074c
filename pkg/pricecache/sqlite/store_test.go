package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hallmark-app/hallmark/pkg/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "prices_test.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func priceRecord(sym models.Symbol, price string, at time.Time) models.PriceRecord {
	return models.PriceRecord{
		Symbol: sym,
		Price: models.SpotPrice{
			Symbol:        sym,
			PricePerOzGBP: decimal.RequireFromString(price),
			FetchedAt:     at,
			Origin:        models.OriginLive,
			Provider:      "goldapi",
		},
		UpdatedAt: at,
	}
}

func TestGetMissing(t *testing.T) {
	s := newTestStore(t)

	_, found, err := s.Get(context.Background(), models.XAU)
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Error("expected no record on a fresh store")
	}
}

func TestPutAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	at := time.Date(2026, 1, 5, 9, 30, 0, 0, time.UTC)

	if err := s.Put(ctx, priceRecord(models.XAU, "1866.208608", at)); err != nil {
		t.Fatal(err)
	}

	rec, found, err := s.Get(ctx, models.XAU)
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Fatal("expected record")
	}
	if !rec.Price.PricePerOzGBP.Equal(decimal.RequireFromString("1866.208608")) {
		t.Errorf("price = %s, want 1866.208608", rec.Price.PricePerOzGBP)
	}
	if !rec.UpdatedAt.Equal(at) || !rec.Price.FetchedAt.Equal(at) {
		t.Errorf("timestamps = %v / %v, want %v", rec.UpdatedAt, rec.Price.FetchedAt, at)
	}
	if rec.Price.Provider != "goldapi" || rec.Price.Symbol != models.XAU {
		t.Errorf("unexpected record: %+v", rec)
	}
}

func TestPutOverwrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	at := time.Date(2026, 1, 5, 9, 30, 0, 0, time.UTC)

	_ = s.Put(ctx, priceRecord(models.XAG, "24.10", at))
	_ = s.Put(ctx, priceRecord(models.XAG, "25.02", at.Add(time.Hour)))

	recs, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	if !recs[0].Price.PricePerOzGBP.Equal(decimal.RequireFromString("25.02")) {
		t.Errorf("price = %s, want 25.02", recs[0].Price.PricePerOzGBP)
	}
	if !recs[0].UpdatedAt.Equal(at.Add(time.Hour)) {
		t.Errorf("updated_at = %v", recs[0].UpdatedAt)
	}
}

func TestListOrdered(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	at := time.Now().UTC()

	_ = s.Put(ctx, priceRecord(models.XPT, "800", at))
	_ = s.Put(ctx, priceRecord(models.XAG, "24", at))
	_ = s.Put(ctx, priceRecord(models.XAU, "1850", at))

	recs, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := []models.Symbol{models.XAG, models.XAU, models.XPT}
	if len(recs) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(recs))
	}
	for i, sym := range want {
		if recs[i].Symbol != sym {
			t.Errorf("recs[%d] = %s, want %s", i, recs[i].Symbol, sym)
		}
	}
}

func TestSharedDBSurvivesClose(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "shared.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	s, err := NewFromDB(db)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := db.Ping(); err != nil {
		t.Errorf("shared db closed by store: %v", err)
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "reopen.db")
	ctx := context.Background()

	s, err := New(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	_ = s.Put(ctx, priceRecord(models.XPT, "812.5", time.Now().UTC()))
	_ = s.Close()

	s, err = New(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	_, found, err := s.Get(ctx, models.XPT)
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Error("record lost after reopen")
	}
}
