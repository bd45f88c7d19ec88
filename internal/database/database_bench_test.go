package database

import (
	"context"
	"math/rand"
	"strconv"
	"testing"

	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/apptype"
	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/connstore/storetest"
)

func setupBenchDB(b *testing.B, profiles, edgesPer int) (*DBManager, func()) {
	b.Helper()
	cfg := NewConfig()
	cfg.URL = "file:benchdb?mode=memory&cache=shared"
	dbm, err := NewDBManager(cfg)
	if err != nil {
		b.Fatalf("NewDBManager: %v", err)
	}

	// Seed data
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))
	for i := 1; i <= profiles; i++ {
		for range edgesPer {
			other := int64(rng.Intn(profiles) + 1)
			if other == int64(i) {
				continue
			}
			if _, err := dbm.Upsert(ctx, int64(i), other, storetest.Result(rng.Float64())); err != nil {
				b.Fatalf("Upsert: %v", err)
			}
		}
	}

	cleanup := func() { _ = dbm.Close() }
	return dbm, cleanup
}

func BenchmarkNeighborsOf(b *testing.B) {
	dbm, cleanup := setupBenchDB(b, 500, 8)
	defer cleanup()

	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := dbm.NeighborsOf(ctx, int64(i%500+1), 0.5); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkUpsert(b *testing.B) {
	dbm, cleanup := setupBenchDB(b, 0, 0)
	defer cleanup()
	ctx := context.Background()
	res := storetest.Result(0.7)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := dbm.Upsert(ctx, 1, int64(i%1000+2), res); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSearchProfiles(b *testing.B) {
	dbm, cleanup := setupBenchDB(b, 0, 0)
	defer cleanup()
	ctx := context.Background()
	for i := range 2000 {
		p := apptype.Profile{Identity: apptype.IdentityAttributes{FirstName: "p_" + strconv.Itoa(i), LastName: "bench"}}
		if _, err := dbm.SaveProfile(ctx, p); err != nil {
			b.Fatalf("SaveProfile: %v", err)
		}
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := dbm.SearchProfiles(ctx, ProfileQuery{Text: "p_19", Limit: 10}); err != nil {
			b.Fatal(err)
		}
	}
}
