package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	in "una/internal/market/application/ports/in"
	out "una/internal/market/application/ports/out"
	"una/internal/market/domain"
	"una/internal/shared/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(repo *fakeRepo, loc *fakeLocator, opts ...Option) (*Resolver, *recNotifier, *recEvents) {
	n := &recNotifier{}
	ev := &recEvents{}
	opts = append([]Option{WithEventPublisher(ev)}, opts...)

	var prefs out.PreferenceRepository
	if repo != nil {
		prefs = repo
	}
	var locator out.IPLocator
	if loc != nil {
		locator = loc
	}
	return NewResolver(prefs, locator, n, logger.NewNop(), opts...), n, ev
}

func anon(cache *memCache) in.Subject {
	return in.Subject{DeviceID: "device-1", ClientIP: "203.0.113.7", Cache: cache}
}

func user(id string, cache *memCache) in.Subject {
	return in.Subject{Authenticated: true, UserID: id, DeviceID: "device-1", ClientIP: "203.0.113.7", Cache: cache}
}

func TestResolve_MappedCountries(t *testing.T) {
	tests := []struct {
		country  string
		market   domain.Market
		language domain.Language
	}{
		{"IL", domain.MarketIsrael, domain.LanguageHebrew},
		{"PS", domain.MarketIsrael, domain.LanguageHebrew},
		{"AR", domain.MarketArgentina, domain.LanguageSpanish},
		{"UY", domain.MarketArgentina, domain.LanguageSpanish},
		{"CL", domain.MarketArgentina, domain.LanguageSpanish},
	}
	for _, tt := range tests {
		t.Run(tt.country, func(t *testing.T) {
			r, _, _ := newTestResolver(nil, &fakeLocator{country: tt.country})
			cache := newMemCache()

			got := r.Resolve(context.Background(), anon(cache))

			assert.Equal(t, domain.Preference{
				Market:     tt.market,
				Language:   tt.language,
				AutoDetect: true,
				Source:     domain.SourceIPDetection,
			}, got)
			assert.Equal(t, string(tt.market), cache.value(domain.KeyDetectedMarket))
			assert.Equal(t, string(tt.language), cache.value(domain.KeyDetectedLanguage))
		})
	}
}

func TestResolve_UnmappedCountriesDefaultToIsrael(t *testing.T) {
	for _, code := range []string{"US", "BR", "DE", "ZZ"} {
		t.Run(code, func(t *testing.T) {
			r, _, _ := newTestResolver(nil, &fakeLocator{country: code})

			got := r.Resolve(context.Background(), anon(newMemCache()))

			assert.Equal(t, domain.MarketIsrael, got.Market)
			assert.Equal(t, domain.LanguageHebrew, got.Language)
			assert.Equal(t, domain.SourceIPDetection, got.Source)
		})
	}
}

func TestResolve_Idempotent(t *testing.T) {
	r, _, _ := newTestResolver(nil, &fakeLocator{country: "AR"})
	cache := newMemCache()

	first := r.Resolve(context.Background(), anon(cache))
	second := r.Resolve(context.Background(), anon(cache))

	assert.Equal(t, first, second)
}

func TestResolve_AnonymousIsraelFromIP(t *testing.T) {
	loc := &fakeLocator{country: "IL"}
	r, _, ev := newTestResolver(nil, loc)

	got := r.Resolve(context.Background(), anon(newMemCache()))

	assert.Equal(t, domain.MarketIsrael, got.Market)
	assert.Equal(t, domain.LanguageHebrew, got.Language)
	assert.Equal(t, domain.SourceIPDetection, got.Source)
	assert.Equal(t, []string{domain.EventMarketDetected}, ev.types())
}

func TestResolve_LocalSelectionSkipsNetwork(t *testing.T) {
	loc := &fakeLocator{country: "IL"}
	r, _, _ := newTestResolver(nil, loc)
	cache := newMemCache(
		domain.KeySelectedMarket, "argentina",
		domain.KeySelectedLanguage, "en",
	)

	got := r.Resolve(context.Background(), anon(cache))

	assert.Equal(t, domain.MarketArgentina, got.Market)
	assert.Equal(t, domain.LanguageEnglish, got.Language)
	assert.Equal(t, domain.SourceLocalCache, got.Source)
	assert.False(t, got.AutoDetect)
	assert.Zero(t, loc.calls.Load())
}

func TestResolve_PartialOrInvalidSelectionIgnored(t *testing.T) {
	loc := &fakeLocator{country: "AR"}
	r, _, _ := newTestResolver(nil, loc)

	got := r.Resolve(context.Background(), anon(newMemCache(domain.KeySelectedMarket, "israel")))
	assert.Equal(t, domain.SourceIPDetection, got.Source)

	got = r.Resolve(context.Background(), anon(newMemCache(
		domain.KeySelectedMarket, "brazil",
		domain.KeySelectedLanguage, "pt",
	)))
	assert.Equal(t, domain.MarketArgentina, got.Market)
	assert.Equal(t, int32(2), loc.calls.Load())
}

func TestResolve_NetworkErrorEmptyCacheGivesDefault(t *testing.T) {
	r, _, _ := newTestResolver(nil, &fakeLocator{err: errBoom})

	got := r.Resolve(context.Background(), anon(newMemCache()))

	assert.Equal(t, domain.DefaultPreference(), got)
}

func TestResolve_EmptyCountryCodeIsFailure(t *testing.T) {
	r, _, _ := newTestResolver(nil, &fakeLocator{country: "  "})

	got := r.Resolve(context.Background(), anon(newMemCache()))

	assert.Equal(t, domain.SourceDefault, got.Source)
}

func TestResolve_NetworkErrorUsesLastDetection(t *testing.T) {
	r, _, _ := newTestResolver(nil, &fakeLocator{err: errBoom})
	cache := newMemCache(
		domain.KeyDetectedMarket, "argentina",
		domain.KeyDetectedLanguage, "es",
	)

	got := r.Resolve(context.Background(), anon(cache))

	assert.Equal(t, domain.Preference{
		Market:     domain.MarketArgentina,
		Language:   domain.LanguageSpanish,
		AutoDetect: true,
		Source:     domain.SourceLocalCache,
	}, got)
}

func TestResolve_DetectedMarketWithoutLanguageDerivesIt(t *testing.T) {
	r, _, _ := newTestResolver(nil, &fakeLocator{err: errBoom})

	got := r.Resolve(context.Background(), anon(newMemCache(domain.KeyDetectedMarket, "argentina")))

	assert.Equal(t, domain.LanguageSpanish, got.Language)
}

func TestResolve_IPTimeoutFallsBack(t *testing.T) {
	r, _, _ := newTestResolver(nil, &fakeLocator{block: true}, WithIPTimeout(20*time.Millisecond))

	start := time.Now()
	got := r.Resolve(context.Background(), anon(newMemCache()))

	assert.Equal(t, domain.DefaultPreference(), got)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestResolve_BrokenCacheStillResolves(t *testing.T) {
	r, _, _ := newTestResolver(nil, &fakeLocator{country: "AR"})

	got := r.Resolve(context.Background(), in.Subject{DeviceID: "d", Cache: brokenCache{}})

	assert.Equal(t, domain.MarketArgentina, got.Market)
}

func TestResolve_StoredManualPreferenceWins(t *testing.T) {
	repo := newFakeRepo(domain.StoredPreference{
		UserID:   "user-1",
		Market:   domain.MarketArgentina,
		Language: domain.LanguageEnglish,
	})
	loc := &fakeLocator{country: "IL"}
	r, _, _ := newTestResolver(repo, loc)
	cache := newMemCache(
		domain.KeySelectedMarket, "israel",
		domain.KeySelectedLanguage, "he",
	)

	got := r.Resolve(context.Background(), user("user-1", cache))

	assert.Equal(t, domain.Preference{
		Market:   domain.MarketArgentina,
		Language: domain.LanguageEnglish,
		Source:   domain.SourceDatabase,
	}, got)
	assert.Zero(t, loc.calls.Load())
}

func TestResolve_StoredAutoDetectRefreshedByIP(t *testing.T) {
	repo := newFakeRepo(domain.StoredPreference{
		UserID:     "user-1",
		Market:     domain.MarketIsrael,
		Language:   domain.LanguageHebrew,
		AutoDetect: true,
	})
	r, _, _ := newTestResolver(repo, &fakeLocator{country: "AR"})
	cache := newMemCache(
		domain.KeySelectedMarket, "israel",
		domain.KeySelectedLanguage, "en",
	)

	got := r.Resolve(context.Background(), user("user-1", cache))

	assert.Equal(t, domain.MarketArgentina, got.Market)
	assert.Equal(t, domain.LanguageSpanish, got.Language)
	assert.Equal(t, domain.SourceIPDetection, got.Source)

	row, ok := repo.row("user-1")
	require.True(t, ok)
	assert.Equal(t, domain.MarketArgentina, row.Market)
	assert.True(t, row.AutoDetect)
}

func TestResolve_StoredAutoDetectKeptWhenIPFails(t *testing.T) {
	repo := newFakeRepo(domain.StoredPreference{
		UserID:     "user-1",
		Market:     domain.MarketArgentina,
		Language:   domain.LanguageSpanish,
		AutoDetect: true,
	})
	r, _, _ := newTestResolver(repo, &fakeLocator{err: errBoom})

	got := r.Resolve(context.Background(), user("user-1", newMemCache()))

	assert.Equal(t, domain.MarketArgentina, got.Market)
	assert.Equal(t, domain.SourceDatabase, got.Source)
	assert.True(t, got.AutoDetect)
}

func TestResolve_NewUserPersistsDetection(t *testing.T) {
	repo := newFakeRepo()
	r, _, _ := newTestResolver(repo, &fakeLocator{country: "UY"})

	got := r.Resolve(context.Background(), user("user-2", newMemCache()))

	assert.Equal(t, domain.MarketArgentina, got.Market)
	row, ok := repo.row("user-2")
	require.True(t, ok)
	assert.Equal(t, domain.LanguageSpanish, row.Language)
	assert.True(t, row.AutoDetect)
}

func TestResolve_StoreReadErrorTreatedAsAbsent(t *testing.T) {
	repo := newFakeRepo()
	repo.getErr = errBoom
	r, _, _ := newTestResolver(repo, &fakeLocator{country: "AR"})

	got := r.Resolve(context.Background(), user("user-1", newMemCache()))

	assert.Equal(t, domain.MarketArgentina, got.Market)
	assert.Equal(t, domain.SourceIPDetection, got.Source)
}

func TestResolve_AuthenticatedWithoutUserIDIsAnonymous(t *testing.T) {
	repo := newFakeRepo()
	r, _, _ := newTestResolver(repo, &fakeLocator{country: "AR"})

	s := anon(newMemCache())
	s.Authenticated = true
	r.Resolve(context.Background(), s)

	assert.Zero(t, repo.upserts)
}

func TestSetMarket_DerivesLanguageAndDisablesAutoDetect(t *testing.T) {
	r, n, ev := newTestResolver(nil, nil)
	cache := newMemCache(domain.KeySelectedLanguage, "en")

	got, err := r.SetMarket(context.Background(), in.SetMarketInput{
		Subject: anon(cache),
		Market:  domain.MarketArgentina,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.LanguageSpanish, got.Language)
	assert.False(t, got.AutoDetect)
	assert.Equal(t, domain.SourceLocalCache, got.Source)
	assert.Equal(t, "argentina", cache.value(domain.KeySelectedMarket))
	assert.Equal(t, "es", cache.value(domain.KeySelectedLanguage))

	sent := n.all()
	require.Len(t, sent, 1)
	assert.Equal(t, "Mercado actualizado", sent[0].Title)
	assert.Equal(t, []string{domain.EventMarketChanged}, ev.types())
}

func TestSetMarket_InvalidMarket(t *testing.T) {
	r, n, _ := newTestResolver(nil, nil)
	cache := newMemCache()

	_, err := r.SetMarket(context.Background(), in.SetMarketInput{
		Subject: anon(cache),
		Market:  domain.Market("brazil"),
	})

	assert.ErrorIs(t, err, domain.ErrInvalidMarket)
	assert.Empty(t, cache.value(domain.KeySelectedMarket))
	assert.Empty(t, n.all())
}

func TestSetMarket_PersistsForUser(t *testing.T) {
	repo := newFakeRepo()
	r, _, _ := newTestResolver(repo, nil)

	got, err := r.SetMarket(context.Background(), in.SetMarketInput{
		Subject: user("user-1", newMemCache()),
		Market:  domain.MarketArgentina,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.SourceDatabase, got.Source)
	row, ok := repo.row("user-1")
	require.True(t, ok)
	assert.Equal(t, domain.MarketArgentina, row.Market)
	assert.False(t, row.AutoDetect)
}

func TestSetMarket_StoreFailureKeepsLocalAndNotifies(t *testing.T) {
	repo := newFakeRepo()
	repo.upsertErr = errBoom
	r, n, _ := newTestResolver(repo, nil)
	cache := newMemCache()

	got, err := r.SetMarket(context.Background(), in.SetMarketInput{
		Subject: user("user-1", cache),
		Market:  domain.MarketIsrael,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.SourceLocalCache, got.Source)
	assert.Equal(t, "israel", cache.value(domain.KeySelectedMarket))

	sent := n.all()
	require.Len(t, sent, 2)
	assert.Equal(t, domain.SeverityError, sent[0].Severity)
	assert.Equal(t, domain.SeveritySuccess, sent[1].Severity)
}

func TestSetLanguage_KeepsMarket(t *testing.T) {
	r, _, ev := newTestResolver(nil, nil)
	cache := newMemCache()
	s := anon(cache)

	_, err := r.SetMarket(context.Background(), in.SetMarketInput{Subject: s, Market: domain.MarketArgentina})
	require.NoError(t, err)

	got, err := r.SetLanguage(context.Background(), in.SetLanguageInput{Subject: s, Language: domain.LanguageEnglish})
	require.NoError(t, err)

	assert.Equal(t, domain.MarketArgentina, got.Market)
	assert.Equal(t, domain.LanguageEnglish, got.Language)
	assert.Equal(t, "en", cache.value(domain.KeySelectedLanguage))
	assert.Equal(t, "argentina", cache.value(domain.KeySelectedMarket))
	assert.Equal(t, []string{domain.EventMarketChanged, domain.EventLanguageChanged}, ev.types())
}

func TestSetLanguage_InvalidLanguage(t *testing.T) {
	r, _, _ := newTestResolver(nil, nil)

	_, err := r.SetLanguage(context.Background(), in.SetLanguageInput{
		Subject:  anon(newMemCache()),
		Language: domain.Language("fr"),
	})

	assert.ErrorIs(t, err, domain.ErrInvalidLanguage)
}

func TestSetLanguage_KeepsStoredAutoDetect(t *testing.T) {
	repo := newFakeRepo(domain.StoredPreference{
		UserID:     "user-1",
		Market:     domain.MarketArgentina,
		Language:   domain.LanguageSpanish,
		AutoDetect: true,
	})
	r, _, _ := newTestResolver(repo, nil)

	got, err := r.SetLanguage(context.Background(), in.SetLanguageInput{
		Subject:  user("user-1", newMemCache()),
		Language: domain.LanguageHebrew,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.MarketArgentina, got.Market)
	assert.True(t, got.AutoDetect)
	assert.Equal(t, domain.SourceDatabase, got.Source)

	row, _ := repo.row("user-1")
	assert.Equal(t, domain.LanguageHebrew, row.Language)
	assert.True(t, row.AutoDetect)
}

func TestPeek_NoNetwork(t *testing.T) {
	loc := &fakeLocator{country: "AR"}
	r, _, _ := newTestResolver(nil, loc)

	assert.Equal(t, domain.DefaultPreference(), r.Peek(context.Background(), anon(newMemCache())))

	got := r.Peek(context.Background(), anon(newMemCache(domain.KeyDetectedMarket, "argentina")))
	assert.Equal(t, domain.MarketArgentina, got.Market)
	assert.Zero(t, loc.calls.Load())
}

func TestResolve_SameUserOnTwoDevicesResolvesEachDevice(t *testing.T) {
	loc := &ipLocator{
		countries: map[string]string{"198.51.100.1": "IL", "200.45.0.9": "AR"},
		gate:      make(chan struct{}),
	}
	r := NewResolver(newFakeRepo(), loc, &recNotifier{}, logger.NewNop())

	cacheA, cacheB := newMemCache(), newMemCache()
	phone := in.Subject{Authenticated: true, UserID: "user-1", DeviceID: "device-a", ClientIP: "198.51.100.1", Cache: cacheA}
	laptop := in.Subject{Authenticated: true, UserID: "user-1", DeviceID: "device-b", ClientIP: "200.45.0.9", Cache: cacheB}

	var (
		wg         sync.WaitGroup
		gotA, gotB domain.Preference
	)
	wg.Add(2)
	go func() { defer wg.Done(); gotA = r.Resolve(context.Background(), phone) }()
	go func() { defer wg.Done(); gotB = r.Resolve(context.Background(), laptop) }()

	require.Eventually(t, func() bool { return len(loc.seen()) == 2 }, time.Second, 5*time.Millisecond,
		"both devices must reach the IP service while the other is in flight")
	close(loc.gate)
	wg.Wait()

	assert.ElementsMatch(t, []string{"198.51.100.1", "200.45.0.9"}, loc.seen())
	assert.Equal(t, domain.MarketIsrael, gotA.Market)
	assert.Equal(t, domain.MarketArgentina, gotB.Market)
	assert.Equal(t, "israel", cacheA.value(domain.KeyDetectedMarket))
	assert.Equal(t, "argentina", cacheB.value(domain.KeyDetectedMarket))
	assert.Equal(t, "es", cacheB.value(domain.KeyDetectedLanguage))
}

func TestSetMarket_UserWithoutStoreStaysLocal(t *testing.T) {
	r, n, _ := newTestResolver(nil, nil)
	cache := newMemCache()

	got, err := r.SetMarket(context.Background(), in.SetMarketInput{
		Subject: user("user-1", cache),
		Market:  domain.MarketArgentina,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.SourceLocalCache, got.Source)
	assert.Equal(t, "argentina", cache.value(domain.KeySelectedMarket))
	sent := n.all()
	require.Len(t, sent, 1)
	assert.Equal(t, domain.SeveritySuccess, sent[0].Severity)

	got, err = r.SetLanguage(context.Background(), in.SetLanguageInput{
		Subject:  user("user-1", cache),
		Language: domain.LanguageEnglish,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.SourceLocalCache, got.Source)
	assert.Len(t, n.all(), 1)

	resolved := r.Resolve(context.Background(), user("user-1", cache))
	assert.Equal(t, domain.MarketArgentina, resolved.Market)
	assert.Equal(t, domain.LanguageEnglish, resolved.Language)
	assert.Equal(t, domain.SourceLocalCache, resolved.Source)
}
