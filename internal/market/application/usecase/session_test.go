package usecase

import (
	"context"
	"sync"
	"testing"

	"una/internal/market/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_CurrentBeforeResolve(t *testing.T) {
	r, _, _ := newTestResolver(nil, &fakeLocator{country: "AR"})
	s := NewSession(r, "device-1", "", newMemCache())

	assert.Equal(t, domain.DefaultPreference(), s.Current())
}

func TestSession_SetMarketThenLanguage(t *testing.T) {
	r, _, _ := newTestResolver(nil, &fakeLocator{country: "IL"})
	cache := newMemCache()
	s := NewSession(r, "device-1", "", cache)
	ctx := context.Background()

	initial := s.ResolveMarket(ctx, false, "")
	assert.Equal(t, domain.MarketIsrael, initial.Market)

	_, err := s.SetLanguage(ctx, domain.LanguageEnglish)
	require.NoError(t, err)

	p, err := s.SetMarket(ctx, domain.MarketArgentina)
	require.NoError(t, err)
	assert.Equal(t, domain.LanguageSpanish, p.Language, "language follows market regardless of prior choice")

	p, err = s.SetLanguage(ctx, domain.LanguageEnglish)
	require.NoError(t, err)
	assert.Equal(t, domain.MarketArgentina, p.Market)
	assert.Equal(t, domain.LanguageEnglish, p.Language)
	assert.Equal(t, p, s.Current())

	// следующая сессия того же устройства видит ручной выбор без сети
	loc := &fakeLocator{country: "IL"}
	r2, _, _ := newTestResolver(nil, loc)
	next := NewSession(r2, "device-1", "", cache).ResolveMarket(ctx, false, "")
	assert.Equal(t, domain.MarketArgentina, next.Market)
	assert.Equal(t, domain.LanguageEnglish, next.Language)
	assert.Zero(t, loc.calls.Load())
}

func TestSession_InvalidInputKeepsCurrent(t *testing.T) {
	r, _, _ := newTestResolver(nil, &fakeLocator{country: "AR"})
	s := NewSession(r, "device-1", "", newMemCache())
	ctx := context.Background()

	before := s.ResolveMarket(ctx, false, "")

	_, err := s.SetMarket(ctx, domain.Market("mars"))
	assert.ErrorIs(t, err, domain.ErrInvalidMarket)
	_, err = s.SetLanguage(ctx, domain.Language("ru"))
	assert.ErrorIs(t, err, domain.ErrInvalidLanguage)

	assert.Equal(t, before, s.Current())
}

func TestSession_ConcurrentMutators(t *testing.T) {
	r, _, _ := newTestResolver(newFakeRepo(), &fakeLocator{country: "AR"})
	s := NewSession(r, "device-1", "", newMemCache())
	ctx := context.Background()
	s.ResolveMarket(ctx, true, "user-1")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = s.SetMarket(ctx, domain.MarketArgentina)
		}()
		go func() {
			defer wg.Done()
			_, _ = s.SetLanguage(ctx, domain.LanguageEnglish)
			_ = s.Current()
		}()
	}
	wg.Wait()

	assert.Equal(t, domain.MarketArgentina, s.Current().Market)
}

func TestSession_IdentifyPersistsWithoutResolve(t *testing.T) {
	repo := newFakeRepo()
	loc := &fakeLocator{country: "IL"}
	r, _, _ := newTestResolver(repo, loc)
	s := NewSession(r, "device-1", "", newMemCache())
	ctx := context.Background()

	s.Identify(true, "user-1")
	p, err := s.SetMarket(ctx, domain.MarketArgentina)
	require.NoError(t, err)

	assert.Equal(t, domain.SourceDatabase, p.Source)
	assert.Zero(t, loc.calls.Load())
}
