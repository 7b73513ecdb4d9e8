package usecase

import (
	"context"
	"sync"

	in "una/internal/market/application/ports/in"
	out "una/internal/market/application/ports/out"
	"una/internal/market/domain"
)

// Session — предпочтение одного устройства. Меняется только через ResolveMarket, SetMarket и SetLanguage.
// Операции выполняются по очереди; Current можно читать из любой горутины.
type Session struct {
	uc in.MarketUseCase

	ops sync.Mutex

	mu       sync.RWMutex
	subject  in.Subject
	current  domain.Preference
	resolved bool
}

// NewSession. clientIP может быть пустым: сервис геолокации возьмёт адрес соединения.
func NewSession(uc in.MarketUseCase, deviceID, clientIP string, cache out.LocalCache) *Session {
	return &Session{
		uc: uc,
		subject: in.Subject{
			DeviceID: deviceID,
			ClientIP: clientIP,
			Cache:    cache,
		},
		current: domain.DefaultPreference(),
	}
}

// ResolveMarket определяет предпочтение и запоминает его в сессии
func (s *Session) ResolveMarket(ctx context.Context, authenticated bool, userID string) domain.Preference {
	s.ops.Lock()
	defer s.ops.Unlock()

	s.mu.Lock()
	s.subject.Authenticated = authenticated
	s.subject.UserID = userID
	subject := s.subject
	s.mu.Unlock()

	pref := s.uc.Resolve(ctx, subject)
	s.store(pref)
	return pref
}

// Identify привязывает сессию к пользователю без определения рынка
func (s *Session) Identify(authenticated bool, userID string) {
	s.ops.Lock()
	defer s.ops.Unlock()

	s.mu.Lock()
	s.subject.Authenticated = authenticated
	s.subject.UserID = userID
	s.mu.Unlock()
}

func (s *Session) SetMarket(ctx context.Context, m domain.Market) (domain.Preference, error) {
	s.ops.Lock()
	defer s.ops.Unlock()

	pref, err := s.uc.SetMarket(ctx, in.SetMarketInput{Subject: s.snapshot(), Market: m})
	if err != nil {
		return s.Current(), err
	}
	s.store(pref)
	return pref, nil
}

func (s *Session) SetLanguage(ctx context.Context, l domain.Language) (domain.Preference, error) {
	s.ops.Lock()
	defer s.ops.Unlock()

	input := in.SetLanguageInput{Subject: s.snapshot(), Language: l}

	s.mu.RLock()
	if s.resolved {
		cur := s.current
		input.Current = &cur
	}
	s.mu.RUnlock()

	pref, err := s.uc.SetLanguage(ctx, input)
	if err != nil {
		return s.Current(), err
	}
	s.store(pref)
	return pref, nil
}

// Current — последнее известное предпочтение; до первого ResolveMarket — israel/he
func (s *Session) Current() domain.Preference {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Session) snapshot() in.Subject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.subject
}

func (s *Session) store(p domain.Preference) {
	s.mu.Lock()
	s.current = p
	s.resolved = true
	s.mu.Unlock()
}
