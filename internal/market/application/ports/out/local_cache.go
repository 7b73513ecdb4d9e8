package out

import "context"

// LocalCache — key-value кеш одного устройства (selectedMarket, detectedLanguage, ...)
type LocalCache interface {
	// Get возвращает ok=false, если ключа нет
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// LocalCacheFactory выдаёт кеш конкретного устройства
type LocalCacheFactory interface {
	ForDevice(deviceID string) LocalCache
}
