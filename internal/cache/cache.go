package cache

import "time"

type Stats struct {
	Size int
	Keys []string
}

// Cache - TTL key-value кеш. Кеширование best-effort: ошибки Set/Invalidate
// логируются вызывающим кодом и никогда не доходят до клиента.
type Cache interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{}, ttl time.Duration) error
	Delete(key string)
	// Invalidate удаляет все ключи, совпавшие с regex-паттерном,
	// и возвращает число удалённых.
	Invalidate(pattern string) (int, error)
	Stats() Stats
}
