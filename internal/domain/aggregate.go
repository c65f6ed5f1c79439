package domain

import (
	"crypto/sha256"
	"fmt"
	"time"
)

const AggregateTTL = 7 * 24 * time.Hour

// Aggregate - дедуплицированный и отранжированный результат слияния
// провайдеров для одного fingerprint. Создаётся один раз, потом только читается.
type Aggregate struct {
	ID            string
	Fingerprint   string
	Query         string
	Orientation   Orientation
	QualityHint   string
	ProvidersUsed []string
	OwnerUserID   string
	CreatedAt     time.Time
	ExpiresAt     time.Time
}

func (a *Aggregate) Expired(now time.Time) bool {
	return now.After(a.ExpiresAt)
}

// Fingerprint детерминированно идентифицирует запрос аггрегации
func Fingerprint(query string, orientation Orientation, qualityHint string) string {
	data := query + "|" + string(orientation) + "|" + qualityHint
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash[:16])
}
