package metabase

import (
	"context"
	"encoding/json"
	"time"
)

// readinessTimeout — таймаут проверки /api/health.
const readinessTimeout = 5 * time.Second

// CheckReady проверяет /api/health Metabase.
// Возвращает "ok", "degraded" (ответ есть, но статус не ok) или "fail".
func (c *Client) CheckReady() (status, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), readinessTimeout)
	defer cancel()

	raw := c.Get(ctx, "/api/health")
	if raw == nil {
		return "fail", "Metabase недоступен"
	}

	var health struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(raw, &health); err != nil || health.Status != "ok" {
		return "degraded", "Metabase отвечает, статус: " + health.Status
	}
	return "ok", "Metabase доступен"
}
