package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "STORE", "TRANSACTION_LIST_LIMIT", "STATUS_PENDING_ID", "RECONCILE_AFTER"} {
		t.Setenv(k, "")
	}

	cfg := LoadConfig()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "mysql", cfg.Store)
	assert.Equal(t, 1000, cfg.TransactionListLimit)
	assert.Equal(t, "pending", cfg.Statuses.Pending)
	assert.Equal(t, "completed", cfg.Statuses.Completed)
	assert.Equal(t, "rejected", cfg.Statuses.Rejected)
	assert.Equal(t, "transfer", cfg.Categories.Transfer)
	assert.Equal(t, 5*time.Minute, cfg.ReconcileAfter)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("STORE", "memory")
	t.Setenv("TRANSACTION_LIST_LIMIT", "250")
	t.Setenv("STATUS_COMPLETED_ID", "st_2")
	t.Setenv("CATEGORY_TRANSFER_ID", "cat_9")
	t.Setenv("STORE_TIMEOUT", "750ms")
	t.Setenv("RATE_LIMIT_RPS", "2.5")

	cfg := LoadConfig()

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "memory", cfg.Store)
	assert.Equal(t, 250, cfg.TransactionListLimit)
	assert.Equal(t, "st_2", cfg.Statuses.Completed)
	assert.Equal(t, "cat_9", cfg.Categories.Transfer)
	assert.Equal(t, 750*time.Millisecond, cfg.StoreTimeout)
	assert.Equal(t, 2.5, cfg.RateLimitRPS)
}

func TestGetEnvAsInt_InvalidFallsBack(t *testing.T) {
	t.Setenv("SOME_INT", "not-a-number")
	assert.Equal(t, 42, GetEnvAsInt("SOME_INT", 42))
}
