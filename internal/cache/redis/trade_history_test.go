package redis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sunho-park/poswatch/internal/domain"
)

func TestTradeHistoryPartitionsDaysInKST(t *testing.T) {
	h := NewTradeHistory(&Client{}, nil)

	// 01:00 KST is still the previous day in UTC; the list key must follow
	// the KST calendar the reports and exports query by.
	earlyMorning := time.Date(2025, 3, 1, 16, 0, 0, 0, time.UTC) // 2025-03-02 01:00 KST
	assert.Equal(t, "2025-03-02", h.dayKey(earlyMorning))

	afternoon := time.Date(2025, 3, 2, 5, 0, 0, 0, time.UTC) // 2025-03-02 14:00 KST
	assert.Equal(t, "2025-03-02", h.dayKey(afternoon))
}

func TestTradeHistoryHonorsExplicitLocation(t *testing.T) {
	h := NewTradeHistory(&Client{}, domain.KST)
	midnight := time.Date(2025, 3, 1, 15, 0, 0, 0, time.UTC) // 2025-03-02 00:00 KST
	assert.Equal(t, "2025-03-02", h.dayKey(midnight))

	utc := NewTradeHistory(&Client{}, time.UTC)
	assert.Equal(t, "2025-03-01", utc.dayKey(midnight))
}
