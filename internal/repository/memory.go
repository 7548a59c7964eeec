package repository

import (
	"context"
	"sync"
	"time"

	"github.com/Dan9191/cofrinho-service/internal/models"
)

// MemoryRateStore is an in-memory RateStore
type MemoryRateStore struct {
	mu     sync.Mutex
	nextID int64
	rates  []models.KeyRate
}

// NewMemoryRateStore creates an empty in-memory store
func NewMemoryRateStore() *MemoryRateStore {
	return &MemoryRateStore{}
}

func (m *MemoryRateStore) SaveRate(_ context.Context, rate *models.KeyRate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.rates {
		if m.rates[i].Series == rate.Series && m.rates[i].Date.Equal(rate.Date) {
			m.rates[i].Rate = rate.Rate
			rate.ID = m.rates[i].ID
			rate.CreatedAt = m.rates[i].CreatedAt
			return nil
		}
	}
	m.nextID++
	rate.ID = m.nextID
	rate.CreatedAt = time.Now()
	m.rates = append(m.rates, *rate)
	return nil
}

func (m *MemoryRateStore) LatestRate(_ context.Context) (*models.KeyRate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.rates) == 0 {
		return nil, ErrNotFound
	}
	latest := m.rates[0]
	for _, r := range m.rates[1:] {
		if r.Date.After(latest.Date) || (r.Date.Equal(latest.Date) && r.ID > latest.ID) {
			latest = r
		}
	}
	return &latest, nil
}
