package tracking

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/akshayg/coach/internal/core"
)

// MemoryStore is an in-memory Store used for tests and dry runs.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string]core.PortfolioSnapshot
	market    map[string]core.MarketContext
	metrics   map[string]core.PerformanceMetrics
	recs      map[string]core.TradeRecommendation

	// now is replaceable so history windows are testable.
	now func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		snapshots: make(map[string]core.PortfolioSnapshot),
		market:    make(map[string]core.MarketContext),
		metrics:   make(map[string]core.PerformanceMetrics),
		recs:      make(map[string]core.TradeRecommendation),
		now:       time.Now,
	}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) SaveSnapshot(_ context.Context, snap core.PortfolioSnapshot, overwrite bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := snap.DateKey()
	if _, exists := s.snapshots[key]; exists && !overwrite {
		return core.ErrSnapshotExists
	}
	s.snapshots[key] = snap
	return nil
}

func (s *MemoryStore) SnapshotByDate(_ context.Context, date string) (*core.PortfolioSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.snapshots[date]
	if !ok {
		return nil, nil
	}
	return &snap, nil
}

func (s *MemoryStore) LatestSnapshot(context.Context) (*core.PortfolioSnapshot, error) {
	return s.latestBefore("")
}

func (s *MemoryStore) LatestSnapshotBefore(_ context.Context, date string) (*core.PortfolioSnapshot, error) {
	return s.latestBefore(date)
}

// latestBefore returns the newest snapshot, restricted to dates strictly
// before the bound when one is given. Date keys sort lexically.
func (s *MemoryStore) latestBefore(bound string) (*core.PortfolioSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best string
	for key := range s.snapshots {
		if bound != "" && key >= bound {
			continue
		}
		if key > best {
			best = key
		}
	}
	if best == "" {
		return nil, nil
	}
	snap := s.snapshots[best]
	return &snap, nil
}

func (s *MemoryStore) SaveMarketData(_ context.Context, date string, mc core.MarketContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.market[date] = mc
	return nil
}

func (s *MemoryStore) MarketDataByDate(_ context.Context, date string) (*core.MarketContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mc, ok := s.market[date]
	if !ok {
		return nil, nil
	}
	return &mc, nil
}

func (s *MemoryStore) SaveRecommendations(_ context.Context, recs []core.TradeRecommendation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dates := map[string]bool{}
	for _, r := range recs {
		dates[r.Date.Format("2006-01-02")] = true
	}
	for id, r := range s.recs {
		if dates[r.Date.Format("2006-01-02")] {
			delete(s.recs, id)
		}
	}
	for _, r := range recs {
		s.recs[r.ID] = r
	}
	return nil
}

func (s *MemoryStore) RecommendationsByDate(_ context.Context, date string) ([]core.TradeRecommendation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []core.TradeRecommendation
	for _, r := range s.recs {
		if r.Date.Format("2006-01-02") == date {
			out = append(out, r)
		}
	}
	sortRecommendations(out)
	return out, nil
}

func (s *MemoryStore) RecommendationHistory(_ context.Context, days int) ([]core.TradeRecommendation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := s.now().AddDate(0, 0, -days).Format("2006-01-02")

	var out []core.TradeRecommendation
	for _, r := range s.recs {
		if r.Date.Format("2006-01-02") >= cutoff {
			out = append(out, r)
		}
	}
	sortRecommendations(out)
	return out, nil
}

func sortRecommendations(recs []core.TradeRecommendation) {
	sort.Slice(recs, func(i, j int) bool {
		di, dj := recs[i].Date, recs[j].Date
		if !di.Equal(dj) {
			return di.After(dj)
		}
		if recs[i].Confidence != recs[j].Confidence {
			return recs[i].Confidence > recs[j].Confidence
		}
		return recs[i].ID < recs[j].ID
	})
}

func (s *MemoryStore) UpdateRecommendationStatus(_ context.Context, id string, status core.RecommendationStatus, executionPrice, realizedPnL *float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.recs[id]
	if !ok {
		return core.WrapError(core.ErrRecommendation, fmt.Errorf("no recommendation with id %s", id))
	}
	r.Status = status
	r.ExecutionPrice = executionPrice
	r.RealizedPnL = realizedPnL
	if status == core.StatusExecuted {
		t := s.now()
		r.ExecutionTime = &t
	} else {
		r.ExecutionTime = nil
	}
	s.recs[id] = r
	return nil
}

func (s *MemoryStore) SaveMetrics(_ context.Context, date string, m core.PerformanceMetrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics[date] = m
	return nil
}

func (s *MemoryStore) MetricsByDate(_ context.Context, date string) (*core.PerformanceMetrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.metrics[date]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (s *MemoryStore) DailySummaries(_ context.Context, days int) ([]DailySummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := s.now().AddDate(0, 0, -days).Format("2006-01-02")

	var out []DailySummary
	for date, snap := range s.snapshots {
		if date < cutoff {
			continue
		}
		d := DailySummary{
			Date:        date,
			TotalValue:  snap.Summary.TotalValue,
			TotalPnL:    snap.Summary.TotalPnL,
			TotalStocks: snap.Summary.TotalStocks,
		}
		if m, ok := s.metrics[date]; ok {
			pr, br, alpha := m.PortfolioReturn, m.BenchmarkReturn, m.Alpha
			d.PortfolioReturn = &pr
			d.BenchmarkReturn = &br
			d.Alpha = &alpha
		}
		for _, r := range s.recs {
			if r.Date.Format("2006-01-02") != date {
				continue
			}
			d.Recommendations++
			if r.Status == core.StatusExecuted {
				d.Executed++
			}
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out, nil
}
