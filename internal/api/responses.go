package api

import (
	"time"

	"equal-weight-index/internal/domain"
)

type errorResponse struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

type runResponse struct {
	RunID        string    `json:"run_id"`
	UniverseSize int       `json:"universe_size"`
	BaseLevel    float64   `json:"base_level"`
	StartDate    string    `json:"start_date"`
	EndDate      string    `json:"end_date"`
	Days         int       `json:"days"`
	CreatedAt    time.Time `json:"created_at"`
}

func newRunResponse(r *domain.IndexRun) runResponse {
	return runResponse{
		RunID:        r.RunID,
		UniverseSize: r.UniverseSize,
		BaseLevel:    r.BaseLevel,
		StartDate:    r.StartDate.Format(domain.DateLayout),
		EndDate:      r.EndDate.Format(domain.DateLayout),
		Days:         r.Days,
		CreatedAt:    r.CreatedAt,
	}
}

type dailyResponse struct {
	Date                    string   `json:"date"`
	IndexLevel              float64  `json:"index_level"`
	DailyReturnPercent      float64  `json:"daily_return_percent"`
	CumulativeReturnPercent float64  `json:"cumulative_return_percent"`
	Constituents            []string `json:"constituents"`
	IsRebalanceDay          bool     `json:"is_rebalance_day"`
	TickersAdded            []string `json:"tickers_added"`
	TickersRemoved          []string `json:"tickers_removed"`
	CompositionChangeCount  int      `json:"composition_change_count"`
	ReturnSampleSize        int      `json:"return_sample_size"`
}

func newDailyResponse(d domain.DailyRecord) dailyResponse {
	return dailyResponse{
		Date:                    d.Date.Format(domain.DateLayout),
		IndexLevel:              d.IndexLevel,
		DailyReturnPercent:      d.DailyReturnPercent,
		CumulativeReturnPercent: d.CumulativeReturnPercent,
		Constituents:            nonNil(domain.SplitTickers(d.Constituents)),
		IsRebalanceDay:          d.IsRebalanceDay,
		TickersAdded:            nonNil(domain.SplitTickers(d.TickersAdded)),
		TickersRemoved:          nonNil(domain.SplitTickers(d.TickersRemoved)),
		CompositionChangeCount:  d.CompositionChangeCount,
		ReturnSampleSize:        d.ReturnSampleSize,
	}
}

type summaryResponse struct {
	AggregateReturnPercent  float64 `json:"aggregate_return_percent"`
	BestPerformingDate      string  `json:"best_performing_date"`
	BestReturnPercent       float64 `json:"best_return_percent"`
	WorstPerformingDate     string  `json:"worst_performing_date"`
	WorstReturnPercent      float64 `json:"worst_return_percent"`
	TotalCompositionChanges int     `json:"total_composition_changes"`
}

func newSummaryResponse(s *domain.SummaryRecord) summaryResponse {
	return summaryResponse{
		AggregateReturnPercent:  s.AggregateReturnPercent,
		BestPerformingDate:      s.BestPerformingDate.Format(domain.DateLayout),
		BestReturnPercent:       s.BestReturnPercent,
		WorstPerformingDate:     s.WorstPerformingDate.Format(domain.DateLayout),
		WorstReturnPercent:      s.WorstReturnPercent,
		TotalCompositionChanges: s.TotalCompositionChanges,
	}
}

type levelResponse struct {
	Date                string  `json:"date"`
	Level               float64 `json:"level"`
	DailyReturnPct      float64 `json:"daily_return_pct"`
	CumulativeReturnPct float64 `json:"cumulative_return_pct"`
	ConstituentCount    int     `json:"constituent_count"`
	IsRebalanceDay      bool    `json:"is_rebalance_day"`
}

// nonNil keeps empty lists as [] in JSON.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
