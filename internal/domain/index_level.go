package domain

import "time"

// IndexLevelPoint is a daily index level for analytical queries.
// Corresponds to index_levels table in ClickHouse.
type IndexLevelPoint struct {
	RunID               string    // owning index run
	Date                time.Time // trading date
	Level               float64   // index level (4 dp)
	DailyReturnPct      float64   // daily return percent (4 dp)
	CumulativeReturnPct float64   // cumulative return percent (4 dp)
	ConstituentCount    int       // constituents on Date
	IsRebalanceDay      bool      // composition changed on Date
}

// LevelPointsFromRecords projects daily records into level points for runID.
func LevelPointsFromRecords(runID string, daily []DailyRecord) []*IndexLevelPoint {
	points := make([]*IndexLevelPoint, len(daily))
	for i, r := range daily {
		points[i] = &IndexLevelPoint{
			RunID:               runID,
			Date:                r.Date,
			Level:               r.IndexLevel,
			DailyReturnPct:      r.DailyReturnPercent,
			CumulativeReturnPct: r.CumulativeReturnPercent,
			ConstituentCount:    r.ConstituentCount,
			IsRebalanceDay:      r.IsRebalanceDay,
		}
	}
	return points
}
