package analysis

import (
	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"

	"bidtrack/models"
)

// Summary aggregates the portfolio for the reporting endpoint.
type Summary struct {
	TotalProjects int            `json:"totalProjects"`
	StatusCounts  map[string]int `json:"statusCounts"`
	RegionCounts  map[string]int `json:"regionCounts"`

	// WinRate is won / (won + lost), percent. Nil until at least one
	// project has been decided.
	WinRate *float64 `json:"winRate"`

	WonRevenue      decimal.Decimal `json:"wonRevenue"`
	PipelineRevenue decimal.Decimal `json:"pipelineRevenue"`

	MeanEBITPct   *float64 `json:"meanEbitPct"`
	MedianEBITPct *float64 `json:"medianEbitPct"`
}

// ProjectFinancial pairs a project with its P&L row, which may be absent.
type ProjectFinancial struct {
	Project   models.Project
	Financial *models.Financial
}

// Summarize builds portfolio statistics over the given projects. Projects
// without financials count toward statuses and win rate but contribute
// nothing to revenue or margin figures.
func Summarize(items []ProjectFinancial) Summary {
	s := Summary{
		TotalProjects: len(items),
		StatusCounts:  map[string]int{},
		RegionCounts:  map[string]int{},
	}

	var ebitPcts []float64
	for _, it := range items {
		s.StatusCounts[it.Project.Status]++
		if it.Project.Region != nil {
			s.RegionCounts[*it.Project.Region]++
		}

		if it.Financial == nil {
			continue
		}
		if rev := it.Financial.TotalRevenue; rev != nil {
			switch it.Project.Status {
			case models.StatusWon:
				s.WonRevenue = s.WonRevenue.Add(*rev)
			case models.StatusOngoing, models.StatusSubmitted:
				s.PipelineRevenue = s.PipelineRevenue.Add(*rev)
			}
		}
		if pct := it.Financial.EBITPct; pct != nil {
			v, _ := pct.Float64()
			ebitPcts = append(ebitPcts, v)
		}
	}

	won := s.StatusCounts[models.StatusWon]
	lost := s.StatusCounts[models.StatusLost]
	if won+lost > 0 {
		rate := float64(won) / float64(won+lost) * 100
		s.WinRate = &rate
	}

	if len(ebitPcts) > 0 {
		if mean, err := stats.Mean(ebitPcts); err == nil {
			s.MeanEBITPct = &mean
		}
		if median, err := stats.Median(ebitPcts); err == nil {
			s.MedianEBITPct = &median
		}
	}

	return s
}
