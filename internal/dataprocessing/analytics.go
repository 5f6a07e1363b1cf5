package dataprocessing

import (
	"fmt"
	"math"
	"sort"

	"ccasscli/pkg/contracts/domain"
)

// DefaultTopN is the number of participants shown by the trend view
const DefaultTopN = 10

// Preprocess orders observations by (date, participant_id) and drops repeated
// (date, stock_code, participant_id) keys, keeping the first occurrence.
// Input is expected in store order, so the earliest requested date wins.
func Preprocess(rows []domain.ShareholdingObservation) []domain.ShareholdingObservation {
	sorted := make([]domain.ShareholdingObservation, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Date != sorted[j].Date {
			return sorted[i].Date < sorted[j].Date
		}
		return sorted[i].ParticipantID < sorted[j].ParticipantID
	})

	type key struct {
		date string
		code int
		pid  string
	}
	seen := make(map[key]struct{}, len(sorted))
	out := sorted[:0]
	for _, r := range sorted {
		k := key{r.Date, r.StockCode, r.ParticipantID}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}

// StockNameMode returns the most frequent non-empty stock name. Ties go to
// the lexicographically smallest name.
func StockNameMode(rows []domain.ShareholdingObservation) string {
	counts := make(map[string]int)
	for _, r := range rows {
		if r.StockName != "" {
			counts[r.StockName]++
		}
	}
	var best string
	for name, n := range counts {
		if n > counts[best] || (n == counts[best] && name < best) {
			best = name
		}
	}
	return best
}

// Trend builds the top participants view from preprocessed rows. Returns nil
// when rows is empty.
func Trend(rows []domain.ShareholdingObservation, stockCode, topN int) *domain.TrendView {
	if len(rows) == 0 {
		return nil
	}
	if topN <= 0 {
		topN = DefaultTopN
	}

	latest := rows[0].Date
	for _, r := range rows {
		if r.Date > latest {
			latest = r.Date
		}
	}

	var onLatest []domain.ShareholdingObservation
	for _, r := range rows {
		if r.Date == latest {
			onLatest = append(onLatest, r)
		}
	}
	sort.SliceStable(onLatest, func(i, j int) bool {
		if onLatest[i].Shareholding != onLatest[j].Shareholding {
			return onLatest[i].Shareholding > onLatest[j].Shareholding
		}
		return onLatest[i].ParticipantID < onLatest[j].ParticipantID
	})
	if len(onLatest) > topN {
		onLatest = onLatest[:topN]
	}

	rank := make(map[string]int, len(onLatest))
	top := make([]string, len(onLatest))
	series := make([]domain.ParticipantSeries, len(onLatest))
	for i, r := range onLatest {
		rank[r.ParticipantID] = i
		top[i] = r.ParticipantID
		series[i].Participant = r.Participant()
	}

	var tableRows []domain.TrendRow
	for _, r := range rows {
		i, ok := rank[r.ParticipantID]
		if !ok {
			continue
		}
		tableRows = append(tableRows, domain.TrendRow{
			Date:            r.Date,
			StockCode:       r.StockCode,
			ParticipantID:   r.ParticipantID,
			ParticipantName: r.ParticipantName,
			Shareholding:    r.Shareholding,
			PctTotalIssued:  r.PctTotalIssued,
		})
		series[i].Points = append(series[i].Points, domain.SeriesPoint{
			Date:         r.Date,
			Shareholding: r.Shareholding,
		})
	}

	name := StockNameMode(rows)
	return &domain.TrendView{
		Title:           fmt.Sprintf("Stock: %s (%d), Shareholding of Top %d Participants", name, stockCode, topN),
		StockName:       name,
		LatestDate:      latest,
		TopParticipants: top,
		Series:          series,
		Rows:            tableRows,
	}
}

// Changes computes each participant's movement against its previous
// observation. rows must be preprocessed. Percentage change is undefined for
// a participant's first observation and when the previous holding is zero.
func Changes(rows []domain.ShareholdingObservation, thresholdPct float64) []domain.ParticipantChange {
	threshold := thresholdPct / 100
	prev := make(map[string]int64)
	out := make([]domain.ParticipantChange, 0, len(rows))

	for _, r := range rows {
		c := domain.ParticipantChange{
			Date:            r.Date,
			ParticipantID:   r.ParticipantID,
			ParticipantName: r.ParticipantName,
			Shareholding:    r.Shareholding,
		}
		if p, ok := prev[r.ParticipantID]; ok {
			diff := r.Shareholding - p
			c.ShareholdingDiff = &diff
			if p != 0 {
				pct := float64(diff) / float64(p)
				c.PctChange = &pct
				c.TransactionDetected = math.Abs(pct) >= threshold
			}
		}
		prev[r.ParticipantID] = r.Shareholding
		out = append(out, c)
	}
	return out
}

// Finder detects threshold-crossing buyers and pairs each with every seller
// whose change on the same date is the exact opposite quantity.
func Finder(rows []domain.ShareholdingObservation, stockCode int, thresholdPct float64) *domain.FinderView {
	changes := Changes(rows, thresholdPct)
	view := &domain.FinderView{
		ThresholdPct: thresholdPct,
		Detected:     []domain.ParticipantChange{},
		Transactions: []domain.TransactionCandidate{},
	}

	byDate := make(map[string][]domain.ParticipantChange)
	var dates []string
	for _, c := range changes {
		if c.TransactionDetected {
			view.Detected = append(view.Detected, c)
		}
		if _, ok := byDate[c.Date]; !ok {
			dates = append(dates, c.Date)
		}
		byDate[c.Date] = append(byDate[c.Date], c)
	}
	sort.Strings(dates)

	for _, d := range dates {
		day := byDate[d]
		for _, buyer := range day {
			if !buyer.TransactionDetected || buyer.ShareholdingDiff == nil || *buyer.ShareholdingDiff <= 0 {
				continue
			}
			qty := *buyer.ShareholdingDiff
			for _, seller := range day {
				if seller.ShareholdingDiff == nil || *seller.ShareholdingDiff != -qty {
					continue
				}
				view.Transactions = append(view.Transactions, domain.TransactionCandidate{
					Date:               d,
					StockCode:          stockCode,
					BuyerID:            buyer.ParticipantID,
					BuyerName:          buyer.ParticipantName,
					SellerID:           seller.ParticipantID,
					SellerName:         seller.ParticipantName,
					Quantity:           qty,
					BuyerPctChange:     percent(buyer.PctChange),
					SellerPctChange:    percent(seller.PctChange),
					BuyerShareholding:  buyer.Shareholding,
					SellerShareholding: seller.Shareholding,
				})
			}
		}
	}

	return view
}

// percent scales a proportion to percent rounded to 5 decimals
func percent(p *float64) float64 {
	if p == nil {
		return 0
	}
	return math.Round(*p*100*1e5) / 1e5
}
