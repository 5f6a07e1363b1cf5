package domain

// TrendRow is one row of the top participants table
type TrendRow struct {
	Date            string  `json:"date"`
	StockCode       int     `json:"stock_code"`
	ParticipantID   string  `json:"participant_id"`
	ParticipantName string  `json:"participant_name"`
	Shareholding    int64   `json:"shareholding"`
	PctTotalIssued  float64 `json:"pct_total_issued"`
}

// SeriesPoint is one observation of a participant's holding over time
type SeriesPoint struct {
	Date         string `json:"date"`
	Shareholding int64  `json:"shareholding"`
}

// ParticipantSeries is the chart-ready holding history of one participant
type ParticipantSeries struct {
	Participant string        `json:"participant"`
	Points      []SeriesPoint `json:"points"`
}

// TrendView shows how the largest holders on the latest date evolved
type TrendView struct {
	Title           string              `json:"title"`
	StockName       string              `json:"stock_name"`
	LatestDate      string              `json:"latest_date"`
	TopParticipants []string            `json:"top_participants"`
	Series          []ParticipantSeries `json:"series"`
	Rows            []TrendRow          `json:"rows"`
}

// ParticipantChange is a day over day movement of one participant's holding
type ParticipantChange struct {
	Date                string   `json:"date"`
	ParticipantID       string   `json:"participant_id"`
	ParticipantName     string   `json:"participant_name"`
	Shareholding        int64    `json:"shareholding"`
	ShareholdingDiff    *int64   `json:"shareholding_diff,omitempty"`
	PctChange           *float64 `json:"shareholding_pct_change,omitempty"`
	TransactionDetected bool     `json:"transaction_detected"`
}

// TransactionCandidate pairs a net buyer with a seller of the same quantity
type TransactionCandidate struct {
	Date               string  `json:"date"`
	StockCode          int     `json:"stock_code"`
	BuyerID            string  `json:"buyer_id"`
	BuyerName          string  `json:"buyer_name"`
	SellerID           string  `json:"seller_id"`
	SellerName         string  `json:"seller_name"`
	Quantity           int64   `json:"quantity"`
	BuyerPctChange     float64 `json:"buyer_pct_change"`
	SellerPctChange    float64 `json:"seller_pct_change"`
	BuyerShareholding  int64   `json:"buyer_shareholding"`
	SellerShareholding int64   `json:"seller_shareholding"`
}

// FinderView lists offsetting holding changes detected at a threshold.
// ThresholdPct is expressed in percent, e.g. 2 means a 2% move.
type FinderView struct {
	ThresholdPct float64                `json:"threshold_pct"`
	Detected     []ParticipantChange    `json:"detected"`
	Transactions []TransactionCandidate `json:"transactions"`
}

// Coverage reports how much of a requested range the store holds
type Coverage struct {
	RequestedDays int `json:"requested_days"`
	DaysOnFile    int `json:"days_on_file"`
}

// ShareholdingView is the payload returned by the query entry point
type ShareholdingView struct {
	StockCode int         `json:"stock_code"`
	StockName string      `json:"stock_name,omitempty"`
	Start     string      `json:"start"`
	End       string      `json:"end"`
	Available bool        `json:"available"`
	Message   string      `json:"message,omitempty"`
	Coverage  Coverage    `json:"coverage"`
	Trend     *TrendView  `json:"trend,omitempty"`
	Finder    *FinderView `json:"finder,omitempty"`
}
