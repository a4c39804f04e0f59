package entities

// Payout is the computed settlement line for one participant
type Payout struct {
	ParticipantID int64
	UserID        int64
	Amount        int64
	Result        OutcomeResult
	Gross         int64
	Fee           int64
	Net           int64 // points_awarded
}

// Delta is the balance change applied under the hold model. Stakes are held,
// not debited, at placement, so winners gain net-amount and losers lose amount.
func (p *Payout) Delta() int64 {
	switch p.Result {
	case OutcomeWin:
		return p.Net - p.Amount
	case OutcomeLoss:
		return -p.Amount
	default:
		return 0
	}
}

// SettlementPlan is the full set of payouts for an event
type SettlementPlan struct {
	CorrectAnswer string
	TotalPool     int64
	WinningPool   int64
	Payouts       []*Payout
	TotalFee      int64
	TotalPaid     int64
	Refunded      bool
}

// SettlementResult summarises a completed resolution
type SettlementResult struct {
	EventID         int64  `json:"event_id"`
	CorrectAnswer   string `json:"correct_answer"`
	Winners         int    `json:"winners"`
	Losers          int    `json:"losers"`
	TotalPool       int64  `json:"total_pool"`
	TotalPaid       int64  `json:"total_paid"`
	FeeCollected    int64  `json:"fee_collected"`
	Refunded        bool   `json:"refunded"`
	AlreadyResolved bool   `json:"already_resolved,omitempty"`
}

// CancelResult summarises a canceled event
type CancelResult struct {
	EventID      int64 `json:"event_id"`
	Participants int   `json:"participants"`
	Refunded     int64 `json:"refunded"`
}
