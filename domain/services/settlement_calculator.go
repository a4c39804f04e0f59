package services

import (
	"fmt"
	"sort"

	"predictions/domain/entities"

	"github.com/shopspring/decimal"
)

// SettlementCalculator contains the pure payout arithmetic for event settlement
type SettlementCalculator struct{}

// NewSettlementCalculator creates a new SettlementCalculator
func NewSettlementCalculator() *SettlementCalculator {
	return &SettlementCalculator{}
}

// ResolveAnswer determines the winning option value. An explicit answer must
// match an option. Without one, the answer is derived by comparing finalPrice
// with the event's reference price.
func (c *SettlementCalculator) ResolveAnswer(event *entities.Event, correctAnswer string, finalPrice *decimal.Decimal) (string, error) {
	if correctAnswer != "" {
		if !event.HasOption(correctAnswer) {
			return "", fmt.Errorf("%w: %q is not an option of event %d", entities.ErrInvalidResolutionInput, correctAnswer, event.ID)
		}
		return correctAnswer, nil
	}

	if finalPrice == nil {
		return "", fmt.Errorf("%w: correct answer or final price required", entities.ErrInvalidResolutionInput)
	}
	if event.ReferencePrice == nil {
		return "", fmt.Errorf("%w: event %d has no reference price", entities.ErrInvalidResolutionInput, event.ID)
	}

	var derived string
	switch finalPrice.Cmp(*event.ReferencePrice) {
	case 1:
		derived = entities.AnswerUp
	case -1:
		derived = entities.AnswerDown
	default:
		return "", fmt.Errorf("%w: final price equals reference price %s", entities.ErrInvalidResolutionInput, event.ReferencePrice.String())
	}

	if !event.HasOption(derived) {
		return "", fmt.Errorf("%w: derived answer %q is not an option of event %d", entities.ErrInvalidResolutionInput, derived, event.ID)
	}
	return derived, nil
}

// ValidateParticipants rejects stakes that cannot be settled
func (c *SettlementCalculator) ValidateParticipants(participants []*entities.Participant) error {
	for _, p := range participants {
		if p.Amount <= 0 {
			return fmt.Errorf("%w: participant %d has non-positive amount %d", entities.ErrDataIntegrity, p.ID, p.Amount)
		}
		if p.Settled {
			return fmt.Errorf("%w: participant %d is already settled", entities.ErrDataIntegrity, p.ID)
		}
	}
	return nil
}

// Calculate computes the payout for every participant.
//
// Winners split the whole pool pro rata: gross = floor(amount * total / winningPool),
// fee = floor(gross * feeRate), net = gross - fee. The rounding remainder of the
// gross split is booked as fee on the lowest-ID winner so that awarded points
// plus fees always equal the total pool. With no winners every stake is refunded.
func (c *SettlementCalculator) Calculate(participants []*entities.Participant, correctAnswer string, feeRate decimal.Decimal) (*entities.SettlementPlan, error) {
	if err := c.ValidateParticipants(participants); err != nil {
		return nil, err
	}
	if feeRate.IsNegative() || feeRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("%w: fee rate %s out of range", entities.ErrDataIntegrity, feeRate.String())
	}

	ordered := make([]*entities.Participant, len(participants))
	copy(ordered, participants)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	plan := &entities.SettlementPlan{
		CorrectAnswer: correctAnswer,
		Payouts:       make([]*entities.Payout, 0, len(ordered)),
	}

	for _, p := range ordered {
		plan.TotalPool += p.Amount
		if p.IsWinner(correctAnswer) {
			plan.WinningPool += p.Amount
		}
	}

	if plan.WinningPool == 0 {
		plan.Refunded = true
		for _, p := range ordered {
			plan.Payouts = append(plan.Payouts, &entities.Payout{
				ParticipantID: p.ID,
				UserID:        p.UserID,
				Amount:        p.Amount,
				Result:        entities.OutcomeVoid,
				Gross:         p.Amount,
				Net:           p.Amount,
			})
			plan.TotalPaid += p.Amount
		}
		return plan, nil
	}

	total := decimal.NewFromInt(plan.TotalPool)
	winning := decimal.NewFromInt(plan.WinningPool)

	var grossSum int64
	var firstWinner *entities.Payout
	for _, p := range ordered {
		if !p.IsWinner(correctAnswer) {
			plan.Payouts = append(plan.Payouts, &entities.Payout{
				ParticipantID: p.ID,
				UserID:        p.UserID,
				Amount:        p.Amount,
				Result:        entities.OutcomeLoss,
			})
			continue
		}

		quotient, _ := decimal.NewFromInt(p.Amount).Mul(total).QuoRem(winning, 0)
		gross := quotient.IntPart()
		fee := decimal.NewFromInt(gross).Mul(feeRate).Floor().IntPart()

		payout := &entities.Payout{
			ParticipantID: p.ID,
			UserID:        p.UserID,
			Amount:        p.Amount,
			Result:        entities.OutcomeWin,
			Gross:         gross,
			Fee:           fee,
			Net:           gross - fee,
		}
		if firstWinner == nil {
			firstWinner = payout
		}

		grossSum += gross
		plan.TotalPaid += payout.Net
		plan.TotalFee += fee
		plan.Payouts = append(plan.Payouts, payout)
	}

	if dust := plan.TotalPool - grossSum; dust > 0 {
		firstWinner.Fee += dust
		plan.TotalFee += dust
	}

	return plan, nil
}
