// Package payout transfers worker rewards to the worker's Stripe connected
// account.
package payout

import (
	"context"
	"errors"
	"fmt"

	"wastewatch/pkg/types"

	"github.com/stripe/stripe-go/v84"
)

var ErrNoDestination = errors.New("worker has no connected payout account")

type transferCreator interface {
	Create(ctx context.Context, params *stripe.TransferCreateParams) (*stripe.Transfer, error)
}

type Stripe struct {
	transfers transferCreator
}

func NewStripe(secretKey string) *Stripe {
	sc := stripe.NewClient(secretKey)
	return &Stripe{transfers: sc.V1Transfers}
}

// Transfer pays reward out to destination and returns the transfer id. The
// report id is used as the transfer group so a report's payout is traceable
// from the Stripe dashboard.
func (s *Stripe) Transfer(ctx context.Context, reward *types.WorkerReward, destination string) (string, error) {
	if destination == "" {
		return "", ErrNoDestination
	}
	if reward.AmountCents <= 0 {
		return "", fmt.Errorf("reward %s has no payable amount", reward.ID)
	}

	params := &stripe.TransferCreateParams{
		Amount:        stripe.Int64(reward.AmountCents),
		Currency:      stripe.String(reward.Currency),
		Destination:   stripe.String(destination),
		Description:   stripe.String(fmt.Sprintf("Reward for resolving report %s", reward.ReportID)),
		TransferGroup: stripe.String(reward.ReportID),
	}
	params.AddMetadata("worker_id", reward.WorkerID)
	params.AddMetadata("reward_id", reward.ID)

	transfer, err := s.transfers.Create(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: stripe transfer: %w", types.ErrUpstream, err)
	}

	return transfer.ID, nil
}
