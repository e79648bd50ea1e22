package notify

import "context"

// PrizeNotification is the per-winner payload emitted after a successful
// distribution.
type PrizeNotification struct {
	WalletID     int     `json:"wallet_id"`
	TournamentID int     `json:"tournament_id"`
	Rank         int     `json:"rank"`
	Prize        float64 `json:"prize"`
	Message      string  `json:"message"`
}

// Sink delivers notifications best-effort. Delivery failures never affect
// distribution correctness; implementations log and move on.
type Sink interface {
	NotifyPrize(ctx context.Context, notification PrizeNotification)
}

// NopSink discards every notification.
type NopSink struct{}

func (NopSink) NotifyPrize(context.Context, PrizeNotification) {}
