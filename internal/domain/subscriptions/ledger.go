package subscriptions

import "context"

// Ledger remembers which provider event ids were already applied so a
// redelivery can be acknowledged without touching the store again.
type Ledger interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Mark(ctx context.Context, eventID string) error
}

// NopLedger never remembers anything; every delivery is applied again.
type NopLedger struct{}

func (NopLedger) Seen(context.Context, string) (bool, error) { return false, nil }
func (NopLedger) Mark(context.Context, string) error { return nil }
