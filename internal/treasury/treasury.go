package treasury

import "context"

// Treasury is the value-transfer capability of the host substrate. The engine
// only decides whether and how much to move; custody itself lives outside.
// Both calls either fully succeed or fully fail with no partial transfer.
type Treasury interface {
	// EscrowIn acknowledges custody of funds that the substrate already moved
	// into escrow before the contribute command was admitted.
	EscrowIn(ctx context.Context, campaignID int64, amount int64) error

	// PayOut instructs the substrate to move amount from escrow to address.
	PayOut(ctx context.Context, address string, amount int64) error
}
