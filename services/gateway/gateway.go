// Package gatewaysvc is the simulated payment gateway. It resolves every
// charge synchronously with a deterministic rule so checkout flows can be
// demoed and tested without a real processor: a card number ending in 0000 is
// always declined, anything else is captured.
package gatewaysvc

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mutqin/backend/core"
	"github.com/mutqin/backend/core/session"
)

const declinedSuffix = "0000"

type simulatedGateway struct {
	latency time.Duration
	logger  core.Logger
}

var _ session.Gateway = (*simulatedGateway)(nil)

// NewSimulatedGateway returns a gateway that sleeps for latency before
// resolving, mimicking a processor round trip. Pass 0 in tests.
func NewSimulatedGateway(latency time.Duration, logger core.Logger) session.Gateway {
	if logger == nil {
		logger = core.NopLogger{}
	}
	return &simulatedGateway{latency: latency, logger: logger}
}

func (g *simulatedGateway) Charge(ctx context.Context, card session.CardDetails, amount float64) (string, error) {
	if g.latency > 0 {
		time.Sleep(g.latency)
	}

	if strings.HasSuffix(digits(card.Number), declinedSuffix) {
		g.logger.Debug("gateway: charge declined", card.Holder)
		return "", session.ErrCardDeclined
	}

	txID := "txn_" + uuid.New().String()
	g.logger.Debug("gateway: charge captured", txID)
	return txID, nil
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
