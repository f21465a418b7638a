package swapengine

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/cpmm"
	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/ledger"
)

// Qualifier decides whether a pool can take the direct path
type Qualifier struct {
	ledger    ledger.Client
	programID solana.PublicKey
	logger    *logrus.Logger
}

func NewQualifier(client ledger.Client, programID solana.PublicKey, logger *logrus.Logger) *Qualifier {
	if programID.IsZero() {
		programID = cpmm.ProgramID
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Qualifier{ledger: client, programID: programID, logger: logger}
}

// CheckDirectSwapEligible reports whether pool is owned by the CP-Swap
// program. It never fails: a nil pool, a missing account, and a read error
// all count as not eligible, and read errors are only logged.
func (q *Qualifier) CheckDirectSwapEligible(ctx context.Context, pool *solana.PublicKey) bool {
	if pool == nil {
		return false
	}

	acct, err := q.ledger.GetAccount(ctx, *pool)
	if err != nil {
		q.logger.WithError(err).WithField("pool", pool.String()).Warn("eligibility check failed, using aggregator")
		return false
	}
	if acct == nil {
		return false
	}

	return acct.Owner.Equals(q.programID)
}
