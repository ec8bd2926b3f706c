// Admin remediation actions: banning customer clusters surfaced by a fraud
// scan, and unlocking agent accounts after supervisor review.
package remediation

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/reguflow/aegis/engine"
	"github.com/reguflow/aegis/recordstore"
)

var customerBanCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "aegis_customer_ban_count",
	Help: "Number of customer accounts banned by admin action",
})

type Admin struct {
	Logger    *slog.Logger
	Engine    *engine.Engine
	Customers recordstore.CustomerStore
}

// banned customers are pinned to the maximum risk score
const bannedRiskScore = 100

// Bans every listed customer that exists: status BANNED, risk score forced to
// the maximum. Unknown IDs are skipped silently; re-banning is a no-op that
// still counts the record once. Returns the number of records written. There
// is no un-ban.
func (adm *Admin) BanCustomers(ctx context.Context, ids []string) (int, error) {
	count, err := adm.Customers.UpdateCustomers(ctx, ids, func(c *recordstore.Customer) error {
		c.Status = recordstore.CustomerBanned
		c.RiskScore = bannedRiskScore
		return nil
	})
	if err != nil {
		return count, err
	}
	customerBanCount.Add(float64(count))
	adm.Logger.Info("banned customer accounts", "requested", len(ids), "banned", count)
	return count, nil
}

// Delegates to the enforcement state machine. Returns
// recordstore.ErrNotFound for an unknown agent.
func (adm *Admin) UnlockAgent(ctx context.Context, agentID string) error {
	return adm.Engine.UnlockAgent(ctx, agentID)
}
