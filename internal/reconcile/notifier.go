package reconcile

import (
	"context"

	"crypto-deposit-reconcile-go/internal/models"

	"go.uber.org/zap"
)

// Notifier receives exactly one notification per reconciliation cycle that
// credited a non-zero amount. Formatting and delivery of the user-facing
// message belong to the dispatcher behind this interface.
type Notifier interface {
	Notify(ctx context.Context, notification models.CreditNotification) error
}

// LogNotifier is the default dispatcher: it logs the credit so the daemon
// works standalone. A chat sender replaces it in deployment.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, notification models.CreditNotification) error {
	fields := []zap.Field{
		zap.String("user_id", notification.UserId),
		zap.String("fiat_total", notification.FiatTotal.String()),
	}
	for asset, amount := range notification.Amounts {
		fields = append(fields, zap.String("credited_"+asset, amount.String()))
	}
	zap.L().Info("Balance credited", fields...)
	return nil
}
