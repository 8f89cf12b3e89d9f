// Package notify boots the notification subscriber.
package notify

import (
	"context"
	"fmt"

	"fleet-console/internal/common/config"
	"fleet-console/internal/common/logger"
	"fleet-console/internal/connections/rabbitmq"
	subscriber "fleet-console/internal/notify"
)

func Run(ctx context.Context, cfg config.App) error {
	lg := logger.New("notification-subscriber")

	mq, err := rabbitmq.Dial(cfg.Rabbit)
	if err != nil {
		return fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	defer mq.Close()
	if err := mq.DeclareAll(); err != nil {
		return fmt.Errorf("failed to declare rabbitmq topology: %w", err)
	}

	return subscriber.NewSubscriber(mq, lg).Run(ctx)
}
