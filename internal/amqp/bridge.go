package amqp

import (
	"context"

	"ssmartr/internal/log"
	"ssmartr/internal/notify"
)

// ChangePublisher is the sending side of the broker.
type ChangePublisher interface {
	PublishChange(ctx context.Context, msg *CategorizationChanged) error
}

// Bridge forwards local notifier events to the broker. Publish failures are
// logged and dropped: the local notifier already did its job.
type Bridge struct {
	publisher ChangePublisher
	notifier  *notify.Notifier
	logger    *log.Logger
}

func NewBridge(publisher ChangePublisher, notifier *notify.Notifier, logger *log.Logger) *Bridge {
	if logger == nil {
		logger = log.Discard()
	}
	return &Bridge{
		publisher: publisher,
		notifier:  notifier,
		logger:    logger.WithComponent(log.ComponentAMQP),
	}
}

// Run forwards events until ctx is done or the notifier closes.
func (b *Bridge) Run(ctx context.Context) error {
	sub := b.notifier.Subscribe()
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-sub.C():
			if !ok {
				return nil
			}
			// Events from the broker are not sent back to it.
			if ev.Reason == notify.ReasonRemote {
				continue
			}
			if err := b.publisher.PublishChange(ctx, NewCategorizationChanged(ev)); err != nil {
				b.logger.LogError(ctx, "Failed to forward change to broker", err, log.OpPublish,
					log.NewFields().WithVersion(ev.Version))
			}
		}
	}
}
