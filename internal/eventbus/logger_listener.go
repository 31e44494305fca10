package eventbus

import (
	"context"

	"github.com/annel0/sandworld/internal/logging"
)

// StartLoggingListener подписывается на все события и пишет их в лог на уровне DEBUG.
// Функция неблокирующая.
func StartLoggingListener(bus EventBus) (Subscription, error) {
	log := logging.GetComponentLogger("EventBus")
	sub, err := bus.Subscribe(context.Background(), Filter{}, func(ctx context.Context, ev *Envelope) {
		log.Debug("%s %s src=%s chunk=%s:%s tick=%s size=%dB", ev.ID, ev.EventType, ev.Source,
			ev.Metadata[MetaChunkX], ev.Metadata[MetaChunkY], ev.Metadata[MetaTick], len(ev.Payload))
	})
	if err != nil {
		return nil, err
	}
	log.Info("LoggingListener: подписка на все события активирована")
	return sub, nil
}
