package eventbus

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	nats "github.com/nats-io/nats.go"
)

// Заголовки NATS, в которых передаются поля Envelope
const (
	headerID      = "Event-Id"
	headerType    = "Event-Type"
	headerSource  = "Event-Source"
	headerVersion = "Event-Version"
	headerTime    = "Event-Time"
	headerMeta    = "Meta-"
)

// NATSBus реализует EventBus поверх core NATS. Полезная нагрузка идёт
// телом сообщения без перекодирования, поля конверта в заголовках.
// Обновления чанков публикуются в subject <prefix>.<x>.<y>.
type NATSBus struct {
	nc        *nats.Conn
	prefix    string
	published uint64
	consumed  uint64
	dropped   uint64
}

// NewNATSBus подключается к NATS. url: nats://127.0.0.1:4222.
func NewNATSBus(url, prefix string) (*NATSBus, error) {
	if prefix == "" {
		prefix = "sandworld.chunk"
	}
	nc, err := nats.Connect(url, nats.Name("sandworld"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &NATSBus{nc: nc, prefix: prefix}, nil
}

// Subject возвращает subject события. Для обновлений чанка координаты
// берутся из метаданных "x" и "y".
func Subject(prefix string, ev *Envelope) string {
	x, okX := ev.Metadata[MetaChunkX]
	y, okY := ev.Metadata[MetaChunkY]
	if ev.EventType == EventChunkUpdate && okX && okY {
		return prefix + "." + x + "." + y
	}
	return prefix + ".events." + ev.EventType
}

func (nb *NATSBus) Publish(ctx context.Context, ev *Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := nb.nc.PublishMsg(msgFromEnvelope(nb.prefix, ev)); err != nil {
		atomic.AddUint64(&nb.dropped, 1)
		return fmt.Errorf("nats publish: %w", err)
	}
	atomic.AddUint64(&nb.published, 1)
	return nil
}

// Subscribe подписывается на все subject'ы префикса и фильтрует по заголовкам.
func (nb *NATSBus) Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error) {
	sub, err := nb.nc.Subscribe(nb.prefix+".>", func(msg *nats.Msg) {
		ev := envelopeFromMsg(msg)
		if !matchFilter(ev, f) {
			return
		}
		h(ctx, ev)
		atomic.AddUint64(&nb.consumed, 1)
	})
	if err != nil {
		return nil, fmt.Errorf("nats subscribe: %w", err)
	}
	return &natsSub{sub}, nil
}

// msgFromEnvelope переносит поля конверта в заголовки сообщения
func msgFromEnvelope(prefix string, ev *Envelope) *nats.Msg {
	msg := nats.NewMsg(Subject(prefix, ev))
	msg.Data = ev.Payload
	msg.Header.Set(headerID, ev.ID)
	msg.Header.Set(headerType, ev.EventType)
	msg.Header.Set(headerSource, ev.Source)
	msg.Header.Set(headerVersion, strconv.Itoa(ev.Version))
	msg.Header.Set(headerTime, ev.Timestamp.Format(time.RFC3339Nano))
	for k, v := range ev.Metadata {
		msg.Header.Set(headerMeta+k, v)
	}
	return msg
}

func envelopeFromMsg(msg *nats.Msg) *Envelope {
	ev := &Envelope{
		ID:        msg.Header.Get(headerID),
		EventType: msg.Header.Get(headerType),
		Source:    msg.Header.Get(headerSource),
		Payload:   msg.Data,
		Metadata:  make(map[string]string),
	}
	ev.Version, _ = strconv.Atoi(msg.Header.Get(headerVersion))
	ev.Timestamp, _ = time.Parse(time.RFC3339Nano, msg.Header.Get(headerTime))
	for k, vs := range msg.Header {
		if strings.HasPrefix(k, headerMeta) && len(vs) > 0 {
			ev.Metadata[strings.TrimPrefix(k, headerMeta)] = vs[0]
		}
	}
	return ev
}

// natsSub обёртка вокруг *nats.Subscription чтобы удовлетворить наш интерфейс.
type natsSub struct {
	s *nats.Subscription
}

func (n *natsSub) Unsubscribe() {
	_ = n.s.Unsubscribe()
}

// Metrics возвращает текущие метрики.
func (nb *NATSBus) Metrics() Stats {
	return Stats{
		Published: atomic.LoadUint64(&nb.published),
		Consumed:  atomic.LoadUint64(&nb.consumed),
		Dropped:   atomic.LoadUint64(&nb.dropped),
	}
}

// Close дожидается отправки буфера клиента и закрывает соединение
func (nb *NATSBus) Close() error {
	return nb.nc.Drain()
}

var _ EventBus = (*NATSBus)(nil)
