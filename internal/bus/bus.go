package bus

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// Bus is the real-time event transport. Mutating services publish change
// notifications here; the unread aggregator and the websocket layer
// subscribe. Publishing is fire-and-forget: the mutation is already durable,
// so a publish failure is logged and the next event or poll tick catches the
// consumers up.
type Bus struct {
	nc  *nats.Conn
	log *slog.Logger

	mu     sync.Mutex
	resync []func()
}

func Connect(url string, log *slog.Logger) (*Bus, error) {
	b := &Bus{log: log}

	nc, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			// The transport gives no gap-filling guarantee, so a reconnect
			// means full recomputation of every subscribed scope.
			log.Info("bus reconnected, resyncing consumers")
			b.notifyReconnect()
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("bus disconnected", "err", err)
		}),
	)
	if err != nil {
		return nil, err
	}
	b.nc = nc
	return b, nil
}

func (b *Bus) Close() {
	b.nc.Drain()
}

// OnReconnect registers a resync callback invoked after the transport comes
// back. Consumers register once at startup.
func (b *Bus) OnReconnect(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resync = append(b.resync, fn)
}

func (b *Bus) notifyReconnect() {
	b.mu.Lock()
	fns := make([]func(), len(b.resync))
	copy(fns, b.resync)
	b.mu.Unlock()
	for _, fn := range fns {
		go fn()
	}
}

func (b *Bus) publish(subject string, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		b.log.Error("bus marshal failed", "subject", subject, "err", err)
		return
	}
	if err := b.nc.Publish(subject, data); err != nil {
		b.log.Error("bus publish failed", "subject", subject, "err", err)
	}
}

func (b *Bus) MessageInserted(channelID uuid.UUID) {
	b.publish(SubjectMessageInserted, MessageInsertedEvent{ChannelID: channelID})
}

func (b *Bus) MembershipUpdated(channelID uuid.UUID) {
	b.publish(SubjectMembershipUpdated, MembershipUpdatedEvent{ChannelID: channelID})
}

// RecipientUpdated is published by the notification subsystem when a
// recipient record is created or acknowledged. The messaging core only
// subscribes; the method exists so alert writers share the wire format.
func (b *Bus) RecipientUpdated(profileID uuid.UUID) {
	b.publish(SubjectRecipientUpdated, RecipientUpdatedEvent{ProfileID: profileID})
}

// SubscribeMessageInserted delivers the channel id of every insert event.
// An empty queue fans the event out to all instances.
func (b *Bus) SubscribeMessageInserted(queue string, fn func(channelID uuid.UUID)) (*nats.Subscription, error) {
	return b.subscribe(SubjectMessageInserted, queue, func(data []byte) {
		var evt MessageInsertedEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			b.log.Warn("bad message.inserted payload", "err", err)
			return
		}
		fn(evt.ChannelID)
	})
}

func (b *Bus) SubscribeMembershipUpdated(queue string, fn func(channelID uuid.UUID)) (*nats.Subscription, error) {
	return b.subscribe(SubjectMembershipUpdated, queue, func(data []byte) {
		var evt MembershipUpdatedEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			b.log.Warn("bad membership.updated payload", "err", err)
			return
		}
		fn(evt.ChannelID)
	})
}

func (b *Bus) SubscribeRecipientUpdated(queue string, fn func(profileID uuid.UUID)) (*nats.Subscription, error) {
	return b.subscribe(SubjectRecipientUpdated, queue, func(data []byte) {
		var evt RecipientUpdatedEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			b.log.Warn("bad recipient.updated payload", "err", err)
			return
		}
		fn(evt.ProfileID)
	})
}

func (b *Bus) subscribe(subject, queue string, fn func(data []byte)) (*nats.Subscription, error) {
	handler := func(msg *nats.Msg) { fn(msg.Data) }
	if queue != "" {
		return b.nc.QueueSubscribe(subject, queue, handler)
	}
	return b.nc.Subscribe(subject, handler)
}
