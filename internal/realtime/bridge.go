package realtime

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// bridgeChannel is the Redis Pub/Sub channel every server instance shares.
const bridgeChannel = "rooms:events"

// Bridge connects the local Hub to the other server instances through
// Redis Pub/Sub.  A published event is delivered to local subscribers
// immediately and relayed over Redis; each instance replays remote
// envelopes into its own hub, skipping the ones it originated.  Relay is
// best-effort like the rest of the channel: a Pub/Sub hiccup loses the
// remote copy, never the local one.
type Bridge struct {
	hub      *Hub
	rdb      *redis.Client
	instance string
}

// NewBridge wraps hub with cross-instance relaying over the given Redis
// client.  Pass a nil client to run single-instance: the bridge then
// degrades to plain local delivery.
func NewBridge(hub *Hub, rdb *redis.Client) *Bridge {
	return &Bridge{hub: hub, rdb: rdb, instance: uuid.NewString()}
}

// Publish encodes the payload once, hands it to local subscribers and
// relays it to the other instances.  Relay failures are logged, not
// returned: room delivery carries no guarantee a caller could act on.
func (b *Bridge) Publish(room, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("realtime: marshal %s event failed: %v", event, err)
		return
	}
	env := Envelope{Room: room, Event: event, Data: data, Origin: b.instance}
	b.hub.deliver(env)
	if b.rdb == nil {
		return
	}
	raw, err := json.Marshal(env)
	if err != nil {
		log.Printf("realtime: marshal envelope failed: %v", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := b.rdb.Publish(ctx, bridgeChannel, raw).Err(); err != nil {
		log.Printf("realtime: relay %s to %s failed: %v", event, room, err)
	}
}

// Run subscribes to the bridge channel and replays remote envelopes into
// the local hub until ctx is cancelled.  go-redis resubscribes on
// connection loss by itself; events emitted during the gap are simply
// missed, consistent with at-most-once delivery.
func (b *Bridge) Run(ctx context.Context) {
	if b.rdb == nil {
		return
	}
	sub := b.rdb.Subscribe(ctx, bridgeChannel)
	defer sub.Close()
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				log.Printf("realtime: bad bridge envelope: %v", err)
				continue
			}
			if env.Origin == b.instance {
				continue // already delivered locally at publish time
			}
			b.hub.deliver(env)
		}
	}
}
