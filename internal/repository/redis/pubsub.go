package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kirinyoku/tix-ledger/internal/clock"
	"github.com/kirinyoku/tix-ledger/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RecordChange announces that the record at Address was written. EventID
// is set for events and tickets, Owner for tickets only.
type RecordChange struct {
	Kind    domain.Kind `json:"kind"`
	Address string      `json:"address"`
	EventID *uint32     `json:"event_id,omitempty"`
	Owner   *domain.Key `json:"owner,omitempty"`
	TsUnix  int64       `json:"ts_unix"`
}

func CatalogChanged(addr string) RecordChange {
	return RecordChange{Kind: domain.KindCatalog, Address: addr}
}

func EventChanged(addr string, eventID uint32) RecordChange {
	return RecordChange{Kind: domain.KindEvent, Address: addr, EventID: &eventID}
}

func TicketChanged(addr string, eventID uint32, owner domain.Key) RecordChange {
	return RecordChange{Kind: domain.KindTicket, Address: addr, EventID: &eventID, Owner: &owner}
}

type RecordsPubSub struct {
	rdb     *redis.Client
	channel string
	clock   clock.Clock
}

func NewRecordsPubSub(rdb *redis.Client, clk clock.Clock) *RecordsPubSub {
	return &RecordsPubSub{
		rdb:     rdb,
		channel: ChannelRecordsChanged(),
		clock:   clk,
	}
}

// PublishRecordChanged is a no-op on a nil receiver.
func (p *RecordsPubSub) PublishRecordChanged(ctx context.Context, change RecordChange) error {
	const op = "redisrepo.RecordsPubSub.PublishRecordChanged"

	if p == nil {
		return nil
	}

	change.TsUnix = clock.Unix(p.clock)

	b, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	if err := p.rdb.Publish(ctx, p.channel, b).Err(); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// Subscribe blocks, calling handler for every well-formed change, until
// ctx is cancelled or the subscription closes.
func (p *RecordsPubSub) Subscribe(ctx context.Context, handler func(ctx context.Context, change RecordChange)) error {
	sub := p.rdb.Subscribe(ctx, p.channel)
	defer sub.Close()

	// Wait for the subscription to be confirmed so no publish is missed.
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}

	ch := sub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var change RecordChange
			if err := json.Unmarshal([]byte(m.Payload), &change); err == nil && change.Address != "" {
				handler(ctx, change)
			}
		}
	}
}
