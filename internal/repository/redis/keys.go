package redis

import (
	"fmt"

	"github.com/kirinyoku/tix-ledger/internal/domain"
)

const ns = "tixledger:v1"

func KeyCatalogView() string {
	return ns + ":catalog:view"
}

func KeyEventView(eventID uint32) string {
	return fmt.Sprintf("%s:event:%d:view", ns, eventID)
}

func KeyTicketView(eventID uint32, owner domain.Key) string {
	return fmt.Sprintf("%s:event:%d:ticket:%s:view", ns, eventID, owner)
}

func KeyIdempotency(digest string) string {
	return fmt.Sprintf("%s:idem:%s", ns, digest)
}

func KeyRateLimit(scope, id string) string {
	return fmt.Sprintf("%s:rl:%s:%s", ns, scope, id)
}

func ChannelRecordsChanged() string {
	return ns + ":records:changed"
}
