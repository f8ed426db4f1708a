package service

import (
	"github.com/kirinyoku/tix-ledger/internal/repository"
	redisrepo "github.com/kirinyoku/tix-ledger/internal/repository/redis"
	"github.com/kirinyoku/tix-ledger/internal/service/ledger"
	"github.com/kirinyoku/tix-ledger/internal/service/query"
)

type Services struct {
	Ledger *ledger.Service
	Query  *query.Service
}

type Config struct {
	Ledger ledger.Options
	Query  query.Config
}

// NewServices wires the services over one record store. cache and pubsub
// may be nil when redis is disabled.
func NewServices(
	store repository.Store,
	cache *redisrepo.Cache,
	pubsub *redisrepo.RecordsPubSub,
	cfg Config,
) *Services {
	return &Services{
		Ledger: ledger.New(store, cache, pubsub, cfg.Ledger),
		Query:  query.New(store, cache, cfg.Query),
	}
}
