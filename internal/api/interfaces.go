package api

import (
	"context"

	"github.com/blockedby/chat-observer/internal/observer"
)

// LedgerService exposes the dedup ledger.
type LedgerService interface {
	Snapshot() map[string]string
	Reset(ctx context.Context) (int, error)
}

// ObserverService exposes pipeline state.
type ObserverService interface {
	Status() observer.Status
}

// DatabasePinger checks the ledger store connection.
type DatabasePinger interface {
	Ping(ctx context.Context) error
}

// BrokerStatus reports the NATS connection state. *nats.Client implements it.
type BrokerStatus interface {
	IsConnected() bool
}

// HubBroadcaster defines the interface for WebSocket broadcasting.
type HubBroadcaster interface {
	Broadcast(message any)
}
