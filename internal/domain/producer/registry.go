// internal/domain/producer/registry.go
package producer

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/your-org/farmshop-backend/internal/config"
)

// Registry resolves a producer key to its dispatch client. Adding a
// producer means registering one more client, not branching core logic.
type Registry struct {
	clients map[Key]Client
}

// NewRegistry builds a registry from the configured partners.
func NewRegistry(cfg *config.Config, mailer Mailer, logger *logrus.Logger) *Registry {
	clients := make(map[Key]Client, len(cfg.Producers))
	for _, pc := range cfg.Producers {
		clients[Key(pc.Key)] = NewPartnerClient(pc, cfg.Dispatch.HTTPTimeout, mailer, logger)
	}
	return &Registry{clients: clients}
}

// Register adds or replaces a client for a producer key.
func (r *Registry) Register(key Key, client Client) {
	if r.clients == nil {
		r.clients = make(map[Key]Client)
	}
	r.clients[key] = client
}

// Resolve returns the client for a producer key.
func (r *Registry) Resolve(key Key) (Client, error) {
	client, ok := r.clients[key]
	if !ok {
		return nil, fmt.Errorf("no client registered for producer %q", key)
	}
	return client, nil
}

// Keys returns the registered producer keys in stable order.
func (r *Registry) Keys() []Key {
	keys := make([]Key, 0, len(r.clients))
	for key := range r.clients {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
