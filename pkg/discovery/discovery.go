// Package discovery registers the storefront in etcd so the edge proxy can
// find it. Registration rides a keep-alive lease; when the process dies the
// lease expires and the key disappears on its own.
package discovery

import (
	"context"
	"fmt"
	"time"

	"github.com/preluvia/storefront/pkg/config"
	clientv3 "go.etcd.io/etcd/client/v3"
)

const defaultLeaseTTL = 30 * time.Second

type ServiceDiscovery struct {
	client *clientv3.Client
	config *config.EtcdConfig
}

type ServiceInstance struct {
	Name string
	Host string
	Port int
}

func (si *ServiceInstance) key(prefix string) string {
	return fmt.Sprintf("%s%s/%s:%d", prefix, si.Name, si.Host, si.Port)
}

func NewServiceDiscovery(cfg *config.EtcdConfig) (*ServiceDiscovery, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: cfg.DialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to etcd: %w", err)
	}

	return &ServiceDiscovery{
		client: cli,
		config: cfg,
	}, nil
}

// Register writes the instance under the configured prefix, bound to a lease
// that is kept alive for the life of the process.
func (sd *ServiceDiscovery) Register(ctx context.Context, instance *ServiceInstance) error {
	ttl := sd.config.LeaseTTL
	if ttl <= 0 {
		ttl = defaultLeaseTTL
	}
	lease, err := sd.client.Grant(ctx, int64(ttl/time.Second))
	if err != nil {
		return fmt.Errorf("failed to create lease: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", instance.Host, instance.Port)
	if _, err := sd.client.Put(ctx, instance.key(sd.config.Prefix), addr, clientv3.WithLease(lease.ID)); err != nil {
		return fmt.Errorf("failed to register service: %w", err)
	}

	ch, err := sd.client.KeepAlive(ctx, lease.ID)
	if err != nil {
		return fmt.Errorf("failed to keep alive: %w", err)
	}
	go func() {
		// Drain keep-alive responses until the lease or context ends.
		for range ch {
		}
	}()

	return nil
}

func (sd *ServiceDiscovery) Deregister(ctx context.Context, instance *ServiceInstance) error {
	if _, err := sd.client.Delete(ctx, instance.key(sd.config.Prefix)); err != nil {
		return fmt.Errorf("failed to deregister service: %w", err)
	}
	return nil
}

func (sd *ServiceDiscovery) Close() error {
	return sd.client.Close()
}
