package cli

import (
	"context"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/gantry-dev/gantry/internal/build"
	"github.com/gantry-dev/gantry/internal/cache"
	"github.com/gantry-dev/gantry/internal/cluster"
	"github.com/gantry-dev/gantry/internal/engine"
	"github.com/gantry-dev/gantry/internal/gantryfile"
	"github.com/gantry-dev/gantry/internal/k8s"
)

func provideCacheStore(result gantryfile.Result) cache.Store {
	dir := cacheDir
	if dir == "" {
		dir = cache.DefaultDir(result.Root)
	}
	return cache.NewFileStore(dir)
}

func provideBinder(result gantryfile.Result) *engine.Binder {
	return engine.NewBinder(result.Clusters)
}

// provideClientFactory opens one client per kubeconfig context and reuses
// it, so a run touching many manifests on the same cluster pays for
// discovery once.
func provideClientFactory() engine.ClusterClientFactory {
	var mu sync.Mutex
	clients := make(map[cluster.Cluster]k8s.Client)

	return func(ctx context.Context, c cluster.Cluster) (k8s.Client, error) {
		mu.Lock()
		defer mu.Unlock()
		if client, ok := clients[c]; ok {
			return client, nil
		}
		client, err := k8s.ClientForContext(kubeconfigPath, c.Context, c.Namespace)
		if err != nil {
			return nil, err
		}
		clients[c] = client
		return client, nil
	}
}

func provideRunner(
	store cache.Store,
	builder build.ImageBuilder,
	binder *engine.Binder,
	clients engine.ClusterClientFactory,
	clock clockwork.Clock) *engine.Runner {
	return engine.NewRunner(store, builder, binder, clients, clock, buildParallelism)
}
