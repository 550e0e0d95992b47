package main

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"os"
	"os/signal"
	"sort"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/ash2k/stager/wait"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/annakv/routerclient"
	"github.com/annakv/routerclient/pkg/addresscache"
	"github.com/annakv/routerclient/pkg/router"
	"github.com/annakv/routerclient/pkg/transport"
)

func main() {
	opts := parseArgs(os.Args[1:])

	logger := logrus.StandardLogger()
	cfg := router.DefaultConfig(!opts.Remote)
	cfg.ELBAddr = opts.ELBAddr
	cfg.IP = opts.IP
	if len(opts.ELBPorts) > 0 {
		cfg.ELBPorts = opts.ELBPorts
	}
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("%v", err)
	}

	registry := prometheus.NewRegistry()
	metrics := router.NewMetrics(registry)
	pool := transport.NewSocketPool(logger, &net.Dialer{Timeout: 5 * time.Second}, transport.Options{IOTimeout: 10 * time.Second})
	client := router.NewClient(logger, cfg, pool, addresscache.New(routerclient.DefaultCacheTTL), router.WithMetrics(metrics))
	defer client.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	limiter := rate.NewLimiter(rate.Limit(opts.Rate), int(opts.Workers))
	var failures uint64
	generators := make([]*keyGenerator, 0, opts.Workers)
	var wg wait.Group
	for i := uint(0); i < opts.Workers; i++ {
		budget := opts.Lookups / uint64(opts.Workers)
		if i == 0 {
			budget += opts.Lookups % uint64(opts.Workers)
		}
		generator := newKeyGenerator(budget, opts.KeyPrefix, opts.KeyCardinality, rand.Int63())
		generators = append(generators, generator)
		wg.StartWithContext(ctx, func(ctx context.Context) {
			lookupWorker(ctx, client, limiter, generator, opts.UseCache, &failures)
		})
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	statusTicker := time.NewTicker(1 * time.Second)
	defer statusTicker.Stop()
	for running := true; running; {
		select {
		case <-done:
			running = false
		case <-statusTicker.C:
			left := uint64(0)
			for _, g := range generators {
				left += g.left()
			}
			fmt.Printf("%d lookups left, %d failed\n", left, atomic.LoadUint64(&failures))
		}
	}

	report(registry)
}

func lookupWorker(ctx context.Context, client *router.Client, limiter *rate.Limiter, generator *keyGenerator, useCache bool, failures *uint64) {
	for {
		key, ok := generator.next()
		if !ok {
			return
		}
		if err := limiter.Wait(ctx); err != nil {
			return
		}
		if useCache {
			if addresses, _ := client.Resolve(ctx, key, true); addresses != nil {
				continue
			}
		}
		if _, err := client.Resolve(ctx, key, false); err != nil {
			if atomic.AddUint64(failures, 1) == 1 {
				fmt.Printf("first failure: %v\n", err)
			}
		}
	}
}

// report prints how network lookups were spread across the routing-query ports.
func report(registry *prometheus.Registry) {
	families, err := registry.Gather()
	if err != nil {
		fmt.Printf("error gathering metrics: %v\n", err)
		return
	}
	perPort := map[string]float64{}
	total := 0.0
	for _, family := range families {
		if family.GetName() != "anna_router_client_network_lookups_total" {
			continue
		}
		for _, m := range family.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "port" {
					perPort[label.GetValue()] += m.GetCounter().GetValue()
					total += m.GetCounter().GetValue()
				}
			}
		}
	}

	ports := make([]string, 0, len(perPort))
	for port := range perPort {
		ports = append(ports, port)
	}
	sort.Strings(ports)
	for _, port := range ports {
		fmt.Printf("port %s: %.0f lookups (%.1f%%)\n", port, perPort[port], 100*perPort[port]/total)
	}
	fmt.Printf("%.0f network lookups\n", total)
}
