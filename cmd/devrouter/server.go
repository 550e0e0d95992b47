package main

import (
	"context"
	"time"

	"github.com/ash2k/stager/wait"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/annakv/routerclient"
	"github.com/annakv/routerclient/pkg/fakerouter"
)

// DevRouter is everything for running a routing tier stand-in on one host.
type DevRouter struct {
	Host         string
	Local        bool
	QueryPorts   []int
	NotifyPort   int
	AdminAddr    string
	ReusePort    bool
	Replication  int
	RedisAddr    string
	RedisChannel string
	Interval     time.Duration
	Verbose      bool
	JSON         bool
}

// newDevRouter will create a new DevRouter with default values.
func newDevRouter() *DevRouter {
	return &DevRouter{
		Host:         routerclient.DefaultELBAddr,
		Local:        routerclient.DefaultLocal,
		NotifyPort:   routerclient.DefaultNotifyPort,
		AdminAddr:    "127.0.0.1:8181",
		Replication:  fakerouter.DefaultReplication,
		RedisChannel: "anna.membership",
		Interval:     10 * time.Second,
	}
}

// AddFlags adds flags for a specific DevRouter to the specified FlagSet.
func (r *DevRouter) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&r.Host, "host", r.Host, "Address to listen on")
	fs.BoolVar(&r.Local, "local", r.Local, "Expose a single query port, as a local cluster does")
	fs.IntSliceVar(&r.QueryPorts, "query-ports", r.QueryPorts, "Query ports, overrides --local")
	fs.IntVar(&r.NotifyPort, "notify-port", r.NotifyPort, "Membership notification port")
	fs.StringVar(&r.AdminAddr, "admin-addr", r.AdminAddr, "Admin HTTP address, empty to disable")
	fs.BoolVar(&r.ReusePort, "reuse-port", r.ReusePort, "Listen with SO_REUSEPORT")
	fs.IntVar(&r.Replication, "replication", r.Replication, "Owners returned per key")
	fs.StringVar(&r.RedisAddr, "redis-addr", r.RedisAddr, "Redis address to receive membership notifications from, empty to disable")
	fs.StringVar(&r.RedisChannel, "redis-channel", r.RedisChannel, "Redis channel of membership notifications")
	fs.DurationVar(&r.Interval, "report-interval", r.Interval, "Interval between ring membership reports")
	fs.BoolVar(&r.Verbose, "verbose", r.Verbose, "Verbose")
	fs.BoolVar(&r.JSON, "json", r.JSON, "Log in JSON format")
}

// Run runs the specified DevRouter until the context is done.
func (r *DevRouter) Run(ctx context.Context) error {
	logger := logrus.StandardLogger()
	registry := prometheus.NewRegistry()
	fr := fakerouter.NewRouter(logger, r.Replication, registry)

	queryPorts := r.QueryPorts
	if len(queryPorts) == 0 {
		queryPorts = routerclient.DefaultELBPorts(r.Local)
	}
	server := fakerouter.NewServer(logger, fr, registry, fakerouter.ServerConfig{
		Host:       r.Host,
		QueryPorts: queryPorts,
		NotifyPort: r.NotifyPort,
		AdminAddr:  r.AdminAddr,
		ReusePort:  r.ReusePort,
	})
	if err := server.Listen(); err != nil {
		return err
	}

	var redisClient *redis.Client
	if r.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr: r.RedisAddr,
			DB:   0,
		})
		defer redisClient.Close()
	}

	var g wait.Group
	defer g.Wait()
	g.StartWithContext(ctx, server.Run)
	if redisClient != nil {
		g.StartWithContext(ctx, fakerouter.NewSubscriber(logger, fr, redisClient, r.RedisChannel).Run)
	}

	t := time.NewTicker(r.Interval)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			logger.WithField("nodes", fr.Nodes()).Info("Ring membership")
		case <-ctx.Done():
			return nil
		}
	}
}
