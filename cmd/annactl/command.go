package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/viper"

	"github.com/annakv/routerclient"
	"github.com/annakv/routerclient/pkg/membership"
)

const (
	outputText = "text"
	outputJSON = "json"
)

var errUsage = errors.New("expected lookup <key>..., join, depart, or replace")

// routerClient is the part of *router.Client the commands use.
type routerClient interface {
	Resolve(ctx context.Context, key string, useCache bool) ([]string, error)
	Notify(ctx context.Context, kind membership.EventKind, publicIP, privateIP, virtualID string) error
}

type command struct {
	output string

	// lookup
	keys     []string
	useCache bool

	// join, depart, replace
	notify    bool
	kind      membership.EventKind
	publicIP  string
	privateIP string
	virtualID string
}

type lookupResult struct {
	Key       string   `json:"key"`
	Addresses []string `json:"addresses"`
}

type notifyResult struct {
	Event     string `json:"event"`
	PublicIP  string `json:"public_ip"`
	PrivateIP string `json:"private_ip"`
	VirtualID string `json:"virtual_id"`
}

func parseCommand(v *viper.Viper, args []string) (*command, error) {
	if len(args) == 0 {
		return nil, errUsage
	}
	cmd := &command{
		output: v.GetString(ParamOutput),
	}
	switch cmd.output {
	case "":
		cmd.output = outputText
	case outputText, outputJSON:
	default:
		return nil, fmt.Errorf("%s must be one of %s or %s", ParamOutput, outputText, outputJSON)
	}

	switch kind := membership.EventKind(args[0]); {
	case args[0] == "lookup":
		if len(args) < 2 {
			return nil, errUsage
		}
		cmd.keys = args[1:]
		cmd.useCache = v.GetBool(ParamCache)
	case kind.Valid():
		if len(args) != 1 {
			return nil, errUsage
		}
		cmd.notify = true
		cmd.kind = kind
		cmd.publicIP = v.GetString(ParamPublicIP)
		cmd.privateIP = v.GetString(ParamPrivateIP)
		cmd.virtualID = v.GetString(ParamVirtualID)
		if cmd.privateIP == "" {
			cmd.privateIP = cmd.publicIP
		}
	default:
		return nil, errUsage
	}
	return cmd, nil
}

// needsNodeAddress reports whether the addresses of a notification have to come from a node address provider.
func (c *command) needsNodeAddress() bool {
	return c.notify && c.publicIP == ""
}

// fillNodeAddress takes the public IP from provider.  An explicitly configured private IP is kept.
func (c *command) fillNodeAddress(ctx context.Context, provider routerclient.NodeAddressProvider) error {
	address, err := provider.NodeAddress(ctx)
	if err != nil {
		return err
	}
	c.publicIP = address.PublicIP
	if c.privateIP == "" {
		c.privateIP = address.PrivateIP
	}
	return nil
}

func (c *command) execute(ctx context.Context, client routerClient, out io.Writer) error {
	if c.notify {
		return c.executeNotify(ctx, client, out)
	}
	return c.executeLookup(ctx, client, out)
}

func (c *command) executeLookup(ctx context.Context, client routerClient, out io.Writer) error {
	results := make([]lookupResult, 0, len(c.keys))
	for _, key := range c.keys {
		addresses, err := client.Resolve(ctx, key, c.useCache)
		if err != nil {
			return fmt.Errorf("lookup %q: %w", key, err)
		}
		results = append(results, lookupResult{Key: key, Addresses: addresses})
	}

	if c.output == outputJSON {
		return jsoniter.NewEncoder(out).Encode(results)
	}
	for _, r := range results {
		addresses := "<unknown>"
		if r.Addresses != nil {
			addresses = strings.Join(r.Addresses, ",")
		}
		if _, err := fmt.Fprintf(out, "%s\t%s\n", r.Key, addresses); err != nil {
			return err
		}
	}
	return nil
}

func (c *command) executeNotify(ctx context.Context, client routerClient, out io.Writer) error {
	if err := client.Notify(ctx, c.kind, c.publicIP, c.privateIP, c.virtualID); err != nil {
		return err
	}
	result := notifyResult{
		Event:     string(c.kind),
		PublicIP:  c.publicIP,
		PrivateIP: c.privateIP,
		VirtualID: c.virtualID,
	}
	if c.output == outputJSON {
		return jsoniter.NewEncoder(out).Encode(result)
	}
	_, err := fmt.Fprintf(out, "sent %s for %s/%s\n", result.Event, result.PrivateIP, result.VirtualID)
	return err
}
