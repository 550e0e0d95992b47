package routerclient

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// NodeAddressProviderFactory is a function that returns a NodeAddressProvider.
type NodeAddressProviderFactory func(v *viper.Viper, logger logrus.FieldLogger) (NodeAddressProvider, error)

// NodeAddress is the pair of addresses a storage node is reachable on.
type NodeAddress struct {
	PublicIP  string
	PrivateIP string
}

// NodeAddressProvider discovers the addresses of the storage node it runs on, for membership notifications.
type NodeAddressProvider interface {
	// Name returns the name of the provider.
	Name() string
	// NodeAddress returns the addresses of the local node.
	NodeAddress(ctx context.Context) (NodeAddress, error)
}
