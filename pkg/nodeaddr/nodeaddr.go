// Package nodeaddr finds out which addresses the local storage node should announce to the routing tier.
package nodeaddr

import (
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/annakv/routerclient"
	"github.com/annakv/routerclient/internal/util"
	"github.com/annakv/routerclient/pkg/nodeaddr/ec2"
	"github.com/annakv/routerclient/pkg/nodeaddr/k8s"
	"github.com/annakv/routerclient/pkg/nodeaddr/static"
)

var (
	// All registered node address providers.
	providers = map[string]routerclient.NodeAddressProviderFactory{
		ec2.ProviderName:    ec2.NewProviderFromViper,
		k8s.ProviderName:    k8s.NewProviderFromViper,
		static.ProviderName: static.NewProviderFromViper,
	}

	ErrUnknownProvider = errors.New("unknown node address provider")
)

// Get creates an instance of the named provider, configured from the "nodeaddr" section of v.
func Get(logger logrus.FieldLogger, name string, v *viper.Viper) (routerclient.NodeAddressProvider, error) {
	f, found := providers[name]
	if !found {
		return nil, ErrUnknownProvider
	}
	return f(util.GetSubViper(v, "nodeaddr"), logger.WithField("node_address_provider", name))
}

// Names returns the names of the registered providers.
func Names() []string {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	return names
}
