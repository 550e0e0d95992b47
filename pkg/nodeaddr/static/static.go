// Package static provides node addresses from configuration.
package static

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/annakv/routerclient"
)

const (
	// ProviderName is the name of the static provider.
	ProviderName = "static"

	paramPublicIP  = "public-ip"
	paramPrivateIP = "private-ip"
)

// Provider returns fixed addresses.
type Provider struct {
	address routerclient.NodeAddress
}

// NewProvider returns a Provider which always reports address.
func NewProvider(address routerclient.NodeAddress) *Provider {
	return &Provider{address: address}
}

// NewProviderFromViper reads public-ip and private-ip from v.  When only one of them is set it is used for both.
func NewProviderFromViper(v *viper.Viper, logger logrus.FieldLogger) (routerclient.NodeAddressProvider, error) {
	publicIP := v.GetString(paramPublicIP)
	privateIP := v.GetString(paramPrivateIP)
	if publicIP == "" {
		publicIP = privateIP
	}
	if privateIP == "" {
		privateIP = publicIP
	}
	if publicIP == "" {
		return nil, errors.New(paramPublicIP + " or " + paramPrivateIP + " must be set")
	}
	logger.WithFields(logrus.Fields{
		paramPublicIP:  publicIP,
		paramPrivateIP: privateIP,
	}).Debug("configured static node address")
	return NewProvider(routerclient.NodeAddress{PublicIP: publicIP, PrivateIP: privateIP}), nil
}

func (p *Provider) Name() string {
	return ProviderName
}

func (p *Provider) NodeAddress(ctx context.Context) (routerclient.NodeAddress, error) {
	return p.address, nil
}
