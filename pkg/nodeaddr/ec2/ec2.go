// Package ec2 provides node addresses from the EC2 instance metadata service.
package ec2

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/ec2metadata"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"golang.org/x/net/http2"

	"github.com/annakv/routerclient"
	"github.com/annakv/routerclient/internal/util"
)

const (
	// ProviderName is the name of the EC2 provider.
	ProviderName = "ec2"

	// metadata paths, relative to latest/meta-data/
	pathPublicIPv4 = "public-ipv4"
	pathLocalIPv4  = "local-ipv4"

	paramClientTimeout   = "client-timeout"
	paramMaxRetries      = "max-retries"
	paramRequirePublic   = "require-public"
	defaultClientTimeout = 9 * time.Second
	defaultMaxRetries    = 3
	defaultRequirePublic = false
)

// MetadataClient is the subset of *ec2metadata.EC2Metadata used by the provider.
type MetadataClient interface {
	GetMetadataWithContext(ctx aws.Context, p string) (string, error)
}

// Provider reads the instance's addresses from instance metadata.
type Provider struct {
	logger        logrus.FieldLogger
	metadata      MetadataClient
	requirePublic bool
}

// NewProvider returns a Provider reading from metadata.  Instances without a public address announce their private
// address as public, unless requirePublic is set.
func NewProvider(logger logrus.FieldLogger, metadata MetadataClient, requirePublic bool) *Provider {
	return &Provider{
		logger:        logger,
		metadata:      metadata,
		requirePublic: requirePublic,
	}
}

func (p *Provider) Name() string {
	return ProviderName
}

// NodeAddress returns the local-ipv4 and public-ipv4 of the instance.
func (p *Provider) NodeAddress(ctx context.Context) (routerclient.NodeAddress, error) {
	privateIP, err := p.metadata.GetMetadataWithContext(ctx, pathLocalIPv4)
	if err != nil {
		return routerclient.NodeAddress{}, fmt.Errorf("error getting %s: %w", pathLocalIPv4, err)
	}
	privateIP = strings.TrimSpace(privateIP)

	publicIP, err := p.metadata.GetMetadataWithContext(ctx, pathPublicIPv4)
	publicIP = strings.TrimSpace(publicIP)
	if err != nil || publicIP == "" {
		if p.requirePublic {
			if err == nil {
				err = errors.New("empty response")
			}
			return routerclient.NodeAddress{}, fmt.Errorf("error getting %s: %w", pathPublicIPv4, err)
		}
		p.logger.WithError(err).Debug("Instance has no public address, using the private one")
		publicIP = privateIP
	}

	p.logger.WithFields(logrus.Fields{
		"public_ip":  publicIP,
		"private_ip": privateIP,
	}).Debug("Discovered node address")

	return routerclient.NodeAddress{
		PublicIP:  publicIP,
		PrivateIP: privateIP,
	}, nil
}

// NewProviderFromViper returns a new ec2 provider.
func NewProviderFromViper(v *viper.Viper, logger logrus.FieldLogger) (routerclient.NodeAddressProvider, error) {
	e := util.GetSubViper(v, "ec2")
	e.SetDefault(paramClientTimeout, defaultClientTimeout)
	e.SetDefault(paramMaxRetries, defaultMaxRetries)
	e.SetDefault(paramRequirePublic, defaultRequirePublic)
	httpTimeout := e.GetDuration(paramClientTimeout)
	if httpTimeout <= 0 {
		return nil, errors.New(paramClientTimeout + " must be positive")
	}
	maxRetries := e.GetInt(paramMaxRetries)
	if maxRetries < 0 {
		return nil, errors.New(paramMaxRetries + " must not be negative")
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		TLSHandshakeTimeout: 3 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:    10,
		IdleConnTimeout: 1 * time.Minute,
	}
	if err := http2.ConfigureTransport(transport); err != nil {
		return nil, err
	}
	config := aws.NewConfig().
		WithHTTPClient(&http.Client{
			Transport: transport,
			Timeout:   httpTimeout,
		}).
		WithMaxRetries(maxRetries)
	metadataSession, err := session.NewSession(config)
	if err != nil {
		return nil, fmt.Errorf("error creating a new Metadata session: %v", err)
	}
	return NewProvider(logger, ec2metadata.New(metadataSession), e.GetBool(paramRequirePublic)), nil
}
