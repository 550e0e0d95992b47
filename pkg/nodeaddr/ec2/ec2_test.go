package ec2

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annakv/routerclient"
	"github.com/annakv/routerclient/internal/fixtures"
)

type fakeMetadata map[string]string

func (f fakeMetadata) GetMetadataWithContext(ctx aws.Context, p string) (string, error) {
	v, ok := f[p]
	if !ok {
		return "", errors.New("EC2MetadataError: failed to get " + p)
	}
	return v, nil
}

func TestNodeAddress(t *testing.T) {
	t.Parallel()

	p := NewProvider(fixtures.NewTestLogger(t), fakeMetadata{
		pathLocalIPv4:  "172.31.0.10\n",
		pathPublicIPv4: "54.1.2.3",
	}, false)
	address, err := p.NodeAddress(context.Background())
	require.NoError(t, err)
	assert.Equal(t, routerclient.NodeAddress{PublicIP: "54.1.2.3", PrivateIP: "172.31.0.10"}, address)
	assert.Equal(t, ProviderName, p.Name())
}

func TestNodeAddressWithoutPublicIP(t *testing.T) {
	t.Parallel()

	metadata := fakeMetadata{pathLocalIPv4: "172.31.0.10"}

	p := NewProvider(fixtures.NewTestLogger(t), metadata, false)
	address, err := p.NodeAddress(context.Background())
	require.NoError(t, err)
	assert.Equal(t, routerclient.NodeAddress{PublicIP: "172.31.0.10", PrivateIP: "172.31.0.10"}, address)

	p = NewProvider(fixtures.NewTestLogger(t), metadata, true)
	_, err = p.NodeAddress(context.Background())
	require.Error(t, err)
}

func TestNodeAddressWithoutPrivateIP(t *testing.T) {
	t.Parallel()

	p := NewProvider(fixtures.NewTestLogger(t), fakeMetadata{}, false)
	_, err := p.NodeAddress(context.Background())
	require.Error(t, err)
}

func TestNewProviderFromViperValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		param string
		value interface{}
	}{
		{param: paramClientTimeout, value: 0 * time.Second},
		{param: paramClientTimeout, value: -1 * time.Second},
		{param: paramMaxRetries, value: -1},
	}
	for _, tc := range tests {
		v := viper.New()
		v.Set("ec2."+tc.param, tc.value)
		p, err := NewProviderFromViper(v, fixtures.NewTestLogger(t))
		require.Error(t, err, "%s=%v", tc.param, tc.value)
		require.Nil(t, p)
	}
}
