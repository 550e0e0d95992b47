package nodeaddr

import (
	"context"
	"sort"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annakv/routerclient"
	"github.com/annakv/routerclient/internal/fixtures"
)

func TestGetUnknown(t *testing.T) {
	t.Parallel()

	p, err := Get(fixtures.NewTestLogger(t), "gce", viper.New())
	require.Equal(t, ErrUnknownProvider, err)
	require.Nil(t, p)
}

func TestGetStatic(t *testing.T) {
	t.Parallel()

	v := viper.New()
	v.Set("nodeaddr.public-ip", "10.0.0.1")
	v.Set("nodeaddr.private-ip", "192.168.0.1")

	p, err := Get(fixtures.NewTestLogger(t), "static", v)
	require.NoError(t, err)
	address, err := p.NodeAddress(context.Background())
	require.NoError(t, err)
	assert.Equal(t, routerclient.NodeAddress{PublicIP: "10.0.0.1", PrivateIP: "192.168.0.1"}, address)
}

func TestNames(t *testing.T) {
	t.Parallel()

	names := Names()
	sort.Strings(names)
	assert.Equal(t, []string{"ec2", "k8s", "static"}, names)
}
