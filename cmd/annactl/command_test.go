package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annakv/routerclient"
	"github.com/annakv/routerclient/pkg/membership"
)

type fakeClient struct {
	addresses map[string][]string
	err       error
	useCache  []bool
	notified  []string
}

func (f *fakeClient) Resolve(ctx context.Context, key string, useCache bool) ([]string, error) {
	f.useCache = append(f.useCache, useCache)
	if f.err != nil {
		return nil, f.err
	}
	return f.addresses[key], nil
}

func (f *fakeClient) Notify(ctx context.Context, kind membership.EventKind, publicIP, privateIP, virtualID string) error {
	if f.err != nil {
		return f.err
	}
	line, err := membership.Encode(membership.NewEvent(kind, publicIP, privateIP, virtualID))
	if err != nil {
		return err
	}
	f.notified = append(f.notified, line)
	return nil
}

func TestParseCommandUsage(t *testing.T) {
	t.Parallel()

	for _, args := range [][]string{
		nil,
		{"lookup"},
		{"leave"},
		{"join", "extra"},
	} {
		_, err := parseCommand(viper.New(), args)
		require.Equal(t, errUsage, err, "%v", args)
	}

	v := viper.New()
	v.Set(ParamOutput, "yaml")
	_, err := parseCommand(v, []string{"lookup", "k"})
	require.Error(t, err)
}

func TestLookupText(t *testing.T) {
	t.Parallel()

	v := viper.New()
	v.Set(ParamOutput, outputText)
	v.Set(ParamCache, true)
	cmd, err := parseCommand(v, []string{"lookup", "k1", "k2"})
	require.NoError(t, err)

	client := &fakeClient{addresses: map[string][]string{
		"k1": {"tcp://10.0.0.1:6200", "tcp://10.0.0.2:6200"},
	}}
	var out bytes.Buffer
	require.NoError(t, cmd.execute(context.Background(), client, &out))
	assert.Equal(t, "k1\ttcp://10.0.0.1:6200,tcp://10.0.0.2:6200\nk2\t<unknown>\n", out.String())
	assert.Equal(t, []bool{true, true}, client.useCache)
}

func TestLookupJSON(t *testing.T) {
	t.Parallel()

	v := viper.New()
	v.Set(ParamOutput, outputJSON)
	cmd, err := parseCommand(v, []string{"lookup", "k1"})
	require.NoError(t, err)

	client := &fakeClient{addresses: map[string][]string{"k1": {"tcp://10.0.0.1:6200"}}}
	var out bytes.Buffer
	require.NoError(t, cmd.execute(context.Background(), client, &out))

	var results []lookupResult
	require.NoError(t, jsoniter.Unmarshal(out.Bytes(), &results))
	assert.Equal(t, []lookupResult{{Key: "k1", Addresses: []string{"tcp://10.0.0.1:6200"}}}, results)
	assert.Equal(t, []bool{false}, client.useCache)
}

func TestLookupError(t *testing.T) {
	t.Parallel()

	v := viper.New()
	v.Set(ParamOutput, outputText)
	cmd, err := parseCommand(v, []string{"lookup", "k1"})
	require.NoError(t, err)

	lookupErr := errors.New("connection refused")
	err = cmd.execute(context.Background(), &fakeClient{err: lookupErr}, &bytes.Buffer{})
	require.True(t, errors.Is(err, lookupErr))
}

func TestNotify(t *testing.T) {
	t.Parallel()

	v := viper.New()
	v.Set(ParamOutput, outputText)
	v.Set(ParamPublicIP, "10.0.0.1")
	v.Set(ParamPrivateIP, "192.168.0.1")
	v.Set(ParamVirtualID, "7")

	for _, kind := range []string{"join", "depart", "replace"} {
		cmd, err := parseCommand(v, []string{kind})
		require.NoError(t, err)
		client := &fakeClient{}
		var out bytes.Buffer
		require.NoError(t, cmd.execute(context.Background(), client, &out))
		assert.Equal(t, []string{kind + ":MEMORY:10.0.0.1:192.168.0.1:0:7"}, client.notified)
		assert.Equal(t, "sent "+kind+" for 192.168.0.1/7\n", out.String())
	}
}

func TestNotifyPrivateDefaultsToPublic(t *testing.T) {
	t.Parallel()

	v := viper.New()
	v.Set(ParamOutput, outputJSON)
	v.Set(ParamPublicIP, "10.0.0.1")
	v.Set(ParamVirtualID, "7")
	cmd, err := parseCommand(v, []string{"join"})
	require.NoError(t, err)

	client := &fakeClient{}
	var out bytes.Buffer
	require.NoError(t, cmd.execute(context.Background(), client, &out))
	assert.Equal(t, []string{"join:MEMORY:10.0.0.1:10.0.0.1:0:7"}, client.notified)

	var result notifyResult
	require.NoError(t, jsoniter.Unmarshal(out.Bytes(), &result))
	assert.Equal(t, notifyResult{Event: "join", PublicIP: "10.0.0.1", PrivateIP: "10.0.0.1", VirtualID: "7"}, result)
}

type fakeNodeAddressProvider struct {
	address routerclient.NodeAddress
}

func (p *fakeNodeAddressProvider) Name() string {
	return "fake"
}

func (p *fakeNodeAddressProvider) NodeAddress(ctx context.Context) (routerclient.NodeAddress, error) {
	return p.address, nil
}

func TestNotifyNodeAddressFromProvider(t *testing.T) {
	t.Parallel()

	provider := &fakeNodeAddressProvider{address: routerclient.NodeAddress{
		PublicIP:  "10.0.0.1",
		PrivateIP: "192.168.0.1",
	}}

	v := viper.New()
	v.Set(ParamVirtualID, "7")
	cmd, err := parseCommand(v, []string{"join"})
	require.NoError(t, err)
	require.True(t, cmd.needsNodeAddress())
	require.NoError(t, cmd.fillNodeAddress(context.Background(), provider))

	client := &fakeClient{}
	require.NoError(t, cmd.execute(context.Background(), client, &bytes.Buffer{}))
	assert.Equal(t, []string{"join:MEMORY:10.0.0.1:192.168.0.1:0:7"}, client.notified)
}

func TestNotifyExplicitPrivateIPKept(t *testing.T) {
	t.Parallel()

	provider := &fakeNodeAddressProvider{address: routerclient.NodeAddress{
		PublicIP:  "10.0.0.1",
		PrivateIP: "192.168.0.1",
	}}

	v := viper.New()
	v.Set(ParamPrivateIP, "192.168.0.9")
	v.Set(ParamVirtualID, "7")
	cmd, err := parseCommand(v, []string{"depart"})
	require.NoError(t, err)
	require.True(t, cmd.needsNodeAddress())
	require.NoError(t, cmd.fillNodeAddress(context.Background(), provider))

	client := &fakeClient{}
	require.NoError(t, cmd.execute(context.Background(), client, &bytes.Buffer{}))
	assert.Equal(t, []string{"depart:MEMORY:10.0.0.1:192.168.0.9:0:7"}, client.notified)
}

func TestSetupConfiguration(t *testing.T) {
	t.Parallel()

	v, args, version, err := setupConfiguration([]string{"--elb-addr=10.9.0.1", "--cache", "lookup", "k"})
	require.NoError(t, err)
	assert.False(t, version)
	assert.Equal(t, []string{"lookup", "k"}, args)
	assert.Equal(t, "10.9.0.1", v.GetString("elb-addr"))
	assert.True(t, v.GetBool(ParamCache))
}
