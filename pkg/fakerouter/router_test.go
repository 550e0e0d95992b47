package fakerouter

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annakv/routerclient"
	"github.com/annakv/routerclient/internal/fixtures"
	"github.com/annakv/routerclient/pkg/lookup"
	"github.com/annakv/routerclient/pkg/membership"
)

func TestApply(t *testing.T) {
	t.Parallel()

	r := NewRouter(fixtures.NewTestLogger(t), 1, prometheus.NewRegistry())
	memory := r.Ring(routerclient.TierMemory)

	require.NoError(t, r.Apply("join:MEMORY:10.0.0.1:192.168.0.1:0:7"))
	require.NoError(t, r.Apply("join:MEMORY:10.0.0.2:192.168.0.2:0:3\n"))
	assert.Equal(t, []string{"192.168.0.1/7", "192.168.0.2/3"}, memory.Members())

	require.NoError(t, r.Apply("replace:MEMORY:10.0.0.1:192.168.0.1:0:7"))
	assert.Equal(t, []string{"192.168.0.1/7", "192.168.0.2/3"}, memory.Members())

	require.NoError(t, r.Apply("depart:MEMORY:10.0.0.1:192.168.0.1:0:7"))
	assert.Equal(t, []string{"192.168.0.2/3"}, memory.Members())

	require.NoError(t, r.Apply("join:DISK:10.0.0.3:192.168.0.3:0:0"))
	assert.Equal(t, map[string][]string{
		"MEMORY": {"192.168.0.2/3"},
		"DISK":   {"192.168.0.3/0"},
	}, r.Nodes())

	assert.Equal(t, 3.0, testutil.ToFloat64(r.notifications.WithLabelValues(string(membership.Join))))
}

func TestApplyRejectsMalformedLines(t *testing.T) {
	t.Parallel()

	r := NewRouter(fixtures.NewTestLogger(t), 1, nil)
	for _, line := range []string{
		"",
		"join:MEMORY:10.0.0.1:192.168.0.1:0",
		"leave:MEMORY:10.0.0.1:192.168.0.1:0:7",
		"join:ROUTING:10.0.0.1:192.168.0.1:0:7",
		"join:MEMORY:10.0.0.1:192.168.0.1:1:7",
	} {
		require.Error(t, r.Apply(line), line)
		// Rejected lines are logged, never fatal.
		r.HandleLine(line)
	}
	assert.Zero(t, r.Ring(routerclient.TierMemory).Len())
	assert.Equal(t, 10.0, testutil.ToFloat64(r.rejected))
}

func TestAnswerNoServers(t *testing.T) {
	t.Parallel()

	r := NewRouter(fixtures.NewTestLogger(t), 1, nil)
	resp := r.Answer(&lookup.KeyAddressRequest{Keys: []string{"k"}, RequestID: "1"})
	assert.Equal(t, lookup.NoServers, resp.Error)
	assert.Equal(t, "1", resp.ResponseID)
	assert.Empty(t, resp.Addresses)
}

func TestAnswer(t *testing.T) {
	t.Parallel()

	r := NewRouter(fixtures.NewTestLogger(t), 1, nil)
	r.HandleLine("join:MEMORY:10.0.0.1:192.168.0.1:0:7")

	resp := r.Answer(&lookup.KeyAddressRequest{Keys: []string{"k", ""}, RequestID: "2"})
	require.Equal(t, lookup.NoError, resp.Error)
	assert.Equal(t, "2", resp.ResponseID)
	assert.Equal(t, []lookup.KeyAddress{
		{Key: "k", IPs: []string{"tcp://192.168.0.1:6207"}},
		{Key: "", IPs: []string{}},
	}, resp.Addresses)
}

func TestAnswerReplication(t *testing.T) {
	t.Parallel()

	r := NewRouter(fixtures.NewTestLogger(t), 2, nil)
	r.HandleLine("join:MEMORY:10.0.0.1:192.168.0.1:0:0")
	r.HandleLine("join:MEMORY:10.0.0.2:192.168.0.2:0:0")
	r.HandleLine("join:MEMORY:10.0.0.3:192.168.0.3:0:0")

	resp := r.Answer(&lookup.KeyAddressRequest{Keys: []string{"k"}, RequestID: "3"})
	require.Len(t, resp.Addresses, 1)
	assert.Len(t, resp.Addresses[0].IPs, 2)
	assert.NotEqual(t, resp.Addresses[0].IPs[0], resp.Addresses[0].IPs[1])
}

func TestStorageAddress(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "tcp://192.168.0.1:6200", storageAddress("192.168.0.1/0"))
	assert.Equal(t, "tcp://192.168.0.1:6203", storageAddress("192.168.0.1/3"))
	assert.Equal(t, "tcp://192.168.0.1:6200", storageAddress("192.168.0.1/abc"))
}
