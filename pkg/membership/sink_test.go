package membership

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSinkFunc(t *testing.T) {
	t.Parallel()

	var lines []string
	var s Sink = SinkFunc(func(ctx context.Context, line string) error {
		lines = append(lines, line)
		return nil
	})
	require.NoError(t, s.Send(context.Background(), "a"))
	require.NoError(t, s.Send(context.Background(), "a"))
	require.Equal(t, []string{"a", "a"}, lines)
}
