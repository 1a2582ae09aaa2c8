//go:build !windows

package llamacpp

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/faqbot/internal/domain/gateway"
)

func TestLoadFailsWhenServerExits(t *testing.T) {
	binary, err := exec.LookPath("false")
	if err != nil {
		t.Skip("false not available")
	}
	loader := NewLoader(LoaderConfig{
		ServerBinary: binary,
		BaseURL:      "http://127.0.0.1:1",
		PollInterval: 5 * time.Millisecond,
	}, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = loader.Load(ctx, gateway.LoadConfig{ModelPath: writeModel(t)})
	require.Error(t, err)
	require.Contains(t, err.Error(), "exited before ready")
}

func TestStopKillsSpawnedServer(t *testing.T) {
	binary, err := exec.LookPath("sleep")
	if err != nil {
		t.Skip("sleep not available")
	}
	proc, err := startServer(binary, []string{"30"})
	require.NoError(t, err)
	require.NotZero(t, proc.pid())

	require.NoError(t, proc.stop())
	select {
	case <-proc.done:
	default:
		t.Fatal("process still running")
	}
	require.NoError(t, proc.stop())
}
