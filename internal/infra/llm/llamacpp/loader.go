package llamacpp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/yanqian/faqbot/internal/domain/gateway"
)

const defaultPollInterval = 500 * time.Millisecond

// LoaderConfig describes how the llama.cpp server is reached.
type LoaderConfig struct {
	// ServerBinary is the llama-server executable. When empty the loader
	// expects a server already listening at BaseURL.
	ServerBinary string
	BaseURL      string
	PollInterval time.Duration
}

// Loader brings a llama.cpp server up for a model artifact.
type Loader struct {
	cfg    LoaderConfig
	logger *slog.Logger
}

// NewLoader constructs a Loader.
func NewLoader(cfg LoaderConfig, logger *slog.Logger) *Loader {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{cfg: cfg, logger: logger.With("component", "llm.llamacpp")}
}

// Load implements gateway.Loader. It returns once /health reports ready or ctx
// expires; a server it spawned is killed on failure.
func (l *Loader) Load(ctx context.Context, cfg gateway.LoadConfig) (gateway.Model, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("model artifact: %w", err)
	}
	client := NewClient(l.cfg.BaseURL)

	var proc *serverProcess
	if l.cfg.ServerBinary != "" {
		args, err := l.serverArgs(cfg)
		if err != nil {
			return nil, err
		}
		proc, err = startServer(l.cfg.ServerBinary, args)
		if err != nil {
			return nil, err
		}
		l.logger.Info("llama server started", "pid", proc.pid(), "binary", l.cfg.ServerBinary, "model", cfg.ModelPath)
	}

	start := time.Now()
	if err := l.waitReady(ctx, client, proc); err != nil {
		if proc != nil {
			_ = proc.stop()
		}
		return nil, err
	}
	l.logger.Info("llama server ready", "model", cfg.ModelPath, "elapsed", time.Since(start).String())
	return &Model{client: client, proc: proc, logger: l.logger}, nil
}

func (l *Loader) serverArgs(cfg gateway.LoadConfig) ([]string, error) {
	u, err := url.Parse(l.cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse llama base url: %w", err)
	}
	host, port, err := net.SplitHostPort(u.Host)
	if err != nil {
		return nil, fmt.Errorf("llama base url needs host:port: %w", err)
	}
	return []string{
		"-m", cfg.ModelPath,
		"-c", strconv.Itoa(cfg.ContextSize),
		"-t", strconv.Itoa(cfg.Threads),
		"-ngl", strconv.Itoa(cfg.GPULayers),
		"-b", strconv.Itoa(cfg.BatchSize),
		"--host", host,
		"--port", port,
	}, nil
}

func (l *Loader) waitReady(ctx context.Context, client *Client, proc *serverProcess) error {
	ticker := time.NewTicker(l.cfg.PollInterval)
	defer ticker.Stop()

	var exited <-chan struct{}
	if proc != nil {
		exited = proc.done
	}
	var lastErr error
	for {
		checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		lastErr = client.Health(checkCtx)
		cancel()
		if lastErr == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("llama server not ready: %w", errors.Join(ctx.Err(), lastErr))
		case <-exited:
			return fmt.Errorf("llama server exited before ready: %w", proc.waitErr)
		case <-ticker.C:
		}
	}
}

// serverProcess tracks a spawned llama-server.
type serverProcess struct {
	cmd     *exec.Cmd
	done    chan struct{}
	waitErr error
}

func startServer(binary string, args []string) (*serverProcess, error) {
	cmd := exec.Command(binary, args...)
	cmd.Env = os.Environ()
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	setProcessGroup(cmd)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start llama server %s: %w", binary, err)
	}
	p := &serverProcess{cmd: cmd, done: make(chan struct{})}
	go func() {
		p.waitErr = cmd.Wait()
		close(p.done)
	}()
	return p, nil
}

func (p *serverProcess) pid() int {
	if p == nil || p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// stop terminates the server and waits for it to exit.
func (p *serverProcess) stop() error {
	select {
	case <-p.done:
		return nil
	default:
	}
	if err := killProcessGroup(p.cmd); err != nil {
		return err
	}
	select {
	case <-p.done:
	case <-time.After(10 * time.Second):
		return errors.New("llama server did not exit")
	}
	return nil
}

var _ gateway.Loader = (*Loader)(nil)
