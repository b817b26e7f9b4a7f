package backend

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"sync"
	"time"
)

// ServerManager manages server processes.
type ServerManager struct {
	servers map[string]*ServerProcess
	mu      sync.RWMutex
}

// ServerProcess represents a server running process.
type ServerProcess struct {
	cmd     *exec.Cmd
	cancel  context.CancelFunc
	baseURL string
}

// ServerConfig defines how to start and check a backend server.
type ServerConfig struct {
	Env          map[string]string // Optional environment variables
	Name         string            // Unique identifier, e.g. "llama.cpp", "whisper.cpp"
	BinPath      string            // Path to the binary
	HealthPath   string            // Health endpoint path (e.g. "/health" or "/")
	Args         []string          // Arguments passed to the binary
	Port         int               // Port to bind the server
	ReadyTimeout time.Duration     // How long to wait for readiness
}

// NewServerManager initializes a ServerManager.
func NewServerManager() *ServerManager {
	return &ServerManager{
		servers: map[string]*ServerProcess{},
	}
}

// BaseURL returns the local URL a server on port listens on.
func BaseURL(port int) string {
	return fmt.Sprintf("http://127.0.0.1:%d", port)
}

// StartServer starts a backend server based on a generic configuration.
func (sm *ServerManager) StartServer(ctx context.Context, cfg ServerConfig) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	key := fmt.Sprintf("%s-%d", cfg.Name, cfg.Port)
	if _, exists := sm.servers[key]; exists {
		return nil // Already running
	}

	binPath, err := exec.LookPath(cfg.BinPath)
	if err != nil {
		return fmt.Errorf("failed to start %s server: %w", cfg.Name, err)
	}

	procCtx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(procCtx, binPath, cfg.Args...)

	// Apply environment variables if provided
	if len(cfg.Env) > 0 {
		env := os.Environ()
		for k, v := range cfg.Env {
			env = append(env, fmt.Sprintf("%s=%s", k, v))
		}
		cmd.Env = env
	}

	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("failed to start %s server: %w", cfg.Name, err)
	}

	baseURL := BaseURL(cfg.Port)

	healthPath := cfg.HealthPath
	if healthPath == "" {
		healthPath = "/health"
	}

	timeout := cfg.ReadyTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	if err := sm.waitForServer(ctx, baseURL+healthPath, timeout); err != nil {
		cancel()
		if err := cmd.Process.Kill(); err != nil {
			slog.Error("Failed to kill server process", "error", err)
		}
		return fmt.Errorf("%s server did not become ready: %w", cfg.Name, err)
	}

	sm.servers[key] = &ServerProcess{
		cmd:     cmd,
		cancel:  cancel,
		baseURL: baseURL,
	}

	slog.Info("Server started", "name", cfg.Name, "port", cfg.Port)
	return nil
}

// Running reports whether the named server is managed and running.
func (sm *ServerManager) Running(name string, port int) bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	_, ok := sm.servers[fmt.Sprintf("%s-%d", name, port)]
	return ok
}

// StopServer terminates a backend server.
func (sm *ServerManager) StopServer(name string, port int) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	key := fmt.Sprintf("%s-%d", name, port)
	srv, exists := sm.servers[key]
	if !exists {
		return nil
	}

	srv.stop()
	delete(sm.servers, key)
	slog.Info("Server stopped", "name", name, "port", port)
	return nil
}

// StopAll terminates all running servers.
func (sm *ServerManager) StopAll() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	for _, srv := range sm.servers {
		srv.stop()
	}
	sm.servers = map[string]*ServerProcess{}

	slog.Info("All servers stopped")
}

func (p *ServerProcess) stop() {
	p.cancel()
	if p.cmd.Process == nil {
		return
	}
	if err := p.cmd.Process.Kill(); err != nil {
		slog.Debug("Server process already exited", "base_url", p.baseURL, "error", err)
	}
	_ = p.cmd.Wait()
}

// waitForServer waits for a server to be ready.
func (sm *ServerManager) waitForServer(ctx context.Context, url string, timeout time.Duration) error {
	client := &http.Client{Timeout: 1 * time.Second}
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := client.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(250 * time.Millisecond):
		}
	}

	return fmt.Errorf("server failed to respond at %s within %v", url, timeout)
}
