package sandbox

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Mode represents the sandbox execution mode.
type Mode string

const (
	// ModeDocker uses Docker containers for isolation.
	ModeDocker Mode = "docker"
	// ModeHost runs commands directly on the host (no isolation).
	ModeHost Mode = "host"
	// ModeAuto selects Docker if available, otherwise falls back to host.
	ModeAuto Mode = "auto"
)

// DefaultPythonImage is used when no image override is configured. It must
// ship pandas and matplotlib; deployments point CSVCHAT_SANDBOX_IMAGE at an
// image that does.
const DefaultPythonImage = "python:3.11-slim"

// Config holds configuration for sandbox execution.
type Config struct {
	Mode        Mode
	DockerImage string        // custom Docker image override
	CPU         string        // CPU limit (e.g., "2")
	Memory      string        // memory limit (e.g., "1g")
	CmdTimeout  time.Duration // default command timeout (0 = use default)
}

// DefaultConfig returns the default configuration based on environment
// variables.
func DefaultConfig() Config {
	modeStr := strings.ToLower(os.Getenv("CSVCHAT_SANDBOX_MODE"))
	if modeStr == "" {
		modeStr = "auto"
	}

	var mode Mode
	switch modeStr {
	case "docker":
		mode = ModeDocker
	case "host":
		mode = ModeHost
	case "auto":
		mode = ModeAuto
	default:
		log.Printf("WARNING: Unknown CSVCHAT_SANDBOX_MODE value '%s', defaulting to 'auto'", modeStr)
		mode = ModeAuto
	}

	cmdTimeout := 2 * time.Minute
	if timeoutStr := os.Getenv("CSVCHAT_CMD_TIMEOUT"); timeoutStr != "" {
		if d, err := time.ParseDuration(timeoutStr); err == nil && d > 0 {
			cmdTimeout = d
		} else {
			log.Printf("WARNING: Invalid CSVCHAT_CMD_TIMEOUT value '%s', using default 2m", timeoutStr)
		}
	}

	return Config{
		Mode:        mode,
		DockerImage: os.Getenv("CSVCHAT_SANDBOX_IMAGE"),
		CPU:         getEnvOrDefault("CSVCHAT_SANDBOX_CPU", "2"),
		Memory:      getEnvOrDefault("CSVCHAT_SANDBOX_MEMORY", "1g"),
		CmdTimeout:  cmdTimeout,
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

// IsDockerAvailable checks if Docker is available and accessible.
func IsDockerAvailable(ctx context.Context) bool {
	cmd := exec.CommandContext(ctx, "docker", "ps")
	cmd.Stdout = nil
	cmd.Stderr = nil
	return cmd.Run() == nil
}

// NewDefaultRunner creates a runner based on the configuration and Docker
// availability. It respects the CSVCHAT_SANDBOX_MODE environment variable:
// - "docker": use Docker (falls back to host with a warning if unavailable)
// - "host": run on the host (no isolation)
// - "auto": use Docker if available, fall back to host
func NewDefaultRunner() Runner {
	config := DefaultConfig()
	ctx := context.Background()

	switch config.Mode {
	case ModeDocker:
		if !IsDockerAvailable(ctx) {
			log.Printf("WARNING: Docker mode requested but Docker is not available. Falling back to host executor.")
			return &HostRunner{config: config}
		}
		dockerRunner, err := NewDockerRunner(config)
		if err != nil {
			log.Printf("WARNING: Failed to create Docker runner: %v. Falling back to host executor.", err)
			return &HostRunner{config: config}
		}
		return dockerRunner

	case ModeHost:
		log.Printf("WARNING: Using host executor (no sandboxing). Generated code runs unconfined; development only.")
		return &HostRunner{config: config}

	case ModeAuto:
		if IsDockerAvailable(ctx) {
			dockerRunner, err := NewDockerRunner(config)
			if err != nil {
				log.Printf("WARNING: Docker available but failed to create runner: %v. Falling back to host executor.", err)
				return &HostRunner{config: config}
			}
			return dockerRunner
		}
		log.Printf("WARNING: Docker not available. Using host executor (no sandboxing).")
		return &HostRunner{config: config}

	default:
		log.Printf("WARNING: Unknown sandbox mode, defaulting to host executor.")
		return &HostRunner{config: config}
	}
}

// NewRunner creates a specific runner implementation.
func NewRunner(mode Mode, config Config) (Runner, error) {
	switch mode {
	case ModeDocker:
		return NewDockerRunner(config)
	case ModeHost:
		return &HostRunner{config: config}, nil
	default:
		return nil, fmt.Errorf("unknown runner mode: %s", mode)
	}
}
