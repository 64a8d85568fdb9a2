package fingerprint

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// host derives the fingerprint from the machine hardware UUID.
type host struct {
	goos     string
	readFile func(name string) ([]byte, error)
	run      func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// Host returns a provider reading the hardware UUID of this machine: DMI or
// machine-id on Linux, IOPlatformUUID on macOS, csproduct UUID on Windows.
// The result is a blake2b-256 hex digest of that id.
func Host() Provider {
	return &host{
		goos:     runtime.GOOS,
		readFile: os.ReadFile,
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).Output()
		},
	}
}

func (h *host) Fingerprint(ctx context.Context) (string, error) {
	raw, err := h.hardwareID(ctx)
	if err != nil {
		return "", err
	}
	return Digest(raw)
}

func (h *host) hardwareID(ctx context.Context) (string, error) {
	switch h.goos {
	case "linux":
		return h.linux()
	case "darwin":
		return h.darwin(ctx)
	case "windows":
		return h.windows(ctx)
	default:
		return "", fmt.Errorf("%w: unsupported platform %s", ErrUnavailable, h.goos)
	}
}

var linuxSources = []string{
	"/sys/class/dmi/id/product_uuid",
	"/etc/machine-id",
	"/var/lib/dbus/machine-id",
}

func (h *host) linux() (string, error) {
	for _, path := range linuxSources {
		out, err := h.readFile(path)
		if err != nil {
			continue
		}
		if id := strings.TrimSpace(string(out)); id != "" {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: no hardware id found on linux", ErrUnavailable)
}

func (h *host) darwin(ctx context.Context) (string, error) {
	out, err := h.run(ctx, "ioreg", "-rd1", "-c", "IOPlatformExpertDevice")
	if err != nil {
		return "", fmt.Errorf("%w: ioreg: %v", ErrUnavailable, err)
	}

	for _, line := range strings.Split(string(out), "\n") {
		if !strings.Contains(line, "IOPlatformUUID") {
			continue
		}
		// "IOPlatformUUID" = "XXXXXXXX-..."
		parts := strings.Split(line, "\"")
		if len(parts) >= 4 && parts[3] != "" {
			return parts[3], nil
		}
	}
	return "", fmt.Errorf("%w: no IOPlatformUUID found", ErrUnavailable)
}

func (h *host) windows(ctx context.Context) (string, error) {
	out, err := h.run(ctx, "wmic", "csproduct", "get", "UUID")
	if err != nil {
		return "", fmt.Errorf("%w: wmic: %v", ErrUnavailable, err)
	}

	for _, line := range bytes.Split(out, []byte("\n")) {
		s := strings.TrimSpace(string(line))
		if s != "" && !strings.EqualFold(s, "UUID") {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: no csproduct UUID found", ErrUnavailable)
}
