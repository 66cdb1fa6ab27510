// Package system implements adapters.SystemAdapter on top of gopsutil, which
// covers Linux, macOS and Windows with one code path.
package system

import (
	"context"
	"os/exec"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

// webServers maps process names to the label shown in `status`.
var webServers = []struct {
	process string
	label   string
}{
	{"nginx", "nginx"},
	{"apache2", "Apache"},
	{"httpd", "Apache"},
	{"caddy", "Caddy"},
	{"frankenphp", "FrankenPHP"},
	{"php-fpm", "PHP-FPM"},
}

type Adapter struct {
	phpBinary string
	// processNames is swapped in tests.
	processNames func(ctx context.Context) ([]string, error)
}

func NewAdapter() *Adapter {
	return &Adapter{
		phpBinary:    "php",
		processNames: runningProcessNames,
	}
}

func (a *Adapter) PHPVersion(ctx context.Context) string {
	out, err := exec.CommandContext(ctx, a.phpBinary, "-r", "echo PHP_VERSION;").Output()
	if err != nil {
		return "Unknown"
	}
	ver := strings.TrimSpace(string(out))
	if ver == "" {
		return "Unknown"
	}
	return ver
}

func (a *Adapter) WebServer(ctx context.Context) (string, bool) {
	names, err := a.processNames(ctx)
	if err != nil {
		return "", false
	}
	return matchWebServer(names)
}

func matchWebServer(names []string) (string, bool) {
	// Priority follows webServers order, not process order.
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		seen[strings.ToLower(n)] = true
	}
	for _, ws := range webServers {
		for n := range seen {
			if n == ws.process || strings.HasPrefix(n, ws.process) {
				return ws.label, true
			}
		}
	}
	return "", false
}

func runningProcessNames(ctx context.Context) ([]string, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}
