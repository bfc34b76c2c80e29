// Package launcher starts configured services as detached local processes.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"devstack/internal/config"
	"devstack/pkg/logging"
)

// PortPlaceholder in a command argument is replaced by the resolved port.
const PortPlaceholder = "{{port}}"

// ErrMissingContext means the service's working directory or executable does not exist.
var ErrMissingContext = errors.New("service launch context missing")

var execCommand = exec.Command

// Handle describes a started process.
type Handle struct {
	PID       int
	Command   []string
	LogFile   string
	StartedAt time.Time
}

// Launcher starts services, writing their output under LogDir.
type Launcher struct {
	LogDir string
}

// New returns a Launcher that writes service output to logDir.
func New(logDir string) *Launcher {
	return &Launcher{LogDir: logDir}
}

// Launch starts def on port. The process runs in its own process group and is
// released immediately; readiness is not awaited.
func (l *Launcher) Launch(ctx context.Context, def config.ServiceDefinition, port int) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return Handle{}, err
	}
	if len(def.Command) == 0 {
		return Handle{}, fmt.Errorf("%s: no command configured: %w", def.Name, ErrMissingContext)
	}

	info, err := os.Stat(def.WorkDir)
	if err != nil || !info.IsDir() {
		return Handle{}, fmt.Errorf("%s: working directory %q not found: %w", def.Name, def.WorkDir, ErrMissingContext)
	}

	executable, err := resolveExecutable(def.WorkDir, def.Command[0])
	if err != nil {
		return Handle{}, fmt.Errorf("%s: %v: %w", def.Name, err, ErrMissingContext)
	}
	args := Args(def.Command[1:], port)

	logFile := filepath.Join(l.LogDir, def.Name+".log")
	if err := os.MkdirAll(l.LogDir, 0755); err != nil {
		return Handle{}, fmt.Errorf("%s: create log dir: %w", def.Name, err)
	}
	out, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return Handle{}, fmt.Errorf("%s: open log file: %w", def.Name, err)
	}
	defer out.Close()

	cmd := execCommand(executable, args...)
	cmd.Dir = def.WorkDir
	cmd.Stdout = out
	cmd.Stderr = out
	cmd.Stdin = nil
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Env = Environ(cmd.Env, def, port)

	if err := cmd.Start(); err != nil {
		return Handle{}, fmt.Errorf("%s: start %s: %w", def.Name, executable, err)
	}

	handle := Handle{
		PID:       cmd.Process.Pid,
		Command:   append([]string{executable}, args...),
		LogFile:   logFile,
		StartedAt: time.Now().UTC(),
	}
	if err := cmd.Process.Release(); err != nil {
		logging.Warn("Launcher", "Could not release %s (PID %d): %v", def.Name, handle.PID, err)
	}

	logging.Info("Launcher", "Started %s on port %d (PID %d), output in %s", def.Name, port, handle.PID, logFile)
	return handle, nil
}

// Args substitutes the port into args, appending "--port N" when no argument
// carries the placeholder.
func Args(args []string, port int) []string {
	p := strconv.Itoa(port)
	out := make([]string, 0, len(args)+2)
	substituted := false
	for _, a := range args {
		if strings.Contains(a, PortPlaceholder) {
			a = strings.ReplaceAll(a, PortPlaceholder, p)
			substituted = true
		}
		out = append(out, a)
	}
	if !substituted {
		out = append(out, "--port", p)
	}
	return out
}

// Environ builds the child environment on top of base, or the current
// environment when base is nil.
func Environ(base []string, def config.ServiceDefinition, port int) []string {
	env := base
	if env == nil {
		env = os.Environ()
	}
	env = append(env, fmt.Sprintf("PORT=%d", port))
	if len(def.ConfigPaths) > 0 {
		env = append(env, "DEVSTACK_CONFIG="+def.ConfigPaths[0])
	}
	for k, v := range def.Env {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	return env
}

// resolveExecutable finds name on PATH, or relative to workDir when it contains
// a path separator.
func resolveExecutable(workDir, name string) (string, error) {
	if !strings.ContainsRune(name, filepath.Separator) {
		path, err := exec.LookPath(name)
		if err != nil {
			return "", fmt.Errorf("executable %q not found on PATH", name)
		}
		return path, nil
	}

	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(workDir, path)
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("executable %q not found", path)
	}
	return path, nil
}
