package launcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"devstack/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExecCommand runs the test binary as the service.
func fakeExecCommand(command string, args ...string) *exec.Cmd {
	cs := []string{"-test.run=TestHelperProcess", "--", command}
	cs = append(cs, args...)
	cmd := exec.Command(os.Args[0], cs...)
	cmd.Env = []string{"GO_WANT_HELPER_PROCESS=1"}
	return cmd
}

// TestHelperProcess is not a real test. It's used by fakeExecCommand.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	args := os.Args
	for i, a := range args {
		if a == "--" {
			args = args[i+2:]
			break
		}
	}
	wd, _ := os.Getwd()
	fmt.Fprintf(os.Stdout, "port=%s config=%s mode=%s wd=%s args=%s\n",
		os.Getenv("PORT"), os.Getenv("DEVSTACK_CONFIG"), os.Getenv("MODE"), wd, strings.Join(args, " "))
	os.Exit(0)
}

func withFakeExec(t *testing.T) {
	t.Helper()
	execCommand = fakeExecCommand
	t.Cleanup(func() { execCommand = exec.Command })
}

func TestLaunch_StartsDetachedAndLogs(t *testing.T) {
	withFakeExec(t)
	workDir := t.TempDir()
	logDir := filepath.Join(t.TempDir(), "logs")

	def := config.ServiceDefinition{
		Name:        "api",
		WorkDir:     workDir,
		Command:     []string{os.Args[0], "serve"},
		Env:         map[string]string{"MODE": "dev"},
		ConfigPaths: []string{"/tmp/api/config.json"},
	}

	handle, err := New(logDir).Launch(context.Background(), def, 7862)
	require.NoError(t, err)
	assert.Greater(t, handle.PID, 0)
	assert.Equal(t, filepath.Join(logDir, "api.log"), handle.LogFile)
	assert.Equal(t, []string{os.Args[0], "serve", "--port", "7862"}, handle.Command)

	var output string
	require.Eventually(t, func() bool {
		data, err := os.ReadFile(handle.LogFile)
		output = string(data)
		return err == nil && strings.Contains(output, "args=")
	}, 5*time.Second, 20*time.Millisecond)

	assert.Contains(t, output, "port=7862")
	assert.Contains(t, output, "config=/tmp/api/config.json")
	assert.Contains(t, output, "mode=dev")
	assert.Contains(t, output, "args=serve --port 7862")
	resolvedWorkDir, _ := filepath.EvalSymlinks(workDir)
	assert.True(t, strings.Contains(output, "wd="+workDir) || strings.Contains(output, "wd="+resolvedWorkDir))
}

func TestLaunch_MissingWorkDir(t *testing.T) {
	withFakeExec(t)
	def := config.ServiceDefinition{
		Name:    "ui",
		WorkDir: filepath.Join(t.TempDir(), "absent"),
		Command: []string{os.Args[0]},
	}
	_, err := New(t.TempDir()).Launch(context.Background(), def, 3000)
	assert.True(t, errors.Is(err, ErrMissingContext))
}

func TestLaunch_MissingExecutable(t *testing.T) {
	withFakeExec(t)
	workDir := t.TempDir()

	for _, command := range [][]string{
		{"./bin/not-built"},
		{"devstack-no-such-binary-on-path"},
		nil,
	} {
		def := config.ServiceDefinition{Name: "ui", WorkDir: workDir, Command: command}
		_, err := New(t.TempDir()).Launch(context.Background(), def, 3000)
		assert.True(t, errors.Is(err, ErrMissingContext), "command %v", command)
	}
}

func TestLaunch_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	def := config.ServiceDefinition{Name: "ui", WorkDir: t.TempDir(), Command: []string{os.Args[0]}}
	_, err := New(t.TempDir()).Launch(ctx, def, 3000)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"append flag", []string{"main.py"}, []string{"main.py", "--port", "8080"}},
		{"placeholder", []string{"--listen", "127.0.0.1:{{port}}"}, []string{"--listen", "127.0.0.1:8080"}},
		{"placeholder alone", []string{"-p", "{{port}}", "--reload"}, []string{"-p", "8080", "--reload"}},
		{"no args", nil, []string{"--port", "8080"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Args(tt.args, 8080))
		})
	}
}

func TestEnviron(t *testing.T) {
	def := config.ServiceDefinition{Env: map[string]string{"A": "1"}}
	env := Environ([]string{"BASE=x"}, def, 9000)
	assert.Equal(t, []string{"BASE=x", "PORT=9000", "A=1"}, env)

	def.ConfigPaths = []string{"/a.json", "/b.json"}
	env = Environ([]string{}, def, 9000)
	assert.Contains(t, env, "DEVSTACK_CONFIG=/a.json")
	assert.NotContains(t, env, "DEVSTACK_CONFIG=/b.json")
}
