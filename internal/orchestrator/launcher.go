package orchestrator

import (
	"context"
	"os"
	"os/exec"
	"strconv"
	"syscall"
	"time"

	"github.com/pkeller/modelharness/internal/config"
	"github.com/pkeller/modelharness/internal/errors"
)

// Process is a launched environment the orchestrator can tear down.
type Process interface {
	Stop() error
}

// Launcher starts environment processes. The production launcher execs the
// manifest command; tests substitute a fake.
type Launcher interface {
	Launch(ctx context.Context, spec EnvSpec, controlURL string) (Process, error)
}

const (
	// Environment variables passed to launched processes so they can find
	// their way back to the control server.
	EnvControlURL = "MODELHARNESS_CONTROL_URL"
	EnvEnvName    = "MODELHARNESS_ENV_NAME"
)

// launchEnv assembles a child's environment: the inherited one, the manifest
// overrides, then the harness variables the child reads back. Headless mode
// is always forwarded so the child renders accordingly.
func launchEnv(spec EnvSpec, controlURL string) []string {
	env := append(os.Environ(), spec.Env...)
	return append(env,
		EnvControlURL+"="+controlURL,
		EnvEnvName+"="+spec.Name,
		config.EnvHeadless+"="+strconv.FormatBool(spec.HeadlessOrDefault()),
	)
}

type ExecLauncher struct{}

func (ExecLauncher) Launch(ctx context.Context, spec EnvSpec, controlURL string) (Process, error) {
	if len(spec.Command) == 0 {
		return nil, errors.EnvironmentLaunchFailed(spec.Name, nil)
	}

	cmd := exec.CommandContext(ctx, spec.Command[0], spec.Command[1:]...)
	cmd.Env = launchEnv(spec, controlURL)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, errors.EnvironmentLaunchFailed(spec.Name, err)
	}

	log.Info("launched environment %s (pid %d)", spec.Name, cmd.Process.Pid)
	return &execProcess{name: spec.Name, cmd: cmd}, nil
}

type execProcess struct {
	name string
	cmd  *exec.Cmd
}

// Stop asks the process to terminate and kills it if it lingers.
func (p *execProcess) Stop() error {
	if p.cmd.Process == nil {
		return nil
	}

	_ = p.cmd.Process.Signal(syscall.SIGTERM)

	done := make(chan error, 1)
	go func() { done <- p.cmd.Wait() }()

	select {
	case <-done:
		return nil
	case <-time.After(5 * time.Second):
		log.Warn("environment %s did not exit, killing", p.name)
		_ = p.cmd.Process.Kill()
		<-done
		return nil
	}
}
