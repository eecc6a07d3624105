// Package orchestrator launches execution environments, drives the suite
// through each of them, and aggregates the per-environment outcomes.
package orchestrator

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pkeller/modelharness/internal/config"
	"github.com/pkeller/modelharness/internal/errors"
	"github.com/pkeller/modelharness/internal/schema"
)

// EnvSpec describes one execution environment. An empty command means the
// environment runs in-process; otherwise the command is launched as a child
// process that hosts the engine.
type EnvSpec struct {
	Name         string   `yaml:"name" json:"name"`
	Command      []string `yaml:"command,omitempty" json:"command,omitempty"`
	Env          []string `yaml:"env,omitempty" json:"env,omitempty"`
	ReadyTimeout string   `yaml:"ready_timeout,omitempty" json:"ready_timeout,omitempty"`
	Headless     *bool    `yaml:"headless,omitempty" json:"headless,omitempty"`
}

const DefaultReadyTimeout = 30 * time.Second

func (s EnvSpec) ReadyTimeoutOrDefault() time.Duration {
	if s.ReadyTimeout == "" {
		return DefaultReadyTimeout
	}
	d, err := time.ParseDuration(s.ReadyTimeout)
	if err != nil || d <= 0 {
		return DefaultReadyTimeout
	}
	return d
}

// HeadlessOrDefault resolves the environment's headless mode. The manifest
// field wins; otherwise MODELHARNESS_HEADLESS decides, defaulting to headless.
func (s EnvSpec) HeadlessOrDefault() bool {
	if s.Headless == nil {
		return config.GetEnvBool(config.EnvHeadless, true)
	}
	return *s.Headless
}

// InProcess reports whether this environment hosts the engine inside the
// harness process.
func (s EnvSpec) InProcess() bool {
	return len(s.Command) == 0
}

type Manifest struct {
	Environments []EnvSpec `yaml:"environments" json:"environments"`
}

// LoadManifest reads an environment manifest. A non-nil validator checks the
// document against the environment schema before decoding.
func LoadManifest(path string, validator *schema.Validator) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.IONotExists(path)
		}
		return nil, errors.IOReadFailed(path, err)
	}

	if validator != nil {
		var doc interface{}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, errors.ConfigInvalid(path, err.Error())
		}
		if err := validator.MustValidate(schema.SchemaEnvs, doc); err != nil {
			return nil, err
		}
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, errors.ConfigInvalid(path, err.Error())
	}
	if len(manifest.Environments) == 0 {
		return nil, errors.ConfigInvalid(path, "manifest declares no environments")
	}

	seen := make(map[string]bool)
	for _, env := range manifest.Environments {
		if env.Name == "" {
			return nil, errors.ConfigInvalid(path, "environment with empty name")
		}
		if seen[env.Name] {
			return nil, errors.ConfigInvalid(path, "duplicate environment name: "+env.Name)
		}
		seen[env.Name] = true
	}

	return &manifest, nil
}
