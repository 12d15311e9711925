// Package config loads the project manifest that tells relctl which
// external tools make up the pipeline. Nothing here is inferred from the
// environment: the working directory, the tool command lines, and the
// credential source are all explicit.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultManifestName is the manifest filename searched for in the
// working directory.
const DefaultManifestName = ".relctl.yaml"

// Config is the project manifest.
type Config struct {
	// Project is a display name for logs and the registry.
	Project string `yaml:"project"`

	// WorkDir is the project root every tool runs in. Relative paths in
	// the rest of the manifest resolve against it.
	WorkDir string `yaml:"workdir"`

	// OutputDir is where the build tool writes distributable artifacts.
	OutputDir string `yaml:"output_dir"`

	// MinFreeDiskMB aborts a release early when the output volume has
	// less than this much free space. Zero disables the check.
	MinFreeDiskMB uint64 `yaml:"min_free_disk_mb"`

	Format []string `yaml:"format"`
	Lint   []string `yaml:"lint"`
	Test   []string `yaml:"test"`
	Build  []string `yaml:"build"`

	Deps    DepsConfig    `yaml:"deps"`
	ToolEnv ToolEnvConfig `yaml:"tools_env"`
	Upload  UploadConfig  `yaml:"upload"`
}

// DepsConfig describes the dependency manager and the production-only
// install flags across its versions.
type DepsConfig struct {
	// Bin is the dependency manager executable.
	Bin string `yaml:"bin"`

	// Install is the base install argv, without the prod-only flag.
	Install []string `yaml:"install"`

	// ProdFlagsNew are appended when the manager is at least MinNewVersion.
	ProdFlagsNew []string `yaml:"prod_flags_new"`

	// ProdFlagsLegacy are the fallback for older managers.
	ProdFlagsLegacy []string `yaml:"prod_flags_legacy"`

	// MinNewVersion is the first manager version that accepts ProdFlagsNew.
	MinNewVersion string `yaml:"min_new_version"`
}

// ToolEnvConfig describes the disposable tool environment that holds the
// packaging and upload tools for the duration of one release.
type ToolEnvConfig struct {
	// Dir is the environment root, relative to the working directory.
	Dir string `yaml:"dir"`

	// Create is the argv that provisions the environment. The literal
	// "{env}" is replaced with the environment root.
	Create []string `yaml:"create"`

	// Install is the argv that installs the packaging/upload tools into
	// the environment. "{env}" expands the same way.
	Install []string `yaml:"install"`

	// BinDir is the directory inside the environment that holds tool
	// executables; it is prepended to PATH for the build and upload stages.
	BinDir string `yaml:"bin_dir"`
}

// UploadConfig describes artifact publication.
type UploadConfig struct {
	// Command is the upload argv; artifact paths are appended.
	Command []string `yaml:"command"`

	// RepositoryURL overrides the tool's default registry. Appended as
	// "--repository-url <url>" when set.
	RepositoryURL string `yaml:"repository_url"`

	// CredentialEnv names the environment variable that must carry the
	// registry credential. The credential itself never appears in the
	// manifest.
	CredentialEnv string `yaml:"credential_env"`
}

// Default returns the manifest for a conventional Python project: ruff for
// formatting and linting, pytest, poetry for dependencies, python -m build
// into dist/, twine for upload, and a venv as the disposable tool env.
func Default() *Config {
	return &Config{
		WorkDir:   ".",
		OutputDir: "dist",
		Format:    []string{"ruff", "format", "."},
		Lint:      []string{"ruff", "check", "--fix", "."},
		Test:      []string{"pytest"},
		Build:     []string{"python", "-m", "build", "--outdir", "{output}"},
		Deps: DepsConfig{
			Bin:             "poetry",
			Install:         []string{"install", "--sync"},
			ProdFlagsNew:    []string{"--only", "main"},
			ProdFlagsLegacy: []string{"--no-dev"},
			MinNewVersion:   "1.2.0",
		},
		ToolEnv: ToolEnvConfig{
			Dir:     ".release-tools",
			Create:  []string{"python", "-m", "venv", "{env}"},
			Install: []string{"{env}/bin/pip", "install", "build", "twine"},
			BinDir:  "bin",
		},
		Upload: UploadConfig{
			Command:       []string{"twine", "upload"},
			CredentialEnv: "TWINE_PASSWORD",
		},
	}
}

// Load reads the manifest at path, layered over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault loads the manifest from workdir if one exists, otherwise
// returns the defaults rooted at workdir.
func LoadOrDefault(workdir string) (*Config, error) {
	path := filepath.Join(workdir, DefaultManifestName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		cfg.WorkDir = workdir
		return cfg, nil
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if cfg.WorkDir == "." || cfg.WorkDir == "" {
		cfg.WorkDir = workdir
	}
	return cfg, nil
}

// Validate checks that every pipeline stage has a tool to run.
func (c *Config) Validate() error {
	if c.WorkDir == "" {
		return fmt.Errorf("workdir must not be empty")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir must not be empty")
	}
	for name, argv := range map[string][]string{
		"format": c.Format,
		"lint":   c.Lint,
		"test":   c.Test,
		"build":  c.Build,
	} {
		if len(argv) == 0 {
			return fmt.Errorf("%s command must not be empty", name)
		}
	}
	if c.Deps.Bin == "" {
		return fmt.Errorf("deps.bin must not be empty")
	}
	if len(c.Deps.ProdFlagsNew) == 0 && len(c.Deps.ProdFlagsLegacy) == 0 {
		return fmt.Errorf("deps needs at least one of prod_flags_new or prod_flags_legacy")
	}
	if c.ToolEnv.Dir == "" {
		return fmt.Errorf("tools_env.dir must not be empty")
	}
	if len(c.ToolEnv.Create) == 0 {
		return fmt.Errorf("tools_env.create must not be empty")
	}
	if len(c.Upload.Command) == 0 {
		return fmt.Errorf("upload.command must not be empty")
	}
	return nil
}

// OutputPath returns the absolute build-output directory.
func (c *Config) OutputPath() string {
	return c.resolve(c.OutputDir)
}

// ToolEnvPath returns the absolute disposable tool environment root.
func (c *Config) ToolEnvPath() string {
	return c.resolve(c.ToolEnv.Dir)
}

func (c *Config) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.WorkDir, path)
}
