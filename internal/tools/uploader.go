package tools

import (
	"context"
	"fmt"
	"os"

	"github.com/relforge/relctl/internal/config"
	"github.com/relforge/relctl/internal/invoke"
	"github.com/relforge/relctl/pkg/logging"
)

// Uploader publishes built artifacts to a package registry. Credentials
// come from an explicitly named environment variable, never from ambient
// tool configuration relctl cannot see.
type Uploader struct {
	runner   invoke.Runner
	cfg      config.UploadConfig
	dir      string
	extraEnv []string
	log      *logging.Logger
}

// NewUploader creates an uploader adapter. extraEnv carries the tool
// environment's PATH so the upload tool resolves from the disposable env.
func NewUploader(runner invoke.Runner, cfg config.UploadConfig, dir string, extraEnv []string, log *logging.Logger) *Uploader {
	return &Uploader{runner: runner, cfg: cfg, dir: dir, extraEnv: extraEnv, log: log}
}

// CheckCredentials verifies the configured credential variable is set
// before anything is built, so a release never fails at the last stage
// for a reason knowable at the first.
func (u *Uploader) CheckCredentials() error {
	if u.cfg.CredentialEnv == "" {
		return nil
	}
	if os.Getenv(u.cfg.CredentialEnv) == "" {
		return fmt.Errorf("credential variable %s is not set", u.cfg.CredentialEnv)
	}
	return nil
}

// Upload publishes the artifacts. An empty artifact set is rejected with
// a clear error rather than handed to the tool.
func (u *Uploader) Upload(ctx context.Context, artifacts []string) error {
	if len(artifacts) == 0 {
		return fmt.Errorf("no artifacts to upload")
	}
	if err := u.CheckCredentials(); err != nil {
		return fmt.Errorf("upload: %w", err)
	}

	argv := append([]string{}, u.cfg.Command...)
	if u.cfg.RepositoryURL != "" {
		argv = append(argv, "--repository-url", u.cfg.RepositoryURL)
	}
	argv = append(argv, artifacts...)

	u.log.Info("uploading artifacts", map[string]interface{}{
		"count":      len(artifacts),
		"repository": u.cfg.RepositoryURL,
	})

	if _, err := u.runner.Run(ctx, invoke.Command{Argv: argv, Dir: u.dir, Env: u.extraEnv}); err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	return nil
}
