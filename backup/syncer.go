package backup

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
)

// Syncer abstracts the cloud transfer command. Results are an opaque
// pass/fail plus a byte count.
type Syncer interface {
	// Push mirrors localDir to remotePath, skipping excluded patterns.
	Push(ctx context.Context, localDir, remotePath string, excludes []string) (int64, error)
	// Pull copies remotePath into localDir without deleting local extras,
	// skipping excluded patterns.
	Pull(ctx context.Context, remotePath, localDir string, excludes []string) (int64, error)
	// Configured reports whether credentials exist for the remote.
	Configured() bool
}

// RcloneSyncer shells out to rclone with a dedicated config file holding the
// remote credentials. The config file is the opaque credential reference; the
// core never parses it.
type RcloneSyncer struct {
	// ConfigPath is the rclone.conf to use.
	ConfigPath string
	// Remote is the rclone remote name, e.g. "dropbox".
	Remote string
	// Binary defaults to "rclone".
	Binary string
}

func (s *RcloneSyncer) binary() string {
	if s.Binary == "" {
		return "rclone"
	}
	return s.Binary
}

// Configured reports whether the rclone config file exists.
func (s *RcloneSyncer) Configured() bool {
	if s.ConfigPath == "" {
		return false
	}
	_, err := exec.LookPath(s.binary())
	if err != nil {
		return false
	}
	return fileExists(s.ConfigPath)
}

// Push mirrors localDir to the remote. The reported byte count is the size of
// the local tree, since rclone does not expose transfer totals without
// parsing its output.
func (s *RcloneSyncer) Push(ctx context.Context, localDir, remotePath string, excludes []string) (int64, error) {
	target := fmt.Sprintf("%s:%s", s.Remote, remotePath)
	if err := s.run(ctx, "sync", localDir, target, excludes); err != nil {
		return 0, err
	}
	return dirSize(localDir), nil
}

// Pull copies the remote into localDir. rclone copy never deletes local files
// missing from the remote.
func (s *RcloneSyncer) Pull(ctx context.Context, remotePath, localDir string, excludes []string) (int64, error) {
	source := fmt.Sprintf("%s:%s", s.Remote, remotePath)
	if err := s.run(ctx, "copy", source, localDir, excludes); err != nil {
		return 0, err
	}
	return dirSize(localDir), nil
}

// args builds the rclone command line for a transfer.
func (s *RcloneSyncer) args(verb, from, to string, excludes []string) []string {
	argv := []string{verb, from, to, "--config", s.ConfigPath}
	for _, pattern := range excludes {
		argv = append(argv, "--exclude", pattern)
	}
	return argv
}

func (s *RcloneSyncer) run(ctx context.Context, verb, from, to string, excludes []string) error {
	cmd := exec.CommandContext(ctx, s.binary(), s.args(verb, from, to, excludes)...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("rclone %s timed out: %w", verb, ctx.Err())
		}
		return fmt.Errorf("rclone %s failed: %w (output: %.500s)", verb, err, string(out))
	}
	return nil
}

// Verify runs a cheap listing against the remote to test credentials.
func (s *RcloneSyncer) Verify(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, s.binary(), "lsd", s.Remote+":", "--config", s.ConfigPath)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("rclone connection test failed: %w (output: %.300s)", err, string(out))
	}
	return nil
}

func dirSize(dir string) int64 {
	var total int64
	filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			total += info.Size()
		}
		return nil
	})
	return total
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
