package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/ju4n97/storyreel/internal/config"
)

const (
	defaultRetryDelay = 2 * time.Second
	defaultMaxRetries = 3
	defaultTimeout    = 5 * time.Minute
	defaultHFBinary   = "hf"
	markerFilename    = ".storyreel-downloaded"
)

// HuggingFaceDownloader downloads a model from Hugging Face with the hf CLI.
type HuggingFaceDownloader struct {
	// Binary overrides the hf executable.
	Binary string
}

// Download downloads a Hugging Face model to the local cache and returns the
// actual model file path.
func (d *HuggingFaceDownloader) Download(ctx context.Context, modelConfig *config.ModelConfig, targetDir string) (string, bool, error) {
	source, err := modelConfig.GetSource()
	if err != nil {
		return "", false, fmt.Errorf("failed to get model source: %w", err)
	}

	hfSource, ok := source.(config.HuggingFaceSource)
	if !ok {
		return "", false, fmt.Errorf("invalid source type: %T", source)
	}

	repo := strings.TrimSpace(hfSource.Repo)
	if repo == "" {
		return "", false, fmt.Errorf("invalid repo name: %q", hfSource.Repo)
	}

	fullPath := filepath.Join(targetDir, repo)
	markerPath := filepath.Join(fullPath, markerFilename)
	markerContent := d.markerContent(repo, hfSource.Revision, hfSource.Include)

	if _, err := os.Stat(markerPath); err == nil && !hfSource.ForceDownload {
		if !d.shouldRedownload(markerPath, markerContent) {
			slog.Info("Model already downloaded and up-to-date (marker match), skipping", "repo", repo, "path", fullPath)

			modelPath, err := resolveModelPath(fullPath, hfSource.Include)
			if err != nil {
				return "", false, fmt.Errorf("failed to resolve model path: %w", err)
			}
			return modelPath, true, nil
		}
	}

	if err := os.MkdirAll(fullPath, 0o755); err != nil {
		return "", false, fmt.Errorf("failed to create directory: %w", err)
	}

	args := d.buildArgs(hfSource, repo, fullPath)

	var lastErr error
	for attempt := range defaultMaxRetries {
		if attempt > 0 {
			slog.Info("Retrying download", "repo", repo, "attempt", attempt+1, "last_error", lastErr)

			select {
			case <-ctx.Done():
				return "", false, fmt.Errorf("download canceled: %w", ctx.Err())
			case <-time.After(defaultRetryDelay):
			}
		} else {
			slog.Info("Downloading model", "repo", repo, "path", fullPath)
		}

		attemptCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
		cmd := exec.CommandContext(attemptCtx, d.binary(), args...)
		output, err := cmd.CombinedOutput()
		cancel()

		if err == nil {
			if err := os.WriteFile(markerPath, []byte(markerContent), 0o644); err != nil {
				slog.Warn("Failed to write download marker", "path", markerPath, "error", err)
			}

			slog.Info("Model downloaded successfully", "repo", repo, "path", fullPath, "attempt", attempt+1)

			modelPath, err := resolveModelPath(fullPath, hfSource.Include)
			if err != nil {
				return "", false, fmt.Errorf("failed to resolve model path: %w", err)
			}

			return modelPath, false, nil
		}

		lastErr = err
		slog.Error("Failed to download model", "repo", repo, "path", fullPath, "attempt", attempt+1, "error", err, "output", string(output))

		if ctx.Err() != nil {
			return "", false, fmt.Errorf("download canceled: %w", err)
		}
		if attemptCtx.Err() == context.DeadlineExceeded {
			slog.Warn("Download timed out", "repo", repo, "path", fullPath, "attempt", attempt+1)
		}
	}

	return "", false, lastErr
}

func (d *HuggingFaceDownloader) binary() string {
	if d.Binary != "" {
		return d.Binary
	}
	return defaultHFBinary
}

// buildArgs builds the hf download arguments.
func (d *HuggingFaceDownloader) buildArgs(hfSource config.HuggingFaceSource, repo, fullPath string) []string {
	args := []string{
		"download",
		repo,
		"--local-dir", fullPath,
	}

	if hfSource.Revision != "" {
		args = append(args, "--revision", hfSource.Revision)
	}
	if hfSource.RepoType != "" {
		args = append(args, "--repo-type", hfSource.RepoType)
	}
	for _, inc := range hfSource.Include {
		args = append(args, "--include", inc)
	}
	for _, exc := range hfSource.Exclude {
		args = append(args, "--exclude", exc)
	}
	if hfSource.ForceDownload {
		args = append(args, "--force-download")
	}
	if hfSource.Token != "" {
		args = append(args, "--token", hfSource.Token)
	}
	if hfSource.MaxWorkers > 0 {
		args = append(args, "--max-workers", fmt.Sprintf("%d", hfSource.MaxWorkers))
	}

	return args
}

// markerContent generates the expected content of the marker file.
// Used to detect if we need to redownload due to config change.
func (d *HuggingFaceDownloader) markerContent(repo, revision string, include []string) string {
	return fmt.Sprintf("repo: %s\nrevision: %s\ninclude: %s\n", repo, revision, strings.Join(include, ","))
}

// shouldRedownload checks if the model should be redownloaded by comparing marker content.
func (d *HuggingFaceDownloader) shouldRedownload(markerPath, expectedContent string) bool {
	content, err := os.ReadFile(markerPath)
	if err != nil {
		slog.Debug("Marker file missing or unreadable", "path", markerPath, "error", err)
		return true
	}

	if string(content) != expectedContent {
		slog.Info("Model config changed (marker mismatch), will redownload", "marker_path", markerPath)
		return true
	}

	return false
}

// resolveModelPath finds the actual model file based on include patterns.
// If no include patterns or multiple files match, returns the base directory.
// If a single specific file is matched, returns that file path.
func resolveModelPath(baseDir string, includePatterns []string) (string, error) {
	if len(includePatterns) == 0 {
		return baseDir, nil
	}

	var allMatches []string
	for _, pattern := range includePatterns {
		matches, err := filepath.Glob(filepath.Join(baseDir, pattern))
		if err != nil {
			slog.Warn("Invalid glob pattern", "pattern", pattern, "error", err)
			continue
		}

		allMatches = append(allMatches, matches...)
	}

	var fileMatches []string
	for _, match := range allMatches {
		info, err := os.Stat(match)
		if err != nil {
			continue
		}
		if !info.IsDir() {
			fileMatches = append(fileMatches, match)
		}
	}

	switch len(fileMatches) {
	case 0:
		slog.Warn("No files matched include patterns, using base directory", "patterns", includePatterns)
		return baseDir, nil
	case 1:
		slog.Info("Resolved model file", "path", fileMatches[0])
		return fileMatches[0], nil
	}

	if modelFile := findPrimaryModelFile(fileMatches); modelFile != "" {
		slog.Info("Resolved primary model file from multiple matches", "path", modelFile, "total_matches", len(fileMatches))
		return modelFile, nil
	}

	slog.Warn("Multiple files matched, using base directory", "count", len(fileMatches))
	return baseDir, nil
}

// findPrimaryModelFile attempts to identify the primary model file from multiple matches.
func findPrimaryModelFile(files []string) string {
	// Priority order for model file extensions
	extensions := []string{
		".onnx", // Piper voices
		".bin",  // whisper.cpp
		".gguf", // llama.cpp
		".safetensors",
		".pt",
		".pth",
	}

	for _, ext := range extensions {
		for _, file := range files {
			if strings.HasSuffix(strings.ToLower(file), ext) {
				return file
			}
		}
	}

	for _, pattern := range []string{"model", "checkpoint", "weights"} {
		for _, file := range files {
			if strings.Contains(strings.ToLower(filepath.Base(file)), pattern) {
				return file
			}
		}
	}

	return ""
}
