// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/pandoc-runner/internal/appdir"
	"github.com/pdiddy/pandoc-runner/internal/exclude"
	"github.com/pdiddy/pandoc-runner/pkg/types"
)

const unknownError = "Unknown error"

// convertible lists the input extensions handed to the converter. Every
// other file is copied through unchanged.
var convertible = map[string]bool{
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".tex":      true,
	".rst":      true,
	".org":      true,
	".textile":  true,
	".xml":      true,
	".epub":     true,
	".docx":     true,
}

// IsConvertible reports whether path has an extension the converter reads.
func IsConvertible(path string) bool {
	return convertible[strings.ToLower(filepath.Ext(path))]
}

// fileTask is one file discovered under the input root.
type fileTask struct {
	input  string
	output string
	rel    string
}

// plan is the partition of an input tree into files to convert and files
// to copy, in walk order.
type plan struct {
	Convert []fileTask
	Copy    []fileTask
}

// planFolder walks inputRoot and partitions every regular file that is not
// excluded. Converted outputs keep their relative directory and take ext
// as the new extension; copied files keep their relative path.
func (s *Service) planFolder(inputRoot, outputRoot, ext string) (plan, error) {
	var p plan
	matcher := exclude.New(s.cfg.ExcludePatterns)
	for _, bad := range matcher.Invalid() {
		s.logger.Warn("Ignoring invalid exclude pattern", slog.String("pattern", bad))
	}
	outAbs, _ := filepath.Abs(outputRoot)

	err := filepath.WalkDir(inputRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == inputRoot {
				return err
			}
			s.logger.Warn("Error accessing path during walk", slog.String("path", path), slog.String("error", err.Error()))
			return nil
		}
		if d.IsDir() {
			// Earlier output nested inside the input tree is not input.
			if abs, _ := filepath.Abs(path); path != inputRoot && abs == outAbs {
				return filepath.SkipDir
			}
			return nil
		}
		if !isRegular(path, d) {
			return nil
		}

		rel, err := filepath.Rel(inputRoot, path)
		if err != nil {
			s.logger.Warn("Could not compute relative path", slog.String("path", path), slog.String("error", err.Error()))
			return nil
		}
		if matcher.Match(rel) {
			s.logger.Debug("Path excluded", slog.String("path", rel))
			return nil
		}

		if IsConvertible(path) {
			stem := strings.TrimSuffix(filepath.Base(rel), filepath.Ext(rel))
			p.Convert = append(p.Convert, fileTask{
				input:  path,
				output: filepath.Join(outputRoot, filepath.Dir(rel), stem+ext),
				rel:    rel,
			})
		} else {
			p.Copy = append(p.Copy, fileTask{
				input:  path,
				output: filepath.Join(outputRoot, rel),
				rel:    rel,
			})
		}
		return nil
	})
	if err != nil {
		return plan{}, fmt.Errorf("walking %s: %w", inputRoot, err)
	}
	return p, nil
}

// ConvertFolder converts every convertible file under inputRoot into
// outputRoot, one at a time in walk order, then copies the remaining
// files. A failed file is recorded and the batch continues. Copy failures
// are logged and counted in CopyFailed only. The returned error is
// non-nil when the folder could not be processed at all or ctx was
// cancelled; in the latter case no further file is started, the rest are
// counted in Skipped and the copy pass does not run.
func (s *Service) ConvertFolder(ctx context.Context, inputRoot, outputRoot, ext string, ov types.Overrides, r Reporter) (types.FolderResult, error) {
	var result types.FolderResult

	if err := os.MkdirAll(outputRoot, 0o755); err != nil {
		return result, fmt.Errorf("creating output folder: %w", err)
	}
	p, err := s.planFolder(inputRoot, outputRoot, ext)
	if err != nil {
		return result, err
	}

	total := len(p.Convert)
	for i, task := range p.Convert {
		if ctx.Err() != nil {
			return s.cancelled(ctx, result, i, total)
		}
		if err := os.MkdirAll(filepath.Dir(task.output), 0o755); err != nil {
			s.logger.Warn("Could not create output directory", slog.String("path", task.rel), slog.String("error", err.Error()))
		}
		outRel, _ := filepath.Rel(outputRoot, task.output)
		s.logger.Info("Converting file", slog.String("input", task.rel), slog.String("output", outRel))

		if r != nil {
			r.Report(i+1, total, task.rel)
		}

		res := s.ConvertFile(ctx, task.input, task.output, ov)
		if res.Success {
			result.Succeeded++
			continue
		}
		result.Failed++
		msg := res.Stderr
		if msg == "" {
			msg = unknownError
		}
		result.Errors = append(result.Errors, types.FileError{Path: task.rel, Message: msg})
	}

	if ctx.Err() != nil {
		return s.cancelled(ctx, result, total, total)
	}

	for _, task := range p.Copy {
		if err := copyThrough(task); err != nil {
			result.CopyFailed++
			s.logger.Error("Copy failed", slog.String("path", task.rel), slog.String("error", err.Error()))
			continue
		}
		s.logger.Info("Copied file", slog.String("path", task.rel))
	}

	s.logger.Info("Folder conversion complete",
		slog.Int("succeeded", result.Succeeded),
		slog.Int("failed", result.Failed),
		slog.Int("copy_failed", result.CopyFailed))
	return result, nil
}

func (s *Service) cancelled(ctx context.Context, result types.FolderResult, attempted, total int) (types.FolderResult, error) {
	result.Skipped = total - attempted
	s.logger.Warn("Folder conversion cancelled",
		slog.Int("attempted", attempted), slog.Int("total", total), slog.Int("skipped", result.Skipped))
	return result, fmt.Errorf("conversion cancelled after %d of %d file(s): %w", attempted, total, context.Cause(ctx))
}

func copyThrough(task fileTask) error {
	if err := os.MkdirAll(filepath.Dir(task.output), 0o755); err != nil {
		return err
	}
	return appdir.CopyFile(task.input, task.output)
}

// isRegular reports whether the entry is a regular file, following a
// symlink to decide.
func isRegular(path string, d fs.DirEntry) bool {
	if d.Type().IsRegular() {
		return true
	}
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
