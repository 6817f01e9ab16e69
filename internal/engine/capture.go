// File: internal/engine/capture.go
package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/verihawk/verihawk/internal/scenario"
)

// fullPageQuality is the PNG quality hint passed to the full-document shot.
const fullPageQuality = 100

// shootFunc produces the raw image bytes for a capture kind. Split out so
// tests can exercise naming, collision, and filesystem behavior without a
// browser attached.
type shootFunc func(ctx context.Context, kind scenario.CaptureKind) ([]byte, error)

// Capturer writes named screenshots under a per-scenario directory. Artifacts
// are evidence, so captures taken before a failure survive it.
type Capturer struct {
	logger *zap.Logger
	dir    string
	seen   map[string]struct{}
	shoot  shootFunc
}

// NewCapturer creates a Capturer rooted at dir. The directory is created
// lazily on first capture.
func NewCapturer(logger *zap.Logger, dir string) *Capturer {
	return &Capturer{
		logger: logger.Named("capturer"),
		dir:    dir,
		seen:   make(map[string]struct{}),
		shoot:  takeScreenshot,
	}
}

func takeScreenshot(ctx context.Context, kind scenario.CaptureKind) ([]byte, error) {
	var buf []byte
	var action chromedp.Action
	if kind == scenario.CaptureFullPage {
		action = chromedp.FullScreenshot(&buf, fullPageQuality)
	} else {
		action = chromedp.CaptureScreenshot(&buf)
	}
	if err := chromedp.Run(ctx, action); err != nil {
		return nil, err
	}
	return buf, nil
}

// Capture takes a screenshot and writes it as <dir>/<name>.png, returning the
// artifact record. A repeated name within one scenario overwrites the earlier
// file with a warning rather than failing the run.
func (c *Capturer) Capture(ctx context.Context, stepIndex int, shot *scenario.Capture) (Artifact, error) {
	if base := filepath.Base(shot.Name); base != shot.Name || base == "." || base == string(filepath.Separator) {
		return Artifact{}, &Error{Kind: KindAction, Op: "capture artifact", StepIndex: stepIndex,
			Target: shot.Name, Err: fmt.Errorf("artifact name %q must be a bare file name", shot.Name)}
	}
	if _, dup := c.seen[shot.Name]; dup {
		c.logger.Warn("Duplicate artifact name, overwriting earlier capture.", zap.String("name", shot.Name))
	}
	c.seen[shot.Name] = struct{}{}

	buf, err := c.shoot(ctx, shot.Kind)
	if err != nil {
		return Artifact{}, &Error{Kind: KindAction, Op: "capture artifact", StepIndex: stepIndex,
			Target: shot.Name, Err: err}
	}

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return Artifact{}, &Error{Kind: KindAction, Op: "capture artifact", StepIndex: stepIndex,
			Target: shot.Name, Err: fmt.Errorf("failed to create artifact dir: %w", err)}
	}
	path := filepath.Join(c.dir, shot.Name+".png")
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return Artifact{}, &Error{Kind: KindAction, Op: "capture artifact", StepIndex: stepIndex,
			Target: shot.Name, Err: fmt.Errorf("failed to write artifact: %w", err)}
	}

	c.logger.Info("Artifact captured.",
		zap.String("name", shot.Name),
		zap.String("kind", string(shot.Kind)),
		zap.String("path", path),
		zap.Int("bytes", len(buf)))
	return Artifact{Name: shot.Name, Kind: shot.Kind, Path: path, Bytes: len(buf)}, nil
}
