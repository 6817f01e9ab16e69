// File: internal/engine/capture_test.go
package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/verihawk/verihawk/internal/scenario"
)

func stubCapturer(t *testing.T, payload []byte, shootErr error) (*Capturer, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "artifacts", "scn")
	c := NewCapturer(zap.NewNop(), dir)
	c.shoot = func(ctx context.Context, kind scenario.CaptureKind) ([]byte, error) {
		return payload, shootErr
	}
	return c, dir
}

// TestCapture_WritesArtifact writes the image under the scenario directory and
// returns a matching record.
func TestCapture_WritesArtifact(t *testing.T) {
	payload := []byte{0x89, 'P', 'N', 'G'}
	c, dir := stubCapturer(t, payload, nil)

	art, err := c.Capture(context.Background(), 0, &scenario.Capture{Name: "layout-top", Kind: scenario.CaptureViewport})
	require.NoError(t, err)

	assert.Equal(t, "layout-top", art.Name)
	assert.Equal(t, filepath.Join(dir, "layout-top.png"), art.Path)
	assert.Equal(t, len(payload), art.Bytes)

	written, err := os.ReadFile(art.Path)
	require.NoError(t, err)
	assert.Equal(t, payload, written)
}

// TestCapture_DuplicateNameOverwrites logs and overwrites rather than failing
// the scenario mid-run.
func TestCapture_DuplicateNameOverwrites(t *testing.T) {
	c, _ := stubCapturer(t, []byte("first"), nil)

	first, err := c.Capture(context.Background(), 0, &scenario.Capture{Name: "shot", Kind: scenario.CaptureViewport})
	require.NoError(t, err)

	c.shoot = func(ctx context.Context, kind scenario.CaptureKind) ([]byte, error) {
		return []byte("second!"), nil
	}
	second, err := c.Capture(context.Background(), 1, &scenario.Capture{Name: "shot", Kind: scenario.CaptureViewport})
	require.NoError(t, err)

	assert.Equal(t, first.Path, second.Path)
	written, err := os.ReadFile(second.Path)
	require.NoError(t, err)
	assert.Equal(t, []byte("second!"), written)
}

// TestCapture_RejectsPathyNames keeps artifact names from escaping the
// scenario directory.
func TestCapture_RejectsPathyNames(t *testing.T) {
	c, _ := stubCapturer(t, []byte("x"), nil)

	for _, name := range []string{"../escape", "a/b", "."} {
		_, err := c.Capture(context.Background(), 0, &scenario.Capture{Name: name, Kind: scenario.CaptureViewport})
		require.Error(t, err, "name=%s", name)
		assert.Equal(t, KindAction, KindOf(err), "name=%s", name)
	}
}

// TestCapture_ShootFailure surfaces the screenshot error as an action failure.
func TestCapture_ShootFailure(t *testing.T) {
	c, dir := stubCapturer(t, nil, errors.New("target crashed"))

	_, err := c.Capture(context.Background(), 2, &scenario.Capture{Name: "shot", Kind: scenario.CaptureFullPage})
	require.Error(t, err)
	assert.Equal(t, KindAction, KindOf(err))

	// Nothing written, not even the directory.
	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr))
}
