package spincube

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string, w, h int, c color.RGBA) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

// pollUntil polls the server until a LoadComplete arrives, collecting events.
func pollUntil(t *testing.T, s *AssetServer, done func([]LoadEvent) bool) []LoadEvent {
	t.Helper()
	var events []LoadEvent
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		events = append(events, s.Poll()...)
		if done(events) {
			return events
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("asset server did not finish, events so far: %v", events)
	return nil
}

func completed(events []LoadEvent) bool {
	for _, ev := range events {
		if ev.Kind == LoadComplete {
			return true
		}
	}
	return false
}

func kinds(events []LoadEvent) []LoadEventKind {
	out := make([]LoadEventKind, len(events))
	for i, ev := range events {
		out[i] = ev.Kind
	}
	return out
}

func TestAssetServer_LoadTexture(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "color.png")
	writePNG(t, path, 4, 2, color.RGBA{10, 20, 30, 255})

	s := NewAssetServer(1)
	defer s.Close()

	id := s.LoadTexture(path, WithColorSpace(ColorSpaceSRGB), WithWrap(WrapRepeat), WithRepeat(2, 3))
	tex, ok := s.Texture(id)
	require.True(t, ok)
	assert.False(t, tex.Loaded)
	assert.Equal(t, 1, tex.Image.Bounds().Dx(), "placeholder until polled")
	assert.Equal(t, ColorSpaceSRGB, tex.ColorSpace)

	events := pollUntil(t, s, completed)
	assert.Equal(t, []LoadEventKind{LoadStart, LoadProgress, LoadComplete}, kinds(events))

	assert.True(t, tex.Loaded)
	assert.NoError(t, tex.Err)
	assert.Equal(t, uint(1), tex.Version)
	assert.Equal(t, image.Rect(0, 0, 4, 2), tex.Image.Bounds())
	assert.Equal(t, color.RGBA{10, 20, 30, 255}, tex.Image.RGBAAt(3, 1))
}

func TestAssetServer_MissingFileKeepsPlaceholder(t *testing.T) {
	s := NewAssetServer(1)
	defer s.Close()

	var sunk []LoadEvent
	s.Sink = func(ev LoadEvent) { sunk = append(sunk, ev) }

	calls := 0
	s.readFile = func(path string) ([]byte, error) {
		calls++
		return os.ReadFile(path)
	}

	id := s.LoadTexture(filepath.Join(t.TempDir(), "missing.png"))
	events := pollUntil(t, s, completed)

	assert.Equal(t, []LoadEventKind{LoadStart, LoadError, LoadProgress, LoadComplete}, kinds(events))
	assert.Equal(t, events, sunk)
	assert.ErrorIs(t, events[1].Err, os.ErrNotExist)
	assert.Equal(t, 1, calls, "missing files are not retried")

	tex, _ := s.Texture(id)
	assert.False(t, tex.Loaded)
	assert.Error(t, tex.Err)
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, tex.Image.RGBAAt(0, 0))
}

func TestAssetServer_RetriesTransientErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flaky.png")
	writePNG(t, path, 2, 2, color.RGBA{0, 255, 0, 255})

	s := NewAssetServer(1)
	defer s.Close()
	failures := 2
	s.readFile = func(p string) ([]byte, error) {
		if failures > 0 {
			failures--
			return nil, errors.New("device busy")
		}
		return os.ReadFile(p)
	}

	id := s.LoadTexture(path)
	pollUntil(t, s, completed)

	tex, _ := s.Texture(id)
	assert.True(t, tex.Loaded)
	assert.Zero(t, failures)
}

func TestAssetServer_UndecodableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.jpg")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o644))

	s := NewAssetServer(1)
	defer s.Close()
	id := s.LoadTexture(path)
	events := pollUntil(t, s, completed)

	assert.Contains(t, kinds(events), LoadError)
	tex, _ := s.Texture(id)
	assert.False(t, tex.Loaded)
}

func TestAssetServer_BatchCounts(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"a.png", "b.png", "c.png"} {
		p := filepath.Join(dir, name)
		writePNG(t, p, 1, 1, color.RGBA{1, 2, 3, 255})
		paths = append(paths, p)
	}

	s := NewAssetServer(3)
	defer s.Close()
	for _, p := range paths {
		s.LoadTexture(p)
	}
	events := pollUntil(t, s, completed)

	last := events[len(events)-1]
	assert.Equal(t, LoadComplete, last.Kind)
	assert.Equal(t, 3, last.Loaded)
	assert.Equal(t, 3, last.Total)
	assert.Equal(t, LoadStart, events[0].Kind)
}

func TestAssetServer_HotReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "live.png")
	writePNG(t, path, 1, 1, color.RGBA{255, 0, 0, 255})

	s := NewAssetServer(1)
	defer s.Close()
	id := s.LoadTexture(path)
	pollUntil(t, s, completed)
	require.NoError(t, s.Watch())

	writePNG(t, path, 2, 2, color.RGBA{0, 0, 255, 255})
	tex, _ := s.Texture(id)
	pollUntil(t, s, func([]LoadEvent) bool {
		return tex.Image.Bounds().Dx() == 2 && tex.Image.RGBAAt(1, 1).B == 255
	})
	assert.GreaterOrEqual(t, tex.Version, uint(2))
}

func TestAssetServer_CloseIsIdempotent(t *testing.T) {
	s := NewAssetServer(2)
	s.Close()
	s.Close()
	s.LoadTexture("after-close.png")
	assert.Empty(t, s.Poll())
}

func TestLoadDoorTextures(t *testing.T) {
	s := NewAssetServer(1)
	defer s.Close()
	maps := LoadDoorTextures(s, "static/textures")

	for _, id := range []AssetId{maps.Color, maps.Alpha, maps.Height, maps.Normal, maps.AmbientOcclusion, maps.Metalness, maps.Roughness} {
		tex, ok := s.Texture(id)
		require.True(t, ok)
		assert.Equal(t, "door", filepath.Base(filepath.Dir(tex.Path)))
	}
	colorMap, _ := s.Texture(maps.Color)
	assert.Equal(t, ColorSpaceSRGB, colorMap.ColorSpace)
	alpha, _ := s.Texture(maps.Alpha)
	assert.Equal(t, ColorSpaceLinear, alpha.ColorSpace)
	assert.Equal(t, WrapClampToEdge, alpha.Wrap)
}

func TestLoadEventKind_String(t *testing.T) {
	assert.Equal(t, "complete", LoadComplete.String())
	assert.Equal(t, "LoadEventKind(9)", LoadEventKind(9).String())
}
