package spincube

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeTime struct {
	now time.Time
}

func (f *fakeTime) Now() time.Time { return f.now }

func (f *fakeTime) Advance(d time.Duration) { f.now = f.now.Add(d) }

func click(in *Input) {
	in.SetKey(MouseButtonLeft, true)
	in.SetKey(MouseButtonLeft, false)
}

func TestInput_SetKeyEdges(t *testing.T) {
	in := NewInput()
	in.BeginFrame()
	in.SetKey(KeyG, true)
	assert.True(t, in.Pressed[KeyG])
	assert.True(t, in.JustPressed[KeyG])

	in.BeginFrame()
	in.SetKey(KeyG, true)
	assert.True(t, in.Pressed[KeyG])
	assert.False(t, in.JustPressed[KeyG], "held keys do not press again")

	in.SetKey(KeyG, false)
	assert.True(t, in.JustReleased[KeyG])
	assert.False(t, in.Pressed[KeyG])

	in.SetKey(-1, true)
	in.SetKey(keyCount, true)
}

func TestInput_FirstFrameIsResized(t *testing.T) {
	in := NewInput()
	in.BeginFrame()
	assert.True(t, in.Resized)
	in.BeginFrame()
	assert.False(t, in.Resized)

	in.RequestResize()
	in.BeginFrame()
	assert.True(t, in.Resized)
}

func TestInput_CursorDelta(t *testing.T) {
	in := NewInput()
	in.BeginFrame()
	in.MoveCursor(10, 10)
	assert.Zero(t, in.MouseDeltaX, "first position has no delta")

	in.BeginFrame()
	in.MoveCursor(15, 7)
	assert.Equal(t, 5.0, in.MouseDeltaX)
	assert.Equal(t, -3.0, in.MouseDeltaY)

	in.Scroll(1)
	in.Scroll(2)
	assert.Equal(t, 3.0, in.ScrollY)
	in.BeginFrame()
	assert.Zero(t, in.ScrollY)
}

func TestInput_DoubleClick(t *testing.T) {
	clock := &fakeTime{now: time.Unix(100, 0)}
	in := NewInput()
	in.Now = clock.Now

	in.BeginFrame()
	click(in)
	assert.False(t, in.DoubleClicked)

	clock.Advance(200 * time.Millisecond)
	in.BeginFrame()
	click(in)
	assert.True(t, in.DoubleClicked)

	// too slow
	clock.Advance(time.Second)
	in.BeginFrame()
	click(in)
	clock.Advance(500 * time.Millisecond)
	in.BeginFrame()
	click(in)
	assert.False(t, in.DoubleClicked)
}

func TestKeyFromName(t *testing.T) {
	k, ok := KeyFromName("g")
	assert.True(t, ok)
	assert.Equal(t, KeyG, k)

	k, ok = KeyFromName(" H ")
	assert.True(t, ok)
	assert.Equal(t, KeyH, k)

	k, ok = KeyFromName("Space")
	assert.True(t, ok)
	assert.Equal(t, KeySpace, k)

	_, ok = KeyFromName("f13")
	assert.False(t, ok)
}

func TestFullscreenSystem_DoubleClickToggles(t *testing.T) {
	clock := &fakeTime{now: time.Unix(100, 0)}
	app := NewApp().UseModules(InputModule{}, HeadlessModule{Width: 320, Height: 240})
	input := Resource[Input](app)
	display := Resource[HeadlessDisplay](app)
	input.Now = clock.Now

	step := func(events func()) {
		input.BeginFrame()
		events()
		fullscreenSystem(input, Resource[Screen](app), app.Commands())
	}

	step(func() {
		click(input)
		clock.Advance(100 * time.Millisecond)
		click(input)
	})
	assert.True(t, display.Fullscreen())

	clock.Advance(time.Second)
	step(func() {
		click(input)
		clock.Advance(100 * time.Millisecond)
		click(input)
	})
	assert.False(t, display.Fullscreen(), "second double-click reverts")

	display.SetFullscreen(true)
	step(func() { input.SetKey(KeyEscape, true) })
	assert.False(t, display.Fullscreen(), "escape leaves fullscreen")
}

func TestDisplayCloseSystem_Quits(t *testing.T) {
	app := NewApp().UseModules(InputModule{}, HeadlessModule{})
	Resource[HeadlessDisplay](app).Close()
	app.Run()
	assert.Equal(t, uint64(1), app.Frame())
}
