package spincube

import (
	"math"
	"time"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// Tween drives one float32 field through a gween tween. Repeats are counted
// here; the gween tween only evaluates the eased value for the current lap.
type Tween struct {
	target   *float32
	from     float32
	to       float32
	duration float64
	elapsed  float64
	easing   ease.TweenFunc
	repeat   int // remaining repeats, -1 forever
	tween    *gween.Tween
}

type TweenOption func(*Tween)

func WithEase(fn ease.TweenFunc) TweenOption {
	return func(t *Tween) { t.easing = fn }
}

// WithRepeat replays the tween n more times; -1 repeats forever.
func WithRepeat(n int) TweenOption {
	return func(t *Tween) { t.repeat = n }
}

// Done reports whether the tween has finished and will not repeat.
func (t *Tween) Done() bool {
	return t.repeat == 0 && t.elapsed >= t.duration
}

func (t *Tween) step(dt float64) {
	t.elapsed += dt
	if t.duration <= 0 {
		*t.target = t.to
		return
	}
	for t.elapsed >= t.duration && t.repeat != 0 {
		t.elapsed -= t.duration
		if t.repeat > 0 {
			t.repeat--
		}
	}
	*t.target, _ = t.tween.Set(float32(t.elapsed))
}

// Tweener animates float32 fields toward target values over time.
type Tweener struct {
	tweens []*Tween
	last   float64
	primed bool
}

// To starts animating target from its current value to to.
func (tw *Tweener) To(target *float32, to float32, duration time.Duration, opts ...TweenOption) *Tween {
	t := &Tween{
		target:   target,
		from:     *target,
		to:       to,
		duration: duration.Seconds(),
		easing:   ease.OutQuad,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.duration <= 0 {
		t.repeat = 0
	}
	t.tween = gween.New(t.from, t.to, float32(t.duration), t.easing)
	tw.tweens = append(tw.tweens, t)
	return t
}

// Advance steps every tween by dt seconds and drops finished ones.
func (tw *Tweener) Advance(dt float64) {
	if dt < 0 {
		dt = 0
	}
	alive := tw.tweens[:0]
	for _, t := range tw.tweens {
		t.step(dt)
		if !t.Done() {
			alive = append(alive, t)
		}
	}
	clear(tw.tweens[len(alive):])
	tw.tweens = alive
}

func (tw *Tweener) Active() int {
	return len(tw.tweens)
}

// AdvanceTo steps by the time passed since the previous call.
func (tw *Tweener) AdvanceTo(elapsed float64) {
	if !tw.primed {
		tw.last = elapsed
		tw.primed = true
	}
	tw.Advance(elapsed - tw.last)
	tw.last = elapsed
}

const spinTweenDuration = 2 * time.Second

// SpinActionsModule registers the spin actions on the parameter store. It
// needs the scene to be installed first.
type SpinActionsModule struct{}

func (SpinActionsModule) Install(app *App, cmd *Commands) {
	params := Resource[Params](app)
	scene := Resource[Scene](app)
	if params == nil || scene == nil {
		panic("SpinActionsModule requires ParamsModule and SceneModule")
	}
	tweener := &Tweener{}
	cmd.AddResources(tweener)

	rot := &scene.Mesh.Rotation
	full := float32(2 * math.Pi)
	params.AddAction("spinX", func() {
		tweener.To(&rot[0], rot[0]+full, spinTweenDuration)
	})
	params.AddAction("spinY", func() {
		tweener.To(&rot[1], rot[1]+full, spinTweenDuration)
	})
	params.AddAction("spinZ", func() {
		tweener.To(&rot[2], rot[2]+full, spinTweenDuration)
	})
	params.AddAction("rotateY", func() {
		tweener.To(&rot[1], rot[1]+full, spinTweenDuration, WithEase(ease.Linear), WithRepeat(-1))
	})

	app.UseSystem(
		System(tweenSystem).
			InStage(Update),
	)
}

func tweenSystem(clock *Clock, tweener *Tweener) {
	tweener.AdvanceTo(clock.Elapsed)
}
