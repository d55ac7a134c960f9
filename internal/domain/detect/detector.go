package detect

import (
	"errors"
	"fmt"
	"math"

	"github.com/forPelevin/matchcut/internal/types"
)

// Config holds the detector thresholds. All values come from configuration.
type Config struct {
	// History is how many frames before the current one are retained.
	History int
	// SpeedLag is the frame distance K over which ball speed is measured.
	SpeedLag int
	// SpeedThreshold is the pixel distance over SpeedLag frames the ball must exceed.
	SpeedThreshold float64
	// ProximityPx is the goalkeeper-to-player center distance for the proximity rule.
	ProximityPx float64
}

func (c Config) Validate() error {
	if c.SpeedLag < 0 {
		return errors.New("speed lag must be >= 0")
	}
	if c.History < c.SpeedLag {
		return fmt.Errorf("history (%d) must be >= speed lag (%d)", c.History, c.SpeedLag)
	}
	if c.ProximityPx < 0 {
		return errors.New("proximity threshold must be >= 0")
	}
	return nil
}

// Detector classifies frames one at a time. It keeps a rolling ball history
// and must be Reset (or recreated) between videos.
type Detector struct {
	cfg   Config
	hist  *history
	rules []rule
}

func NewDetector(cfg Config) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("detector: %w", err)
	}
	return &Detector{
		cfg:   cfg,
		hist:  newHistory(cfg.History + 1),
		rules: defaultRules(),
	}, nil
}

// Reset clears the ball history.
func (d *Detector) Reset() { d.hist.reset() }

// Detect records the frame's ball position and evaluates every rule. ok is
// false when no rule fired.
func (d *Detector) Detect(f types.TrackedFrame) (types.FrameEvent, bool) {
	fc := newFrameContext(f)
	d.hist.push(fc.ballPoint())
	fc.speed, fc.hasSpeed = d.speed()

	var labels []types.EventLabel
	for _, r := range d.rules {
		if r.fires(fc, d.cfg) {
			labels = append(labels, r.label)
		}
	}
	if len(labels) == 0 {
		return types.FrameEvent{}, false
	}
	return types.FrameEvent{Index: f.Index, Events: labels, Confidence: len(labels)}, true
}

// DetectAll resets the detector and runs it over an ordered stream.
func (d *Detector) DetectAll(frames []types.TrackedFrame) []types.FrameEvent {
	d.Reset()
	var out []types.FrameEvent
	for _, f := range frames {
		if ev, ok := d.Detect(f); ok {
			out = append(out, ev)
		}
	}
	return out
}

func (d *Detector) speed() (float64, bool) {
	cur, ok := d.hist.back(0)
	if !ok || !cur.ok {
		return 0, false
	}
	past, ok := d.hist.back(d.cfg.SpeedLag)
	if !ok || !past.ok {
		return 0, false
	}
	return math.Hypot(cur.x-past.x, cur.y-past.y), true
}

// frameContext is the per-frame view the rules evaluate.
type frameContext struct {
	ball        *types.BoundingBox
	goalkeepers []types.BoundingBox
	players     []types.BoundingBox
	speed       float64
	hasSpeed    bool
}

func newFrameContext(f types.TrackedFrame) frameContext {
	var fc frameContext
	if b, ok := f.First(types.RoleBall); ok && b.Valid() {
		fc.ball = &b
	}
	for _, g := range f.Roles[types.RoleGoalkeeper] {
		if g.Valid() {
			fc.goalkeepers = append(fc.goalkeepers, g)
		}
	}
	for _, p := range f.Roles[types.RolePlayer] {
		if p.Valid() {
			fc.players = append(fc.players, p)
		}
	}
	return fc
}

func (fc frameContext) ballPoint() point {
	if fc.ball == nil {
		return point{}
	}
	x, y := fc.ball.Center()
	return point{x: x, y: y, ok: true}
}

func centerDistance(a, b types.BoundingBox) float64 {
	ax, ay := a.Center()
	bx, by := b.Center()
	return math.Hypot(ax-bx, ay-by)
}
