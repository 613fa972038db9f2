// Command lawny renders a grid of spinning spheres with the instanced pipeline. Keys 1, 2 and 3
// switch between the flat, lit and lit_tinted variants; WASD moves, left-drag orbits, the scroll
// wheel zooms, Space pauses the spin and P toggles the profiler.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/lawny-go/common"
	"github.com/Carmen-Shannon/lawny-go/engine"
	"github.com/Carmen-Shannon/lawny-go/engine/camera"
	"github.com/Carmen-Shannon/lawny-go/engine/mesh"
	"github.com/Carmen-Shannon/lawny-go/engine/renderer"
	"github.com/Carmen-Shannon/lawny-go/engine/renderer/instance"
	"github.com/Carmen-Shannon/lawny-go/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/lawny-go/engine/renderer/shading"
	"github.com/Carmen-Shannon/lawny-go/engine/renderer/variant"
	"github.com/Carmen-Shannon/lawny-go/engine/window"
)

// moveSpeed is the WASD camera speed in world units per second.
const moveSpeed = 20

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		common.Logger().Error("lawny failed", "error", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return err
	}
	level, _ := cfg.Level()
	common.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	active, _ := variant.Parse(cfg.Render.Variant)
	presentMode, _ := renderer.ParsePresentMode(cfg.Render.PresentMode)

	// ── Window ──────────────────────────────────────────────────────
	win, err := window.NewWindow(
		window.WithTitle(cfg.Window.Title),
		window.WithSize(cfg.Window.Width, cfg.Window.Height),
	)
	if err != nil {
		return err
	}

	// ── Pipelines ───────────────────────────────────────────────────
	descriptors := make([]pipeline.Descriptor, 0, len(variant.Variants()))
	for _, v := range variant.Variants() {
		pair, err := shading.NewStagePair(v)
		if err != nil {
			return err
		}
		d, err := pipeline.NewDescriptor(v, pair)
		if err != nil {
			return err
		}
		descriptors = append(descriptors, d)
	}

	// ── Renderer ────────────────────────────────────────────────────
	r, err := renderer.NewRenderer(
		renderer.BackendTypeWGPU,
		win,
		renderer.WithPresentMode(presentMode),
		renderer.WithMSAA(renderer.MSAASampleCount(cfg.Render.MSAA)),
		renderer.WithForceSoftwareRenderer(cfg.Render.SoftwareAdapter),
		renderer.WithDescriptors(descriptors...),
	)
	if err != nil {
		return err
	}
	defer r.Release()

	// ── Scene ───────────────────────────────────────────────────────
	seed := common.Coalesce(cfg.Scene.Seed, time.Now().UnixNano())
	lawn := newGrid(cfg.Scene.GridSide, cfg.Scene.Spacing, cfg.Scene.SpinSpeed, seed)
	radius := lawn.Radius()

	cam := camera.NewCamera(
		camera.WithEye(0, radius*0.8, radius*1.6),
		camera.WithTarget(0, 0, 0),
		camera.WithFovy(float32(60*math.Pi/180)),
		camera.WithAspect(float32(win.Width())/float32(win.Height())),
		camera.WithClipPlanes(0.1, radius*10),
	)
	uniforms := camera.NewUniformManager()
	if err := r.InitCamera(uniforms); err != nil {
		return err
	}

	pool := worker.NewDynamicWorkerPool(max(runtime.NumCPU()-1, 1), 256, 1*time.Second)
	defer pool.Stop()

	batches := make(map[variant.Variant]renderer.Batch, len(descriptors))
	for _, d := range descriptors {
		b, err := newBatch(r, d, cfg.Scene.Subdivisions, uint32(lawn.Len()), pool)
		if err != nil {
			return err
		}
		defer b.Instances.Release()
		batches[d.Variant()] = b
	}

	var current atomic.Int32
	current.Store(int32(active))

	// Every buffer starts filled so switching variants never shows stale records.
	models := lawn.Models(0)
	for v, b := range batches {
		if err := b.Instances.WriteBatch(0, models, tintsFor(v, lawn)); err != nil {
			return err
		}
	}

	// ── Engine ──────────────────────────────────────────────────────
	eng := engine.NewEngine(
		engine.WithProfiling(cfg.Profiling),
		engine.WithTickRate(cfg.Render.TickRate),
		engine.WithRenderFrameLimit(cfg.Render.FrameLimit),
		engine.WithWindow(win),
		engine.WithRenderer(r),
		engine.WithCamera(cam, uniforms),
		engine.WithBatchSource(func() []renderer.Batch {
			return []renderer.Batch{batches[variant.Variant(current.Load())]}
		}),
	)

	// ── Input ───────────────────────────────────────────────────────
	in := newInput(cam, win, radius)
	profiling := cfg.Profiling
	win.SetKeyDownCallback(func(key uint32) {
		switch key {
		case common.Key1, common.Key2, common.Key3:
			v := variant.Variant(key - common.Key1)
			if current.Swap(int32(v)) != int32(v) {
				common.Logger().Info("variant", "name", v.String())
			}
		case common.KeySpace:
			in.togglePause()
		case common.KeyP:
			if profiling = !profiling; profiling {
				eng.EnableProfiler()
			} else {
				eng.DisableProfiler()
			}
		default:
			in.press(key)
		}
	})
	win.SetKeyUpCallback(in.release)
	win.SetScrollCallback(in.zoom)
	win.SetDragStartCallback(in.dragStart)
	win.SetMouseMoveCallback(in.drag)
	win.SetDragEndCallback(in.dragEnd)

	// ── Simulation ──────────────────────────────────────────────────
	var elapsed float32
	eng.SetTickCallback(func(dt float32) {
		in.move(dt)
		if in.paused() {
			return
		}
		elapsed += dt
		v := variant.Variant(current.Load())
		if err := batches[v].Instances.WriteBatch(0, lawn.Models(elapsed), tintsFor(v, lawn)); err != nil {
			common.Logger().Warn("instance write failed", "variant", v.String(), "error", err)
		}
	})

	common.Logger().Info("lawny started",
		"variant", active.String(),
		"instances", lawn.Len(),
		"present_mode", cfg.Render.PresentMode,
		"msaa", cfg.Render.MSAA,
	)
	return eng.Run()
}

// newBatch uploads a sphere laid out for d's variant and allocates a full transform buffer for it.
func newBatch(r renderer.Renderer, d pipeline.Descriptor, subdivisions, count uint32, pool worker.DynamicWorkerPool) (renderer.Batch, error) {
	sphere, err := mesh.UVSphere(subdivisions)
	if err != nil {
		return renderer.Batch{}, err
	}
	if err := r.InitMesh(sphere, d.Variant()); err != nil {
		return renderer.Batch{}, err
	}
	instances, err := r.NewTransformBuffer(d.Variant(),
		instance.WithCapacity(count),
		instance.WithWorkerPool(pool),
	)
	if err != nil {
		return renderer.Batch{}, err
	}
	return renderer.Batch{
		Descriptor:    d,
		Mesh:          sphere,
		Instances:     instances,
		InstanceCount: count,
	}, nil
}

// tintsFor returns the per-instance colours for variants whose records carry one.
func tintsFor(v variant.Variant, g *grid) [][3]float32 {
	if !v.HasColor() {
		return nil
	}
	return g.Tints()
}

// input turns window events into camera motion. Window callbacks run on the main thread and
// move runs on the tick goroutine.
type input struct {
	mu        sync.Mutex
	cam       camera.Camera
	win       window.Window
	trackball camera.Trackball
	held      map[uint32]bool
	dragging  bool
	last      camera.Ray
	stopped   bool
}

func newInput(cam camera.Camera, win window.Window, radius float32) *input {
	return &input{
		cam:       cam,
		win:       win,
		trackball: camera.NewTrackball([3]float32{}, radius),
		held:      make(map[uint32]bool),
	}
}

func (in *input) press(key uint32) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.held[key] = true
}

func (in *input) release(key uint32) {
	in.mu.Lock()
	defer in.mu.Unlock()
	delete(in.held, key)
}

func (in *input) togglePause() {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.stopped = !in.stopped
}

func (in *input) paused() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.stopped
}

func (in *input) move(dt float32) {
	in.mu.Lock()
	var forward, right float32
	if in.held[common.KeyW] {
		forward++
	}
	if in.held[common.KeyS] {
		forward--
	}
	if in.held[common.KeyD] {
		right++
	}
	if in.held[common.KeyA] {
		right--
	}
	in.mu.Unlock()

	if forward != 0 || right != 0 {
		in.cam.Move(forward*moveSpeed*dt, right*moveSpeed*dt)
	}
}

func (in *input) zoom(delta float32) {
	in.cam.Zoom(delta * in.trackball.Radius * 0.1)
}

func (in *input) ray(x, y float32) camera.Ray {
	return in.cam.Ray(x, y, float32(in.win.Width()), float32(in.win.Height()))
}

func (in *input) dragStart(x, y float32) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.dragging = true
	in.last = in.ray(x, y)
}

func (in *input) drag(x, y float32) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if !in.dragging {
		return
	}
	axis, angle, ok := in.trackball.Compute(in.last, in.ray(x, y))
	if !ok {
		return
	}
	// Rotating the camera against the drag makes the lawn follow the cursor.
	in.cam.Orbit(in.trackball.Center, axis, -angle)
	in.last = in.ray(x, y)
}

func (in *input) dragEnd(float32, float32) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.dragging = false
}
