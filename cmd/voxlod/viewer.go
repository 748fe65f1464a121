package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"voxlod/internal/camera"
	"voxlod/internal/config"
	"voxlod/internal/debugmap"
	"voxlod/internal/input"
	"voxlod/internal/profiling"
	"voxlod/internal/terrain"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	mouseSensitivity = 0.0025 // radians per pixel
	baseSpeed        = 40.0   // world units per second
	fastFactor       = 8.0
	slowFrame        = 16 * time.Millisecond
)

type viewer struct {
	window  *glfw.Window
	terrain *terrain.Terrain
	input   *input.Manager
	cam     *camera.Camera
	limiter fpsLimiter

	wireframe    bool
	mouseCaptive bool

	frames    int
	lastFPS   time.Time
	lastTime  time.Time
	mapDumped int
}

func newViewer(window *glfw.Window, t *terrain.Terrain, im *input.Manager, cfg config.Terrain, fps int) *viewer {
	w, h := window.GetFramebufferSize()
	cam := camera.New(w, h, float32(cfg.FOV), 0.5, float32(cfg.MapDimVoxels())*2)
	half := float32(cfg.MapDimVoxels()) / 2
	cam.SetPosition(mgl32.Vec3{half, float32(cfg.ChunkHeight) * 1.2, half})
	cam.SetOrientation(0, mgl32.DegToRad(-20))

	v := &viewer{
		window:       window,
		terrain:      t,
		input:        im,
		cam:          cam,
		limiter:      fpsLimiter{limit: fps},
		mouseCaptive: true,
		lastFPS:      time.Now(),
		lastTime:     time.Now(),
	}
	window.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		gl.Viewport(0, 0, int32(width), int32(height))
		v.cam.SetViewport(width, height)
	})
	gl.Viewport(0, 0, int32(w), int32(h))
	gl.Enable(gl.DEPTH_TEST)
	gl.ClearColor(0.55, 0.7, 0.9, 1)
	return v
}

func (v *viewer) run() {
	for !v.window.ShouldClose() {
		v.tick()
	}
}

func (v *viewer) tick() {
	profiling.ResetFrame()
	start := time.Now()
	dt := start.Sub(v.lastTime).Seconds()
	v.lastTime = start

	func() { defer profiling.Track("glfw.PollEvents")(); glfw.PollEvents() }()

	v.handleActions()
	v.move(dt)

	if err := v.terrain.Update(v.cam); err != nil {
		log.Printf("terrain update: %v", err)
	}

	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
	func() { defer profiling.Track("terrain.Draw")(); v.terrain.Draw(v.cam.ViewProj()) }()
	func() { defer profiling.Track("glfw.SwapBuffers")(); v.window.SwapBuffers() }()

	if d := time.Since(start); d > slowFrame {
		log.Printf("Slow frame: %v. Top tasks: %s", d, profiling.TopN(5))
	}

	v.frames++
	if time.Since(v.lastFPS) >= time.Second {
		st := v.terrain.Stats()
		v.window.SetTitle(fmt.Sprintf("voxlod (%d FPS, %d nodes drawn, %d live, %d slots, %d queued)",
			v.frames, st.DrawNodes, st.LiveNodes, st.LiveGeoms, st.Queued))
		v.frames = 0
		v.lastFPS = time.Now()
	}

	v.input.PostUpdate()
	v.limiter.Wait()
}

func (v *viewer) handleActions() {
	if v.input.JustPressed(input.ActionQuit) {
		v.window.SetShouldClose(true)
	}
	if v.input.JustPressed(input.ActionReleaseMouse) {
		v.mouseCaptive = !v.mouseCaptive
		if v.mouseCaptive {
			v.window.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
		} else {
			v.window.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
		}
		v.input.ResetCursor()
	}
	if v.input.JustPressed(input.ActionToggleWireframe) {
		v.wireframe = !v.wireframe
		if v.wireframe {
			gl.PolygonMode(gl.FRONT_AND_BACK, gl.LINE)
		} else {
			gl.PolygonMode(gl.FRONT_AND_BACK, gl.FILL)
		}
	}
	if v.input.JustPressed(input.ActionDumpMap) {
		v.dumpMap()
	}
	if v.input.JustPressed(input.ActionLightFromView) {
		// Light the faces turned towards the camera. Slots baked earlier keep their light.
		d := v.cam.Forward().Mul(-1)
		v.terrain.Pool().SetLightDir(d)
		log.Printf("light direction %v for new geometry", d)
	}
}

func (v *viewer) move(dt float64) {
	var rot mgl32.Vec3
	if v.mouseCaptive {
		dx, dy := v.input.Look()
		rot = mgl32.Vec3{float32(dy * mouseSensitivity), float32(-dx * mouseSensitivity), 0}
	}

	var dir mgl32.Vec3
	axis := func(pos, neg input.Action) float32 {
		var a float32
		if v.input.IsActive(pos) {
			a++
		}
		if v.input.IsActive(neg) {
			a--
		}
		return a
	}
	dir[0] = axis(input.ActionMoveRight, input.ActionMoveLeft)
	dir[1] = axis(input.ActionMoveUp, input.ActionMoveDown)
	dir[2] = axis(input.ActionMoveBackward, input.ActionMoveForward)

	speed := baseSpeed
	if v.input.IsActive(input.ActionFast) {
		speed *= fastFactor
	}
	if l := dir.Len(); l > 0 {
		dir = dir.Mul(float32(speed*dt) / l)
	}
	v.cam.MoveRotate(dir, rot)
}

func (v *viewer) dumpMap() {
	img := debugmap.Render(v.terrain.Tree(), 512)
	debugmap.MarkViewer(img, v.terrain.Tree(), v.cam.Position())

	name := fmt.Sprintf("lodmap-%03d.png", v.mapDumped)
	f, err := os.Create(name)
	if err != nil {
		log.Printf("debug map: %v", err)
		return
	}
	defer f.Close()
	if err := debugmap.WritePNG(f, img); err != nil {
		log.Printf("debug map: %v", err)
		return
	}
	v.mapDumped++
	log.Printf("wrote %s", name)
}
