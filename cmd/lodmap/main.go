// Command lodmap flies a camera across the terrain without a window and writes a picture of
// the level of detail chosen at the end of the flight.
package main

import (
	"flag"
	"log"
	"os"

	"voxlod/internal/camera"
	"voxlod/internal/config"
	"voxlod/internal/debugmap"
	"voxlod/internal/profiling"
	"voxlod/internal/render"
	"voxlod/internal/terrain"

	"github.com/go-gl/mathgl/mgl32"
)

var (
	configPath = flag.String("config", "", "terrain config JSON file; built-in defaults when empty")
	steps      = flag.Int("steps", 300, "number of simulated frames")
	speed      = flag.Float64("speed", 8, "camera advance per frame in voxels")
	logEvery   = flag.Int("log-every", 25, "log stats every N frames, 0 to disable")
	out        = flag.String("out", "lodmap.png", "output PNG path")
	size       = flag.Int("size", 1024, "output image side in pixels")
)

func main() {
	flag.Parse()
	log.SetFlags(log.Ltime)

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatal(err)
		}
	}

	t, err := terrain.New(cfg, &render.Discard{}, nil)
	if err != nil {
		log.Fatal(err)
	}
	defer t.Close()

	dim := float32(cfg.MapDimVoxels())
	cam := camera.New(cfg.DisplayWidth, cfg.DisplayWidth*9/16, float32(cfg.FOV), 0.5, dim*2)
	height := float32(cfg.ChunkHeight)
	// Yaw -90° turns the default -Z view towards +X.
	cam.SetOrientation(mgl32.DegToRad(-90), mgl32.DegToRad(-15))

	for i := 0; i < *steps; i++ {
		// Level flight along +X; the pitched forward vector would sink the camera.
		x := float32(float64(i) * *speed)
		if x > dim {
			x = dim
		}
		cam.SetPosition(mgl32.Vec3{x, height, dim / 2})
		profiling.ResetFrame()
		if err := t.Update(cam); err != nil {
			log.Fatal(err)
		}
		if *logEvery > 0 && i%*logEvery == 0 {
			st := t.Stats()
			p := cam.Position()
			log.Printf("step %d at (%.0f, %.0f): draw %d live %d slots %d queued %d built %d discarded %d | %s",
				i, p.X(), p.Z(), st.DrawNodes, st.LiveNodes, st.LiveGeoms, st.Queued, st.Built, st.Discarded,
				profiling.TopN(3))
		}
	}

	img := debugmap.Render(t.Tree(), *size)
	debugmap.MarkViewer(img, t.Tree(), cam.Position())

	f, err := os.Create(*out)
	if err != nil {
		log.Fatal(err)
	}
	if err := debugmap.WritePNG(f, img); err != nil {
		f.Close()
		log.Fatal(err)
	}
	if err := f.Close(); err != nil {
		log.Fatal(err)
	}
	log.Printf("wrote %s (%d nodes drawn)", *out, len(t.Tree().DrawNodes()))
}
