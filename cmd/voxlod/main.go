package main

import (
	"flag"
	"log"
	"net/http"
	"runtime"

	"voxlod/internal/config"
	"voxlod/internal/input"
	"voxlod/internal/render/glrender"
	"voxlod/internal/terrain"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	configPath  = flag.String("config", "", "terrain config JSON file; built-in defaults when empty")
	metricsAddr = flag.String("metrics", "", "serve Prometheus metrics on this address, e.g. :9100")
	fpsLimit    = flag.Int("fps", 0, "frame rate cap, 0 for none")
	winW        = flag.Int("width", 1280, "window width")
	winH        = flag.Int("height", 720, "window height")
)

func init() {
	// GL contexts are bound to the OS thread that created them.
	runtime.LockOSThread()
	log.SetFlags(log.Ltime | log.Lshortfile)
}

func main() {
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatal(err)
		}
	}
	cfg.DisplayWidth = *winW

	if err := glfw.Init(); err != nil {
		log.Fatalf("Failed to initialize GLFW: %v", err)
	}
	defer glfw.Terminate()

	window, err := setupWindow(*winW, *winH)
	if err != nil {
		log.Fatalf("Failed to create window: %v", err)
	}

	if err := gl.Init(); err != nil {
		log.Fatalf("Failed to initialize OpenGL: %v", err)
	}

	r, err := glrender.New()
	if err != nil {
		panic(err)
	}
	defer r.Delete()

	reg := prometheus.NewRegistry()
	t, err := terrain.New(cfg, r, reg)
	if err != nil {
		panic(err)
	}
	defer t.Close()

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			log.Printf("serving metrics on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				log.Printf("metrics server: %v", err)
			}
		}()
	}

	im := input.NewManager()
	im.Install(window)

	v := newViewer(window, t, im, cfg, *fpsLimit)
	v.run()
}

func setupWindow(width, height int) (*glfw.Window, error) {
	glfw.DefaultWindowHints()
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	window, err := glfw.CreateWindow(width, height, "voxlod", nil, nil)
	if err != nil {
		return nil, err
	}
	window.MakeContextCurrent()

	glfw.SwapInterval(0)
	window.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)

	return window, nil
}
