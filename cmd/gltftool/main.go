// gltftool inspects glTF assets and dry-runs their loading against a
// headless graphics context.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-gltf/internal/asset"
	"github.com/Faultbox/midgard-gltf/internal/config"
	"github.com/Faultbox/midgard-gltf/internal/drawcmd"
	"github.com/Faultbox/midgard-gltf/internal/fetch"
	"github.com/Faultbox/midgard-gltf/internal/gfx/headless"
	"github.com/Faultbox/midgard-gltf/internal/jobs"
	"github.com/Faultbox/midgard-gltf/internal/logger"
	"github.com/Faultbox/midgard-gltf/internal/model"
)

const frameInterval = time.Second / 60

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "info":
		err = cmdInfo(args)
	case "load":
		err = cmdLoad(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`gltftool - glTF asset utility

Usage:
  gltftool <command> [options]

Commands:
  info <file.gltf|file.glb>          Show the asset's tables
  load [options] <file.gltf|.glb>    Load the asset headlessly, frame by frame

Load options:
  -async          Spread GPU object creation over frames
  -budget N       Jobs per frame when -async is set (default 1)
  -incremental    Draw before textures are uploaded
  -frames N       Give up after N frames (default 1000)
  -config PATH    Read loader settings from a .yaml or .toml file
  -debug          Debug logging

Examples:
  gltftool info duck.gltf
  gltftool load -async -budget 2 -incremental duck.glb`)
}

func cmdInfo(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: gltftool info <file>")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	a, err := asset.Parse(data)
	if err != nil {
		return err
	}

	fmt.Printf("Asset:      %s\n", args[0])
	fmt.Printf("Version:    %s\n", a.Version)
	if a.Generator != "" {
		fmt.Printf("Generator:  %s\n", a.Generator)
	}
	var exts []string
	for e := range a.ExtensionsUsed {
		exts = append(exts, e)
	}
	sort.Strings(exts)
	if len(exts) > 0 {
		fmt.Printf("Extensions: %s\n", strings.Join(exts, ", "))
	}
	fmt.Printf("Techniques: %d", len(a.Techniques))
	if a.SynthesizedTechniques {
		fmt.Print(" (generated)")
	}
	fmt.Println()
	fmt.Println()

	fmt.Printf("Nodes (%d):\n", len(a.Nodes))
	for i, n := range a.Nodes {
		line := fmt.Sprintf("  %3d %-24s", i, orUnnamed(n.Name))
		if n.Mesh != nil {
			line += fmt.Sprintf(" mesh=%d", *n.Mesh)
		}
		if n.Skin != nil {
			line += fmt.Sprintf(" skin=%d", *n.Skin)
		}
		if len(n.Children) > 0 {
			line += fmt.Sprintf(" children=%v", n.Children)
		}
		fmt.Println(line)
	}

	fmt.Printf("Meshes (%d):\n", len(a.Meshes))
	for i, m := range a.Meshes {
		fmt.Printf("  %3d %-24s primitives=%d\n", i, orUnnamed(m.Name), len(m.Primitives))
	}

	fmt.Printf("Materials (%d):\n", len(a.Materials))
	for i, m := range a.Materials {
		fmt.Printf("  %3d %-24s technique=%d alpha=%s values=%d\n",
			i, orUnnamed(m.Name), m.Technique, m.AlphaMode, len(m.Values))
	}

	fmt.Printf("Animations: %d  Skins: %d  Textures: %d  Articulations: %d\n",
		len(a.Animations), len(a.Skins), len(a.Textures), len(a.Articulations))
	return nil
}

func orUnnamed(name string) string {
	if name == "" {
		return "(unnamed)"
	}
	return name
}

// cmdLoad returns instead of exiting so the model and logger are released.
func cmdLoad(args []string) error {
	fs := flag.NewFlagSet("load", flag.ContinueOnError)
	async := fs.Bool("async", false, "Spread GPU object creation over frames")
	budget := fs.Int("budget", 1, "Jobs per frame when -async is set")
	incremental := fs.Bool("incremental", false, "Draw before textures are uploaded")
	maxFrames := fs.Int("frames", 1000, "Give up after N frames")
	configPath := fs.String("config", "", "Config file (.yaml or .toml)")
	debug := fs.Bool("debug", false, "Debug logging")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("usage: gltftool load [options] <file>")
	}
	path := fs.Arg(0)

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadFile(*configPath); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	level := cfg.Logging.Level
	if *debug {
		level = "debug"
	}
	if err := logger.Init(level, cfg.Logging.LogFile); err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logger.Sync()

	opts := model.OptionsFromConfig(cfg)
	opts.Asynchronous = *async
	opts.IncrementallyLoadTextures = *incremental

	sched := jobs.NewScheduler(jobs.PerFrame(*budget))
	ctx := headless.NewDefault()
	if !cfg.Render.Stencil {
		caps := ctx.Capabilities()
		caps.StencilBuffer = false
		ctx.SetCapabilities(caps)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	fetcher := fetch.NewDir(filepath.Dir(abs))
	m := model.New(model.Source{URI: filepath.Base(abs)}, opts, nil, fetcher)
	defer func() {
		if err := m.Destroy(); err != nil {
			logger.Warn("destroy failed", zap.Error(err))
		}
	}()

	var cmds []*drawcmd.DrawCommand
	prev := model.State(-1)
	frame := 0
	for ; frame < *maxFrames; frame++ {
		sched.BeginFrame()
		cmds = cmds[:0]
		err := m.Update(&model.FrameState{
			Context:     ctx,
			Scheduler:   sched,
			FrameNumber: uint64(frame),
			Commands:    &cmds,
			Passes:      drawcmd.Passes{Render: true},
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "frame %d: %v\n", frame, err)
		}
		if s := m.State(); s != prev {
			fmt.Printf("frame %4d  %-10s jobs=%d\n", frame, s, sched.Stats().Ran())
			prev = s
		}
		if m.State() == model.Failed {
			return fmt.Errorf("%s failed to load", path)
		}
		if m.State() == model.Loaded {
			break
		}
		// external resources arrive on fetch goroutines
		time.Sleep(frameInterval)
	}
	if m.State() != model.Loaded {
		return fmt.Errorf("not loaded after %d frames", frame)
	}

	st := m.Stats()
	fmt.Println()
	fmt.Printf("Frames to load: %d\n", frame+1)
	fmt.Printf("Buffers:        %d (%d bytes)\n", ctx.Created(headless.KindBuffer), st.GeometryByteLength)
	fmt.Printf("Programs:       %d\n", ctx.Created(headless.KindProgram))
	fmt.Printf("Textures:       %d (%d bytes)\n", ctx.Created(headless.KindTexture), st.TexturesByteLength)
	fmt.Printf("Vertex arrays:  %d\n", ctx.Created(headless.KindVertexArray))
	fmt.Printf("Triangles:      %d\n", st.TrianglesLength)
	fmt.Printf("Commands:       %d\n", len(cmds))
	if s, ok := m.BoundingSphere(); ok {
		fmt.Printf("Bounds:         center=(%.3f, %.3f, %.3f) radius=%.3f\n",
			s.Center.X, s.Center.Y, s.Center.Z, s.Radius)
	}
	return nil
}
