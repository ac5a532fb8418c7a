// Command mapview shows a dynamic shape map in a desktop window. Hovering
// highlights a shape and clicking prints its id.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/inamate/dynmap/internal/host"
)

func main() {
	os.Exit(run())
}

func run() int {
	mapPath := flag.String("map", "", "Path to an SVG map (the built-in office plan when empty)")
	watchFile := flag.Bool("watch", false, "Reload the map when the file changes")
	scale := flag.Float64("scale", 1, "Initial zoom factor")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	session := host.NewSession()
	if *mapPath == "" {
		if err := session.LoadSample(); err != nil {
			fmt.Fprintf(os.Stderr, "Error loading sample map: %v\n", err)
			return 1
		}
	} else if err := session.LoadFile(*mapPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading map: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *watchFile {
		if *mapPath == "" {
			fmt.Fprintln(os.Stderr, "-watch needs -map")
			return 1
		}
		if err := session.Watch(ctx, *mapPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error watching map: %v\n", err)
			return 1
		}
	}

	viewer := newViewer(session, *scale)
	vb := session.ViewBox()
	zoom := *scale
	ebiten.SetWindowSize(int(vb.Width*zoom), int(vb.Height*zoom))
	ebiten.SetWindowTitle("mapview")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	if err := ebiten.RunGame(viewer); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
