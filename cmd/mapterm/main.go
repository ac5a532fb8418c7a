// Command mapterm shows a dynamic shape map in the terminal. Move the mouse
// to hover a shape, click to print its id, press space to cycle its state
// and tab to jump between shapes.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/gdamore/tcell/v2"

	"github.com/inamate/dynmap/internal/host"
)

func main() {
	os.Exit(run())
}

func run() int {
	mapPath := flag.String("map", "", "Path to an SVG map (the built-in office plan when empty)")
	watchFile := flag.Bool("watch", false, "Reload the map when the file changes")
	logPath := flag.String("log", "", "Write logs to this file")
	flag.Parse()

	// The terminal is busy drawing, so logs go to a file or nowhere.
	var handler slog.Handler = slog.NewTextHandler(io.Discard, nil)
	if *logPath != "" {
		f, err := os.OpenFile(*logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
			return 1
		}
		defer f.Close()
		handler = slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	slog.SetDefault(slog.New(handler))

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

	if *watchFile && *mapPath != "" {
		if err := session.Watch(ctx, *mapPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error watching map: %v\n", err)
			return 1
		}
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening terminal: %v\n", err)
		return 1
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Error opening terminal: %v\n", err)
		return 1
	}
	defer screen.Fini()

	clicked := newApp(session, screen).loop(ctx)
	for _, id := range clicked {
		fmt.Println(id)
	}
	return 0
}
