package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/Dicklesworthstone/aerotop/internal/collector"
	"github.com/Dicklesworthstone/aerotop/internal/config"
	"github.com/Dicklesworthstone/aerotop/internal/export"
	"github.com/Dicklesworthstone/aerotop/internal/ui"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "aerotop: %v\n", err)
		os.Exit(2)
	}

	tui := !cfg.JSON && !cfg.JSONStream && term.IsTerminal(int(os.Stdout.Fd()))
	logger := log.New(os.Stderr, "aerotop: ", log.LstdFlags)
	if tui {
		logger = collector.DiscardLogger()
		if cfg.LogFile != "" {
			f, err := tea.LogToFile(cfg.LogFile, "aerotop")
			if err != nil {
				fmt.Fprintf(os.Stderr, "aerotop: %v\n", err)
				os.Exit(1)
			}
			defer f.Close()
			logger = log.Default()
		} else {
			log.SetOutput(logger.Writer())
		}
	}

	coll := collector.New(collector.NewHostProbe(), collector.Options{
		GatherTimeout: cfg.GatherTimeout,
		DisableDisk:   !cfg.EnableDisk,
		DisableTemps:  !cfg.EnableTemps,
		DisableFS:     !cfg.EnableFS,
		Logger:        logger,
		Debug:         cfg.Debug,
	})

	if tui {
		err = ui.RunTUI(cfg, coll)
	} else {
		err = runJSON(cfg, coll)
	}
	if err != nil {
		logger.Printf("%v", err)
		os.Exit(1)
	}
}

// runJSON prints one snapshot with -json, otherwise streams until
// interrupted.
func runJSON(cfg config.Config, coll *collector.Collector) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := coll.Start(cfg.Interval); err != nil {
		return err
	}
	defer coll.Stop()

	if cfg.JSON {
		select {
		case <-ctx.Done():
			return nil
		case snap := <-coll.Snapshots():
			return export.WriteJSON(os.Stdout, snap)
		}
	}
	return export.NewStreamer(os.Stdout).Run(ctx, coll.Snapshots())
}
