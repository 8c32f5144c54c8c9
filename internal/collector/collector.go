// Package collector polls the host on a fixed interval and emits one
// immutable model.Snapshot per successful tick.
package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Dicklesworthstone/aerotop/internal/model"
	"github.com/Dicklesworthstone/aerotop/internal/proctree"
)

// ErrAlreadyStarted is returned by a second call to Start.
var ErrAlreadyStarted = errors.New("collector: already started")

const minGatherTimeout = 250 * time.Millisecond

// Options tune a Collector. The zero value gathers every source and logs to
// log.Default().
type Options struct {
	// GatherTimeout bounds one tick's gather. Zero means the interval.
	GatherTimeout time.Duration
	DisableDisk   bool
	DisableTemps  bool
	DisableFS     bool
	Logger        *log.Logger
	// Debug logs optional sources that degrade and slow ticks.
	Debug bool
}

// Collector gathers snapshots from a Probe.
type Collector struct {
	probe Probe
	opts  Options
	log   *log.Logger
	now   func() time.Time

	history  *History
	cpuFacts *model.CPUFacts
	osInfo   *model.OS

	out chan model.Snapshot

	mu      sync.Mutex
	latest  *model.Snapshot
	cancel  context.CancelFunc
	done    chan struct{}
	started atomic.Bool
}

func New(probe Probe, opts Options) *Collector {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Collector{
		probe:   probe,
		opts:    opts,
		log:     logger,
		now:     time.Now,
		history: NewHistory(model.HistoryCapacity),
		out:     make(chan model.Snapshot, 1),
	}
}

// Snapshots delivers one snapshot per successful tick. At most one snapshot
// is buffered; an unread snapshot is replaced by the next one.
func (c *Collector) Snapshots() <-chan model.Snapshot { return c.out }

// Start collects once right away and then every interval until Stop.
// It may be called only once.
func (c *Collector) Start(interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("collector: interval must be positive, got %v", interval)
	}
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.mu.Lock()
	c.cancel, c.done = cancel, done
	c.mu.Unlock()

	go c.loop(ctx, interval, done)
	return nil
}

// Stop prevents further ticks and waits for the polling goroutine to exit.
// A tick already gathering runs to completion and still emits.
func (c *Collector) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Ticks run one after another on this goroutine. A gather slower than the
// interval makes the ticker drop the firings it missed, so ticks never
// overlap.
func (c *Collector) loop(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)
	c.tick(interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			c.tick(interval)
		}
	}
}

func (c *Collector) tick(interval time.Duration) {
	timeout := c.opts.GatherTimeout
	if timeout <= 0 {
		timeout = interval
	}
	if timeout < minGatherTimeout {
		timeout = minGatherTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	begin := time.Now()
	snap, err := c.Collect(ctx)
	if err != nil {
		c.log.Printf("collector: tick skipped: %v", err)
		return
	}
	if took := time.Since(begin); took > interval {
		c.debugf("collector: tick took %v, longer than the %v interval", took, interval)
	}
	c.publish(snap)
}

// Collect runs one gather and assembles a snapshot without emitting it.
// Any required source failing aborts the whole gather. Collect must not be
// called concurrently with itself or with a running collector.
func (c *Collector) Collect(ctx context.Context) (model.Snapshot, error) {
	now := c.now()

	var (
		facts  model.CPUFacts
		osInfo model.OS
		load   model.CPULoad
		procs  model.Processes
		mem    model.Memory
		uptime uint64
		ifaces []model.NetIface
		diskIO *model.DiskIO
		temp   *model.Temperature
		fsList []model.Filesystem
	)
	g, gctx := errgroup.WithContext(ctx)

	required := func(name string, fn func(context.Context) error) {
		g.Go(func() error {
			if err := fn(gctx); err != nil {
				return fmt.Errorf("gather %s: %w", name, err)
			}
			return nil
		})
	}
	optional := func(name string, disabled bool, fn func(context.Context) error) {
		if disabled {
			return
		}
		g.Go(func() error {
			if err := fn(gctx); err != nil {
				c.debugf("collector: %s unavailable: %v", name, err)
			}
			return nil
		})
	}

	required("cpu facts", func(ctx context.Context) (err error) {
		facts, err = c.staticCPU(ctx)
		return err
	})
	required("os info", func(ctx context.Context) (err error) {
		osInfo, err = c.staticOS(ctx)
		return err
	})
	required("cpu load", func(ctx context.Context) (err error) {
		load, err = c.probe.CPULoad(ctx)
		return err
	})
	required("processes", func(ctx context.Context) (err error) {
		procs, err = c.probe.Processes(ctx)
		return err
	})
	required("memory", func(ctx context.Context) (err error) {
		mem, err = c.probe.Memory(ctx)
		return err
	})
	required("uptime", func(ctx context.Context) (err error) {
		uptime, err = c.probe.Uptime(ctx)
		return err
	})
	required("network", func(ctx context.Context) (err error) {
		ifaces, err = c.probe.Network(ctx)
		return err
	})
	optional("disk io", c.opts.DisableDisk, func(ctx context.Context) error {
		d, err := c.probe.DiskIO(ctx)
		if err != nil {
			return err
		}
		diskIO = &d
		return nil
	})
	optional("temperature", c.opts.DisableTemps, func(ctx context.Context) error {
		t, err := c.probe.Temperature(ctx)
		if err != nil {
			return err
		}
		temp = &t
		return nil
	})
	optional("filesystems", c.opts.DisableFS, func(ctx context.Context) error {
		fs, err := c.probe.Filesystems(ctx)
		if err != nil {
			return err
		}
		fsList = fs
		return nil
	})

	if err := g.Wait(); err != nil {
		return model.Snapshot{}, err
	}

	procs.List = rankProcesses(procs.List, model.ProcessLimit)

	perCore := make([]float64, len(load.PerCore))
	for i, core := range load.PerCore {
		perCore[i] = core.Load
	}
	c.history.Push(model.CPUHistoryEntry{Timestamp: now, OverallLoad: load.Overall, PerCore: perCore})

	return model.Snapshot{
		Timestamp: now,
		CPU: model.CPU{
			Model:         facts.Model,
			LogicalCores:  facts.LogicalCores,
			PhysicalCores: facts.PhysicalCores,
			SpeedGHz:      facts.SpeedGHz,
			OverallLoad:   load.Overall,
			UserLoad:      load.User,
			SystemLoad:    load.System,
			PerCore:       load.PerCore,
			History:       c.history.Entries(),
		},
		Memory:        mem,
		Processes:     procs,
		Load:          model.Load{Avg1: load.Avg1, CurrentLoad: load.Overall},
		UptimeSeconds: uptime,
		Network:       ifaces,
		Disk:          diskIO,
		Temperature:   temp,
		Filesystems:   fsList,
		OS:            osInfo,
	}, nil
}

func (c *Collector) staticCPU(ctx context.Context) (model.CPUFacts, error) {
	if c.cpuFacts != nil {
		return *c.cpuFacts, nil
	}
	f, err := c.probe.CPUFacts(ctx)
	if err != nil {
		return model.CPUFacts{}, err
	}
	c.cpuFacts = &f
	return f, nil
}

func (c *Collector) staticOS(ctx context.Context) (model.OS, error) {
	if c.osInfo != nil {
		return *c.osInfo, nil
	}
	o, err := c.probe.OSInfo(ctx)
	if err != nil {
		return model.OS{}, err
	}
	c.osInfo = &o
	return o, nil
}

// rankProcesses orders by CPU descending and keeps the first limit entries.
// Equal CPU keeps the probe's order; there is no secondary key.
func rankProcesses(list []model.Process, limit int) []model.Process {
	ranked := make([]model.Process, len(list))
	copy(ranked, list)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].CPU > ranked[j].CPU })
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// publish hands s to the consumer, replacing any snapshot it has not read.
func (c *Collector) publish(s model.Snapshot) {
	c.mu.Lock()
	c.latest = &s
	c.mu.Unlock()
	for {
		select {
		case c.out <- s:
			return
		default:
		}
		select {
		case <-c.out:
		default:
		}
	}
}

// Latest returns the most recently emitted snapshot.
func (c *Collector) Latest() (model.Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.latest == nil {
		return model.Snapshot{}, false
	}
	return *c.latest, true
}

// ProcessTree builds the process forest of the most recently emitted
// snapshot. It is rebuilt on every call and is empty before the first
// emission.
func (c *Collector) ProcessTree() []model.ProcessTreeNode {
	snap, ok := c.Latest()
	if !ok {
		return nil
	}
	return proctree.Build(snap.Processes.List).Roots()
}

func (c *Collector) debugf(format string, args ...any) {
	if c.opts.Debug {
		c.log.Printf(format, args...)
	}
}

// DiscardLogger is a logger for contexts where nothing may reach the terminal.
func DiscardLogger() *log.Logger { return log.New(io.Discard, "", 0) }
