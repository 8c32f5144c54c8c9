package collector

import (
	"context"

	"github.com/Dicklesworthstone/aerotop/internal/model"
)

// Probe reads the host. Distinct methods may run concurrently within a tick;
// a single method is never called concurrently with itself, so an
// implementation may keep per-method delta state without locking.
type Probe interface {
	// Static facts, memoized by the collector after the first success.
	CPUFacts(ctx context.Context) (model.CPUFacts, error)
	OSInfo(ctx context.Context) (model.OS, error)

	// Required per-tick sources.
	CPULoad(ctx context.Context) (model.CPULoad, error)
	Processes(ctx context.Context) (model.Processes, error)
	Memory(ctx context.Context) (model.Memory, error)
	Uptime(ctx context.Context) (uint64, error)
	Network(ctx context.Context) ([]model.NetIface, error)

	// Optional per-tick sources.
	DiskIO(ctx context.Context) (model.DiskIO, error)
	Temperature(ctx context.Context) (model.Temperature, error)
	Filesystems(ctx context.Context) ([]model.Filesystem, error)
}
