package collector

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/Dicklesworthstone/aerotop/internal/model"
)

var (
	errNoCPUInfo  = errors.New("no cpu info reported")
	errNoSensors  = errors.New("no temperature sensors")
	errNoCPUTimes = errors.New("no cpu times reported")
)

// HostProbe reads the local machine through gopsutil. Rates are computed
// from the previous call's counters; the first call reports averages since
// boot for CPU and zero rates for network and disk.
type HostProbe struct {
	now func() time.Time

	prevTotal cpu.TimesStat
	prevCore  []cpu.TimesStat

	procs map[int32]*process.Process

	prevNet   map[string]net.IOCountersStat
	prevNetAt time.Time

	prevDisk   model.DiskIO
	prevDiskAt time.Time

	thermalGlob string
}

func NewHostProbe() *HostProbe {
	return &HostProbe{
		now:         time.Now,
		procs:       make(map[int32]*process.Process),
		prevNet:     make(map[string]net.IOCountersStat),
		thermalGlob: "/sys/class/thermal/thermal_zone*/temp",
	}
}

func (h *HostProbe) CPUFacts(ctx context.Context) (model.CPUFacts, error) {
	infos, err := cpu.InfoWithContext(ctx)
	if err != nil {
		return model.CPUFacts{}, err
	}
	if len(infos) == 0 {
		return model.CPUFacts{}, errNoCPUInfo
	}
	logical, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return model.CPUFacts{}, err
	}
	physical, err := cpu.CountsWithContext(ctx, false)
	if err != nil {
		physical = logical
	}
	info := infos[0]
	return model.CPUFacts{
		Model:         strings.TrimSpace(info.VendorID + " " + info.ModelName),
		LogicalCores:  logical,
		PhysicalCores: physical,
		SpeedGHz:      info.Mhz / 1000,
	}, nil
}

func (h *HostProbe) OSInfo(ctx context.Context) (model.OS, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return model.OS{}, err
	}
	return model.OS{
		Platform: info.OS,
		Distro:   info.Platform,
		Release:  info.PlatformVersion,
		Kernel:   info.KernelVersion,
		Hostname: info.Hostname,
	}, nil
}

// CPULoad computes percentages from the times delta since the last call.
func (h *HostProbe) CPULoad(ctx context.Context) (model.CPULoad, error) {
	totals, err := cpu.TimesWithContext(ctx, false)
	if err != nil {
		return model.CPULoad{}, err
	}
	if len(totals) == 0 {
		return model.CPULoad{}, errNoCPUTimes
	}
	cores, err := cpu.TimesWithContext(ctx, true)
	if err != nil {
		return model.CPULoad{}, err
	}

	overall := coreUsage(h.prevTotal, totals[0])
	h.prevTotal = totals[0]

	perCore := make([]model.CoreLoad, len(cores))
	for i, c := range cores {
		var prev cpu.TimesStat
		if i < len(h.prevCore) {
			prev = h.prevCore[i]
		}
		perCore[i] = coreUsage(prev, c)
		perCore[i].Index = i
	}
	h.prevCore = cores

	out := model.CPULoad{
		Overall: overall.Load,
		User:    overall.User,
		System:  overall.System,
		PerCore: perCore,
	}
	if avg, err := load.AvgWithContext(ctx); err == nil {
		out.Avg1 = avg.Load1
	}
	return out, nil
}

// coreUsage splits the interval between prev and cur. Iowait counts as idle.
func coreUsage(prev, cur cpu.TimesStat) model.CoreLoad {
	dt := cur.Total() - prev.Total()
	if dt <= 0 {
		return model.CoreLoad{}
	}
	share := func(a, b float64) float64 {
		v := 100 * (b - a) / dt
		if v < 0 {
			return 0
		}
		if v > 100 {
			return 100
		}
		return v
	}
	idle := share(prev.Idle+prev.Iowait, cur.Idle+cur.Iowait)
	return model.CoreLoad{
		Load:   100 - idle,
		User:   share(prev.User, cur.User),
		System: share(prev.System, cur.System),
		Nice:   share(prev.Nice, cur.Nice),
		Idle:   idle,
	}
}

// Processes reads every process. Process handles are kept between calls so
// CPU percent covers the last interval instead of the process lifetime.
func (h *HostProbe) Processes(ctx context.Context) (model.Processes, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return model.Processes{}, err
	}

	seen := make(map[int32]*process.Process, len(procs))
	out := model.Processes{List: make([]model.Process, 0, len(procs))}
	for _, p := range procs {
		fresh := true
		if cached, ok := h.procs[p.Pid]; ok && sameProcess(ctx, cached, p) {
			p, fresh = cached, false
		}
		rec, ok := readProcess(ctx, p, fresh)
		if !ok {
			continue
		}
		seen[p.Pid] = p
		out.List = append(out.List, rec)
		switch rec.State {
		case process.Running:
			out.Running++
		case process.Blocked:
			out.Blocked++
		case process.Sleep, process.Idle:
			out.Sleeping++
		}
	}
	h.procs = seen
	out.Total = len(out.List)
	return out, nil
}

// sameProcess guards against pid reuse between ticks.
func sameProcess(ctx context.Context, a, b *process.Process) bool {
	ta, errA := a.CreateTimeWithContext(ctx)
	tb, errB := b.CreateTimeWithContext(ctx)
	return errA == nil && errB == nil && ta == tb
}

func readProcess(ctx context.Context, p *process.Process, fresh bool) (model.Process, bool) {
	// Processes that exit mid-read or kernel threads without a name are skipped.
	name, err := p.NameWithContext(ctx)
	if err != nil || name == "" {
		return model.Process{}, false
	}
	ppid, _ := p.PpidWithContext(ctx)
	cmd, _ := p.CmdlineWithContext(ctx)
	if cmd == "" {
		cmd = name
	}
	user, _ := p.UsernameWithContext(ctx)

	var cpuPct float64
	if fresh {
		cpuPct, _ = p.CPUPercentWithContext(ctx)
		_, _ = p.PercentWithContext(ctx, 0)
	} else {
		cpuPct, _ = p.PercentWithContext(ctx, 0)
	}
	memPct, _ := p.MemoryPercentWithContext(ctx)

	rec := model.Process{
		PID:       p.Pid,
		ParentPID: ppid,
		Name:      name,
		Command:   cmd,
		User:      user,
		CPU:       cpuPct,
		Memory:    float64(memPct),
	}
	if mi, err := p.MemoryInfoWithContext(ctx); err == nil && mi != nil {
		rec.VirtBytes, rec.ResBytes = mi.VMS, mi.RSS
	}
	if st, err := p.StatusWithContext(ctx); err == nil && len(st) > 0 {
		rec.State = st[0]
	}
	if nice, err := p.NiceWithContext(ctx); err == nil {
		rec.Nice = nice
		// ps-style PRI for normal scheduling classes.
		rec.Priority = 20 + nice
	}
	if ms, err := p.CreateTimeWithContext(ctx); err == nil && ms > 0 {
		rec.Started = time.UnixMilli(ms)
	}
	rec.TTY, _ = p.TerminalWithContext(ctx)
	return rec, true
}

func (h *HostProbe) Memory(ctx context.Context) (model.Memory, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return model.Memory{}, err
	}
	out := model.Memory{
		TotalBytes:     vm.Total,
		UsedBytes:      vm.Used,
		FreeBytes:      vm.Free,
		ActiveBytes:    vm.Active,
		AvailableBytes: vm.Available,
		CachedBytes:    vm.Cached,
		BuffersBytes:   vm.Buffers,
	}
	if sw, err := mem.SwapMemoryWithContext(ctx); err == nil {
		out.SwapTotalBytes, out.SwapUsedBytes, out.SwapFreeBytes = sw.Total, sw.Used, sw.Free
	} else {
		out.SwapTotalBytes, out.SwapFreeBytes = vm.SwapTotal, vm.SwapFree
		if vm.SwapTotal > vm.SwapFree {
			out.SwapUsedBytes = vm.SwapTotal - vm.SwapFree
		}
	}
	return out, nil
}

func (h *HostProbe) Uptime(ctx context.Context) (uint64, error) {
	return host.UptimeWithContext(ctx)
}

func (h *HostProbe) Network(ctx context.Context) ([]model.NetIface, error) {
	counters, err := net.IOCountersWithContext(ctx, true)
	if err != nil {
		return nil, err
	}
	now := h.now()
	secs := 0.0
	if !h.prevNetAt.IsZero() {
		secs = now.Sub(h.prevNetAt).Seconds()
	}
	out := netRates(h.prevNet, counters, secs)

	next := make(map[string]net.IOCountersStat, len(counters))
	for _, c := range counters {
		next[c.Name] = c
	}
	h.prevNet, h.prevNetAt = next, now
	return out, nil
}

func netRates(prev map[string]net.IOCountersStat, cur []net.IOCountersStat, secs float64) []model.NetIface {
	out := make([]model.NetIface, 0, len(cur))
	for _, c := range cur {
		iface := model.NetIface{Name: c.Name, RxBytes: c.BytesRecv, TxBytes: c.BytesSent}
		if p, ok := prev[c.Name]; ok {
			iface.RxBytesPerSec = perSec(p.BytesRecv, c.BytesRecv, secs)
			iface.TxBytesPerSec = perSec(p.BytesSent, c.BytesSent, secs)
		}
		out = append(out, iface)
	}
	return out
}

// perSec is zero when there is no interval or the counter went backwards.
func perSec(prev, cur uint64, secs float64) float64 {
	if secs <= 0 || cur < prev {
		return 0
	}
	return float64(cur-prev) / secs
}

func (h *HostProbe) DiskIO(ctx context.Context) (model.DiskIO, error) {
	counters, err := disk.IOCountersWithContext(ctx)
	if err != nil {
		return model.DiskIO{}, err
	}
	var cur model.DiskIO
	for name, st := range counters {
		if strings.HasPrefix(name, "loop") {
			continue
		}
		cur.ReadOps += st.ReadCount
		cur.WriteOps += st.WriteCount
	}
	now := h.now()
	if !h.prevDiskAt.IsZero() {
		secs := now.Sub(h.prevDiskAt).Seconds()
		cur.ReadOpsPerSec = perSec(h.prevDisk.ReadOps, cur.ReadOps, secs)
		cur.WriteOpsPerSec = perSec(h.prevDisk.WriteOps, cur.WriteOps, secs)
	}
	h.prevDisk, h.prevDiskAt = cur, now
	return cur, nil
}

// Temperature prefers hwmon sensors and falls back to thermal zones.
func (h *HostProbe) Temperature(ctx context.Context) (model.Temperature, error) {
	// gopsutil returns partial readings together with a warning error.
	sensors, _ := host.SensorsTemperaturesWithContext(ctx)
	if t, ok := summarizeTemps(sensors); ok {
		return t, nil
	}
	if t, ok := summarizeTemps(h.thermalZones()); ok {
		return t, nil
	}
	return model.Temperature{}, errNoSensors
}

func (h *HostProbe) thermalZones() []host.TemperatureStat {
	var temps []host.TemperatureStat
	paths, _ := filepath.Glob(h.thermalGlob)
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		milli, err := strconv.ParseFloat(strings.TrimSpace(string(b)), 64)
		if err != nil {
			continue
		}
		temps = append(temps, host.TemperatureStat{
			SensorKey:   filepath.Base(filepath.Dir(p)),
			Temperature: milli / 1000,
		})
	}
	return temps
}

// summarizeTemps picks a package sensor as the main reading, collects per-core
// sensors, and tracks the hottest of all. Without a package sensor the main
// reading is the per-core mean, or the first sensor.
func summarizeTemps(sensors []host.TemperatureStat) (model.Temperature, bool) {
	var (
		out     model.Temperature
		main    float64
		hasMain bool
		found   bool
	)
	for _, s := range sensors {
		if s.Temperature <= 0 {
			continue
		}
		key := strings.ToLower(s.SensorKey)
		if !found || s.Temperature > out.Max {
			out.Max = s.Temperature
		}
		if !found {
			main = s.Temperature
		}
		found = true
		switch {
		case !hasMain && (strings.Contains(key, "package") || strings.Contains(key, "tctl") || strings.Contains(key, "tdie")):
			main, hasMain = s.Temperature, true
		case strings.Contains(key, "_core"):
			out.PerCore = append(out.PerCore, s.Temperature)
		}
	}
	if !found {
		return model.Temperature{}, false
	}
	if !hasMain && len(out.PerCore) > 0 {
		sum := 0.0
		for _, t := range out.PerCore {
			sum += t
		}
		main = sum / float64(len(out.PerCore))
	}
	out.Main = main
	return out, true
}

func (h *HostProbe) Filesystems(ctx context.Context) ([]model.Filesystem, error) {
	parts, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(parts))
	out := make([]model.Filesystem, 0, len(parts))
	for _, p := range parts {
		if seen[p.Mountpoint] {
			continue
		}
		seen[p.Mountpoint] = true
		u, err := disk.UsageWithContext(ctx, p.Mountpoint)
		if err != nil || u.Total == 0 {
			continue
		}
		out = append(out, model.Filesystem{
			Device:         p.Device,
			Type:           p.Fstype,
			Mount:          p.Mountpoint,
			SizeBytes:      u.Total,
			UsedBytes:      u.Used,
			AvailableBytes: u.Free,
			UsePct:         u.UsedPercent,
		})
	}
	return out, nil
}
