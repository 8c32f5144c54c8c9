package collector

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/net"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestCoreUsage(t *testing.T) {
	prev := cpu.TimesStat{User: 100, System: 50, Idle: 800, Iowait: 50}
	cur := cpu.TimesStat{User: 160, System: 70, Nice: 10, Idle: 900, Iowait: 60}
	// delta: user 60, system 20, nice 10, idle+iowait 110 -> total 200
	got := coreUsage(prev, cur)
	if !approx(got.User, 30) || !approx(got.System, 10) || !approx(got.Nice, 5) {
		t.Fatalf("unexpected split: %+v", got)
	}
	if !approx(got.Idle, 55) || !approx(got.Load, 45) {
		t.Fatalf("unexpected load/idle: %+v", got)
	}
}

func TestCoreUsageWithoutDelta(t *testing.T) {
	same := cpu.TimesStat{User: 10, Idle: 10}
	if got := coreUsage(same, same); got.Load != 0 || got.Idle != 0 {
		t.Fatalf("zero interval should report zeros, got %+v", got)
	}
}

func TestPerSec(t *testing.T) {
	if got := perSec(100, 300, 2); got != 100 {
		t.Fatalf("perSec = %v, want 100", got)
	}
	if got := perSec(300, 100, 2); got != 0 {
		t.Fatalf("counter reset should give 0, got %v", got)
	}
	if got := perSec(0, 100, 0); got != 0 {
		t.Fatalf("no interval should give 0, got %v", got)
	}
}

func TestNetRates(t *testing.T) {
	prev := map[string]net.IOCountersStat{
		"eth0": {Name: "eth0", BytesRecv: 1000, BytesSent: 500},
	}
	cur := []net.IOCountersStat{
		{Name: "eth0", BytesRecv: 3000, BytesSent: 1500},
		{Name: "wlan0", BytesRecv: 42},
	}
	got := netRates(prev, cur, 2)
	if len(got) != 2 {
		t.Fatalf("got %d ifaces", len(got))
	}
	if got[0].RxBytesPerSec != 1000 || got[0].TxBytesPerSec != 500 {
		t.Fatalf("eth0 rates wrong: %+v", got[0])
	}
	if got[1].RxBytes != 42 || got[1].RxBytesPerSec != 0 {
		t.Fatalf("new iface should have counters but no rate: %+v", got[1])
	}
}

func TestSummarizeTemps(t *testing.T) {
	sensors := []host.TemperatureStat{
		{SensorKey: "acpitz", Temperature: 40},
		{SensorKey: "coretemp_package_id_0", Temperature: 55},
		{SensorKey: "coretemp_core_0", Temperature: 52},
		{SensorKey: "coretemp_core_1", Temperature: 61},
		{SensorKey: "nvme_composite", Temperature: 0},
	}
	got, ok := summarizeTemps(sensors)
	if !ok {
		t.Fatalf("expected a reading")
	}
	if got.Main != 55 || got.Max != 61 || len(got.PerCore) != 2 {
		t.Fatalf("unexpected summary: %+v", got)
	}
}

func TestSummarizeTempsWithoutPackageSensor(t *testing.T) {
	got, ok := summarizeTemps([]host.TemperatureStat{
		{SensorKey: "k10temp_core_0", Temperature: 40},
		{SensorKey: "k10temp_core_1", Temperature: 50},
	})
	if !ok || got.Main != 45 {
		t.Fatalf("main should be the per-core mean, got %+v", got)
	}
	if _, ok := summarizeTemps(nil); ok {
		t.Fatalf("no sensors should report no reading")
	}
}

func TestThermalZoneFallback(t *testing.T) {
	dir := t.TempDir()
	zone := filepath.Join(dir, "thermal_zone0")
	if err := os.MkdirAll(zone, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(zone, "temp"), []byte("47500\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	h := NewHostProbe()
	h.thermalGlob = filepath.Join(dir, "thermal_zone*", "temp")
	zones := h.thermalZones()
	if len(zones) != 1 || zones[0].Temperature != 47.5 || zones[0].SensorKey != "thermal_zone0" {
		t.Fatalf("unexpected zones: %+v", zones)
	}
}

func TestHostProbeSmoke(t *testing.T) {
	if testing.Short() {
		t.Skip("reads the live host")
	}
	h := NewHostProbe()
	ctx := context.Background()
	if _, err := h.Memory(ctx); err != nil {
		t.Skipf("host metrics unavailable: %v", err)
	}
	load, err := h.CPULoad(ctx)
	if err != nil {
		t.Fatalf("CPULoad: %v", err)
	}
	if load.Overall < 0 || load.Overall > 100 {
		t.Fatalf("overall load out of range: %v", load.Overall)
	}
}
