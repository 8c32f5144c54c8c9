package export

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/Dicklesworthstone/aerotop/internal/model"
)

func TestWriteJSONOmitsAbsentOptionalSections(t *testing.T) {
	var buf bytes.Buffer
	snap := model.Snapshot{Timestamp: time.UnixMilli(1_700_000_000_123), UptimeSeconds: 7}
	if err := WriteJSON(&buf, snap); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	out := buf.String()
	if strings.Contains(out, `"disk"`) || strings.Contains(out, `"temperature"`) {
		t.Fatalf("absent sections serialized: %s", out)
	}
	if !strings.Contains(out, `"uptimeSeconds": 7`) {
		t.Fatalf("uptime missing: %s", out)
	}
	if !strings.Contains(out, `"timestamp": 1700000000123`) {
		t.Fatalf("timestamp should be epoch milliseconds: %s", out)
	}
}

func TestStreamerWritesOneLinePerSnapshot(t *testing.T) {
	var buf bytes.Buffer
	s := NewStreamer(&buf)
	if s.RunID == "" {
		t.Fatalf("empty run id")
	}
	ch := make(chan model.Snapshot, 2)
	ts := time.UnixMilli(1_700_000_000_123)
	ch <- model.Snapshot{Timestamp: ts}
	ch <- model.Snapshot{Timestamp: ts.Add(time.Second), Disk: &model.DiskIO{ReadOps: 3}}
	close(ch)

	if err := s.Run(context.Background(), ch); err != nil {
		t.Fatalf("Run: %v", err)
	}

	sc := bufio.NewScanner(&buf)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	var lines []Envelope
	for sc.Scan() {
		var env Envelope
		if err := json.Unmarshal(sc.Bytes(), &env); err != nil {
			t.Fatalf("bad line %q: %v", sc.Text(), err)
		}
		lines = append(lines, env)
	}
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if lines[0].TimestampMS != 1_700_000_000_123 || lines[0].RunID != s.RunID {
		t.Fatalf("unexpected envelope: %+v", lines[0])
	}
	if !lines[1].Snapshot.Timestamp.Equal(ts.Add(time.Second)) {
		t.Fatalf("snapshot timestamp = %v", lines[1].Snapshot.Timestamp)
	}
	if lines[1].Snapshot.Disk == nil || lines[1].Snapshot.Disk.ReadOps != 3 {
		t.Fatalf("disk section lost: %+v", lines[1].Snapshot.Disk)
	}
}

func TestStreamerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewStreamer(&bytes.Buffer{}).Run(ctx, make(chan model.Snapshot)); err != nil {
		t.Fatalf("Run: %v", err)
	}
}
