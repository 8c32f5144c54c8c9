// Package export writes snapshots as JSON for scripting.
package export

import (
	"context"
	"encoding/json"
	"io"

	"github.com/google/uuid"

	"github.com/Dicklesworthstone/aerotop/internal/model"
)

// Envelope wraps one streamed snapshot. RunID changes every time the
// program starts, so a consumer can tell restarts apart.
type Envelope struct {
	RunID       string         `json:"run_id"`
	TimestampMS int64          `json:"timestamp_ms"`
	Snapshot    model.Snapshot `json:"snapshot"`
}

// WriteJSON writes one indented snapshot.
func WriteJSON(w io.Writer, s model.Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// Streamer writes newline-delimited envelopes.
type Streamer struct {
	RunID string
	enc   *json.Encoder
}

func NewStreamer(w io.Writer) *Streamer {
	return &Streamer{RunID: uuid.NewString(), enc: json.NewEncoder(w)}
}

func (s *Streamer) Write(snap model.Snapshot) error {
	return s.enc.Encode(Envelope{
		RunID:       s.RunID,
		TimestampMS: snap.Timestamp.UnixMilli(),
		Snapshot:    snap,
	})
}

// Run writes every snapshot from ch until ctx is done or ch closes.
func (s *Streamer) Run(ctx context.Context, ch <-chan model.Snapshot) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-ch:
			if !ok {
				return nil
			}
			if err := s.Write(snap); err != nil {
				return err
			}
		}
	}
}
