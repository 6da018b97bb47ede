package sim

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"dcmetrics-sim/internal/telemetry"
)

const maxReplayLine = 1 << 20

// ReplayLog replays readings from r to writer. Consecutive readings that
// share a timestamp are delivered together, in batch mode when the writer
// supports it. A speed >0 accelerates playback; if speed <= 0, no artificial
// delay is inserted. Playback stops early when ctx is done.
func ReplayLog(ctx context.Context, r io.Reader, writer ReadingWriter, speed float64) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxReplayLine)

	var (
		pending []telemetry.Reading
		prev    time.Time
		line    int
	)
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		ts := pending[0].Time()
		if !prev.IsZero() && speed > 0 {
			if err := sleepScaled(ctx, ts.Sub(prev), speed); err != nil {
				return err
			}
		}
		if err := writeRows(writer, pending); err != nil {
			return err
		}
		prev = ts
		pending = nil
		return nil
	}

	for sc.Scan() {
		line++
		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 {
			continue
		}
		rd, err := telemetry.ParseReading(b)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if len(pending) > 0 && pending[0].Timestamp != rd.Timestamp {
			if err := flush(); err != nil {
				return err
			}
		}
		pending = append(pending, rd)
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return flush()
}

func sleepScaled(ctx context.Context, diff time.Duration, speed float64) error {
	if speed != 1 {
		diff = time.Duration(float64(diff) / speed)
	}
	if diff <= 0 {
		return nil
	}
	timer := time.NewTimer(diff)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// writeRows hands rows to writer in one batch when supported.
func writeRows(writer ReadingWriter, rows []telemetry.Reading) error {
	if bw, ok := writer.(batchWriter); ok {
		return bw.WriteBatch(rows)
	}
	for _, r := range rows {
		if err := writer.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// ReplayLogFile opens a file and replays its readings.
func ReplayLogFile(ctx context.Context, path string, writer ReadingWriter, speed float64) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return ReplayLog(ctx, f, writer, speed)
}
