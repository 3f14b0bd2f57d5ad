package audit

import (
	"context"
	"time"

	"cronkeeper/pkg/crontab"
	logx "cronkeeper/pkg/logx"
)

// recordTimeout bounds each best-effort store call so a slow disk can never
// stall a crontab operation.
const recordTimeout = 2 * time.Second

// Recorder adapts a Store to the manager's mutation hook. Audit failures are
// logged, never surfaced: the native store is the source of truth and a
// mutation that reached it must not be reported as failed.
func Recorder(s Store, log logx.Logger) crontab.Recorder {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &recorder{s: s, log: log}
}

type recorder struct {
	s   Store
	log logx.Logger
}

func (r *recorder) Record(m crontab.Mutation) {
	if r.s == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	err := r.s.AppendRecord(ctx, Record{
		At:       m.At,
		Platform: m.Platform,
		Op:       m.Op,
		EntryID:  m.EntryID,
		Command:  m.Command,
		Interval: m.Interval,
		Removed:  m.Removed,
	})
	if err != nil {
		r.log.Warn("audit append failed", logx.Err(err), logx.String("op", m.Op))
	}
}

// Checksums adapts a Store to the backend's external-edit detection hook.
func Checksums(s Store, log logx.Logger) crontab.ChecksumStore {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &checksums{s: s, log: log}
}

type checksums struct {
	s   Store
	log logx.Logger
}

func (c *checksums) PutChecksum(platform string, sum uint64) {
	if c.s == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := c.s.PutChecksum(ctx, platform, sum); err != nil {
		c.log.Warn("checksum write failed", logx.Err(err), logx.String("platform", platform))
	}
}

func (c *checksums) GetChecksum(platform string) (uint64, bool) {
	if c.s == nil {
		return 0, false
	}
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	sum, ok, err := c.s.GetChecksum(ctx, platform)
	if err != nil {
		c.log.Debug("checksum read failed", logx.Err(err), logx.String("platform", platform))
		return 0, false
	}
	return sum, ok
}
