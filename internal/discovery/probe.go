package discovery

import (
	"context"
	"errors"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/atikulmunna/sharetail/internal/bounded"
	"github.com/atikulmunna/sharetail/internal/logname"
	"github.com/atikulmunna/sharetail/internal/model"
)

// File-system stages of a probe, replaceable in tests.
var (
	statPath    = os.Stat
	readAccess  = canRead
	writeAccess = canWrite
)

// Probe tests one candidate path. Every stage is bounded by timeout; a stage
// that overruns aborts the probe with Error "timeout". Probe never returns an
// error: failures are recorded in the result.
func (d *Detector) Probe(ctx context.Context, path string, timeout time.Duration) model.ProbeResult {
	return probe(ctx, path, timeout, d.naming, d.log)
}

func probe(ctx context.Context, path string, timeout time.Duration, naming logname.Convention, log *zap.Logger) model.ProbeResult {
	res := model.ProbeResult{Path: path}

	start := time.Now()
	exists, err := bounded.Do(ctx, timeout, func() (bool, error) {
		info, err := statPath(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return false, nil
			}
			return false, err
		}
		return info.IsDir(), nil
	})
	if err != nil {
		return failed(res, err, timeout)
	}
	res.ResponseTime = seconds(time.Since(start))
	res.Exists = exists
	if !exists {
		return res
	}

	if res.Readable, err = bounded.Do(ctx, timeout, func() (bool, error) { return readAccess(path), nil }); err != nil {
		return failed(res, err, timeout)
	}
	if res.Writable, err = bounded.Do(ctx, timeout, func() (bool, error) { return writeAccess(path), nil }); err != nil {
		return failed(res, err, timeout)
	}

	if res.Readable {
		// The count is informational: any failure, timeout included, counts as zero.
		n, err := bounded.Do(ctx, timeout, func() (int, error) { return naming.Count(path) })
		if err != nil {
			log.Warn("could not count log files", zap.String("path", path), zap.Error(err))
			n = 0
		}
		res.LogFileCount = n
	}

	return res
}

// failed converts a stage failure into an inaccessible result.
func failed(res model.ProbeResult, err error, timeout time.Duration) model.ProbeResult {
	res.Exists = false
	res.Readable = false
	res.Writable = false
	res.LogFileCount = 0
	if bounded.IsTimeout(err) {
		res.Error = bounded.ErrTimeout.Error()
		res.ResponseTime = seconds(timeout)
		return res
	}
	res.Error = err.Error()
	return res
}

func seconds(d time.Duration) *float64 {
	s := d.Seconds()
	return &s
}
