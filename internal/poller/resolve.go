package poller

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/atikulmunna/sharetail/internal/logname"
	"github.com/atikulmunna/sharetail/internal/tailer"
)

// Selector picks the share path to read from. *discovery.Detector
// satisfies it.
type Selector interface {
	SelectBest(ctx context.Context, timeout time.Duration) (string, bool)
}

// Static always resolves to a reader over dir.
func Static(dir string, naming logname.Convention, opts tailer.Options, log *zap.Logger) Resolver {
	r := tailer.NewReader(dir, naming, opts, log)
	return func(context.Context) (*tailer.Reader, error) { return r, nil }
}

// Discover resolves by probing the share candidates. Each attempt is bounded
// by deadline as a whole, and every probe by probeTimeout.
func Discover(sel Selector, naming logname.Convention, opts tailer.Options, probeTimeout, deadline time.Duration, log *zap.Logger) Resolver {
	return func(ctx context.Context) (*tailer.Reader, error) {
		if deadline > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, deadline)
			defer cancel()
		}
		path, ok := sel.SelectBest(ctx, probeTimeout)
		if !ok {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrNoShare, err)
			}
			return nil, ErrNoShare
		}
		return tailer.NewReader(path, naming, opts, log), nil
	}
}
