package discovery

import (
	"context"
	"net"
	"os/exec"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/atikulmunna/sharetail/internal/model"
)

// commandRunner runs an external command and reports whether it exited 0.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) error
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// CheckConnectivity reports whether the server answers ping, whether the
// file-sharing port accepts TCP connections and, on Linux, whether the gvfs
// mount daemon is running. Every check is informational; failures only show
// up as false fields.
func (d *Detector) CheckConnectivity(ctx context.Context) model.Connectivity {
	res := model.Connectivity{Server: d.share.Server}

	res.PingOK = d.ping(ctx)
	res.PortOpen = d.portOpen(ctx)
	if d.goos == "linux" {
		res.MountServiceRunning = d.commands.Run(ctx, "pgrep", "gvfs") == nil
	}

	d.log.Info("connectivity checked",
		zap.String("server", res.Server),
		zap.Bool("ping", res.PingOK),
		zap.Bool("port_open", res.PortOpen),
		zap.Bool("mount_service", res.MountServiceRunning),
	)
	return res
}

func (d *Detector) ping(ctx context.Context) bool {
	// Leave the ping binary its own wait plus a second to exit.
	ctx, cancel := context.WithTimeout(ctx, d.pingTimeout+time.Second)
	defer cancel()

	var args []string
	if d.goos == "windows" {
		args = []string{"-n", "1", "-w", strconv.Itoa(int(d.pingTimeout.Milliseconds())), d.share.Server}
	} else {
		args = []string{"-c", "1", "-W", strconv.Itoa(max(1, int(d.pingTimeout.Seconds()))), d.share.Server}
	}
	if err := d.commands.Run(ctx, "ping", args...); err != nil {
		d.log.Debug("ping failed", zap.String("server", d.share.Server), zap.Error(err))
		return false
	}
	return true
}

// portOpen is attempted even when ping fails: ICMP is often filtered on
// networks that still allow SMB.
func (d *Detector) portOpen(ctx context.Context) bool {
	port := d.share.Port
	if port == 0 {
		port = 445
	}
	addr := net.JoinHostPort(d.share.Server, strconv.Itoa(port))

	dialer := net.Dialer{Timeout: d.connectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		d.log.Debug("port probe failed", zap.String("addr", addr), zap.Error(err))
		return false
	}
	_ = conn.Close()
	return true
}

