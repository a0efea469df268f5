// Package netwatch is the network bring-up collaborator: it probes the
// remote host until the link is usable, records the readiness flag and the
// last address octet, and drives the startup banner on the display.
package netwatch

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/dpp/homer/internal/pkg/model"
	"github.com/dpp/homer/internal/pkg/readiness"
)

const (
	probeInterval = 2 * time.Second
	probeTimeout  = 5 * time.Second
)

type Watcher struct {
	host   string
	flags  *readiness.Flags
	draw   chan<- model.DrawCmd
	logger *zap.Logger
}

func New(host string, flags *readiness.Flags, draw chan<- model.DrawCmd) *Watcher {
	return &Watcher{
		host:   host,
		flags:  flags,
		draw:   draw,
		logger: zap.L(),
	}
}

// Run probes until the remote host accepts a connection, then sets the
// readiness flags exactly once and returns.
func (w *Watcher) Run(ctx context.Context) error {
	w.draw <- model.Text(model.PointPos(10, 20), "Looking for WiFi", model.ColorBlack, model.ColorWhite, true)

	dialer := &net.Dialer{Timeout: probeTimeout}
	for {
		conn, err := dialer.DialContext(ctx, "tcp", w.host)
		if err == nil {
			local := conn.LocalAddr().(*net.TCPAddr).IP
			_ = conn.Close()
			w.up(local)
			return nil
		}
		w.logger.Debug("network probe failed", zap.String("host", w.host), zap.Error(err))
		select {
		case <-time.After(probeInterval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (w *Watcher) up(local net.IP) {
	quad := int32(-1)
	if v4 := local.To4(); v4 != nil {
		quad = int32(v4[3])
	}
	w.flags.SetLastQuad(quad)
	w.flags.SetNetworkReady()
	w.logger.Info("network up", zap.String("ip", local.String()), zap.Int32("last_quad", quad))

	// swap the search banner for the address line while time sync settles
	w.draw <- model.Clear(model.BoxPos(0, 0, 400, 30), model.ColorWhite)
	w.draw <- model.Text(model.PointPos(10, 22), fmt.Sprintf("IP Addr %s, SNTP init", local), model.ColorBlack, model.ColorWhite, false)
}
