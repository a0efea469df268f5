// Package bindings loads the declarative binding table from the
// configuration store. Files are keyed by a device identity derived from
// the hardware address, with base.json as the shared fallback; a broken
// config degrades to a single diagnostic display line rather than an error.
package bindings

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/dpp/homer/internal/pkg/model"
)

const fallbackKey = "base"

type Source struct {
	dir    string
	device string
	logger *zap.Logger
}

func NewSource(dir string) *Source {
	return &Source{
		dir:    dir,
		device: DeviceKey(),
		logger: zap.L(),
	}
}

// DeviceKey derives the per-device config key from bytes 3..5 of the first
// hardware address on a non-loopback interface, e.g. "a1_b2_c3". Without
// one it falls back to the shared key.
func DeviceKey() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return fallbackKey
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || len(iface.HardwareAddr) < 6 {
			continue
		}
		hw := iface.HardwareAddr
		return fmt.Sprintf("%02x_%02x_%02x", hw[3], hw[4], hw[5])
	}
	return fallbackKey
}

func diagnostic() model.Bindings {
	return model.Bindings{
		model.DisplayBinding{Line: 0, Text: "Failed to load config!", Color: model.ColorBlack},
	}
}

// Load returns the binding table for this device. It never fails: a missing
// or malformed file yields the diagnostic binding and the process keeps
// running with no live bindings.
func (s *Source) Load() model.Bindings {
	data, name, err := s.read()
	if err != nil {
		s.logger.Warn("no readable binding config", zap.String("device", s.device), zap.Error(err))
		return diagnostic()
	}

	var bs model.Bindings
	if err := json.Unmarshal(data, &bs); err != nil {
		s.logger.Warn("failed to parse binding config", zap.String("file", name), zap.Error(err))
		return diagnostic()
	}
	s.logger.Info("loaded binding config", zap.String("file", name), zap.Int("bindings", len(bs)))
	return bs
}

func (s *Source) read() ([]byte, string, error) {
	candidates := []string{s.device + ".json", fallbackKey + ".json"}
	var err error
	for _, name := range candidates {
		var data []byte
		if data, err = os.ReadFile(filepath.Join(s.dir, name)); err == nil {
			return data, name, nil
		}
	}
	return nil, "", err
}
