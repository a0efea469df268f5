package buttons

import (
	"os"
	"strconv"
	"strings"
)

// SysfsReader reads raw samples from a Linux IIO ADC channel exposed under
// /sys/bus/iio. It is the production AnalogReader.
type SysfsReader struct {
	Path string
}

func (r SysfsReader) Read() (uint16, error) {
	data, err := os.ReadFile(r.Path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 16)
	if err != nil {
		return 0, err
	}
	return uint16(v), nil
}
