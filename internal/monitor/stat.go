package monitor

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Stat scans a monitor file for its recording info: record count, first and
// last time, mean step and the header's particle list. Only the time column
// is decoded.
func Stat(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("monitor: open %s: %w", path, err)
	}
	defer f.Close()

	info := Info{Path: path}
	seen := false
	err = eachLine(f, func(n int, line string) error {
		line = strings.TrimSpace(line)
		if line == "" {
			return nil
		}
		first := !seen
		seen = true
		if strings.HasPrefix(line, "#") {
			if idx, ok := parseHeaderIndices(line); ok {
				info.Particles = idx
			}
			return nil
		}
		fields := strings.Fields(line)
		t, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			if first {
				return nil
			}
			return &ParseError{Path: path, Line: n, Err: ErrMalformedRecord, Detail: fmt.Sprintf("time %q is not a number", fields[0])}
		}
		if info.Records == 0 {
			info.First = t
			info.Width = len(fields)
		}
		info.Last = t
		info.Records++
		return nil
	})
	if err != nil {
		return Info{}, err
	}
	if info.Records == 0 {
		return Info{}, &ParseError{Path: path, Err: ErrEmptyTrajectory, Detail: "no data records"}
	}
	if info.Records > 1 {
		info.Step = (info.Last - info.First) / float64(info.Records-1)
	}
	return info, nil
}
