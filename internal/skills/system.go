package skills

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
)

var (
	ErrNoBattery = errors.New("no battery found")

	pmsetPercentRe = regexp.MustCompile(`(\d+)%`)
	pmsetRemainRe  = regexp.MustCompile(`(\d+:\d+) remaining`)
)

// Network checks connectivity by dialing the check address.
func (s *Skills) Network(ctx context.Context) (string, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", s.checkAddr)
	if err != nil {
		return "", fmt.Errorf("not connected: %w", err)
	}
	local := conn.LocalAddr()
	conn.Close()

	host, _ := os.Hostname()
	ip := local.String()
	if tcp, ok := local.(*net.TCPAddr); ok {
		ip = tcp.IP.String()
	}

	var b strings.Builder
	b.WriteString("Internet: Connected\n")
	if host != "" {
		fmt.Fprintf(&b, "Hostname: %s\n", host)
	}
	fmt.Fprintf(&b, "IP address: %s", ip)
	return b.String(), nil
}

func (s *Skills) Battery(ctx context.Context) (string, error) {
	if runtime.GOOS == "darwin" {
		out, err := s.run(ctx, "pmset", "-g", "batt")
		if err != nil {
			return "", fmt.Errorf("pmset: %w", err)
		}
		return parsePmset(out)
	}
	return readPowerSupply(s.powerSupplyDir)
}

func parsePmset(out string) (string, error) {
	if !strings.Contains(out, "InternalBattery") {
		return "", ErrNoBattery
	}

	percent := "unknown"
	if m := pmsetPercentRe.FindStringSubmatch(out); m != nil {
		percent = m[1]
	}

	lower := strings.ToLower(out)
	status := "Connected to power"
	switch {
	case strings.Contains(lower, "discharging"):
		status = "Discharging"
	case strings.Contains(lower, "charging"):
		status = "Charging"
	}

	text := fmt.Sprintf("Battery at %s%%. Status: %s.", percent, status)
	if m := pmsetRemainRe.FindStringSubmatch(out); m != nil {
		text += fmt.Sprintf(" Time remaining: %s.", m[1])
	}
	return text, nil
}

func readPowerSupply(dir string) (string, error) {
	matches, _ := filepath.Glob(filepath.Join(dir, "BAT*"))
	if len(matches) == 0 {
		return "", ErrNoBattery
	}

	capacity, err := os.ReadFile(filepath.Join(matches[0], "capacity"))
	if err != nil {
		return "", fmt.Errorf("read capacity: %w", err)
	}
	status := "Unknown"
	if raw, err := os.ReadFile(filepath.Join(matches[0], "status")); err == nil {
		status = strings.TrimSpace(string(raw))
	}
	if status == "Not charging" || status == "Full" {
		status = "Connected to power"
	}

	return fmt.Sprintf("Battery at %s%%. Status: %s.", strings.TrimSpace(string(capacity)), status), nil
}

func gib(bytes uint64) float64 {
	return float64(bytes) / (1 << 30)
}

func diskReport(total, free uint64) string {
	used := total - free
	pct := 0.0
	if total > 0 {
		pct = float64(used) / float64(total) * 100
	}
	return fmt.Sprintf("Total disk space: %.1f GB\nUsed space: %.1f GB\nFree space: %.1f GB\nDisk usage: %.1f%%",
		gib(total), gib(used), gib(free), pct)
}
