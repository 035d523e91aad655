package skills

import (
	"context"
	"fmt"
	"io"
	log "log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

func (s *Skills) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "curl/8.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d", u, resp.StatusCode)
	}
	return body, nil
}

// Weather returns a one-line report for city, or for the current default
// location when city is empty.
func (s *Skills) Weather(ctx context.Context, city string) (string, error) {
	if city == "" {
		city = s.City()
	}

	body, err := s.get(ctx, s.weatherURL+"/"+url.PathEscape(city)+"?format=3")
	if err != nil {
		return "", fmt.Errorf("weather for %s: %w", city, err)
	}

	report := strings.TrimSpace(string(body))
	if report == "" {
		return "", fmt.Errorf("weather for %s: empty report", city)
	}
	if !strings.Contains(strings.ToLower(report), strings.ToLower(city)) {
		report = fmt.Sprintf("Weather in %s: %s", city, report)
	}
	return report, nil
}

// Location resolves the approximate position from the public IP. The city
// becomes the default for weather and the time zone is used for time and
// date answers.
func (s *Skills) Location(ctx context.Context) (string, error) {
	body, err := s.get(ctx, s.locationURL)
	if err != nil {
		return "", fmt.Errorf("location: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("location: invalid response")
	}

	res := gjson.ParseBytes(body)
	city := orUnknown(res.Get("city").String())
	region := orUnknown(res.Get("region").String())
	country := orUnknown(res.Get("country").String())
	tz := orUnknown(res.Get("timezone").String())

	s.mu.Lock()
	if city != "Unknown" {
		s.city = city
	}
	if zone, err := time.LoadLocation(tz); err == nil && tz != "Unknown" {
		s.zone = zone
	} else if tz != "Unknown" {
		log.Debug("Unknown time zone", "tz", tz, "err", err)
	}
	s.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "You appear to be in %s, %s, %s.\n", city, region, country)
	if loc := strings.Split(res.Get("loc").String(), ","); len(loc) == 2 {
		fmt.Fprintf(&b, "Coordinates: %s, %s\n", loc[0], loc[1])
	}
	fmt.Fprintf(&b, "Timezone: %s", tz)
	return b.String(), nil
}

func orUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "Unknown"
	}
	return s
}
