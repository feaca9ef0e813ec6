package config

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration extends time.Duration with "d" (days) and "w" (weeks) suffixes,
// which token lifetimes are usually expressed in.
type Duration struct {
	time.Duration
}

// EnvDecode implements envconfig.Decoder.
func (d *Duration) EnvDecode(ctx context.Context, v string) error {
	if v == "" {
		return nil
	}

	var unit time.Duration
	switch {
	case strings.HasSuffix(v, "d"):
		unit = 24 * time.Hour
	case strings.HasSuffix(v, "w"):
		unit = 7 * 24 * time.Hour
	}

	if unit > 0 {
		n, err := strconv.Atoi(v[:len(v)-1])
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}
		d.Duration = time.Duration(n) * unit
		return nil
	}

	duration, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	d.Duration = duration
	return nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	return d.EnvDecode(context.Background(), string(text))
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// String returns the string representation of the duration
func (d Duration) String() string {
	return d.Duration.String()
}
