//go:build !tinygo

package hal

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrHalt is returned by a step function to stop RunHeadless cleanly.
var ErrHalt = errors.New("halt")

// HeadlessConfig controls the host runner.
type HeadlessConfig struct {
	Hz    int
	Ticks uint64
	Host  HostConfig
}

// RunHeadless runs the system on the host HAL, calling the step function
// once per tick until ctx is done, the tick budget is used up, or step
// returns an error. A step returning ErrHalt ends the run without error.
func RunHeadless(ctx context.Context, newApp func(HAL) (func() error, error), cfg HeadlessConfig) error {
	if cfg.Hz <= 0 {
		cfg.Hz = 60
	}

	h := newHost(cfg.Host)
	step, err := newApp(h)
	if err != nil {
		return err
	}

	d := time.Second / time.Duration(cfg.Hz)
	if d <= 0 {
		return fmt.Errorf("invalid headless hz: %d", cfg.Hz)
	}
	t := time.NewTicker(d)
	defer t.Stop()

	var tick uint64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			if step != nil {
				if err := step(); err != nil {
					if errors.Is(err, ErrHalt) {
						return nil
					}
					return err
				}
			}
			tick++
			if cfg.Ticks > 0 && tick >= cfg.Ticks {
				return nil
			}
		}
	}
}
