// Package sensor reads the board temperature shown on the weather screen.
package sensor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shirou/gopsutil/v4/sensors"
)

// ErrNoSensor is returned when the host exposes no temperature sensor.
var ErrNoSensor = errors.New("sensor: no temperature sensor")

// preferred sensor keys, most specific first. Raspberry Pi boards report
// the SoC as cpu_thermal.
var preferred = []string{"cpu_thermal", "soc_thermal", "coretemp", "k10temp", "acpitz"}

// Board reads temperatures through gopsutil.
type Board struct {
	// Key pins a sensor; empty picks the first preferred one found.
	Key string

	read func(ctx context.Context) ([]sensors.TemperatureStat, error)
}

// NewBoard returns a Board reading host sensors.
func NewBoard(key string) *Board {
	return &Board{Key: key, read: sensors.TemperaturesWithContext}
}

// Temperature returns degrees Celsius.
func (b *Board) Temperature(ctx context.Context) (float64, error) {
	stats, err := b.read(ctx)
	if len(stats) == 0 {
		if err != nil {
			return 0, fmt.Errorf("sensor: read: %w", err)
		}
		return 0, ErrNoSensor
	}
	// gopsutil returns partial results together with a warning error.
	if s, ok := pick(stats, b.Key); ok {
		return s.Temperature, nil
	}
	return 0, ErrNoSensor
}

func pick(stats []sensors.TemperatureStat, key string) (sensors.TemperatureStat, bool) {
	if key != "" {
		for _, s := range stats {
			if strings.HasPrefix(s.SensorKey, key) {
				return s, true
			}
		}
		return sensors.TemperatureStat{}, false
	}
	for _, p := range preferred {
		for _, s := range stats {
			if strings.HasPrefix(s.SensorKey, p) && s.Temperature > 0 {
				return s, true
			}
		}
	}
	for _, s := range stats {
		if s.Temperature > 0 {
			return s, true
		}
	}
	return sensors.TemperatureStat{}, false
}
