package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"k8s.io/utils/clock"

	"github.com/aretw0/sweep/pkg/config"
	"github.com/aretw0/sweep/pkg/positioner"
)

// PrintPositions writes every position of the configured scan, one JSON
// array per line.
func PrintPositions(w io.Writer, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	pos, err := cfg.Positioner(clock.RealClock{})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	for p, err := range pos.Positions() {
		if err != nil {
			return err
		}
		if err := enc.Encode(p); err != nil {
			return err
		}
	}
	return nil
}

// PrintCount writes the number of positions of the configured scan.
func PrintCount(w io.Writer, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	pos, err := cfg.Positioner(clock.RealClock{})
	if err != nil {
		return err
	}
	n, err := positioner.Count(pos)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, n)
	return err
}
