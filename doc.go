/*
Package sweep runs discrete multidimensional scans against control-system channels.

A scan moves a set of knobs through a sequence of positions, waits for them to
settle, samples the observables, checks the monitored conditions and hands every
accepted sample to a data processor, in traversal order.

# Concept

Positions come from a positioner (Line, Area, Compound, Time, ...). The device
is reached through three small ports: a Writer for the knobs, a Reader for the
observables and an optional ConditionReader for the monitors. The Scanner owns
the loop and the pause/abort handle; everything that touches hardware lives
behind those ports.

# Usage

	pos, err := positioner.NewLine(positioner.LineOptions{
		Start:  []float64{-2},
		End:    []float64{2},
		NSteps: 4,
	})
	if err != nil {
		log.Fatal(err)
	}

	scanner, err := sweep.New(pos, writer, reader, processor.NewPairs(),
		sweep.WithSettings(domain.ScanSettings{SettlingTime: 200 * time.Millisecond}),
		sweep.WithConditions(monitors, domain.Condition{ID: "beam:current", Expected: 5.0, Tolerance: 0.5, Policy: domain.PolicyRetry}),
	)
	if err != nil {
		log.Fatal(err)
	}

	data, err := scanner.DiscreteScan(ctx)

Pause, Resume and Abort may be called from any goroutine while DiscreteScan
runs. They take effect at the next position boundary.
*/
package sweep
