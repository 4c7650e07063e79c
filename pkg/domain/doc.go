/*
Package domain contains the core domain models of the sweep scan engine.

It defines the values that flow between positioners, the scanner and the data
processors. This package is kept pure and free of external dependencies like
device I/O or persistence, following Hexagonal Architecture principles.

# Key Entities

  - Position: one coordinate per writable axis (knob).
  - Measurement: the ordered values read from the observables at one position.
  - Condition: a monitored channel with an expected value, tolerance and failure Policy.
  - ScanSettings: immutable timing and repetition parameters of a scan.
  - ScanState: the phases of the scanner state machine.
*/
package domain
