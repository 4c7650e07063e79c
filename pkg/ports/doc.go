/*
Package ports defines the driven ports (interfaces) of the sweep scan engine.

These interfaces decouple the scanner from the channel access layer and from
the way pause/abort signals travel between goroutines or processes.

# Key Interfaces

  - Writer: moves the knobs to a position and blocks until the readback settles.
  - Reader: samples the observables once.
  - ConditionReader: returns the latest cached values of the monitored channels.
  - Controller: shared pause/abort flags and progress readout.
  - DistributedLocker: single-writer access to a set of knobs across processes.
*/
package ports
