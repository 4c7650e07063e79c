/*
Package positioner enumerates the coordinate vectors a scan visits.

Positioners are pure generators: they never touch a device and never mutate
the slices handed to their constructors. Every call to Positions starts a new
traversal, so a sequence can be walked once to count it and again to drive
the scan. Arguments are validated by the constructors, which return a
*domain.ConfigurationError instead of failing half way through a traversal.

# Family

  - Line, ZigZagLine: equally spaced points from Start to End on every axis at once.
  - Vector, ZigZagVector: replay of caller supplied vectors.
  - Area, ZigZagArea: nested (odometer) sweeps, axis 0 slowest.
  - Serial: one axis at a time, others held at their initial value.
  - Compound: cartesian product of other positioners, the first one slowest.
  - Static: repeated triggers at a fixed position.
  - Time: ticks at a controlled cadence.
*/
package positioner
