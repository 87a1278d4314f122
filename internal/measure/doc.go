// Package measure defines the Measure capability and the Registry that
// schedules accumulation, times each measure and delegates cross-rank
// collection.
package measure
