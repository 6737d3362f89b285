/*
Package types defines the core data structures used throughout viewsync.

This package contains the domain model of a reconciliation run: calendar days
and scan windows, view definitions, hourly row-count profiles, drift reports,
per-view drift accumulators and the run summary. Every other package speaks in
these types; none of them carry behaviour beyond small helpers.

# Core Types

Calendar:
  - Day: a calendar date, rendered as YYYY-MM-DD
  - DayWindow: contiguous ascending days, always ending before today

Views:
  - ViewDefinition: name, predicate, projection and the backfill-suppressed flag

Drift:
  - HourlyProfile: hour-of-day to row count for one day
  - DriftReport: hours of a (view, day) whose counts disagree

Run state:
  - ViewDriftAccumulator: drifted days per view, filled during the scan phase
  - ReconciliationSummary: repairs, failures, alerts and diagnostics of a run

# Usage

Building the scan window:

	window, err := types.NewDayWindow(time.Now(), 30, 1)
	if err != nil {
		return err
	}
	// window[0] is today-30, window.Last() is yesterday

Accumulating drift:

	acc := types.NewViewDriftAccumulator(view)
	for _, day := range window {
		report, err := detector.Detect(ctx, view, day)
		if err != nil {
			acc.RecordUnchecked(day)
			continue
		}
		if report.Drifted() {
			acc.RecordDrift(day)
		}
	}

A suppressed view never queues days; RecordDrift only bumps AlertDays.
*/
package types
