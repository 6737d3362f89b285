// Package drift detects row-count disagreement between the source log and a
// view for one calendar day.
//
// Drift is measured per hour and repaired per day: the hourly profile catches
// partial-hour undercounts that a single day total would hide, while the
// backfill always replaces the whole day.
package drift
