// Package report renders run summaries into notification text.
//
// Day counts are phrased through three plural buckets (1, 2-4, 5 and more).
// The English phrasebook uses the same word for the last two, but the buckets
// stay distinct so that a phrasebook for a language with a separate "few"
// form needs no code change.
package report
