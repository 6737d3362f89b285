package registry

import (
	"regexp"
	"strings"
)

var whereKeyword = regexp.MustCompile(`(?i)\bwhere\b`)

// Statement is what reconciliation needs from a view's creation statement
type Statement struct {
	Materialized bool
	Partitioned  bool
	Predicate    string
}

// Candidate reports whether the table is a derived view that reconciliation
// maintains. Views with native partitioning are treated as self-maintaining.
func (s Statement) Candidate() bool {
	return s.Materialized && !s.Partitioned
}

// ParseCreateStatement extracts the classification flags and the predicate.
// The predicate is everything after the first WHERE keyword, trimmed; it is
// empty when the statement has no WHERE clause.
func ParseCreateStatement(stmt string) Statement {
	lower := strings.ToLower(stmt)

	s := Statement{
		Materialized: strings.Contains(lower, "materialized view"),
		Partitioned:  strings.Contains(lower, "partition by"),
	}

	if loc := whereKeyword.FindStringIndex(stmt); loc != nil {
		s.Predicate = strings.TrimSpace(stmt[loc[1]:])
	}
	return s
}
