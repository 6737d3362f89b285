// Package registry discovers the materialized views to reconcile.
//
// A table qualifies when its creation statement defines a materialized view
// without its own partitioning. The text after the first WHERE keyword is the
// view's predicate over the source log; the view's columns, passed through
// rewrite rules, become the projection used to rebuild it.
package registry
