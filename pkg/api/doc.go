/*
Package api provides the HTTP status surface of a long-running viewsync.

Endpoints:

	GET /health      store reachability and the state of the last run
	GET /ready       200 while the store is reachable and runs are on time
	GET /live        200 while the process runs
	GET /metrics     Prometheus metrics
	GET /runs        recent runs from the history journal, ?limit=N
	GET /runs/last   the most recent run
	GET /runs/{id}   one run by id
	GET /views       the last repair recorded for every view

The run and view endpoints answer 404 when no history journal is configured.
*/
package api
