/*
Package config loads viewsync settings with viper.

Values come from, in increasing precedence: built-in defaults, a YAML file,
VIEWSYNC_* environment variables and command-line flags bound by the caller.
Nested keys map to environment names by replacing dots with underscores:

	store.addr                VIEWSYNC_STORE_ADDR
	notify.telegram.token     VIEWSYNC_NOTIFY_TELEGRAM_TOKEN
	window.days               VIEWSYNC_WINDOW_DAYS

Example file:

	store:
	  addr: [clickhouse:9000]
	  database: public
	  source_table: zoon.stat
	window:
	  days: 30
	  timezone: Europe/Moscow
	views:
	  suppressed: [stat_corp]
	notify:
	  report_chat: "-100123"
	  status_chat: "-100456"
	history:
	  path: /var/lib/viewsync/history.db

Secrets (store.password, notify.telegram.token) are best passed through the
environment; they are never written back out by the yaml encoder.
*/
package config
