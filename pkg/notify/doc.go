// Package notify delivers run messages to chat channels.
package notify
