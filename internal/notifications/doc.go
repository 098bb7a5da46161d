// Package notifications sends ntfy push notifications for workflow
// milestones. Without a configured topic the service is a noop.
package notifications
