// Package notify delivers reservation events to the calendar and email
// workers. Events are published as persistent JSON messages on a durable
// RabbitMQ queue; LogNotifier is used when no broker is configured.
package notify
