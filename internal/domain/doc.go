// Package domain defines core data models and interfaces shared across the app.
// It contains plain types (instances, connection status), contracts
// (interfaces) and the error kinds every layer wraps.
package domain
