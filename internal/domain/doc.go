// Package domain defines core data models and interfaces shared across the module.
// It contains plain types (wire/state), contracts (interfaces) and the error
// categories every layer wraps.
package domain
