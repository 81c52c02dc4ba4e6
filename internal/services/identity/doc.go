// Package identity exposes the per-instance device identity.
//
// The identity itself lives in the domain.SecretsStore and is created on
// first use. This package only reads its public half.
package identity
