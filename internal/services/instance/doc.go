// Package instance manages the configured gateway instances.
//
// Records (name, URL, timestamps) go to the domain.InstanceStore; shared
// tokens go only to the domain.SecretsStore. Instances are referenced by id or
// by name, and an empty reference means the active instance.
package instance
