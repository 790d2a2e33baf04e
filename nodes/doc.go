// Package nodes holds the built-in pipeline nodes. Every node here is
// serializable; Register adds their constructors to a serde.Registry.
package nodes
