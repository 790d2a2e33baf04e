// Package serde encodes pipeline nodes as serialized records and revives
// them through a statically populated Registry.
//
// A serialized record has the canonical shape
//
//	{"v":1,"type":"constructor","identifier":["pipekit","nodes","suffix","Suffix"],"arguments":["a"]}
//
// Nodes embed Base to carry their identifier and constructor arguments.
// Deserialize walks arbitrary JSON, reviving every record it finds and
// leaving other objects and arrays structurally intact.
package serde
