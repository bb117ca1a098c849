// Package graph defines the typed entities of the weighted directed graph
// (Node, Edge, PathResult), the consistent Snapshot handed to the path
// engine, and the error taxonomy shared by every layer.
package graph
