package graph

import "errors"

// Sentinel errors for graph construction and traversal.
var (
	ErrDuplicateNode = errors.New("node already registered")
	ErrUnknownNode   = errors.New("unknown node")
	ErrNoEntryPoint  = errors.New("no entry point set")
	ErrNoRoute       = errors.New("no outgoing edge matched")
)

// State slot keys written by the executor when a node fails and an error
// node is wired.
const (
	KeyNodeError  = "node_error"
	KeyFailedNode = "failed_node"
)
