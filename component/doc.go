// Package component defines the lifecycle contract shared by long-running
// streamkit parts and an ordered Registry that starts, stops and health
// checks them together.
//
// stream.NewComponent adapts a stream controller to Component so several
// streams can be run as one unit.
package component
