// Package engine defines the boundary to the framework that actually
// executes networks. A Network hands the engine a Request naming the graph,
// the mode, the device and the tensors to fetch; the engine answers with
// Outputs keyed by fetch name. Engines that can persist model state also
// implement Checkpointer.
package engine
