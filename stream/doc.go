// Package stream mediates between a long-running agent runtime and a
// presentation layer. It tracks one cancellable run per conversation
// thread, translates each raw state snapshot into typed, deduplicated
// events, surfaces human-in-the-loop pause points, and drives resumption
// of a paused run from an external decision.
package stream
