// Package engine hosts the workflow registry and the per-workflow
// coordinator loop.
//
// The Registry is the single entry point for running workflows: it accepts
// tasks, spawns one coordinator goroutine per workflow, fans events out to
// subscribers and retains terminal snapshots until eviction. The coordinator
// owns its workflow's state exclusively; agents receive deep copies and the
// coordinator commits the returned copy, so no state field is ever locked.
//
// Concurrency model:
//   - One goroutine per running workflow, created by Start.
//   - All registry maps are guarded by a single mutex; the coordinator only
//     touches them through commit and finalize.
//   - Subscribers get buffered channels; a full channel drops the event
//     rather than stalling the workflow.
//   - Workflows run on contexts derived from the registry, not from the
//     transport connection, so they outlive disconnects.
package engine
