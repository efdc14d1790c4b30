// Package manager coordinates model instances for the daemon: loading
// engines on demand within a VRAM budget, evicting idle ones, draining on
// unload, and running requests on each instance's controller.Session.
//
//   - manager.go: core Manager type, constructor, Ready, ListModels, Close.
//   - config.go: ManagerConfig and package defaults; NewWithConfig applies defaults.
//   - types.go: State, ModelInfo, Instance, Snapshot.
//   - errors.go: error types and helpers (IsTooBusy, IsModelNotFound, ...).
//   - helpers.go: model lookup and VRAM estimation.
//   - ensure.go: EnsureInstance and engine loading.
//   - evict.go: LRU eviction to fit within the VRAM budget.
//   - unload.go: drain and unload.
//   - admission.go: instance lookup for session operations and busy mapping.
//   - infer.go, ndjson.go: the streaming inference entry point.
//   - session_ops.go: stop, reset, save and load of session memory.
//   - status_report.go: Status/Snapshot reporting.
//   - ops.go: asynchronous Switch.
//   - events.go, eventpub_memory.go: lifecycle events.
//   - metrics.go: Prometheus generation metrics.
//   - sanity.go: startup dependency checks.
//
// The engine is chosen at build time: with `-tags=llama` engine.Load links
// llama.cpp, otherwise loads fail and surface as IsDependencyUnavailable.
// Tests inject engines through ManagerConfig.Loader.
package manager
