// Package winsys manages GPU-visible memory objects and the submission of
// command buffers that reference them. A Session owns the device connection,
// the capability probe results, and one persistent hardware context; from it
// callers allocate or import refcounted MemoryObjects, record relocations
// against command buffers, check the working set against the device
// aperture, and dispatch finished buffers to a hardware execution ring.
//
// The library is synchronous and thread-safe: there are no internal
// goroutines, all work happens on the calling thread, and Wait is the only
// blocking point. No operation retries automatically; every failure is
// surfaced so the caller can decide whether to retry or abort.
package winsys
