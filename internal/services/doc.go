// Package services defines shared utilities consumed by the workflow step
// handlers and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp session IDs, step names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper so failures carry a
//     consistent classification (validation vs external vs transient).
//
// Use these helpers when wiring new step logic so operational behaviour
// (error handling, observability) stays uniform across the pipeline.
package services
