// Package internal documents the event gallery server internals.
//
// The internal tree is organized by responsibility:
// - api: HTTP handlers, middleware, problem responses, and routing
// - domain: events, profiles, and the gallery moderation workflow
// - storage: Postgres repositories and migrations
// - media: image object storage (S3 or local disk)
// - jobs: River workers for media cleanup and moderator notices
// - auth, audit, config, email, metrics, telemetry: shared infrastructure
//
// Code in internal/ is not meant for external import.
package internal
