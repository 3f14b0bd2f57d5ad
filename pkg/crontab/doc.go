// Package crontab manages recurring scheduled tasks across two incompatible
// native schedulers behind one API: the Unix crontab text format and the
// Windows Task Scheduler XML document set.
//
// # Model
//
// An Entry couples a stable opaque id, an executable command, a five-field
// schedule (minute hour dom month dow) and optional metadata. Native-store
// records that cannot be attributed to this system — comments, environment
// lines, hand-written jobs, exotic Windows triggers — become foreign entries:
// kept verbatim, re-emitted byte-for-byte on every save, invisible to
// queries. Data the system did not write is never thrown away.
//
// # Identity
//
// Native stores have no stable identifier concept, so ids are embedded in a
// backend-specific encoding (a tag comment above the crontab line, the task
// id attribute on Windows) and recovered on parse. Untagged-but-parsable
// records get a deterministic content-derived id from Allocator, so repeated
// parses of unchanged external content do not fabricate new identities.
//
// # Consistency
//
// Manager runs every mutation as one load→transform→save cycle against its
// Backend and keeps no state between calls. Saves replace the whole store
// atomically; a failed save leaves the previous content untouched. Sequential
// operations therefore observe one consistent view. Concurrent external
// editors are not locked against — last write wins, detected best-effort via
// the audit checksum.
//
// Platform backends live in the unix and windows subpackages; selection
// happens once at construction time.
package crontab
