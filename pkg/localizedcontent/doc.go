// Package localizedcontent provides the localized post engine: read-time
// translation overlay with deterministic fallback, and orchestration of the
// side-effect writes (translations, media rows, category links) that must
// accompany creating, updating and deleting a post.
//
// It exposes a single Service interface built with functional options.
// Repository, TranslationStore and FavoriteStore implementations (memory,
// Postgres) live under repo/, FileStore backends (memory, filesystem, S3)
// under storage/.
//
// # Consistency Caveat
//
// The stores offer no cross-entity transaction. A create or update is a
// sequence of independent store calls recorded in a unit of work. When a step
// after the base record fails, the completed steps stay committed and the
// caller receives a *PartialWriteError describing them; the error can replay
// compensating actions on demand (see WithCompensateOnFailure). Translation
// upserts and favorite toggles are not guarded against concurrent writers on
// the same key beyond what the store itself enforces.
package localizedcontent
