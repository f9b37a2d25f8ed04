// Package contentgate implements a content entitlement and lifecycle engine:
// a review state machine, immutable version history, an access-control
// resolver, a pricing/purchase workflow, and token-addressed third-party
// shares, over pluggable repository and blob storage backends.
//
// It exposes a single Service interface. Every read path composes through the
// entitlement resolver, which evaluates deny gates (archived, inactive, date
// window, password) before any grant rule, then public visibility, direct
// access grants, and purchased entitlement, in that order. Resolver results
// are computed fresh per request and are never cached.
//
// Repository implementations (memory, Postgres) live under repo/; blob
// storage backends (memory, S3) under storage/; HTTP handlers under api/.
package contentgate
