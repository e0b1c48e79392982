// Package crawl implements the traversal core: canonical URL handling, the
// visit ledger, the admission policy, the frontier, and the orchestrator that
// drives a single-browser crawl run from seed to completion.
package crawl
