// Package session holds the per-conversation state of the imaging assistant
// and the orchestrator that drives a full user turn: gate checks, staging the
// user turn in memory, running the agent loop, committing or rolling back the
// exchange, and extracting annotated-image artifacts for the reply.
package session
