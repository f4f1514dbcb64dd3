// Package engine contains the simulation loop and its supporting machinery:
// the real-time ticker that advances the universe in fixed steps, the
// bounded catch-up replay run once at boot, and the autosave schedule.
package engine
