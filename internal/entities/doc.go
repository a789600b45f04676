// Package entities holds the domain types shared by repositories,
// orchestrators and handlers: sessions, characters, maps, tokens, NPCs,
// turn state, the activity log and the action union.
package entities
