// Package session stores visualizer sessions in memory.
//
// Sessions use 4-character hex IDs generated from crypto/rand; lookups are
// case-insensitive. Sessions are not persisted and are lost on restart.
// CleanupExpiredSessions removes idle sessions and cancels any search they
// still have running.
//
// Usage:
//
//	manager := session.NewManager()
//	sess, err := manager.Create("", "open", layout)
//	sess, err = manager.Get(sess.ID)
package session
