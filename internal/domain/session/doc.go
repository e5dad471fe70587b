// Package session saves and restores the back/forward lists of open tabs.
//
// A session is every open tab's history: entries with their frame entry
// trees and opaque page state, plus the selected index. Sessions are
// stored one file per session as sonic-encoded JSON compressed with zstd.
//
// Restoration:
//  1. Load and validate the session file
//  2. Optionally close the open tabs
//  3. Create one tab per saved tab and restore its history
//  4. Each restored tab loads its selected entry
//
// Entries keep their page state and sequence numbers, so a restored entry
// loads as a history navigation rather than a new one.
//
// Example Usage:
//
//	codec, _ := session.NewCodec(cfg.Session.CompressionLevel)
//	store, _ := session.NewFileStore(cfg.Session.Dir)
//	sessions := session.NewManager(tabs, store, codec, log)
//	saved, err := sessions.Save(ctx, "work")
//	tabIDs, err := sessions.Restore(ctx, saved.ID, false)
package session
