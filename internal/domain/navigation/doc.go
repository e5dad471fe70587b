// Package navigation implements a tab's back/forward history and the
// classification of every frame commit in that tab.
//
// Components:
//   - Controller: owns the entry list plus the pending and transient entries
//   - Entry: one back/forward stop for the whole page
//   - FrameEntryTree: per-entry snapshot of each frame's committed state
//   - Classify: pure mapping from (state, commit) to a NavigationType
//
// Navigation Types:
//   - NewPage: a new document, appended or replacing the current entry
//   - ExistingPage: back/forward, reload, or a retried failed load
//   - SamePage: a new load of the current URL turned into a reload
//   - InPage: pushState, replaceState, fragment and same-document traversal
//   - NewSubframe / AutoSubframe: subframe commits, never new entries
//   - NavIgnore: accepted by the renderer, no change to history
//
// Commit Flow:
//  1. LoadURL/GoToIndex/Reload set a pending entry and call the Navigator
//  2. The renderer commits; the tab calls RendererDidNavigate
//  3. The commit is classified and spliced into the list
//  4. Observers receive LoadCommittedDetails
//
// A Controller has no locks. The tab that owns it serializes all calls
// through its event loop.
//
// Example Usage:
//
//	ctrl := navigation.New(navigation.DefaultConfig(), navigator, frameTree)
//	ctrl.LoadURL("https://example.com/", navigation.Referrer{}, navigation.TransitionTyped, "")
//	details, ok := ctrl.RendererDidNavigate(frameTree.RootID(), params)
package navigation
