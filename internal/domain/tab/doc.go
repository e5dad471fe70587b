/*
Package tab runs browser tabs.

Each Tab owns a navigation.Controller and the live frametree.Tree it
classifies commits against. Neither is safe for concurrent use, so a tab
serializes all access through one event-loop goroutine: every exported
method sends an explicit event (LoadURL, History, Reload, Stop,
BeginNavigation, CommitNavigation, FailNavigation, FrameAttached,
FrameDetached, SetTitle, Snapshot) and waits for its reply.

The tab's navigator hands requests to a Renderer and keeps one in-flight
request per frame. Stop cancels them all and reports a load_failed event
for each. Commits are checked against the process owning the frame; a
mismatch drops the commit and flags the process.

Manager creates and tracks tabs and fans their events out through a Hub.
*/
package tab
