/*
Package frametree holds the live structure of frames for the document a tab
is currently displaying.

The tree is independent of history: child nodes come and go as the document
inserts and removes iframes, and a node's identity survives ordinary
navigations of that frame. Only Reset replaces the root.

Nodes live in an arena keyed by a monotonic integer ID. Parent and child
links are IDs, never pointers, so removing a subtree is bookkeeping and a
stale ID simply fails lookup.

A Tree is not safe for concurrent use. The owning tab mutates it from its
event loop goroutine only.
*/
package frametree
