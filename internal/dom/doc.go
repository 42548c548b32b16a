// Package dom provides a small, lockable HTML document that components can be
// handed instead of reaching for a process-wide page. Elements are addressed
// by data attributes rather than IDs so the host template stays free to
// choose its own markup.
//
// All reads and writes go through Document.View and Document.Update, which
// makes a multi-element render atomic with respect to other renders.
package dom
