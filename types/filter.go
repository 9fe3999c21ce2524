package types

import "context"

// AccessContext carries a caller's authorization identity. It is opaque to
// this library: sessions store it at creation time and pass it verbatim to
// the visibility filter for every notification.
type AccessContext any

// VisibilityFilter decides which raw event identifiers a given access
// context is authorized to see.
//
// The filter is synchronous and side-effect-free from the session's
// perspective. It may perform its own I/O (e.g. a data-store lookup) and is
// expected to run inside its own transactional scope. A filter error aborts
// the current transition without touching session state.
type VisibilityFilter interface {
	// FilterVisible returns the subset of ids visible to access, preserving
	// input order. The returned slice must not alias state the filter later
	// mutates.
	//
	// Parameters:
	//   - ctx: Context for cancellation of filter-side I/O
	//   - access: The session's fixed access context
	//   - ids: Raw event identifiers from a broadcast
	//
	// Returns:
	//   - []string: Visible subset, possibly empty
	//   - error: Filter-side failure; the notification is discarded as a whole
	FilterVisible(ctx context.Context, access AccessContext, ids []string) ([]string, error)
}

// VisibilityFilterFunc adapts a plain function to the VisibilityFilter
// interface.
type VisibilityFilterFunc func(ctx context.Context, access AccessContext, ids []string) ([]string, error)

// FilterVisible calls f.
func (f VisibilityFilterFunc) FilterVisible(ctx context.Context, access AccessContext, ids []string) ([]string, error) {
	return f(ctx, access, ids)
}
