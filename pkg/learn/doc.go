// Package learn is a typed client for the Blackboard Learn public REST API,
// operating over the session cookies produced by the SSO negotiation.
//
// The client covers the read-only surface a course mirror needs: the current
// user, course memberships with term and instructor enrichment, the content
// tree, and attachment downloads.
//
// # Degradation policy
//
// Course listing fails loudly, since nothing works without it. Everything
// that merely enriches or expands the listing is best-effort: term names fall
// back to the term id, instructor lookups silently yield no instructor, and
// content or attachment queries degrade to empty lists. A transient failure
// on one node should never abort a whole sync pass.
//
// # Usage
//
//	client, err := learn.NewClient("https://lms.example.edu", cookies, learn.Options{})
//	user, err := client.CurrentUser(ctx)
//	courses, err := client.Courses(ctx, user.ID)
package learn
