// Package webclient provides the HTTP walker used by the SSO negotiation.
//
// The walker issues a single request with the jar's cookies attached and
// optionally follows redirects by hand, feeding the jar on every hop. Manual
// redirect handling matters here: the identity provider mixes 302/303
// responses with inline error pages, and net/http's automatic redirects would
// both hide intermediate Set-Cookie headers from hosts along the chain and
// resubmit POST bodies the federation does not expect.
//
// # Usage
//
//	client := webclient.New(webclient.DefaultOptions())
//	resp, err := client.Send(ctx, http.MethodGet, entryURL, "", "", true)
//	// resp.Body, resp.FinalURL
package webclient
