// Package auth negotiates an authenticated Learn session through the SAML
// SSO federation.
//
// The handshake is a fixed four-step form chain:
//
//  1. GET the protected course landing page, following redirects to the
//     identity provider. The page carries a SAMLRequest hidden field.
//  2. POST the SAMLRequest (and RelayState, if present) to the resolved form
//     action; the response is the credential entry form.
//  3. POST j_username/j_password without following redirects, since the IdP
//     renders credential failures inline. A successful response carries the
//     SAMLResponse assertion.
//  4. POST the assertion back to the service provider's ACS endpoint, which
//     sets the application session cookies.
//
// Each Login call uses a fresh cookie jar; the negotiator holds no state
// between attempts. On success it returns the exported session cookies for
// the application hostname.
package auth
