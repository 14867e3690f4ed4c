package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Clav3rbot/BlackBoardSync/internal/htmlform"
	"github.com/Clav3rbot/BlackBoardSync/internal/webclient"
)

// Protocol-shape errors. Any of these means the federation's flow changed
// and the scraper needs a code review, so they are never retried.
var (
	ErrSAMLFormNotFound  = errors.New("auth: SAML request form not found")
	ErrLoginFormNotFound = errors.New("auth: identity provider login form not found")
	ErrNoSAMLResponse    = errors.New("auth: no SAML response received")
	ErrNoSession         = errors.New("auth: login succeeded but no session cookies were set")
)

// CredentialsError reports a login rejected by the identity provider,
// carrying the IdP's own message when it renders one.
type CredentialsError struct {
	Message string
}

func (e *CredentialsError) Error() string {
	if e.Message == "" {
		return "auth: invalid credentials"
	}
	return "auth: " + e.Message
}

const formEncoded = "application/x-www-form-urlencoded"

// Options configures the negotiator.
type Options struct {
	// Web configures the underlying HTTP walker.
	Web webclient.Options
}

// Negotiator performs the SSO handshake against one Learn instance.
type Negotiator struct {
	base *url.URL
	opts Options
}

// New creates a negotiator for the Learn instance at baseURL
// (e.g. "https://lms.example.edu").
func New(baseURL string, opts Options) (*Negotiator, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("auth: parse base URL: %w", err)
	}
	if base.Hostname() == "" {
		return nil, fmt.Errorf("auth: base URL %q has no host", baseURL)
	}
	return &Negotiator{base: base, opts: opts}, nil
}

// Login runs the four-step handshake and returns the session cookies for the
// application hostname. The returned cookies are "name=value" strings ready
// for a learn.Client.
func (n *Negotiator) Login(ctx context.Context, username, password string) ([]string, error) {
	client := webclient.New(n.opts.Web)

	// Step 1: land on the IdP's entry page.
	entry, err := client.Send(ctx, http.MethodGet, n.base.String()+"/ultra/course", "", "", true)
	if err != nil {
		return nil, err
	}

	samlRequest, okReq := htmlform.HiddenField(entry.Body, "SAMLRequest")
	samlAction, okAct := htmlform.Action(entry.Body)
	if !okReq || !okAct {
		return nil, ErrSAMLFormNotFound
	}
	relayState, _ := htmlform.HiddenField(entry.Body, "RelayState")

	samlURL, err := entry.FinalURL.Parse(samlAction)
	if err != nil {
		return nil, fmt.Errorf("auth: resolve SAML action: %w", err)
	}

	// Step 2: forward the authentication request to the IdP.
	body := url.Values{"SAMLRequest": {samlRequest}}
	if relayState != "" {
		body.Set("RelayState", relayState)
	}
	loginPage, err := client.Send(ctx, http.MethodPost, samlURL.String(), body.Encode(), formEncoded, true)
	if err != nil {
		return nil, err
	}

	loginAction, ok := htmlform.Action(loginPage.Body)
	if !ok {
		return nil, ErrLoginFormNotFound
	}
	loginURL, err := loginPage.FinalURL.Parse(loginAction)
	if err != nil {
		return nil, fmt.Errorf("auth: resolve login action: %w", err)
	}

	// Step 3: submit credentials. Redirects are not followed because the IdP
	// reports bad credentials as an inline error page.
	creds := url.Values{
		"j_username":       {username},
		"j_password":       {password},
		"_eventId_proceed": {""},
	}
	assertion, err := client.Send(ctx, http.MethodPost, loginURL.String(), creds.Encode(), formEncoded, false)
	if err != nil {
		return nil, err
	}

	if msg, ok := htmlform.ErrorText(assertion.Body); ok {
		return nil, &CredentialsError{Message: msg}
	}

	samlResponse, okResp := htmlform.HiddenField(assertion.Body, "SAMLResponse")
	acsAction, okACS := htmlform.Action(assertion.Body)
	if !okResp || !okACS {
		return nil, ErrNoSAMLResponse
	}
	returnRelay, _ := htmlform.HiddenField(assertion.Body, "RelayState")

	acsURL, err := assertion.FinalURL.Parse(acsAction)
	if err != nil {
		return nil, fmt.Errorf("auth: resolve ACS action: %w", err)
	}

	// Step 4: deliver the assertion to the service provider.
	ret := url.Values{"SAMLResponse": {samlResponse}}
	if returnRelay != "" {
		ret.Set("RelayState", returnRelay)
	}
	if _, err := client.Send(ctx, http.MethodPost, acsURL.String(), ret.Encode(), formEncoded, true); err != nil {
		return nil, err
	}

	cookies := client.Jar().Export(n.base.Hostname())
	if len(cookies) == 0 {
		return nil, ErrNoSession
	}
	return cookies, nil
}
