// Package htmlform extracts the handful of form fields the SSO handshake
// depends on. The federation's pages are scraped opportunistically: the first
// form's action, named hidden inputs, and the IdP's error element. Anything
// beyond that is out of scope.
package htmlform

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Action returns the action attribute of the first form in the document.
func Action(body []byte) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", false
	}
	action, ok := doc.Find("form").First().Attr("action")
	if !ok || action == "" {
		return "", false
	}
	return action, true
}

// HiddenField returns the value of the input with the given name.
func HiddenField(body []byte, name string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", false
	}
	value, ok := doc.Find(`input[name="` + name + `"]`).First().Attr("value")
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

// ErrorText returns the trimmed text of the page's error element, if any.
// The IdP renders credential failures inline under a .error class instead of
// redirecting.
func ErrorText(body []byte) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", false
	}
	sel := doc.Find(".error").First()
	if sel.Length() == 0 {
		return "", false
	}
	return strings.TrimSpace(sel.Text()), true
}
