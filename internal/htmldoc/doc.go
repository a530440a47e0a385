// Package htmldoc turns raw, possibly malformed HTML into a queryable document.
//
// Normalize never fails on broken markup. Invalid byte runs and control
// characters are skipped, unclosed and stray tags are left to the HTML5
// tree builder, and each repair is recorded as a parse warning. Only input
// that is empty or not text at all is rejected, with ErrMalformedInput.
//
// The resulting Document exposes both the raw *html.Node tree and a
// goquery view of it so region locators can use CSS selectors.
package htmldoc
