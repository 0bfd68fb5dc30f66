package parser

import "errors"

// Failure modes named in spec.md §4.1/§7. Checked with errors.Is, matching
// the typed-sentinel idiom the teacher uses for XMPP/transport errors.
var (
	ErrMalformedHeader = errors.New("parser: malformed communication header")
	ErrMissingUGC      = errors.New("parser: missing UGC geographic code block")
	ErrInvalidVTEC     = errors.New("parser: invalid VTEC line")
	ErrEmptyBody       = errors.New("parser: empty product body")
)
