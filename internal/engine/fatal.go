package engine

import "strings"

// Classifier decides whether an error raised during a single document's
// extraction is document-local (skip, continue) or run-fatal (abort all
// outstanding work). Kept behind an interface so the matching strategy can
// be swapped for structured error codes if the remote service ever exposes
// them.
type Classifier interface {
	IsFatal(err error) bool
}

// FatalMarkers are matched case-insensitively against an error's textual
// description. A match indicates an account-level failure: continuing would
// just repeat it for every remaining document.
var FatalMarkers = []string{
	"quota",
	"rate limit",
	"resource exhausted",
	"resource_exhausted",
	"permission",
	"unauthorized",
	"forbidden",
	"invalid api key",
	"api key not valid",
	"credential",
	"billing",
	"token limit",
	"context length",
	"input token count exceeds",
}

// LexicalClassifier matches error text against a fixed marker set.
type LexicalClassifier struct {
	markers []string
}

// NewLexicalClassifier returns a classifier over FatalMarkers. Additional
// markers may be supplied.
func NewLexicalClassifier(extra ...string) *LexicalClassifier {
	return &LexicalClassifier{markers: append(append([]string{}, FatalMarkers...), extra...)}
}

func (c *LexicalClassifier) IsFatal(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range c.markers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
