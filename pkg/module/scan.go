package module

import (
	"sona/pkg/lexer"
	"sona/pkg/token"
)

// NativeRefs returns the distinct native identifiers referenced by src, in
// order of first appearance. The scan works on tokens, so the marker inside
// a string literal or a comment is not a reference.
func NativeRefs(src string) []string {
	var refs []string
	seen := map[string]bool{}

	l := lexer.New(src)
	for tok := l.NextToken(); tok.Type != token.EOF; tok = l.NextToken() {
		if tok.Type != token.IDENT || !token.IsNative(tok.Literal) || seen[tok.Literal] {
			continue
		}
		seen[tok.Literal] = true
		refs = append(refs, tok.Literal)
	}
	return refs
}
