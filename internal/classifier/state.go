package classifier

// State is the block-comment state carried from one physical line to the next.
// Block comments do not nest, so two states are enough.
type State int

const (
	// Normal means no block comment is open.
	Normal State = iota
	// InBlock means a "/*" has been seen and its "*/" has not.
	InBlock
)

// Token is a comment delimiter recognised by the scanner.
type Token int

const (
	// TokenOpen is "/*".
	TokenOpen Token = iota
	// TokenClose is "*/".
	TokenClose
)

// Comment delimiters of the C family grammar.
const (
	LineMarker  = "//"
	BlockOpen   = "/*"
	BlockClose  = "*/"
	markerWidth = 2
)

// Transition returns the state after consuming t.
//
// A "/*" while InBlock is ignored and a "*/" while Normal is ignored:
// the flag is a boolean, not a depth counter.
func (s State) Transition(t Token) State {
	switch {
	case s == Normal && t == TokenOpen:
		return InBlock
	case s == InBlock && t == TokenClose:
		return Normal
	default:
		return s
	}
}

func (s State) String() string {
	switch s {
	case Normal:
		return "normal"
	case InBlock:
		return "in_block"
	default:
		return "unknown"
	}
}
