package eval

// SignalKind is how a statement finished.
type SignalKind uint8

const (
	Normal SignalKind = iota
	Return
	Break
	Continue
)

func (k SignalKind) String() string {
	switch k {
	case Return:
		return "return"
	case Break:
		return "break"
	case Continue:
		return "continue"
	default:
		return "normal"
	}
}

// Signal is the completion of a statement. Every construct that runs a
// block hands any non-Normal signal it does not own straight back to its
// caller, so a return at any depth reaches the function boundary.
//
// Value carries the returned value for Return and the expression value of
// an expression statement for Normal.
type Signal struct {
	Kind  SignalKind
	Value Object
}

var normal = Signal{Kind: Normal}
