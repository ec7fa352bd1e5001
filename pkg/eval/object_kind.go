package eval

// ObjectKind represents the type of an object using an enum for faster comparisons.
type ObjectKind uint8

const (
	KindInvalid ObjectKind = iota
	KindInteger
	KindFloat
	KindString
	KindBoolean
	KindNull
	KindArray
	KindDict
	KindFunction
	KindBuiltin
	KindBridge
	KindModule
	KindNative
)

func (k ObjectKind) String() string {
	switch k {
	case KindInteger:
		return "INTEGER"
	case KindFloat:
		return "FLOAT"
	case KindString:
		return "STRING"
	case KindBoolean:
		return "BOOLEAN"
	case KindNull:
		return "NULL"
	case KindArray:
		return "ARRAY"
	case KindDict:
		return "DICT"
	case KindFunction:
		return "FUNCTION"
	case KindBuiltin:
		return "BUILTIN"
	case KindBridge:
		return "BRIDGE"
	case KindModule:
		return "MODULE"
	case KindNative:
		return "NATIVE"
	default:
		return "INVALID"
	}
}

// Integer cache for small integers (-128 to 127)
const (
	minCachedInt = -128
	maxCachedInt = 127
	intCacheSize = maxCachedInt - minCachedInt + 1
)

var (
	intCache [intCacheSize]*Integer

	NULL  *Null
	TRUE  *Boolean
	FALSE *Boolean
)

// Initialize the integer cache and common singletons
func init() {
	for i := 0; i < intCacheSize; i++ {
		intCache[i] = &Integer{Value: int64(i) + minCachedInt}
	}

	NULL = &Null{}
	TRUE = &Boolean{Value: true}
	FALSE = &Boolean{Value: false}
}

// NewInteger returns a cached integer for small values or allocates a new one.
// Cached integers are shared, so Integer values must never be mutated.
func NewInteger(value int64) *Integer {
	if value >= minCachedInt && value <= maxCachedInt {
		return intCache[value-minCachedInt]
	}
	return &Integer{Value: value}
}

func NewString(value string) *String { return &String{Value: value} }

func NewFloat(value float64) *Float { return &Float{Value: value} }

func NewArray(elements ...Object) *Array {
	if elements == nil {
		elements = []Object{}
	}
	return &Array{Elements: elements}
}

func nativeBoolToBooleanObject(input bool) *Boolean {
	if input {
		return TRUE
	}
	return FALSE
}

// NewBoolean is the exported form of nativeBoolToBooleanObject for bridges.
func NewBoolean(input bool) *Boolean { return nativeBoolToBooleanObject(input) }
