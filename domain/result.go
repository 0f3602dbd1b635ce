package domain

// ResultKind tags the shape of a handler result. The router decides how to
// finish an invocation by switching on the kind; there is no structural
// probing of handler return values.
type ResultKind int

const (
	// ResultText is a plain text response.
	ResultText ResultKind = iota + 1
	// ResultData is a typed payload response (JSON, binary, media, or a
	// stream-backed container).
	ResultData
	// ResultHandoff delegates the rest of the invocation to another
	// agent; the target's response becomes this invocation's response.
	ResultHandoff
)

// HandoffSpec names the hand-off target and its optional arguments. Nil
// Args means the original request is forwarded unchanged.
type HandoffSpec struct {
	Agent AgentRef
	Args  *InvocationArguments
}
