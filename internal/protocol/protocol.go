// Package protocol defines the request/response surface of the runtime
// inspection protocol the console drives. A Channel pairs every posted
// request with exactly one reply; notifications are buffered by the host
// and drained by the client, which only happens once at session startup.
package protocol

import "encoding/json"

// Channel is a synchronous request/response primitive. One Post is a full
// round trip; callers never issue a second request on the same channel
// before the first returns.
type Channel interface {
	// Post sends a request and blocks for its reply. A structured error
	// reply is returned as *Error; transport failures as any other error.
	Post(method string, params any) (json.RawMessage, error)

	// Notifications drains the buffered notification stream.
	Notifications() []Notification
}

// Error is a structured error reply from the host.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}

// Notification is an unsolicited event from the host.
type Notification struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

// ExecutionContextCreated is the payload of the context-creation
// notification emitted in response to Runtime.enable.
type ExecutionContextCreated struct {
	Context struct {
		ID     int    `json:"id"`
		Origin string `json:"origin"`
		Name   string `json:"name"`
	} `json:"context"`
}

// RemoteObject is a mirrored reference to a value living inside the
// execution context. Primitives carry their value inline; objects carry an
// id resolvable through Runtime.getProperties and Runtime.callFunctionOn.
type RemoteObject struct {
	Type        string          `json:"type"`
	Subtype     string          `json:"subtype,omitempty"`
	ClassName   string          `json:"className,omitempty"`
	Value       json.RawMessage `json:"value,omitempty"`
	Description string          `json:"description,omitempty"`
	ObjectID    string          `json:"objectId,omitempty"`
}

// ExceptionDetails describes a thrown value.
type ExceptionDetails struct {
	Text      string        `json:"text"`
	Exception *RemoteObject `json:"exception,omitempty"`
}

type EvaluateParams struct {
	Expression        string  `json:"expression"`
	ContextID         int     `json:"contextId,omitempty"`
	ReplMode          bool    `json:"replMode,omitempty"`
	ThrowOnSideEffect bool    `json:"throwOnSideEffect,omitempty"`
	Timeout           float64 `json:"timeout,omitempty"` // milliseconds
}

type EvaluateResult struct {
	Result           RemoteObject      `json:"result"`
	ExceptionDetails *ExceptionDetails `json:"exceptionDetails,omitempty"`
}

// CallArgument passes either a primitive value or an object reference into
// Runtime.callFunctionOn.
type CallArgument struct {
	Value    json.RawMessage `json:"value,omitempty"`
	ObjectID string          `json:"objectId,omitempty"`
}

// ArgumentFor converts an evaluation result into a call argument,
// preferring the object reference when one exists.
func ArgumentFor(obj RemoteObject) CallArgument {
	if obj.ObjectID != "" {
		return CallArgument{ObjectID: obj.ObjectID}
	}
	return CallArgument{Value: obj.Value}
}

type CallFunctionOnParams struct {
	ExecutionContextID  int            `json:"executionContextId,omitempty"`
	FunctionDeclaration string         `json:"functionDeclaration"`
	Arguments           []CallArgument `json:"arguments,omitempty"`
}

type CallFunctionOnResult struct {
	Result           RemoteObject      `json:"result"`
	ExceptionDetails *ExceptionDetails `json:"exceptionDetails,omitempty"`
}

type GetPropertiesParams struct {
	ObjectID      string `json:"objectId"`
	OwnProperties bool   `json:"ownProperties,omitempty"`
}

type PropertyDescriptor struct {
	Name  string        `json:"name"`
	Value *RemoteObject `json:"value,omitempty"`
}

type GetPropertiesResult struct {
	Result []PropertyDescriptor `json:"result"`
}

type GlobalLexicalScopeNamesParams struct {
	ExecutionContextID int `json:"executionContextId,omitempty"`
}

type GlobalLexicalScopeNamesResult struct {
	Names []string `json:"names"`
}
