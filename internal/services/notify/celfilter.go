package notifysvc

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/cel-go/cel"
)

// Filter compiles a subscriber's filter spec into a Predicate. The service
// consumes this as an opaque collaborator; NewCELFilter is the default
// implementation.
type Filter interface {
	Compile(spec string) (Predicate, error)
}

// Predicate decides whether a single event matches one subscriber, returning
// the event as it should be delivered to that subscriber.
type Predicate interface {
	Match(ev Event) (Event, bool)
}

// celFilter compiles CEL expressions. An empty spec yields a predicate that
// matches everything.
type celFilter struct{}

// NewCELFilter returns the CEL-backed Filter implementation.
func NewCELFilter() Filter { return celFilter{} }

func (celFilter) Compile(spec string) (Predicate, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return celPredicate{enabled: false}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("name", cel.StringType),
		cel.Variable("ts_ms", cel.IntType),
		cel.Variable("size", cel.IntType),
		cel.Variable("text", cel.StringType),
		// Expose parsed JSON payload (map/list/values) for field filtering
		cel.Variable("json", cel.DynType),
		// Current time in ms for windowed filters
		cel.Variable("now_ms", cel.IntType),
	)
	if err != nil {
		return nil, err
	}
	ast, iss := env.Parse(spec)
	if iss != nil && iss.Err() != nil {
		return nil, iss.Err()
	}
	checked, iss2 := env.Check(ast)
	if iss2 != nil && iss2.Err() != nil {
		return nil, iss2.Err()
	}
	prog, err := env.Program(checked)
	if err != nil {
		return nil, err
	}
	return celPredicate{prog: prog, enabled: true}, nil
}

type celPredicate struct {
	prog    cel.Program
	enabled bool
}

// Match evaluates the compiled expression against an event. When disabled,
// every event matches unchanged. Evaluation errors count as no-match.
func (p celPredicate) Match(ev Event) (Event, bool) {
	if !p.enabled {
		return ev, true
	}
	var jsonObj any
	_ = json.Unmarshal(ev.Payload, &jsonObj)
	out, _, err := p.prog.Eval(map[string]any{
		"name":   ev.Name,
		"ts_ms":  ev.TimeMs,
		"size":   int64(len(ev.Payload)),
		"text":   string(ev.Payload),
		"json":   jsonObj,
		"now_ms": time.Now().UnixMilli(),
	})
	if err != nil {
		return Event{}, false
	}
	b, ok := out.Value().(bool)
	if !ok || !b {
		return Event{}, false
	}
	return ev, true
}
