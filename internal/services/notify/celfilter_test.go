package notifysvc

import "testing"

func compileFilter(t *testing.T, spec string) Predicate {
	t.Helper()
	pred, err := NewCELFilter().Compile(spec)
	if err != nil {
		t.Fatalf("compile %q: %v", spec, err)
	}
	return pred
}

func TestEmptyFilterMatchesEverything(t *testing.T) {
	pred := compileFilter(t, "   ")
	ev := Event{Name: "anything", TimeMs: 42, Payload: []byte("x")}
	got, ok := pred.Match(ev)
	if !ok {
		t.Fatal("empty filter rejected an event")
	}
	if got.Name != ev.Name {
		t.Fatalf("event altered: %+v", got)
	}
}

func TestNameFilter(t *testing.T) {
	pred := compileFilter(t, `name == "link-down" || name.startsWith("alarm")`)

	if _, ok := pred.Match(Event{Name: "link-down"}); !ok {
		t.Fatal("exact name did not match")
	}
	if _, ok := pred.Match(Event{Name: "alarm-raised"}); !ok {
		t.Fatal("prefixed name did not match")
	}
	if _, ok := pred.Match(Event{Name: "config-change"}); ok {
		t.Fatal("unrelated name matched")
	}
}

func TestTimestampAndSizeFilter(t *testing.T) {
	pred := compileFilter(t, "ts_ms >= 1000 && size > 0")

	if _, ok := pred.Match(Event{Name: "a", TimeMs: 2000, Payload: []byte("x")}); !ok {
		t.Fatal("in-window event did not match")
	}
	if _, ok := pred.Match(Event{Name: "a", TimeMs: 500, Payload: []byte("x")}); ok {
		t.Fatal("early event matched")
	}
	if _, ok := pred.Match(Event{Name: "a", TimeMs: 2000}); ok {
		t.Fatal("empty payload matched a size filter")
	}
}

func TestJSONPayloadFilter(t *testing.T) {
	pred := compileFilter(t, `json.severity == "critical"`)

	ev := Event{Name: "alarm", Payload: []byte(`{"severity":"critical","if":"eth0"}`)}
	if _, ok := pred.Match(ev); !ok {
		t.Fatal("matching JSON payload rejected")
	}
	ev.Payload = []byte(`{"severity":"minor"}`)
	if _, ok := pred.Match(ev); ok {
		t.Fatal("non-matching JSON payload accepted")
	}
}

func TestEvaluationErrorMeansNoMatch(t *testing.T) {
	pred := compileFilter(t, `json.severity == "critical"`)

	// Payload is not JSON; field access fails at evaluation time.
	if _, ok := pred.Match(Event{Name: "alarm", Payload: []byte("plain text")}); ok {
		t.Fatal("evaluation error treated as a match")
	}
}

func TestCompileErrors(t *testing.T) {
	f := NewCELFilter()
	for _, spec := range []string{"name ==", "ts_ms + ", `unknown_var == 1`} {
		if _, err := f.Compile(spec); err == nil {
			t.Fatalf("compile %q succeeded", spec)
		}
	}
}

func TestNonBooleanResultMeansNoMatch(t *testing.T) {
	pred := compileFilter(t, `name`)
	if _, ok := pred.Match(Event{Name: "x"}); ok {
		t.Fatal("non-boolean expression matched")
	}
}
