package oracle

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

// Layer names one extraction strategy.
type Layer string

const (
	LayerDirect Layer = "direct"
	LayerFenced Layer = "fenced"
	LayerBraces Layer = "braces"
	LayerRepair Layer = "repair"
)

// Attempt is the tagged result of one extraction layer: Payload is set when
// the layer produced an acceptable object, Reason otherwise.
type Attempt struct {
	Layer   Layer
	Payload []byte
	Reason  string
}

// OK reports whether the layer produced an accepted payload.
func (a Attempt) OK() bool {
	return a.Reason == "" && len(a.Payload) > 0
}

// ShapeCheck validates a syntactically valid JSON object against the shape a
// caller expects.
type ShapeCheck func(payload []byte) error

var fencePattern = regexp.MustCompile("(?s)```(?:[A-Za-z]+)?\\s*(.*?)\\s*```")

// Extract pulls a JSON object out of free text. Layers run in order (direct
// parse, fenced block, outer braces, repair) and the first candidate that is
// a valid object and passes check wins. All attempts are returned for
// diagnostics. When every layer fails the error wraps ErrMalformed.
func Extract(text string, check ShapeCheck) ([]byte, []Attempt, error) {
	var attempts []Attempt

	try := func(layer Layer, candidate string) bool {
		a := accept(layer, candidate, check)
		attempts = append(attempts, a)
		return a.OK()
	}

	trimmed := strings.TrimSpace(text)
	if try(LayerDirect, trimmed) {
		return attempts[len(attempts)-1].Payload, attempts, nil
	}

	fenced := fencePattern.FindAllStringSubmatch(text, -1)
	if len(fenced) == 0 {
		attempts = append(attempts, Attempt{Layer: LayerFenced, Reason: "no fenced block"})
	}
	for _, m := range fenced {
		if try(LayerFenced, m[1]) {
			return attempts[len(attempts)-1].Payload, attempts, nil
		}
	}

	braces, ok := outerBraces(text)
	if !ok {
		attempts = append(attempts, Attempt{Layer: LayerBraces, Reason: "no braces"})
		return nil, attempts, malformed(attempts)
	}
	if try(LayerBraces, braces) {
		return attempts[len(attempts)-1].Payload, attempts, nil
	}

	if try(LayerRepair, repairJSON(braces)) {
		return attempts[len(attempts)-1].Payload, attempts, nil
	}
	return nil, attempts, malformed(attempts)
}

func accept(layer Layer, candidate string, check ShapeCheck) Attempt {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return Attempt{Layer: layer, Reason: "empty candidate"}
	}
	if !gjson.Valid(candidate) {
		return Attempt{Layer: layer, Reason: "invalid json"}
	}
	if !gjson.Parse(candidate).IsObject() {
		return Attempt{Layer: layer, Reason: "not an object"}
	}
	payload := []byte(candidate)
	if check != nil {
		if err := check(payload); err != nil {
			return Attempt{Layer: layer, Reason: "shape: " + err.Error()}
		}
	}
	return Attempt{Layer: layer, Payload: payload}
}

func malformed(attempts []Attempt) error {
	reasons := make([]string, 0, len(attempts))
	for _, a := range attempts {
		reasons = append(reasons, fmt.Sprintf("%s: %s", a.Layer, a.Reason))
	}
	return fmt.Errorf("%w: %s", ErrMalformed, strings.Join(reasons, "; "))
}

func outerBraces(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// repairJSON fixes the common defects of model-written JSON: raw control
// characters inside strings, trailing commas, Python literals and // line
// comments.
func repairJSON(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
				b.WriteByte(ch)
			case ch == '\\':
				escaped = true
				b.WriteByte(ch)
			case ch == '"':
				inString = false
				b.WriteByte(ch)
			case ch == '\n':
				b.WriteString(`\n`)
			case ch == '\r':
				b.WriteString(`\r`)
			case ch == '\t':
				b.WriteString(`\t`)
			case ch < 0x20:
				fmt.Fprintf(&b, `\u%04x`, ch)
			default:
				b.WriteByte(ch)
			}
			continue
		}

		switch {
		case ch == '"':
			inString = true
			b.WriteByte(ch)
		case ch == '/' && i+1 < len(s) && s[i+1] == '/':
			for i < len(s) && s[i] != '\n' {
				i++
			}
			if i < len(s) {
				b.WriteByte('\n')
			}
		case ch == ',' && closesNext(s, i+1):
			// trailing comma
		case isWordStart(s, i):
			word := leadingWord(s[i:])
			switch word {
			case "True":
				b.WriteString("true")
			case "False":
				b.WriteString("false")
			case "None":
				b.WriteString("null")
			default:
				b.WriteString(word)
			}
			i += len(word) - 1
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}

// closesNext reports whether the next non-space byte from i closes an
// object or array.
func closesNext(s string, i int) bool {
	for ; i < len(s); i++ {
		switch s[i] {
		case ' ', '\n', '\r', '\t':
			continue
		case '}', ']':
			return true
		default:
			return false
		}
	}
	return false
}

func isWordStart(s string, i int) bool {
	if !isLetter(s[i]) {
		return false
	}
	return i == 0 || !isLetter(s[i-1])
}

func leadingWord(s string) string {
	n := 0
	for n < len(s) && isLetter(s[n]) {
		n++
	}
	return s[:n]
}

func isLetter(ch byte) bool {
	return ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch == '_'
}
