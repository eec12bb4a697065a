// Package firmware holds the C++ fragments shared by the ESP32 client and
// server emitters.
package firmware

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/okapi-tools/okapi/internal/apidoc"
	"github.com/okapi-tools/okapi/internal/emitter"
	"github.com/okapi-tools/okapi/internal/pathutil"
	"github.com/okapi-tools/okapi/internal/synth"
)

const commentWidth = 72

// Credentials declares the WiFi placeholders every sketch starts with.
const Credentials = "const char *ssid     = \"YOUR_SSID\";\n" +
	"const char *password = \"YOUR_PASSWORD\";\n"

// WiFiSetup connects in station mode and restarts the board after ~15 s.
const WiFiSetup = `void wifi_setup(void)
{
	WiFi.mode(WIFI_STA);
	WiFi.begin(ssid, password);

	uint32_t counter = 0;
	while (WiFi.status() != WL_CONNECTED) {
		delay(100);
		counter++;
		if (counter > 150) {
			Serial.println("Restarting ...");
			ESP.restart();
		}
	}
}
`

// BlockComment renders the non-empty texts as one /* */ comment, separated
// by blank comment lines. Empty input yields "".
func BlockComment(indent string, texts ...string) string {
	var parts []string
	for _, t := range texts {
		if w := emitter.WrapIndent(t, indent+" * ", commentWidth); w != "" {
			parts = append(parts, w)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return indent + "/*\n" + strings.Join(parts, indent+" *\n") + indent + " */\n"
}

// LineComment renders the non-empty texts as // comments.
func LineComment(indent string, texts ...string) string {
	var parts []string
	for _, t := range texts {
		if w := emitter.WrapIndent(t, indent+"// ", commentWidth); w != "" {
			parts = append(parts, w)
		}
	}
	return strings.Join(parts, indent+"//\n")
}

// ModelComment lists a model's attributes as "// name (type)" lines.
func ModelComment(d *apidoc.Document, model, indent string) string {
	m, ok := d.Model(model)
	if !ok {
		return ""
	}
	var b strings.Builder
	for name, a := range m.Attributes.All() {
		fmt.Fprintf(&b, "%s// %s (%s)\n", indent, name, TypeLabel(a.Type, a.IsArray))
	}
	return b.String()
}

// TypeLabel renders a declared type, e.g. "array[integer]".
func TypeLabel(typ string, isArray bool) string {
	base, arr := apidoc.ParseType(typ)
	if arr || isArray {
		return "array[" + base + "]"
	}
	return base
}

// Example synthesizes the example value of a model. Synthesis problems are
// logged; the value is usable either way.
func Example(d *apidoc.Document, model string, log *slog.Logger) synth.Value {
	v, err := synth.Synthesize(model, d.Models)
	if err != nil {
		log.Warn("example synthesis incomplete", slog.String("model", model), slog.Any("error", err))
	}
	return v
}

// Literal renders a scalar value as a C++ literal.
func Literal(v synth.Value) string {
	switch v.Kind() {
	case synth.KindString:
		return `"` + pathutil.CString(v.Str()) + `"`
	case synth.KindNumber:
		return v.FormatNumber()
	case synth.KindBool:
		if v.Bool() {
			return "true"
		}
		return "false"
	default:
		return "nullptr"
	}
}

// JSONDocument declares an ArduinoJson document named doc filled with v.
func JSONDocument(indent, doc string, v synth.Value) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%sJsonDocument %s;\n", indent, doc)
	Assign(&b, indent, doc, v)
	return b.String()
}

// Assign writes the statements that store v at target, one per leaf.
// Objects descend by key, arrays by index.
func Assign(b *strings.Builder, indent, target string, v synth.Value) {
	switch v.Kind() {
	case synth.KindObject:
		if v.Len() == 0 {
			fmt.Fprintf(b, "%s%s.to<JsonObject>();\n", indent, target)
			return
		}
		for k, f := range v.Fields() {
			Assign(b, indent, fmt.Sprintf(`%s["%s"]`, target, pathutil.CString(k)), f)
		}
	case synth.KindArray:
		if v.Len() == 0 {
			fmt.Fprintf(b, "%s%s.to<JsonArray>();\n", indent, target)
			return
		}
		for i, item := range v.Items() {
			Assign(b, indent, fmt.Sprintf("%s[%d]", target, i), item)
		}
	default:
		fmt.Fprintf(b, "%s%s = %s;\n", indent, target, Literal(v))
	}
}
