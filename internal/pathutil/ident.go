package pathutil

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type codeRange struct{ lo, hi int }

// IANA registry ranges accepted for response keys.
var statusRanges = []codeRange{
	{100, 103},
	{200, 208}, {226, 226},
	{300, 308},
	{400, 418}, {421, 426}, {428, 429}, {431, 431}, {451, 451},
	{500, 508}, {510, 511},
}

// ValidateHTTPStatusCode reports whether code is a three digit status code
// from the standard registry.
func ValidateHTTPStatusCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	n := 0
	for i := 0; i < len(code); i++ {
		c := code[i]
		if c < '0' || c > '9' {
			return false
		}
		n = n*10 + int(c-'0')
	}
	for _, r := range statusRanges {
		if n >= r.lo && n <= r.hi {
			return true
		}
	}
	return false
}

// ValidateIdentifier reports whether name starts with a letter and continues
// with letters, digits, '-' or '_'.
func ValidateIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		if i == 0 {
			if !unicode.IsLetter(r) {
				return false
			}
			continue
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_' {
			return false
		}
	}
	return true
}

var versionRe = regexp.MustCompile(`^\d{1,4}(?:\.\d{1,4}){0,2}[a-z]?$`)

// ValidateVersion accepts versions such as "1", "1.2", "2.10.3" or "1.0b".
func ValidateVersion(v string) bool {
	return versionRe.MatchString(v)
}

// NormalizeAddress prefixes a scheme-less address with http:// and drops a
// trailing slash. An empty address stays empty.
func NormalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return ""
	}
	if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
		addr = "http://" + addr
	}
	return strings.TrimRight(addr, "/")
}

// Header is one parsed "Key: Value" line.
type Header struct {
	Key   string
	Value string
}

// ParseHeaderLines parses one "Key: Value" pair per line. Blank lines and
// lines without a colon or key are skipped.
func ParseHeaderLines(text string) []Header {
	var out []Header
	for _, line := range strings.Split(text, "\n") {
		k, v, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		out = append(out, Header{Key: k, Value: strings.TrimSpace(v)})
	}
	return out
}

var lower = cases.Lower(language.Und)

// pathSafe keeps a stem inside its directory: separators and ".." become
// underscores.
var pathSafe = strings.NewReplacer("/", "_", "\\", "_", "..", "_")

// StorageName is the file stem a document is persisted under.
func StorageName(name string) string {
	s := strings.ReplaceAll(lower.String(strings.TrimSpace(name)), " ", "_")
	return pathSafe.Replace(s)
}

// OutputBaseName is the stem used for generated artifacts.
func OutputBaseName(name string) string {
	r := strings.NewReplacer(" ", "_", "-", "_")
	return pathSafe.Replace(r.Replace(lower.String(strings.TrimSpace(name))))
}

// FunctionSymbol builds the firmware client function name for an endpoint,
// e.g. ("GET", "/users/{id}") -> "GET_users_id".
func FunctionSymbol(method, uri string) string {
	p := lower.String(uri)
	p = strings.NewReplacer("-", "", "{", "", "}", "", "/", "_").Replace(p)
	return strings.ToUpper(method) + cSafe(p)
}

// LocalSymbol turns a parameter, placeholder or header name into a C++
// local variable name. Case is kept. The result never starts with an
// underscore; generated code keeps that prefix for its own locals.
func LocalSymbol(name string) string {
	s := cSafe(strings.ReplaceAll(name, "-", "_"))
	if s == "" || !unicode.IsLetter(rune(s[0])) {
		s = "p" + s
	}
	if cppKeywords[s] {
		s += "_"
	}
	return s
}

var cppKeywords = map[string]bool{}

func init() {
	for _, k := range strings.Fields(`alignas alignof and asm auto bool break case catch char
		class const constexpr continue default delete do double else enum explicit
		export extern false float for friend goto if inline int long mutable
		namespace new noexcept not nullptr operator or private protected public
		register return short signed sizeof static struct switch template this
		throw true try typedef typeid typename union unsigned using virtual void
		volatile while xor String`) {
		cppKeywords[k] = true
	}
}

func cSafe(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < unicode.MaxASCII && (r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			continue
		}
		b.WriteByte('_')
	}
	return b.String()
}

// CString escapes s for use inside a double quoted C string literal.
func CString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`, "\t", `\t`)
	return r.Replace(s)
}
