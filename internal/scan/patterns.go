package scan

import (
	"regexp"
	"strings"
)

// pattern recognizes one registration style. extract returns nil when the
// line does not match.
type pattern struct {
	name    string
	extract func(line string) []Draft
}

const q = "['\"`]"

var (
	expressChain       = regexp.MustCompile(`\.route\(\s*` + q + `([^'"` + "`" + `]+)` + q + `\s*\)`)
	expressChainMethod = regexp.MustCompile(`(?i)\.\s*(get|post|put|patch|delete|head|options)\s*\(`)
	expressCall        = regexp.MustCompile(`(?i)\b[a-z_$][\w$]*\s*\.\s*(get|post|put|patch|delete|head|options)\s*\(\s*` + q + `([^'"` + "`" + `]+)` + q)

	fastapiDecorator = regexp.MustCompile(`^@\s*[A-Za-z_][\w.]*\.(get|post|put|patch|delete|head|options|trace)\(\s*(?:path\s*=\s*)?['"]([^'"]+)['"]`)
	fastapiAPIRoute  = regexp.MustCompile(`^@\s*[A-Za-z_][\w.]*\.(?:api_route|route)\(\s*(?:path\s*=\s*)?['"]([^'"]+)['"]`)
	fastapiMethods   = regexp.MustCompile(`methods\s*=\s*[\[(]([^\])]*)[\])]`)
	quotedWord       = regexp.MustCompile(`['"]([A-Za-z]+)['"]`)

	expressParam = regexp.MustCompile(`:([A-Za-z_][A-Za-z0-9_]*)(?:\([^)]*\))?\??`)
	fastapiParam = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*):[^}]*\}`)
)

// tables holds the ordered patterns per framework; the first pattern that
// matches a line wins.
var tables = map[Framework][]pattern{
	Express: {
		{name: "chained-route", extract: extractExpressChain},
		{name: "call", extract: extractExpressCall},
	},
	FastAPI: {
		{name: "api-route", extract: extractFastAPIRoute},
		{name: "decorator", extract: extractFastAPIDecorator},
	},
}

func extractExpressChain(line string) []Draft {
	loc := expressChain.FindStringSubmatchIndex(line)
	if loc == nil {
		return nil
	}
	path, ok := expressPath(line[loc[2]:loc[3]])
	if !ok {
		return nil
	}
	var out []Draft
	for _, m := range expressChainMethod.FindAllStringSubmatch(line[loc[1]:], -1) {
		out = append(out, Draft{Method: strings.ToUpper(m[1]), Path: path})
	}
	return out
}

func extractExpressCall(line string) []Draft {
	m := expressCall.FindStringSubmatch(line)
	if m == nil {
		return nil
	}
	path, ok := expressPath(m[2])
	if !ok {
		return nil
	}
	return []Draft{{Method: strings.ToUpper(m[1]), Path: path}}
}

func extractFastAPIDecorator(line string) []Draft {
	m := fastapiDecorator.FindStringSubmatch(line)
	if m == nil {
		return nil
	}
	path, ok := fastapiPath(m[2])
	if !ok {
		return nil
	}
	return []Draft{{Method: strings.ToUpper(m[1]), Path: path}}
}

func extractFastAPIRoute(line string) []Draft {
	m := fastapiAPIRoute.FindStringSubmatch(line)
	if m == nil {
		return nil
	}
	path, ok := fastapiPath(m[1])
	if !ok {
		return nil
	}
	methods := []string{"GET"}
	if mm := fastapiMethods.FindStringSubmatch(line); mm != nil {
		methods = methods[:0]
		for _, w := range quotedWord.FindAllStringSubmatch(mm[1], -1) {
			if method := strings.ToUpper(w[1]); isMethod(method) {
				methods = append(methods, method)
			}
		}
	}
	out := make([]Draft, 0, len(methods))
	for _, method := range methods {
		out = append(out, Draft{Method: method, Path: path})
	}
	return out
}

// expressPath rewrites :param segments to {param}. Template literals with
// interpolation are dynamic and rejected.
func expressPath(raw string) (string, bool) {
	if !plausiblePath(raw) {
		return "", false
	}
	return expressParam.ReplaceAllString(raw, "{$1}"), true
}

// fastapiPath drops path converters such as {id:int}.
func fastapiPath(raw string) (string, bool) {
	if !plausiblePath(raw) {
		return "", false
	}
	return fastapiParam.ReplaceAllString(raw, "{$1}"), true
}

func plausiblePath(raw string) bool {
	return strings.HasPrefix(raw, "/") && !strings.Contains(raw, "${")
}

func isMethod(m string) bool {
	switch m {
	case "GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS", "TRACE":
		return true
	}
	return false
}
