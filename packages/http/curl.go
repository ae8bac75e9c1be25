package http

import "strings"

// Curl renders req as a single-line curl command. Headers are sorted so the
// output is stable across runs.
func Curl(req *Request) string {
	var sb strings.Builder
	sb.WriteString("curl -X ")
	sb.WriteString(req.Method)

	for _, k := range sortedKeys(req.Headers) {
		sb.WriteString(" -H ")
		sb.WriteString(shellQuote(k + ": " + req.Headers[k]))
	}

	if req.Body != "" {
		sb.WriteString(" -d ")
		sb.WriteString(shellQuote(req.Body))
	}

	sb.WriteString(" ")
	sb.WriteString(shellQuote(req.BuildURL()))
	return sb.String()
}

// shellQuote wraps s in single quotes, closing and reopening the quote
// around any embedded single quote.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}
