package grbl

import (
	"sort"
	"strings"
)

// StatusReport is one parsed `<State|key:value|...>` line.
//
// Field names and values are opaque strings; only State is positional.
// Reports are never modified after parsing.
type StatusReport struct {
	State  string
	Fields map[string]string
}

// Get returns the value of a field and whether it was present.
func (r *StatusReport) Get(key string) (string, bool) {
	v, ok := r.Fields[key]
	return v, ok
}

// String renders the report in wire form. Fields are sorted by name.
func (r *StatusReport) String() string {
	keys := make([]string, 0, len(r.Fields))
	for k := range r.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteByte('<')
	b.WriteString(r.State)
	for _, k := range keys {
		b.WriteByte('|')
		b.WriteString(k)
		b.WriteByte(':')
		b.WriteString(r.Fields[k])
	}
	b.WriteByte('>')
	return b.String()
}

// isReportLine reports whether a trimmed line is framed as a status report.
func isReportLine(line string) bool {
	return strings.HasPrefix(line, "<") && strings.HasSuffix(line, ">")
}

// ParseReport parses a status report line.
func ParseReport(line string) (*StatusReport, error) {
	data := strings.TrimSpace(line)
	if len(data) < 2 || data[0] != '<' || data[len(data)-1] != '>' {
		return nil, &ParseError{Line: line, Reason: "missing angle brackets"}
	}
	data = data[1 : len(data)-1]
	if data == "" {
		return nil, &ParseError{Line: line, Reason: "empty report"}
	}
	if strings.HasPrefix(data, "<") || strings.HasSuffix(data, ">") {
		return nil, &ParseError{Line: line, Reason: "mismatched angle brackets"}
	}

	parts := strings.Split(data, "|")
	if parts[0] == "" {
		return nil, &ParseError{Line: line, Reason: "empty state"}
	}

	rep := &StatusReport{State: parts[0], Fields: make(map[string]string, len(parts)-1)}
	for _, part := range parts[1:] {
		p := strings.SplitN(part, ":", 2)
		if len(p) != 2 {
			return nil, &ParseError{Line: line, Reason: "field " + part + " has no value"}
		}
		rep.Fields[p[0]] = p[1]
	}

	return rep, nil
}
