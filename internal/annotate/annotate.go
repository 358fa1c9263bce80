// Package annotate turns free text from the store into display segments:
// pull-request references become links and file paths become navigable
// targets. It never modifies its input.
package annotate

import (
	"html/template"
	"regexp"
	"strings"
)

// Kind classifies a segment.
type Kind int

const (
	Text Kind = iota
	Link
	Path
)

// Segment is a run of the source text. Concatenating the Text of every
// segment returned by Parse reproduces the input.
type Segment struct {
	Kind Kind
	Text string
	// Href is the link target of a Link segment.
	Href string
}

// Policy decides what counts as a reference or a path.
type Policy struct {
	// RepoURL expands "PR #n" to RepoURL/pull/n. Empty leaves it as text.
	RepoURL string
	// RootPrefixes are well-known absolute roots. A relative match that names
	// one of them without its leading slash is not a path.
	RootPrefixes []string
	// Extensions an absolute path must end in, without the dot.
	Extensions []string
	// RelativeExtensions a relative path must end in.
	RelativeExtensions []string
}

// DefaultPolicy returns the standard policy for a repository.
func DefaultPolicy(repoURL string) Policy {
	return Policy{
		RepoURL:      strings.TrimRight(repoURL, "/"),
		RootPrefixes: []string{"/Users/", "/home/", "/tmp/", "/var/", "/opt/", "/etc/", "/usr/", "/private/"},
		Extensions: []string{
			"md", "txt", "js", "json", "sh", "py", "yml", "yaml", "toml", "csv", "log",
			"conf", "ini", "xml", "html", "css", "ts", "tsx", "jsx",
		},
		RelativeExtensions: []string{"md"},
	}
}

const urlChars = `[^\s<>"'` + "`" + `]+`

var refPattern = regexp.MustCompile(
	`PR created:\s*(https?://` + urlChars + `)` +
		`|PR:\s*(https?://` + urlChars + `)` +
		`|(https?://github\.com/[\w.-]+/[\w.-]+/pull/\d+)` +
		`|PR #(\d+)`)

// Annotator applies a Policy. It is safe for concurrent use.
type Annotator struct {
	policy   Policy
	absolute *regexp.Regexp
	relative *regexp.Regexp
}

// New compiles a policy.
func New(p Policy) *Annotator {
	return &Annotator{
		policy:   p,
		absolute: pathPattern(`/`, p.Extensions),
		relative: pathPattern(``, p.RelativeExtensions),
	}
}

// pathPattern matches a path token that starts at the beginning of the text
// or after a delimiter. The first group is the path itself.
func pathPattern(lead string, exts []string) *regexp.Regexp {
	quoted := make([]string, len(exts))
	for i, e := range exts {
		quoted[i] = regexp.QuoteMeta(e)
	}
	seg := `[\w.@+~-]+`
	return regexp.MustCompile(`(?:^|[\s"'(\[<=,:])(` + lead + `(?:` + seg + `/)*` + seg +
		`\.(?:` + strings.Join(quoted, "|") + `))\b`)
}

// Parse splits text into segments. References are found first, then paths in
// whatever text the reference pass left over.
func (a *Annotator) Parse(text string) []Segment {
	var out []Segment
	for _, seg := range a.references(text) {
		if seg.Kind != Text {
			out = append(out, seg)
			continue
		}
		out = append(out, a.paths(seg.Text)...)
	}
	return out
}

// Targets returns only the link and path segments of text.
func (a *Annotator) Targets(text string) []Segment {
	var out []Segment
	for _, seg := range a.Parse(text) {
		if seg.Kind != Text {
			out = append(out, seg)
		}
	}
	return out
}

// HTML renders text with every segment escaped before markup is added.
func (a *Annotator) HTML(text string) template.HTML {
	var b strings.Builder
	for _, seg := range a.Parse(text) {
		esc := template.HTMLEscapeString(seg.Text)
		switch seg.Kind {
		case Link:
			b.WriteString(`<a class="pr-link" href="` + template.HTMLEscapeString(seg.Href) +
				`" target="_blank" rel="noopener">` + esc + `</a>`)
		case Path:
			b.WriteString(`<span class="file-link nav" data-kind="file" data-key="` + esc + `">` + esc + `</span>`)
		default:
			b.WriteString(esc)
		}
	}
	return template.HTML(b.String()) //nolint:gosec // every piece is escaped above
}

func (a *Annotator) references(text string) []Segment {
	var out []Segment
	last := 0
	for _, m := range refPattern.FindAllStringSubmatchIndex(text, -1) {
		start, end := m[0], m[1]
		var href string
		switch {
		case m[2] >= 0:
			href, end = trimURL(text[m[2]:m[3]], m[3])
		case m[4] >= 0:
			href, end = trimURL(text[m[4]:m[5]], m[5])
		case m[6] >= 0:
			href = text[m[6]:m[7]]
		case m[8] >= 0:
			if a.policy.RepoURL == "" {
				continue
			}
			href = a.policy.RepoURL + "/pull/" + text[m[8]:m[9]]
		}
		if start > last {
			out = append(out, Segment{Kind: Text, Text: text[last:start]})
		}
		out = append(out, Segment{Kind: Link, Text: text[start:end], Href: href})
		last = end
	}
	if last < len(text) {
		out = append(out, Segment{Kind: Text, Text: text[last:]})
	}
	return out
}

// trimURL drops sentence punctuation that a greedy URL match swallowed.
func trimURL(u string, end int) (string, int) {
	trimmed := strings.TrimRight(u, ".,;:!?)]}")
	return trimmed, end - (len(u) - len(trimmed))
}

type span struct{ start, end int }

func (a *Annotator) paths(text string) []Segment {
	var spans []span
	for _, m := range a.absolute.FindAllStringSubmatchIndex(text, -1) {
		spans = append(spans, span{m[2], m[3]})
	}
	for _, m := range a.relative.FindAllStringSubmatchIndex(text, -1) {
		s := span{m[2], m[3]}
		if a.hasRootPrefix("/"+text[s.start:s.end]) || overlaps(spans, s) {
			continue
		}
		spans = append(spans, s)
	}
	sortSpans(spans)

	var out []Segment
	last := 0
	for _, s := range spans {
		if s.start > last {
			out = append(out, Segment{Kind: Text, Text: text[last:s.start]})
		}
		out = append(out, Segment{Kind: Path, Text: text[s.start:s.end]})
		last = s.end
	}
	if last < len(text) {
		out = append(out, Segment{Kind: Text, Text: text[last:]})
	}
	return out
}

func (a *Annotator) hasRootPrefix(p string) bool {
	for _, prefix := range a.policy.RootPrefixes {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

func overlaps(spans []span, s span) bool {
	for _, o := range spans {
		if s.start < o.end && o.start < s.end {
			return true
		}
	}
	return false
}

func sortSpans(spans []span) {
	for i := 1; i < len(spans); i++ {
		for j := i; j > 0 && spans[j].start < spans[j-1].start; j-- {
			spans[j], spans[j-1] = spans[j-1], spans[j]
		}
	}
}
