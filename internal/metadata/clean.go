// Package metadata joins parsed Markdown documents to their link
// provenance, serializes it as YAML front matter, and scrubs recurring
// boilerplate from the document bodies.
package metadata

import "regexp"

// cleanRule rewrites one recurring noise pattern. Rules are applied in
// order; every rule is idempotent so the cleaner can be re-run safely.
type cleanRule struct {
	re   *regexp.Regexp
	repl string
}

var cleanRules = []cleanRule{
	// Markdown fence artifacts left by conversion.
	{regexp.MustCompile("```markdown+"), ""},
	{regexp.MustCompile("```+"), ""},
	{regexp.MustCompile("`+"), ""},

	// Print buttons and repeated link lists.
	{regexp.MustCompile(`\[Print\]\(javascript:window\.print\(\)\)`), ""},
	{regexp.MustCompile(`(?:(https?://[^\s]+)\s+){2,}`), ""},

	// Collapse links to their anchor text, and drop same-page link lists.
	{regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`), "$1"},
	{regexp.MustCompile(`(\[([^\]]+)\]\(#\))+(?:\s|,)*`), ""},

	// Knowledge-base article chrome.
	{regexp.MustCompile(`\| \*\*Bot Information\*\* \|\n\| --- \|`), ""},
	{regexp.MustCompile(`\| \*\*Information\*\* \|\n\| --- \|`), ""},
	{regexp.MustCompile(`(?s)Views:\n\n\|\s*Article Overview\s*\|\s*\n\|\s*---\s*\|\s*\n\|.*?\|`), ""},
	{regexp.MustCompile(`(?s)\|\s*Information\s*\|\s*\n\|\s*---\s*\|\s*\n\|.*?\|`), ""},
	{regexp.MustCompile(`(?s)\|\s*Bot Information\s*\|\s*\n\|\s*---\s*\|\s*\n\|.*?\|`), ""},
	{regexp.MustCompile(`\n\s*\*\*Information\*\*\s*\n`), "\n"},
	{regexp.MustCompile(`(?m)^\| Information \|\n`), ""},
	{regexp.MustCompile(`\*\s*(Home|Knowledge Base - Home|KA-\d+)\s*\n`), ""},
	{regexp.MustCompile(`(You’re offline.*?Knowledge Articles|Toggle navigation[.\w\s\*\+\-\:]+|Search Filter|Search\n|Knowledge Article Key:)`), ""},
	{regexp.MustCompile(`You’re offline\. This is a read only version of the page\.`), ""},

	// Empty headers and messaging-app navigation noise.
	{regexp.MustCompile(`(?m)^#+\s*$`), ""},
	{regexp.MustCompile(`Copy link\S*`), "Copy link"},

	// Consecutive blank lines.
	{regexp.MustCompile(`\n\s*\n\s*\n`), "\n\n"},
}

// CleanMarkdown strips recurring boilerplate and navigation noise from a
// document body. Purely textual and idempotent.
func CleanMarkdown(text string) string {
	for _, rule := range cleanRules {
		text = rule.re.ReplaceAllString(text, rule.repl)
	}
	return text
}

var frontMatterRe = regexp.MustCompile(`(?m)^---[\s\S]*?---\s`)

// StripFrontMatter removes an existing YAML front matter block, if any.
func StripFrontMatter(content string) string {
	loc := frontMatterRe.FindStringIndex(content)
	if loc == nil || loc[0] != 0 {
		return content
	}
	return content[loc[1]:]
}
