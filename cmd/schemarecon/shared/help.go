package shared

import "strings"

// CLIHelp trims the blank lines around a raw-string help text.
func CLIHelp(s string) string {
	return strings.Trim(s, "\n\t ")
}

// CLIExample trims a raw-string example block and indents every line so that
// cobra renders it under the "Examples:" heading.
func CLIExample(s string) string {
	lines := strings.Split(strings.Trim(s, "\n\t "), "\n")
	for i, line := range lines {
		line = strings.TrimLeft(line, "\t")
		if line != "" {
			line = "  " + line
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}
