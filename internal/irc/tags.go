package irc

import "strings"

// tagSection returns the text between the leading '@' and the first space.
// Lines without a tag prefix have no section.
func tagSection(line string) (string, bool) {
	if !strings.HasPrefix(line, "@") {
		return "", false
	}
	section := line[1:]
	if i := strings.IndexByte(section, ' '); i >= 0 {
		section = section[:i]
	}
	return section, true
}

// afterTags returns the line with any tag section and the separating space removed
func afterTags(line string) string {
	if !strings.HasPrefix(line, "@") {
		return line
	}
	i := strings.IndexByte(line, ' ')
	if i < 0 {
		return ""
	}
	return line[i+1:]
}

// tagValue looks up key in the tag section of line. The value runs up to the
// next ';' or the end of the section. A key present with no '=' or an empty
// value yields ("", true).
func tagValue(line, key string) (string, bool) {
	section, ok := tagSection(line)
	if !ok {
		return "", false
	}

	for section != "" {
		field := section
		if i := strings.IndexByte(section, ';'); i >= 0 {
			field, section = section[:i], section[i+1:]
		} else {
			section = ""
		}

		name, value, _ := strings.Cut(field, "=")
		if name == key {
			return value, true
		}
	}

	return "", false
}

// parseTags splits the whole tag section into a map
func parseTags(line string) map[string]string {
	tags := make(map[string]string)
	section, ok := tagSection(line)
	if !ok {
		return tags
	}

	for _, field := range strings.Split(section, ";") {
		if field == "" {
			continue
		}
		name, value, _ := strings.Cut(field, "=")
		if _, seen := tags[name]; seen {
			continue
		}
		tags[name] = value
	}

	return tags
}
