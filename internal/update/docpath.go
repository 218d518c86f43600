// internal/update/docpath.go
package update

import (
	"strconv"
	"strings"

	"github.com/solatis/docupdate/internal/types"
)

/*
 * DocPath parsing.
 *
 * Grammar: components separated by '.', each an optional property name
 * followed by zero or more [n] index suffixes:
 *
 *   members[0].name.first  -> members, [0], name, first
 *   grid[1][2]             -> grid, [1], [2]
 *
 * Only bracket syntax can be malformed. Any other text is a property name,
 * including names that do not exist yet in the document; writes create them.
 */

// ParsePath splits a DocPath string into segments.
// Returns a *types.PathError wrapping ErrMalformedPath for broken brackets
// and ErrPathTooDeep when the path exceeds MaxPathDepth.
func ParsePath(path string) ([]types.PathSegment, error) {
	segs := make([]types.PathSegment, 0, strings.Count(path, ".")+1)
	offset := 0
	for _, comp := range strings.Split(path, ".") {
		parsed, err := parseComponent(path, comp, offset)
		if err != nil {
			return nil, err
		}
		segs = append(segs, parsed...)
		offset += len(comp) + 1
	}
	if len(segs) > types.MaxPathDepth {
		return nil, &types.PathError{
			Path:   path,
			Pos:    len(path),
			Reason: "too many segments",
			Err:    types.ErrPathTooDeep,
		}
	}
	return segs, nil
}

// parseComponent parses "name[1][2]" into its property and index segments.
// offset is the component's position in the full path, for error reporting.
func parseComponent(path, comp string, offset int) ([]types.PathSegment, error) {
	open := strings.IndexByte(comp, '[')
	if open < 0 {
		if i := strings.IndexByte(comp, ']'); i >= 0 {
			return nil, malformed(path, offset+i, "unexpected ']'")
		}
		return []types.PathSegment{{Key: comp}}, nil
	}

	var segs []types.PathSegment
	if name := comp[:open]; name != "" {
		if i := strings.IndexByte(name, ']'); i >= 0 {
			return nil, malformed(path, offset+i, "unexpected ']'")
		}
		segs = append(segs, types.PathSegment{Key: name})
	}

	rest := comp[open:]
	pos := offset + open
	for rest != "" {
		if rest[0] != '[' {
			return nil, malformed(path, pos, "text after index")
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return nil, malformed(path, pos, "unclosed '['")
		}
		digits := rest[1:end]
		if digits == "" {
			return nil, malformed(path, pos, "empty index")
		}
		for i := 0; i < len(digits); i++ {
			if digits[i] < '0' || digits[i] > '9' {
				return nil, malformed(path, pos+1+i, "index is not a non-negative integer")
			}
		}
		n, err := strconv.Atoi(digits)
		if err != nil {
			return nil, malformed(path, pos+1, "index out of range")
		}
		segs = append(segs, types.PathSegment{Index: n, IsIndex: true})
		rest = rest[end+1:]
		pos += end + 1
	}
	return segs, nil
}

func malformed(path string, pos int, reason string) error {
	return &types.PathError{Path: path, Pos: pos, Reason: reason, Err: types.ErrMalformedPath}
}

// FormatPath renders segments in DocPath syntax. It is the inverse of
// ParsePath for paths whose property names contain no '.', '[' or ']'.
func FormatPath(segs []types.PathSegment) string {
	var b strings.Builder
	for i, seg := range segs {
		if seg.IsIndex {
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(seg.Index))
			b.WriteByte(']')
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(seg.Key)
	}
	return b.String()
}
