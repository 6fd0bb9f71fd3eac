// Package listing implements the Listing Parser (C2, spec §4.2): pulling
// (address, line) pairs out of the generated assembly text via the
// trailing "# EA: 0xHEX" convention, and the small lexical helpers
// navigation needs (tokenizing at a cursor, recognizing function labels).
package listing

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// eaPattern matches the anchored trailing address comment, spec §4.2:
// "match the anchored pattern `# EA: (0xHEX)$`".
var eaPattern = regexp.MustCompile(`# EA: (0x[0-9a-fA-F]+)\s*$`)

// AddrLine pairs a 0-based line index with the address its trailing "# EA:"
// comment encodes.
type AddrLine struct {
	Addr uint64
	Line int
}

// ExtractAddressLines returns every (addr, line) pair found in lines,
// sorted by address (spec §4.2).
func ExtractAddressLines(lines []string) []AddrLine {
	var out []AddrLine
	for i, l := range lines {
		m := eaPattern.FindStringSubmatch(l)
		if m == nil {
			continue
		}
		addr, err := strconv.ParseUint(m[1], 0, 64)
		if err != nil {
			continue
		}
		out = append(out, AddrLine{Addr: addr, Line: i})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Addr < out[j].Addr })
	return out
}

// delimiters is the fixed set of characters tokenizeAt substitutes with
// spaces before locating the identifier run under the cursor (spec §4.2).
const delimiters = "+-[]:{}*,()"

// TokenizeAt substitutes the fixed delimiter set with spaces, then returns
// the maximal run of non-whitespace covering charPos (inclusive at both
// ends). Returns "" if charPos is out of bounds.
func TokenizeAt(lineText string, charPos int) string {
	if charPos < 0 || charPos >= len(lineText) {
		return ""
	}

	scrubbed := []byte(lineText)
	for i, c := range scrubbed {
		if strings.IndexByte(delimiters, c) >= 0 || strings.IndexByte(" \t\r\n\v\f", c) >= 0 {
			scrubbed[i] = ' '
		}
	}

	if scrubbed[charPos] == ' ' {
		return ""
	}

	start := charPos
	for start > 0 && scrubbed[start-1] != ' ' {
		start--
	}
	end := charPos
	for end+1 < len(scrubbed) && scrubbed[end+1] != ' ' {
		end++
	}
	return string(scrubbed[start : end+1])
}

var (
	globlPattern = regexp.MustCompile(`^\s*\.globl\s+([A-Za-z0-9_]+)`)
	typePattern  = regexp.MustCompile(`^\s*\.type\s+([A-Za-z0-9_]+)\s*,\s*@function`)
	labelPattern = regexp.MustCompile(`^\s*([A-Za-z0-9_]+):\s*$`)
)

// ParseFunctionName matches, in order, ".globl NAME", ".type NAME,
// @function", "NAME:"; the first hit wins (spec §4.2).
func ParseFunctionName(lineText string) (string, bool) {
	if m := globlPattern.FindStringSubmatch(lineText); m != nil {
		return m[1], true
	}
	if m := typePattern.FindStringSubmatch(lineText); m != nil {
		return m[1], true
	}
	if m := labelPattern.FindStringSubmatch(lineText); m != nil {
		return m[1], true
	}
	return "", false
}

// isEALine reports whether lineText carries a trailing "# EA:" comment,
// used by PrecedingFunctionLine to detect that the search has walked back
// into another instruction's body.
func isEALine(lineText string) bool {
	return eaPattern.MatchString(lineText)
}

// PrecedingFunctionLine searches backward from line-1 for the first line
// matching "NAME:"; it aborts (returns false) if an "# EA:" line is seen
// first, meaning the search has entered another instruction body (spec
// §4.2).
func PrecedingFunctionLine(lines []string, name string, line int) (int, bool) {
	labelRe := regexp.MustCompile(`^\s*` + regexp.QuoteMeta(name) + `:\s*$`)
	for i := line - 1; i >= 0; i-- {
		if labelRe.MatchString(lines[i]) {
			return i, true
		}
		if isEALine(lines[i]) {
			return 0, false
		}
	}
	return 0, false
}
