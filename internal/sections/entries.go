package sections

import (
	"regexp"
	"strings"
)

// entryHeaderPattern matches the headers that open one entry (a job, a project, a degree).
// \section itself is not an entry.
var entryHeaderPattern = regexp.MustCompile(`^\s*\\(?:(?:sub)+section\*?|resumeSubheading|resumeProjectHeading)(?:[^A-Za-z]|$)`)

type flatLine struct {
	text  string
	kind  SegmentKind
	id    int
	entry bool
}

func (s Section) flatten() []flatLine {
	var out []flatLine
	for _, seg := range s.Segments {
		for _, l := range seg.Lines {
			out = append(out, flatLine{text: l, kind: seg.Kind, id: seg.ItemID, entry: seg.Entry})
		}
	}
	return out
}

// regroup rebuilds segments from flat lines: lines of the same item stay together and
// consecutive structural lines merge.
func regroup(lines []flatLine) []Segment {
	var segs []Segment
	for _, l := range lines {
		if n := len(segs); n > 0 {
			last := &segs[n-1]
			if last.Kind == l.kind && last.ItemID == l.id {
				last.Lines = append(last.Lines, l.text)
				continue
			}
		}
		segs = append(segs, Segment{Kind: l.kind, ItemID: l.id, Entry: l.entry, Lines: []string{l.text}})
	}
	return segs
}

func delimiterDelta(line string) int {
	t := strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(t, `\begin`), strings.Contains(t, "ListStart"):
		return 1
	case strings.HasPrefix(t, `\end`), strings.Contains(t, "ListEnd"):
		return -1
	}
	return 0
}

// entryEnd returns the flat index one past the entry whose header sits at h. An entry runs
// through the list it opens, or up to the next header or the close of the enclosing list.
func entryEnd(lines []flatLine, h int) int {
	depth, opened := 0, false
	for i := h + 1; i < len(lines); i++ {
		switch classify(lines[i].text) {
		case lineHeader:
			if depth == 0 {
				return i
			}
		case lineDelimiter:
			d := delimiterDelta(lines[i].text)
			depth += d
			if depth < 0 {
				return i
			}
			if d > 0 {
				opened = true
			}
			if opened && depth == 0 {
				return i + 1
			}
		}
	}
	return len(lines)
}

// markBareEntries turns entries that carry no items into items of their own, so a
// heading-only entry is a removable unit.
func (s *Section) markBareEntries() {
	lines := s.flatten()
	changed := false
	for h := 0; h < len(lines); h++ {
		if lines[h].kind != SegmentStructural || !entryHeaderPattern.MatchString(lines[h].text) {
			continue
		}
		end := entryEnd(lines, h)
		bare := true
		for _, l := range lines[h:end] {
			if l.kind == SegmentItem {
				bare = false
				break
			}
		}
		if !bare {
			continue
		}
		for i := h; i < end; i++ {
			lines[i].kind, lines[i].id, lines[i].entry = SegmentItem, s.nextID, true
		}
		s.nextID++
		changed = true
		h = end - 1
	}
	if changed {
		s.Segments = regroup(lines)
	}
}

// enclosingEntry returns the flat span of the entry holding item id when id is the only
// item left in it.
func enclosingEntry(lines []flatLine, id int) (int, int, bool) {
	first := -1
	for i, l := range lines {
		if l.kind == SegmentItem && l.id == id {
			first = i
			break
		}
	}
	for h := first - 1; h >= 0; h-- {
		if lines[h].kind != SegmentStructural || classify(lines[h].text) != lineHeader {
			continue
		}
		if !entryHeaderPattern.MatchString(lines[h].text) {
			return 0, 0, false
		}
		end := entryEnd(lines, h)
		if end <= first {
			return 0, 0, false
		}
		for _, l := range lines[h:end] {
			if l.kind == SegmentItem && l.id != id {
				return 0, 0, false
			}
		}
		return h, end, true
	}
	return 0, 0, false
}
