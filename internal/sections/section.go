package sections

import (
	"regexp"
	"strings"
)

// SegmentKind distinguishes structural markup from removable items.
type SegmentKind int

const (
	// SegmentStructural holds headers, group delimiters and preamble lines.
	SegmentStructural SegmentKind = iota
	// SegmentItem holds one item: its marker line plus continuation lines.
	SegmentItem
)

// Segment is a run of consecutive source lines.
type Segment struct {
	Kind   SegmentKind
	ItemID int
	// Entry marks an item that is a whole heading-only entry.
	Entry bool
	Lines []string
}

// Item is one atomic unit of a section. ID is stable for the lifetime of the section.
type Item struct {
	ID    int
	Text  string
	Entry bool
}

// Section is the parsed form of one section's raw text.
type Section struct {
	Kind     Kind
	Behavior Behavior
	Segments []Segment
	nextID   int
}

var (
	headerPattern    = regexp.MustCompile(`^\s*\\(?:(?:sub)*section\*?|resumeSubheading|resumeProjectHeading)(?:[^A-Za-z]|$)`)
	delimiterPattern = regexp.MustCompile(`^\s*(?:\\(?:begin|end)\s*\{|\\resume(?:ItemList|SubHeadingList)(?:Start|End)(?:[^A-Za-z]|$))`)
	itemPattern      = regexp.MustCompile(`^\s*\\(?:item|resumeItem|resumeSubItem)(?:[^A-Za-z]|$)`)
)

type lineClass int

const (
	lineText lineClass = iota
	lineHeader
	lineDelimiter
	lineItem
)

func classify(line string) lineClass {
	switch {
	case headerPattern.MatchString(line):
		return lineHeader
	case delimiterPattern.MatchString(line):
		return lineDelimiter
	case itemPattern.MatchString(line):
		return lineItem
	default:
		return lineText
	}
}

// Parse splits raw section text into structural segments and items.
// Malformed markup is reported as *MalformedSectionError and never repaired here.
func Parse(kind Kind, raw string) (Section, error) {
	behavior, ok := BehaviorOf(kind)
	if !ok {
		return Section{}, &MalformedSectionError{Section: kind, Reason: "unknown section kind"}
	}
	if line, reason := checkStructure(raw); reason != "" {
		return Section{}, &MalformedSectionError{Section: kind, Line: line, Reason: reason}
	}

	s := Section{Kind: kind, Behavior: behavior}
	itemOpen := false
	for _, line := range strings.Split(raw, "\n") {
		switch classify(line) {
		case lineItem:
			s.Segments = append(s.Segments, Segment{Kind: SegmentItem, ItemID: s.nextID, Lines: []string{line}})
			s.nextID++
			itemOpen = true
		case lineHeader, lineDelimiter:
			s.appendStructural(line)
			itemOpen = false
		default:
			if itemOpen {
				last := &s.Segments[len(s.Segments)-1]
				last.Lines = append(last.Lines, line)
				continue
			}
			s.appendStructural(line)
		}
	}
	s.markBareEntries()
	return s, nil
}

func (s *Section) appendStructural(line string) {
	if n := len(s.Segments); n > 0 && s.Segments[n-1].Kind == SegmentStructural {
		s.Segments[n-1].Lines = append(s.Segments[n-1].Lines, line)
		return
	}
	s.Segments = append(s.Segments, Segment{Kind: SegmentStructural, ItemID: -1, Lines: []string{line}})
}

// Serialize rebuilds the raw text.
func Serialize(s Section) string {
	var lines []string
	for _, seg := range s.Segments {
		lines = append(lines, seg.Lines...)
	}
	return strings.Join(lines, "\n")
}

// Raw is shorthand for Serialize(s).
func (s Section) Raw() string {
	return Serialize(s)
}

// Items returns the section's items in document order.
func (s Section) Items() []Item {
	var items []Item
	for _, seg := range s.Segments {
		if seg.Kind == SegmentItem {
			items = append(items, Item{ID: seg.ItemID, Text: strings.Join(seg.Lines, "\n"), Entry: seg.Entry})
		}
	}
	return items
}

// ItemCount returns the number of items.
func (s Section) ItemCount() int {
	n := 0
	for _, seg := range s.Segments {
		if seg.Kind == SegmentItem {
			n++
		}
	}
	return n
}

// IndexOf returns the position of the item with the given ID, or -1.
func (s Section) IndexOf(id int) int {
	pos := 0
	for _, seg := range s.Segments {
		if seg.Kind != SegmentItem {
			continue
		}
		if seg.ItemID == id {
			return pos
		}
		pos++
	}
	return -1
}

// Clone returns a deep copy.
func (s Section) Clone() Section {
	out := s
	out.Segments = make([]Segment, len(s.Segments))
	for i, seg := range s.Segments {
		seg.Lines = append([]string(nil), seg.Lines...)
		out.Segments[i] = seg
	}
	return out
}

// segmentIndex maps an item position to its index in Segments.
func (s Section) segmentIndex(pos int) int {
	n := 0
	for i, seg := range s.Segments {
		if seg.Kind != SegmentItem {
			continue
		}
		if n == pos {
			return i
		}
		n++
	}
	return -1
}

// RemoveItem removes exactly one item by position. When the item is the last one under an
// entry header, the header and the list it opened go with it; other structure is kept.
func RemoveItem(s Section, index int) (Section, error) {
	count := s.ItemCount()
	if index < 0 || index >= count {
		return s, &ItemIndexError{Section: s.Kind, Index: index, Len: count}
	}
	out := s.Clone()
	at := out.segmentIndex(index)
	lines := out.flatten()
	if start, end, ok := enclosingEntry(lines, out.Segments[at].ItemID); ok {
		out.Segments = regroup(append(lines[:start:start], lines[end:]...))
		return out, nil
	}
	out.Segments = append(out.Segments[:at], out.Segments[at+1:]...)
	return out, nil
}

// ReplaceItem swaps the text of the item at position index, keeping its identity.
func ReplaceItem(s Section, index int, text string) (Section, error) {
	count := s.ItemCount()
	if index < 0 || index >= count {
		return s, &ItemIndexError{Section: s.Kind, Index: index, Len: count}
	}
	out := s.Clone()
	at := out.segmentIndex(index)
	out.Segments[at].Lines = strings.Split(text, "\n")
	return out, nil
}

// AppendItem splices a new item after the last existing bullet, or before the closing
// delimiter of the last group when the section has no bullets yet.
func AppendItem(s Section, text string) Section {
	out := s.Clone()
	seg := Segment{Kind: SegmentItem, ItemID: out.nextID, Lines: strings.Split(text, "\n")}
	out.nextID++

	at := -1
	for i := len(out.Segments) - 1; i >= 0; i-- {
		if out.Segments[i].Kind == SegmentItem && !out.Segments[i].Entry {
			at = i + 1
			break
		}
	}
	if at < 0 {
		at = len(out.Segments)
		// No bullets yet: insert before the trailing closing delimiters.
		if i, split := closingTail(out.Segments); i >= 0 {
			head := out.Segments[i]
			before := Segment{Kind: SegmentStructural, ItemID: -1, Lines: append([]string(nil), head.Lines[:split]...)}
			after := Segment{Kind: SegmentStructural, ItemID: -1, Lines: append([]string(nil), head.Lines[split:]...)}
			rest := append([]Segment{before, seg, after}, out.Segments[i+1:]...)
			out.Segments = append(out.Segments[:i], rest...)
			return out
		}
	}
	out.Segments = append(out.Segments[:at], append([]Segment{seg}, out.Segments[at:]...)...)
	return out
}

// closingTail finds, in the last structural segment, the first line of its trailing block of
// \end / list-end delimiters (blank lines included).
func closingTail(segs []Segment) (int, int) {
	if len(segs) == 0 || segs[len(segs)-1].Kind != SegmentStructural {
		return -1, 0
	}
	i := len(segs) - 1
	lines := segs[i].Lines
	split := len(lines)
	for split > 0 {
		l := strings.TrimSpace(lines[split-1])
		if l == "" || strings.HasPrefix(l, `\end`) || strings.HasSuffix(l, "ListEnd") {
			split--
			continue
		}
		break
	}
	if split == len(lines) {
		return -1, 0
	}
	return i, split
}
