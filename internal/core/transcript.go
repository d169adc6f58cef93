package core

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"medcot/pkg"
)

const transcriptHeader = "----- Full Conversation -----\n\n"

// RenderTranscript formats turns as one human-readable block: a header
// line, then "<Role>: <content>" per turn, each followed by a blank line.
func RenderTranscript(turns []pkg.Turn) string {
	var b strings.Builder
	b.WriteString(transcriptHeader)
	for _, t := range turns {
		b.WriteString(t.Role.Label())
		b.WriteString(": ")
		b.WriteString(t.Content)
		b.WriteString("\n\n")
	}
	return b.String()
}

// ParseTranscripts reads every block written by RenderTranscript back into
// ordered turn lists.  A turn whose content contains a blank line directly
// followed by "Patient: " or "Doctor: " cannot be told apart from a turn
// boundary and is split there.
func ParseTranscripts(text string) ([][]pkg.Turn, error) {
	if text == "" {
		return nil, nil
	}
	blocks := strings.Split(text, transcriptHeader)
	if strings.TrimSpace(blocks[0]) != "" {
		return nil, errors.New("core: transcript log does not start with a conversation header")
	}
	out := make([][]pkg.Turn, 0, len(blocks)-1)
	for i, block := range blocks[1:] {
		turns, err := parseTurns(block)
		if err != nil {
			return nil, fmt.Errorf("core: conversation %d: %w", i+1, err)
		}
		out = append(out, turns)
	}
	return out, nil
}

var turnLabels = []pkg.Role{pkg.RolePatient, pkg.RoleDoctor}

func parseTurns(block string) ([]pkg.Turn, error) {
	if block == "" {
		return nil, nil
	}
	if !strings.HasSuffix(block, "\n\n") {
		return nil, errors.New("block is not terminated by a blank line")
	}
	rest := block[:len(block)-2]
	var turns []pkg.Turn
	for {
		role, ok := labelAt(rest)
		if !ok {
			return nil, fmt.Errorf("turn %d has no role label", len(turns)+1)
		}
		rest = rest[len(role.Label())+2:]

		end := nextBoundary(rest)
		if end < 0 {
			turns = append(turns, pkg.Turn{Role: role, Content: rest})
			return turns, nil
		}
		turns = append(turns, pkg.Turn{Role: role, Content: rest[:end]})
		rest = rest[end+2:]
	}
}

func labelAt(s string) (pkg.Role, bool) {
	for _, role := range turnLabels {
		if strings.HasPrefix(s, role.Label()+": ") {
			return role, true
		}
	}
	return "", false
}

// nextBoundary returns the index of the earliest "\n\n<Label>: " in s.
func nextBoundary(s string) int {
	best := -1
	for _, role := range turnLabels {
		if i := strings.Index(s, "\n\n"+role.Label()+": "); i >= 0 && (best < 0 || i < best) {
			best = i
		}
	}
	return best
}

// FileSink appends rendered transcripts to a text file.  Existing content
// is never truncated.
type FileSink struct {
	path string
}

// NewFileSink returns a sink writing to path, relative to the working
// directory unless absolute.
func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

// Path reports the file the sink appends to.
func (s *FileSink) Path() string { return s.path }

// Append writes one conversation block for t.
func (s *FileSink) Append(t pkg.Transcript) (err error) {
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("core: open conversation log: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("core: close conversation log: %w", cerr)
		}
	}()
	if _, err := io.WriteString(f, RenderTranscript(t.Turns)); err != nil {
		return fmt.Errorf("core: write conversation log: %w", err)
	}
	return nil
}
