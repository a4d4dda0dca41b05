package subtitle

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ReadFile parses a WebVTT file into cues. The converted caption files this
// service consumes use whitespace-only lines inside a cue as continuation
// markers, so cue text is kept verbatim: only a fully empty line terminates
// a cue block.
func ReadFile(path string) ([]Cue, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open caption file: %w", err)
	}
	defer f.Close()
	return Read(f)
}

func Read(r io.Reader) ([]Cue, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var cues []Cue
	var cur *Cue
	var textLines []string
	lineNo := 0

	flush := func() {
		if cur != nil {
			cur.Text = strings.Join(textLines, "\n")
			cues = append(cues, *cur)
			cur = nil
		}
		textLines = nil
	}

	for sc.Scan() {
		line := sc.Text()
		lineNo++
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
			if strings.HasPrefix(line, "WEBVTT") {
				continue
			}
		}

		if line == "" {
			flush()
			continue
		}

		if cur == nil {
			// Skip comment and style blocks up to the next blank line.
			if strings.HasPrefix(line, "NOTE") || line == "STYLE" || line == "REGION" {
				for sc.Scan() {
					lineNo++
					if sc.Text() == "" {
						break
					}
				}
				continue
			}
			if !strings.Contains(line, "-->") {
				// Cue identifier; the timing line follows.
				continue
			}
			start, end, err := parseTimingLine(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			cur = &Cue{StartSeconds: start, EndSeconds: end}
			continue
		}

		textLines = append(textLines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read caption file: %w", err)
	}
	flush()
	return cues, nil
}

// parseTimingLine parses "start --> end", ignoring trailing cue settings.
func parseTimingLine(line string) (float64, float64, error) {
	before, after, _ := strings.Cut(line, "-->")
	start, err := parseTimestamp(strings.TrimSpace(before))
	if err != nil {
		return 0, 0, err
	}
	endFields := strings.Fields(after)
	if len(endFields) == 0 {
		return 0, 0, fmt.Errorf("timing line %q has no end timestamp", line)
	}
	end, err := parseTimestamp(endFields[0])
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// parseTimestamp parses "HH:MM:SS.mmm" or "MM:SS.mmm" into seconds.
func parseTimestamp(ts string) (float64, error) {
	parts := strings.Split(ts, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid timestamp %q", ts)
	}

	secs, err := strconv.ParseFloat(parts[len(parts)-1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q: %w", ts, err)
	}
	mins, err := strconv.Atoi(parts[len(parts)-2])
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q: %w", ts, err)
	}
	hours := 0
	if len(parts) == 3 {
		hours, err = strconv.Atoi(parts[0])
		if err != nil {
			return 0, fmt.Errorf("invalid timestamp %q: %w", ts, err)
		}
	}
	return float64(hours)*3600 + float64(mins)*60 + secs, nil
}
