package parser

import (
	"bufio"
	"bytes"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// WhatsAppParser decodes WhatsApp plain-text exports ("Export chat").
// Two line shapes exist depending on the client:
//
//	3/14/23, 10:23 - Alice: hello
//	[2023/3/14, 10:23:45] Alice: hello
//
// Lines that do not start a new message continue the previous one.
// WhatsApp exports carry no stable sender ids, so the display name
// doubles as the platform-native id.
type WhatsAppParser struct{}

var (
	waDashLine    = regexp.MustCompile(`^(\d{1,4}[/.]\d{1,2}[/.]\d{2,4}),? (\d{1,2}:\d{2}(?::\d{2})?)(?:\s?([APap][Mm]))? [-\x{2013}] (.*)$`)
	waBracketLine = regexp.MustCompile(`^[\x{200e}\x{200f}]?\[(\d{1,4}[/.]\d{1,2}[/.]\d{2,4}),? (\d{1,2}:\d{2}(?::\d{2})?)(?:\s?([APap][Mm]))?\] (.*)$`)
)

// Day-first layouts are tried before month-first; a date like 3/14/23
// falls through to the month-first fallbacks.
var waDateLayouts = []string{
	"2/1/2006 15:04:05",
	"2/1/06 15:04:05",
	"2006/1/2 15:04:05",
	"2/1/2006 15:04",
	"2/1/06 15:04",
	"2006/1/2 15:04",
	"1/2/2006 15:04:05",
	"1/2/06 15:04:05",
	"1/2/2006 15:04",
	"1/2/06 15:04",
}

func (p *WhatsAppParser) Name() string { return "whatsapp" }

// Detect checks whether any of the first lines matches a WhatsApp
// timestamp prefix.
func (p *WhatsAppParser) Detect(content []byte, filename string) bool {
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for i := 0; scanner.Scan() && i < 10; i++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if waDashLine.MatchString(line) || waBracketLine.MatchString(line) {
			return true
		}
	}
	return false
}

func (p *WhatsAppParser) Parse(content []byte, filename string) (*ParseResult, error) {
	result := &ParseResult{
		Name:     waChatName(filename),
		Platform: "whatsapp",
	}

	members := newMemberSet()
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		date, clock, meridiem, rest, ok := waSplitLine(line)
		if !ok {
			// continuation of the previous message
			if n := len(result.Messages); n > 0 {
				m := &result.Messages[n-1]
				if m.Content != "" {
					m.Content += "\n"
				}
				m.Content += line
			}
			continue
		}

		ts, err := waTimestamp(date, clock, meridiem)
		if err != nil {
			return nil, err
		}

		sender, body, isEvent := waSplitSender(rest)
		if isEvent {
			members.addSystem()
			result.Messages = append(result.Messages, Message{
				SenderID:  SystemMemberID,
				Timestamp: ts,
				Type:      TypeSystem,
				Content:   body,
			})
			continue
		}

		members.add(sender, sender, false)
		result.Messages = append(result.Messages, Message{
			SenderID:  sender,
			Timestamp: ts,
			Type:      waClassify(body),
			Content:   body,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan export: %w", err)
	}

	result.Members = members.members()
	if members.humanCount() > 2 {
		result.ChatType = ChatTypeGroup
	} else {
		result.ChatType = ChatTypeDirect
	}
	return result, nil
}

func waSplitLine(line string) (date, clock, meridiem, rest string, ok bool) {
	if m := waDashLine.FindStringSubmatch(line); m != nil {
		return m[1], m[2], m[3], m[4], true
	}
	if m := waBracketLine.FindStringSubmatch(line); m != nil {
		return m[1], m[2], m[3], m[4], true
	}
	return "", "", "", "", false
}

// waSplitSender separates "Sender: body" from sender-less system
// events (group created, subject changed, encryption notice).
func waSplitSender(rest string) (sender, body string, isEvent bool) {
	idx := strings.Index(rest, ": ")
	if idx <= 0 {
		return "", strings.TrimSpace(rest), true
	}
	return strings.TrimSpace(rest[:idx]), strings.TrimSpace(rest[idx+2:]), false
}

func waTimestamp(date, clock, meridiem string) (int64, error) {
	date = strings.ReplaceAll(date, ".", "/")
	joined := date + " " + clock
	for _, layout := range waDateLayouts {
		t, err := time.ParseInLocation(layout, joined, time.Local)
		if err != nil {
			continue
		}
		switch strings.ToUpper(meridiem) {
		case "PM":
			if t.Hour() < 12 {
				t = t.Add(12 * time.Hour)
			}
		case "AM":
			if t.Hour() == 12 {
				t = t.Add(-12 * time.Hour)
			}
		}
		return t.Unix(), nil
	}
	return 0, fmt.Errorf("unrecognized timestamp %q", joined)
}

func waClassify(body string) MessageType {
	lower := strings.ToLower(body)
	if i := strings.Index(lower, "<attached: "); i >= 0 {
		name := lower[i+len("<attached: "):]
		if j := strings.IndexByte(name, '>'); j >= 0 {
			name = name[:j]
		}
		switch strings.TrimPrefix(filepath.Ext(name), ".") {
		case "jpg", "jpeg", "png", "gif":
			return TypeImage
		case "opus", "mp3", "m4a", "ogg", "aac":
			return TypeVoice
		case "mp4", "mov", "3gp":
			return TypeVideo
		case "webp":
			return TypeSticker
		default:
			return TypeFile
		}
	}
	switch {
	case strings.Contains(lower, "image omitted"):
		return TypeImage
	case strings.Contains(lower, "video omitted"), strings.Contains(lower, "gif omitted"):
		return TypeVideo
	case strings.Contains(lower, "audio omitted"), strings.Contains(lower, "voice message omitted"):
		return TypeVoice
	case strings.Contains(lower, "sticker omitted"):
		return TypeSticker
	case strings.Contains(lower, "document omitted"):
		return TypeFile
	case strings.Contains(lower, "<media omitted>"):
		return TypeOther
	case body != "":
		return TypeText
	}
	return TypeOther
}

// waChatName derives the conversation name from the export filename,
// e.g. "WhatsApp Chat with Alice.txt".
func waChatName(filename string) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	if after, found := strings.CutPrefix(base, "WhatsApp Chat with "); found && after != "" {
		return after
	}
	if base == "_chat" || base == "" {
		return "WhatsApp Chat"
	}
	return base
}
