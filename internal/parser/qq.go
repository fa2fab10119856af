package parser

import (
	"bufio"
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// QQParser decodes the plain-text message archives exported by the QQ
// desktop client. The file opens with a 消息记录 header block, then
// message blocks of the form
//
//	2023-05-14 10:23:45 昵称(10001)
//	正文，可能多行
//
// The sender id is the QQ number in parentheses or the mail address in
// angle brackets.
type QQParser struct{}

var (
	qqHeaderLine = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}) (\d{1,2}:\d{2}:\d{2}) (.+)$`)
	qqSenderID   = regexp.MustCompile(`^(.*)[(<]([^()<>]+)[)>]$`)
)

const qqSystemSender = "系统消息"

func (p *QQParser) Name() string { return "qq" }

func (p *QQParser) Detect(content []byte, filename string) bool {
	head := content
	if len(head) > 4096 {
		head = head[:4096]
	}
	if bytes.Contains(head, []byte("消息记录")) && bytes.Contains(head, []byte("消息对象")) {
		return true
	}
	scanner := bufio.NewScanner(bytes.NewReader(head))
	for i := 0; scanner.Scan() && i < 10; i++ {
		line := strings.TrimSpace(scanner.Text())
		if m := qqHeaderLine.FindStringSubmatch(line); m != nil {
			if qqSenderID.MatchString(m[3]) {
				return true
			}
		}
	}
	return false
}

func (p *QQParser) Parse(content []byte, filename string) (*ParseResult, error) {
	result := &ParseResult{
		Name:     "QQ Chat",
		Platform: "qq",
	}

	members := newMemberSet()
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var cur *Message
	flush := func() {
		if cur == nil {
			return
		}
		cur.Content = strings.TrimSpace(cur.Content)
		cur.Type = qqClassify(cur.Content, cur.Type)
		result.Messages = append(result.Messages, *cur)
		cur = nil
	}

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		trimmed := strings.TrimSpace(line)

		if after, found := cutLabel(trimmed, "消息对象"); found {
			result.Name = strings.TrimSpace(after)
			continue
		}
		if after, found := cutLabel(trimmed, "消息分组"); found {
			if strings.Contains(after, "群") {
				result.ChatType = ChatTypeGroup
			}
			continue
		}
		if strings.HasPrefix(trimmed, "====") || strings.HasPrefix(trimmed, "消息记录") {
			continue
		}

		if m := qqHeaderLine.FindStringSubmatch(trimmed); m != nil {
			flush()
			ts, err := time.ParseInLocation("2006-01-02 15:04:05", m[1]+" "+m[2], time.Local)
			if err != nil {
				return nil, fmt.Errorf("timestamp %q: %w", m[1]+" "+m[2], err)
			}

			sender := strings.TrimSpace(m[3])
			if sender == qqSystemSender {
				members.addSystem()
				cur = &Message{SenderID: SystemMemberID, Timestamp: ts.Unix(), Type: TypeSystem}
				continue
			}

			name, id := sender, sender
			if sm := qqSenderID.FindStringSubmatch(sender); sm != nil {
				name = strings.TrimSpace(sm[1])
				id = strings.TrimSpace(sm[2])
				if name == "" {
					name = id
				}
			}
			members.add(id, name, false)
			cur = &Message{SenderID: id, Timestamp: ts.Unix(), Type: TypeText}
			continue
		}

		if cur != nil && trimmed != "" {
			if cur.Content != "" {
				cur.Content += "\n"
			}
			cur.Content += line
		}
	}
	flush()
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan export: %w", err)
	}

	result.Members = members.members()
	if result.ChatType == "" {
		if members.humanCount() > 2 {
			result.ChatType = ChatTypeGroup
		} else {
			result.ChatType = ChatTypeDirect
		}
	}
	return result, nil
}

// cutLabel strips a "标签:" prefix, accepting both the ASCII and the
// full-width colon found in different client versions.
func cutLabel(line, label string) (string, bool) {
	if after, found := strings.CutPrefix(line, label+":"); found {
		return after, true
	}
	if after, found := strings.CutPrefix(line, label+"："); found {
		return after, true
	}
	return "", false
}

func qqClassify(content string, fallback MessageType) MessageType {
	if fallback == TypeSystem {
		return TypeSystem
	}
	switch {
	case strings.Contains(content, "[图片]"):
		return TypeImage
	case strings.Contains(content, "[表情]"):
		return TypeSticker
	case strings.Contains(content, "[语音]"):
		return TypeVoice
	case strings.Contains(content, "[视频]"):
		return TypeVideo
	case strings.Contains(content, "[文件]"):
		return TypeFile
	case content != "":
		return TypeText
	}
	return TypeOther
}
