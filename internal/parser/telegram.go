package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TelegramParser decodes Telegram Desktop JSON exports (the
// result.json produced by "Export chat history").
type TelegramParser struct{}

type tgExport struct {
	Name     string      `json:"name"`
	Type     string      `json:"type"`
	ID       int64       `json:"id"`
	Messages []tgMessage `json:"messages"`
}

type tgMessage struct {
	ID           int64           `json:"id"`
	Type         string          `json:"type"` // "message" or "service"
	Date         string          `json:"date"`
	DateUnixtime string          `json:"date_unixtime"`
	From         string          `json:"from"`
	FromID       string          `json:"from_id"`
	Actor        string          `json:"actor"`
	ActorID      string          `json:"actor_id"`
	Text         json.RawMessage `json:"text"`
	Photo        string          `json:"photo"`
	File         string          `json:"file"`
	MediaType    string          `json:"media_type"`
	MimeType     string          `json:"mime_type"`
	StickerEmoji string          `json:"sticker_emoji"`
}

type tgTextEntity struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (p *TelegramParser) Name() string { return "telegram" }

// Detect sniffs for a JSON object whose head carries the export's
// fixed "type"/"messages" keys. Only the first few KB are inspected.
func (p *TelegramParser) Detect(content []byte, filename string) bool {
	head := bytes.TrimLeft(content, " \t\r\n\uFEFF")
	if len(head) == 0 || head[0] != '{' {
		return false
	}
	if len(head) > 4096 {
		head = head[:4096]
	}
	return bytes.Contains(head, []byte(`"messages"`)) && bytes.Contains(head, []byte(`"type"`))
}

func (p *TelegramParser) Parse(content []byte, filename string) (*ParseResult, error) {
	content = bytes.TrimPrefix(content, []byte{0xEF, 0xBB, 0xBF})

	var export tgExport
	if err := json.Unmarshal(content, &export); err != nil {
		return nil, fmt.Errorf("decode export json: %w", err)
	}

	chatType := ChatTypeGroup
	if strings.Contains(export.Type, "personal") || strings.Contains(export.Type, "saved") {
		chatType = ChatTypeDirect
	}

	name := export.Name
	if name == "" {
		name = "Telegram Chat"
	}

	result := &ParseResult{
		Name:     name,
		Platform: "telegram",
		ChatType: chatType,
	}

	members := newMemberSet()
	for _, msg := range export.Messages {
		ts := tgTimestamp(msg)

		if msg.Type == "service" {
			members.addSystem()
			result.Messages = append(result.Messages, Message{
				SenderID:  SystemMemberID,
				Timestamp: ts,
				Type:      TypeSystem,
				Content:   serviceText(msg),
			})
			continue
		}

		if msg.FromID == "" {
			// no sender identity at all, nothing to attribute
			continue
		}
		members.add(msg.FromID, msg.From, false)

		result.Messages = append(result.Messages, Message{
			SenderID:  msg.FromID,
			Timestamp: ts,
			Type:      tgClassify(msg),
			Content:   flattenTgText(msg.Text),
		})
	}

	result.Members = members.members()
	return result, nil
}

func tgTimestamp(msg tgMessage) int64 {
	if msg.DateUnixtime != "" {
		if n, err := strconv.ParseInt(msg.DateUnixtime, 10, 64); err == nil {
			return n
		}
	}
	// exports older than 2022 only carry the naive local datetime
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", msg.Date, time.Local); err == nil {
		return t.Unix()
	}
	return 0
}

func tgClassify(msg tgMessage) MessageType {
	switch msg.MediaType {
	case "voice_message":
		return TypeVoice
	case "video_message", "video_file", "animation":
		return TypeVideo
	case "sticker":
		return TypeSticker
	case "audio_file":
		return TypeVoice
	}
	if msg.Photo != "" {
		return TypeImage
	}
	if msg.StickerEmoji != "" {
		return TypeSticker
	}
	if msg.File != "" {
		return TypeFile
	}
	if flattenTgText(msg.Text) != "" {
		return TypeText
	}
	return TypeOther
}

func serviceText(msg tgMessage) string {
	if t := flattenTgText(msg.Text); t != "" {
		return t
	}
	return msg.Actor
}

// flattenTgText joins the export's text field, which is either a plain
// string or a mixed array of strings and entity objects.
func flattenTgText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil {
		return ""
	}
	var b strings.Builder
	for _, part := range parts {
		var ps string
		if err := json.Unmarshal(part, &ps); err == nil {
			b.WriteString(ps)
			continue
		}
		var ent tgTextEntity
		if err := json.Unmarshal(part, &ent); err == nil {
			b.WriteString(ent.Text)
		}
	}
	return strings.TrimSpace(b.String())
}
