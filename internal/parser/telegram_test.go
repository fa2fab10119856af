package parser

import (
	"testing"
)

const telegramExport = `{
 "name": "Alpha Team",
 "type": "private_supergroup",
 "id": 123456,
 "messages": [
  {"id": 1, "type": "service", "date": "2024-01-01T10:00:00", "actor": "Ann", "actor_id": "user1", "text": ""},
  {"id": 2, "type": "message", "date": "2024-01-01T10:05:00", "date_unixtime": "1704103500", "from": "Ann", "from_id": "user1", "text": "hello"},
  {"id": 3, "type": "message", "date_unixtime": "1704103560", "from": "Annie", "from_id": "user1", "text": [{"type": "bold", "text": "hi"}, " there"]},
  {"id": 4, "type": "message", "date_unixtime": "1704103620", "from": "Bob", "from_id": "user2", "photo": "photos/p.jpg", "text": ""},
  {"id": 5, "type": "message", "date_unixtime": "1704103680", "from": "Bob", "from_id": "user2", "media_type": "voice_message", "file": "voice.ogg", "text": ""}
 ]
}`

func TestTelegramDetect(t *testing.T) {
	p := &TelegramParser{}
	if !p.Detect([]byte(telegramExport), "result.json") {
		t.Error("Detect() = false for a valid export")
	}
	if !p.Detect([]byte("\uFEFF"+telegramExport), "result.json") {
		t.Error("Detect() = false for a BOM-prefixed export")
	}
	if p.Detect([]byte("just some text"), "result.json") {
		t.Error("Detect() = true for plain text")
	}
	if p.Detect([]byte(`{"foo": 1}`), "result.json") {
		t.Error("Detect() = true for unrelated json")
	}
}

func TestTelegramParse(t *testing.T) {
	p := &TelegramParser{}
	res, err := p.Parse([]byte(telegramExport), "result.json")
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	if res.Name != "Alpha Team" {
		t.Errorf("Name = %q, want %q", res.Name, "Alpha Team")
	}
	if res.Platform != "telegram" {
		t.Errorf("Platform = %q, want telegram", res.Platform)
	}
	if res.ChatType != ChatTypeGroup {
		t.Errorf("ChatType = %q, want group", res.ChatType)
	}

	if len(res.Members) != 3 {
		t.Fatalf("len(Members) = %d, want 3", len(res.Members))
	}
	if !res.Members[0].IsSystem || res.Members[0].PlatformID != SystemMemberID {
		t.Errorf("Members[0] = %+v, want the system sentinel", res.Members[0])
	}
	// last-seen display name wins for repeated sender ids
	if res.Members[1].PlatformID != "user1" || res.Members[1].Name != "Annie" {
		t.Errorf("Members[1] = %+v, want user1/Annie", res.Members[1])
	}
	if res.Members[2].PlatformID != "user2" || res.Members[2].Name != "Bob" {
		t.Errorf("Members[2] = %+v, want user2/Bob", res.Members[2])
	}

	if len(res.Messages) != 5 {
		t.Fatalf("len(Messages) = %d, want 5", len(res.Messages))
	}

	wantTypes := []MessageType{TypeSystem, TypeText, TypeText, TypeImage, TypeVoice}
	for i, want := range wantTypes {
		if res.Messages[i].Type != want {
			t.Errorf("Messages[%d].Type = %q, want %q", i, res.Messages[i].Type, want)
		}
	}

	if res.Messages[1].Timestamp != 1704103500 {
		t.Errorf("Messages[1].Timestamp = %d, want 1704103500", res.Messages[1].Timestamp)
	}
	if res.Messages[1].Content != "hello" {
		t.Errorf("Messages[1].Content = %q, want hello", res.Messages[1].Content)
	}
	if res.Messages[2].Content != "hi there" {
		t.Errorf("Messages[2].Content = %q, want %q", res.Messages[2].Content, "hi there")
	}
	if res.Messages[0].SenderID != SystemMemberID {
		t.Errorf("service message sender = %q, want sentinel", res.Messages[0].SenderID)
	}
}

func TestTelegramParseBOMPrefixed(t *testing.T) {
	export := append([]byte{0xEF, 0xBB, 0xBF}, telegramExport...)

	p := &TelegramParser{}
	res, err := p.Parse(export, "result.json")
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(res.Messages) != 5 {
		t.Errorf("len(Messages) = %d, want 5", len(res.Messages))
	}
}

func TestTelegramParseDirectChat(t *testing.T) {
	export := `{"name": "Bob", "type": "personal_chat", "id": 7, "messages": [
		{"id": 1, "type": "message", "date_unixtime": "1704103500", "from": "Bob", "from_id": "user2", "text": "yo"}
	]}`

	p := &TelegramParser{}
	res, err := p.Parse([]byte(export), "result.json")
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if res.ChatType != ChatTypeDirect {
		t.Errorf("ChatType = %q, want direct", res.ChatType)
	}
}

func TestTelegramParseInvalidJSON(t *testing.T) {
	p := &TelegramParser{}
	if _, err := p.Parse([]byte(`{"type": "x", "messages": }`), "result.json"); err == nil {
		t.Error("Parse() = nil error for broken json")
	}
}
