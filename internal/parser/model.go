package parser

// MessageType classifies a chat event. Unknown content classifies as
// TypeOther, never as a parse failure.
type MessageType string

const (
	TypeText    MessageType = "text"
	TypeImage   MessageType = "image"
	TypeVoice   MessageType = "voice"
	TypeVideo   MessageType = "video"
	TypeFile    MessageType = "file"
	TypeSticker MessageType = "sticker"
	TypeSystem  MessageType = "system"
	TypeOther   MessageType = "other"
)

const (
	ChatTypeGroup  = "group"
	ChatTypeDirect = "direct"
)

// SystemMemberName is the display name of the reserved sentinel member
// that carries system-generated events (joins, pins, calls). The
// sentinel is flagged with IsSystem; the name is only cosmetic.
const SystemMemberName = "System"

// SystemMemberID is the platform-native id assigned to the sentinel.
const SystemMemberID = "__system__"

type Member struct {
	PlatformID string
	Name       string
	IsSystem   bool
}

type Message struct {
	SenderID  string // platform-native id, resolved by the importer
	Timestamp int64  // unix seconds, local send time
	Type      MessageType
	Content   string
}

// ParseResult is the canonical intermediate representation produced by
// a platform parser and consumed by the importer. Members are ordered
// by first appearance and unique by PlatformID; message senders still
// reference platform-native ids.
type ParseResult struct {
	Name     string
	Platform string
	ChatType string
	Members  []Member
	Messages []Message
}

// memberSet accumulates members in first-seen order, updating the
// display name on repeat sightings (last seen wins).
type memberSet struct {
	order []string
	byID  map[string]*Member
}

func newMemberSet() *memberSet {
	return &memberSet{byID: make(map[string]*Member)}
}

func (s *memberSet) add(platformID, name string, isSystem bool) {
	if platformID == "" {
		return
	}
	if m, ok := s.byID[platformID]; ok {
		if name != "" {
			m.Name = name
		}
		if isSystem {
			m.IsSystem = true
		}
		return
	}
	s.order = append(s.order, platformID)
	s.byID[platformID] = &Member{PlatformID: platformID, Name: name, IsSystem: isSystem}
}

func (s *memberSet) addSystem() {
	s.add(SystemMemberID, SystemMemberName, true)
}

func (s *memberSet) members() []Member {
	out := make([]Member, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.byID[id])
	}
	return out
}

// humanCount counts non-system members, used by the text parsers to
// decide between a direct chat and a group.
func (s *memberSet) humanCount() int {
	n := 0
	for _, m := range s.byID {
		if !m.IsSystem {
			n++
		}
	}
	return n
}
