package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/minqua/chatlens/internal/parser"
	"github.com/minqua/chatlens/internal/store"
)

// scenarioSession imports a dataset with members A (7 messages), B (2)
// and the system sentinel (5), all human messages on one local
// calendar day at hours 9 and 14. The sentinel's messages bracket the
// day on both sides.
func scenarioSession(t *testing.T) (string, *Engine) {
	t.Helper()

	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.Local)
	at := func(hour, min int) int64 {
		return day.Add(time.Duration(hour)*time.Hour + time.Duration(min)*time.Minute).Unix()
	}

	pr := &parser.ParseResult{
		Name:     "Scenario",
		Platform: "telegram",
		ChatType: parser.ChatTypeGroup,
		Members: []parser.Member{
			{PlatformID: parser.SystemMemberID, Name: parser.SystemMemberName, IsSystem: true},
			{PlatformID: "a", Name: "A"},
			{PlatformID: "b", Name: "B"},
		},
	}

	// A: 4 at hour 9, 3 at hour 14
	for i := 0; i < 4; i++ {
		pr.Messages = append(pr.Messages, parser.Message{
			SenderID: "a", Timestamp: at(9, i), Type: parser.TypeText, Content: "a"})
	}
	for i := 0; i < 3; i++ {
		pr.Messages = append(pr.Messages, parser.Message{
			SenderID: "a", Timestamp: at(14, i), Type: parser.TypeText, Content: "a"})
	}
	// B: 2 at hour 14, as images
	for i := 0; i < 2; i++ {
		pr.Messages = append(pr.Messages, parser.Message{
			SenderID: "b", Timestamp: at(14, 30+i), Type: parser.TypeImage})
	}
	// system: 5 messages, first and last define the full dataset span
	sysHours := []int{1, 8, 12, 20, 23}
	for _, h := range sysHours {
		pr.Messages = append(pr.Messages, parser.Message{
			SenderID: parser.SystemMemberID, Timestamp: at(h, 0), Type: parser.TypeSystem})
	}

	imp := store.NewImporter(t.TempDir())
	res, err := imp.Import(pr)
	if err != nil {
		t.Fatalf("Import() error: %v", err)
	}
	return res.SessionID, NewEngine(imp.DataDir)
}

func TestMemberActivity(t *testing.T) {
	id, engine := scenarioSession(t)

	activity, err := engine.MemberActivity(id, nil)
	if err != nil {
		t.Fatalf("MemberActivity() error: %v", err)
	}

	if len(activity) != 2 {
		t.Fatalf("len = %d, want 2 (system excluded)", len(activity))
	}
	if activity[0].Name != "A" || activity[0].MessageCount != 7 {
		t.Errorf("activity[0] = %+v, want A with 7", activity[0])
	}
	if activity[1].Name != "B" || activity[1].MessageCount != 2 {
		t.Errorf("activity[1] = %+v, want B with 2", activity[1])
	}
	if activity[0].Percentage != 77.78 {
		t.Errorf("A percentage = %.2f, want 77.78", activity[0].Percentage)
	}
	if activity[1].Percentage != 22.22 {
		t.Errorf("B percentage = %.2f, want 22.22", activity[1].Percentage)
	}

	// counts sum to the filtered non-system total, percentages to ~100
	sum, pct := 0, 0.0
	for _, a := range activity {
		sum += a.MessageCount
		pct += a.Percentage
	}
	if sum != 9 {
		t.Errorf("sum of counts = %d, want 9", sum)
	}
	if math.Abs(pct-100) > 0.05 {
		t.Errorf("sum of percentages = %.2f, want ~100", pct)
	}
}

func TestMemberActivityTimeFiltered(t *testing.T) {
	id, engine := scenarioSession(t)

	// afternoon only: A keeps 3, B keeps 2; system stays excluded
	start := time.Date(2024, 3, 15, 14, 0, 0, 0, time.Local).Unix()
	activity, err := engine.MemberActivity(id, &TimeFilter{Start: &start})
	if err != nil {
		t.Fatalf("MemberActivity() error: %v", err)
	}

	if len(activity) != 2 {
		t.Fatalf("len = %d, want 2", len(activity))
	}
	if activity[0].MessageCount != 3 || activity[0].Percentage != 60.0 {
		t.Errorf("activity[0] = %+v, want 3 messages / 60.00%%", activity[0])
	}
	if activity[1].MessageCount != 2 || activity[1].Percentage != 40.0 {
		t.Errorf("activity[1] = %+v, want 2 messages / 40.00%%", activity[1])
	}
}

func TestMemberActivityBothBounds(t *testing.T) {
	id, engine := scenarioSession(t)

	// exactly hour 9: only A's 4 morning messages
	start := time.Date(2024, 3, 15, 9, 0, 0, 0, time.Local).Unix()
	end := time.Date(2024, 3, 15, 9, 59, 59, 0, time.Local).Unix()
	activity, err := engine.MemberActivity(id, &TimeFilter{Start: &start, End: &end})
	if err != nil {
		t.Fatalf("MemberActivity() error: %v", err)
	}

	if len(activity) != 1 {
		t.Fatalf("len = %d, want 1 (zero-count members excluded)", len(activity))
	}
	if activity[0].Name != "A" || activity[0].MessageCount != 4 || activity[0].Percentage != 100.0 {
		t.Errorf("activity[0] = %+v, want A / 4 / 100.00%%", activity[0])
	}
}

func TestHourlyActivity(t *testing.T) {
	id, engine := scenarioSession(t)

	hours, err := engine.HourlyActivity(id, nil)
	if err != nil {
		t.Fatalf("HourlyActivity() error: %v", err)
	}

	if len(hours) != 24 {
		t.Fatalf("len = %d, want exactly 24", len(hours))
	}
	sum := 0
	for i, h := range hours {
		if h.Hour != i {
			t.Errorf("hours[%d].Hour = %d, want %d", i, h.Hour, i)
		}
		sum += h.MessageCount
	}
	if sum != 9 {
		t.Errorf("total = %d, want 9 (system excluded)", sum)
	}
	if hours[9].MessageCount != 4 {
		t.Errorf("hour 9 = %d, want 4", hours[9].MessageCount)
	}
	if hours[14].MessageCount != 5 {
		t.Errorf("hour 14 = %d, want 5", hours[14].MessageCount)
	}
	// system messages at hours 1, 8, 12, 20, 23 must not leak in
	for _, h := range []int{1, 8, 12, 20, 23} {
		if hours[h].MessageCount != 0 {
			t.Errorf("hour %d = %d, want 0", h, hours[h].MessageCount)
		}
	}
}

func TestDailyActivity(t *testing.T) {
	id, engine := scenarioSession(t)

	days, err := engine.DailyActivity(id, nil)
	if err != nil {
		t.Fatalf("DailyActivity() error: %v", err)
	}

	if len(days) != 1 {
		t.Fatalf("len = %d, want 1 (no zero-filling)", len(days))
	}
	if days[0].Date != "2024-03-15" {
		t.Errorf("date = %q, want 2024-03-15", days[0].Date)
	}
	if days[0].MessageCount != 9 {
		t.Errorf("count = %d, want 9 (system excluded)", days[0].MessageCount)
	}
}

func TestTypeDistribution(t *testing.T) {
	id, engine := scenarioSession(t)

	types, err := engine.TypeDistribution(id, nil)
	if err != nil {
		t.Fatalf("TypeDistribution() error: %v", err)
	}

	if len(types) != 2 {
		t.Fatalf("len = %d, want 2 (system type excluded)", len(types))
	}
	if types[0].Type != "text" || types[0].Count != 7 {
		t.Errorf("types[0] = %+v, want text/7", types[0])
	}
	if types[1].Type != "image" || types[1].Count != 2 {
		t.Errorf("types[1] = %+v, want image/2", types[1])
	}
}

func TestTimeRange(t *testing.T) {
	id, engine := scenarioSession(t)

	tr, err := engine.TimeRange(id)
	if err != nil {
		t.Fatalf("TimeRange() error: %v", err)
	}
	if tr == nil {
		t.Fatal("TimeRange() = nil for a non-empty session")
	}

	// the span covers all 14 messages, system sentinel included
	wantStart := time.Date(2024, 3, 15, 1, 0, 0, 0, time.Local).Unix()
	wantEnd := time.Date(2024, 3, 15, 23, 0, 0, 0, time.Local).Unix()
	if tr.Start != wantStart {
		t.Errorf("Start = %d, want %d", tr.Start, wantStart)
	}
	if tr.End != wantEnd {
		t.Errorf("End = %d, want %d", tr.End, wantEnd)
	}
}

func TestTimeRangeEmptySession(t *testing.T) {
	imp := store.NewImporter(t.TempDir())
	res, err := imp.Import(&parser.ParseResult{
		Name: "Empty", Platform: "telegram", ChatType: parser.ChatTypeDirect,
		Members: []parser.Member{{PlatformID: "a", Name: "A"}},
	})
	if err != nil {
		t.Fatalf("Import() error: %v", err)
	}

	engine := NewEngine(imp.DataDir)
	tr, err := engine.TimeRange(res.SessionID)
	if err != nil {
		t.Fatalf("TimeRange() error: %v", err)
	}
	if tr != nil {
		t.Errorf("TimeRange() = %+v, want nil", tr)
	}

	activity, err := engine.MemberActivity(res.SessionID, nil)
	if err != nil {
		t.Fatalf("MemberActivity() error: %v", err)
	}
	if len(activity) != 0 {
		t.Errorf("MemberActivity() = %+v, want empty", activity)
	}
}

func TestAvailableYears(t *testing.T) {
	base := time.Date(2022, 6, 1, 12, 0, 0, 0, time.Local)
	pr := &parser.ParseResult{
		Name: "Years", Platform: "qq", ChatType: parser.ChatTypeDirect,
		Members: []parser.Member{{PlatformID: "a", Name: "A"}},
		Messages: []parser.Message{
			{SenderID: "a", Timestamp: base.Unix(), Type: parser.TypeText},
			{SenderID: "a", Timestamp: base.AddDate(2, 0, 0).Unix(), Type: parser.TypeText},
			{SenderID: "a", Timestamp: base.AddDate(2, 1, 0).Unix(), Type: parser.TypeText},
		},
	}

	imp := store.NewImporter(t.TempDir())
	res, err := imp.Import(pr)
	if err != nil {
		t.Fatalf("Import() error: %v", err)
	}

	years, err := NewEngine(imp.DataDir).AvailableYears(res.SessionID)
	if err != nil {
		t.Fatalf("AvailableYears() error: %v", err)
	}
	want := []int{2022, 2024}
	if len(years) != len(want) {
		t.Fatalf("years = %v, want %v", years, want)
	}
	for i := range want {
		if years[i] != want[i] {
			t.Errorf("years[%d] = %d, want %d", i, years[i], want[i])
		}
	}
}

func TestUnknownSession(t *testing.T) {
	engine := NewEngine(t.TempDir())
	if _, err := engine.MemberActivity("missing", nil); err != store.ErrSessionNotFound {
		t.Errorf("MemberActivity() error = %v, want ErrSessionNotFound", err)
	}
	if _, err := engine.TimeRange("missing"); err != store.ErrSessionNotFound {
		t.Errorf("TimeRange() error = %v, want ErrSessionNotFound", err)
	}
}

func TestRoundPercent(t *testing.T) {
	tests := []struct {
		count, total int
		want         float64
	}{
		{7, 9, 77.78},
		{2, 9, 22.22},
		{1, 3, 33.33},
		{2, 3, 66.67},
		{0, 5, 0},
		{5, 5, 100},
		{1, 0, 0},
	}
	for _, tt := range tests {
		if got := roundPercent(tt.count, tt.total); got != tt.want {
			t.Errorf("roundPercent(%d, %d) = %v, want %v", tt.count, tt.total, got, tt.want)
		}
	}
}
