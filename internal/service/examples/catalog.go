// Package examples 提供引导用户的示例消息
package examples

import "strings"

// Category 内容类别
type Category string

const (
	CategoryEvent         Category = "event"
	CategoryUrgentMessage Category = "urgent_message"
)

// Phase 会话阶段名，与编排器的阶段取值一致
const PhaseTypeSelection = "type_selection"

// Example 示例消息
type Example struct {
	Text        string   `json:"text"`
	Category    Category `json:"category"`
	Description string   `json:"description,omitempty"`
}

var eventExamples = []Example{
	{Text: "מסיבת פורים ב-15/03/2025 בשעה 17:00 באולם בית הספר", Category: CategoryEvent, Description: "מסיבה עם תאריך, שעה ומיקום"},
	{Text: "אסיפת הורים כיתות ד' ביום שלישי הבא ב-19:30 בספרייה", Category: CategoryEvent, Description: "אסיפה עם תאריך יחסי"},
	{Text: "טיול שנתי לירושלים ב-2 במאי, יציאה ב-08:00 וחזרה ב-16:00", Category: CategoryEvent, Description: "טיול עם שעת התחלה וסיום"},
	{Text: "סדנת בישול להורים וילדים ביום ו' ב-10:00 במטבח בית הספר", Category: CategoryEvent, Description: "סדנה"},
	{Text: "יריד תרומות לטובת הספרייה ב-20/06 מ-16:00 עד 19:00 בחצר", Category: CategoryEvent, Description: "גיוס כספים"},
	{Text: "חגיגת סוף שנה ב-25/06 בשעה 18:00 באמפי", Category: CategoryEvent},
}

var urgentExamples = []Example{
	{Text: "הודעה דחופה: הלימודים מחר יסתיימו ב-12:00 בגלל שביתה", Category: CategoryUrgentMessage, Description: "הודעה דחופה ליום אחד"},
	{Text: "תזכורת: יש להביא אישור הורים לטיול עד יום חמישי", Category: CategoryUrgentMessage, Description: "תזכורת עם מועד אחרון"},
	{Text: "ביטול: אסיפת ההורים של יום שלישי בוטלה ותתואם מחדש", Category: CategoryUrgentMessage, Description: "הודעת ביטול"},
	{Text: "שינוי בשעת האיסוף מהצהרון השבוע: 16:30 במקום 17:00", Category: CategoryUrgentMessage, Description: "עדכון זמני"},
	{Text: "עדכון: שער הכניסה הצפוני סגור לשיפוצים עד סוף החודש", Category: CategoryUrgentMessage},
	{Text: "אזהרה: נמצאו כינים בכיתה ב'2, נא לבדוק את הילדים", Category: CategoryUrgentMessage, Description: "הודעת אזהרה"},
}

// urgentKeywords 通知、紧急、提醒、取消、变更类关键词
var urgentKeywords = []string{
	"הודעה",
	"דחוף",
	"דחופה",
	"תזכורת",
	"ביטול",
	"בוטל",
	"מבוטל",
	"שינוי",
	"עדכון",
	"אזהרה",
	"שימו לב",
}

// Catalog 静态示例目录，只读，可并发使用
type Catalog struct {
	events []Example
	urgent []Example
}

// NewCatalog 创建内置示例目录
func NewCatalog() *Catalog {
	return &Catalog{events: eventExamples, urgent: urgentExamples}
}

// Contextual 按阶段与用户已输入内容挑选示例
// 类型选择阶段返回两类各两条，其余阶段按关键词偏向紧急通知，默认返回活动示例
func (c *Catalog) Contextual(phase, userInput string) []Example {
	if phase == PhaseTypeSelection {
		out := make([]Example, 0, 4)
		out = append(out, c.events[:2]...)
		out = append(out, c.urgent[:2]...)
		return out
	}
	if LooksUrgent(userInput) {
		return clone(c.urgent)
	}
	return clone(c.events)
}

// All 返回某类别全部示例，未知类别返回空列表
func (c *Catalog) All(category Category) []Example {
	switch category {
	case CategoryEvent:
		return clone(c.events)
	case CategoryUrgentMessage:
		return clone(c.urgent)
	default:
		return []Example{}
	}
}

// LooksUrgent 输入是否包含紧急通知类关键词
func LooksUrgent(input string) bool {
	if input == "" {
		return false
	}
	for _, kw := range urgentKeywords {
		if strings.Contains(input, kw) {
			return true
		}
	}
	return false
}

func clone(in []Example) []Example {
	out := make([]Example, len(in))
	copy(out, in)
	return out
}
