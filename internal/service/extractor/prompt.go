package extractor

import (
	"fmt"
	"strings"
	"time"
)

const basePrompt = `You help the admin of a school parent committee publish content.
The admin writes in Hebrew. Turn the message into exactly one structured record by calling a tool.

Rules:
- Today is %s (%s), timezone %s. Resolve relative dates ("tomorrow", "next Tuesday") against today.
- Dates use YYYY-MM-DD, date-times use YYYY-MM-DDTHH:MM in local time.
- Hebrew fields keep the admin's wording. Every *_ru field is a faithful Russian translation of its Hebrew field; never leave it empty when the Hebrew field is set. Transliterate proper nouns.
- If a required detail is missing or ambiguous, do not call a tool. Ask one short clarifying question in Hebrew instead.
- Never invent dates, times or places that the admin did not give.`

// systemPrompt 生成系统提示词，包含业务时区的当天日期
func systemPrompt(now time.Time, contentType ContentType) string {
	var b strings.Builder
	fmt.Fprintf(&b, basePrompt, now.Format(DateLayout), now.Weekday(), now.Location())

	switch contentType {
	case ContentEvent:
		b.WriteString("\n\nThe admin is creating an event. Use " + ToolCreateEvent + "; a start date and time are required.")
	case ContentUrgentMessage:
		b.WriteString("\n\nThe admin is creating an urgent message. Use " + ToolCreateUrgentMessage + "; pick message_type by severity.")
	default:
		b.WriteString("\n\nChoose " + ToolCreateEvent + " for things that happen at a time and place, " + ToolCreateUrgentMessage + " for notices, reminders, cancellations and changes.")
	}
	return b.String()
}
