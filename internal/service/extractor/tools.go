package extractor

import "github.com/cloudwego/eino/schema"

// 工具名
const (
	ToolCreateEvent         = "create_event"
	ToolCreateUrgentMessage = "create_urgent_message"
)

// toolContentType 工具名到内容类型
var toolContentType = map[string]ContentType{
	ToolCreateEvent:         ContentEvent,
	ToolCreateUrgentMessage: ContentUrgentMessage,
}

func str(desc string, required bool) *schema.ParameterInfo {
	return &schema.ParameterInfo{Type: schema.String, Desc: desc, Required: required}
}

// EventTool create_event 工具定义
func EventTool() *schema.ToolInfo {
	eventType := str("Kind of event", false)
	eventType.Enum = EventTypes

	return &schema.ToolInfo{
		Name: ToolCreateEvent,
		Desc: "Create a school event once its title and start date-time are known. Hebrew fields are the source; every *_ru field is the Russian translation of its Hebrew counterpart.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"title":          str("Event title in Hebrew", true),
			"title_ru":       str("Event title translated to Russian", true),
			"start_datetime": str("Start in local time, format YYYY-MM-DDTHH:MM", true),
			"end_datetime":   str("End in local time, format YYYY-MM-DDTHH:MM", false),
			"description":    str("Event description in Hebrew", false),
			"description_ru": str("Description translated to Russian, required when description is set", false),
			"location":       str("Location in Hebrew", false),
			"location_ru":    str("Location translated to Russian, required when location is set", false),
			"event_type":     eventType,
		}),
	}
}

// UrgentMessageTool create_urgent_message 工具定义
func UrgentMessageTool() *schema.ToolInfo {
	messageType := str("Severity of the message, default info", false)
	messageType.Enum = MessageTypes

	return &schema.ToolInfo{
		Name: ToolCreateUrgentMessage,
		Desc: "Create an urgent announcement for parents (notice, reminder, cancellation, change). Hebrew fields are the source; every *_ru field is the Russian translation of its Hebrew counterpart.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"title":          str("Announcement title in Hebrew", true),
			"title_ru":       str("Title translated to Russian", true),
			"description":    str("Announcement body in Hebrew", true),
			"description_ru": str("Body translated to Russian", true),
			"message_type":   messageType,
			"start_date":     str("First day to display the announcement, format YYYY-MM-DD", false),
			"end_date":       str("Last day to display the announcement, format YYYY-MM-DD", false),
		}),
	}
}

// toolsFor 按内容类型选择工具，未指定时两个都提供
func toolsFor(t ContentType) []*schema.ToolInfo {
	switch t {
	case ContentEvent:
		return []*schema.ToolInfo{EventTool()}
	case ContentUrgentMessage:
		return []*schema.ToolInfo{UrgentMessageTool()}
	default:
		return []*schema.ToolInfo{EventTool(), UrgentMessageTool()}
	}
}
