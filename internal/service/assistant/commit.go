package assistant

import (
	"context"
	"fmt"
	"time"

	"github.com/ashwinyue/committee-assistant/internal/model"
	"github.com/ashwinyue/committee-assistant/internal/service/extractor"
)

// ContentStore 最终内容写入
type ContentStore interface {
	CreateEvent(ctx context.Context, event *model.Event) error
	CreateUrgentMessage(ctx context.Context, msg *model.UrgentMessage) error
}

// persist 写入载荷，返回记录 ID
func (o *Orchestrator) persist(ctx context.Context, sessionID string, p *extractor.Payload) (string, error) {
	switch p.Type {
	case extractor.ContentEvent:
		ev, err := toEvent(p.Event, o.cfg.Location)
		if err != nil {
			return "", err
		}
		ev.CreatedBy = o.cfg.CreatedBy
		ev.SourceSession = sessionID
		if err := o.content.CreateEvent(ctx, ev); err != nil {
			return "", fmt.Errorf("failed to create event: %w", err)
		}
		return ev.ID, nil
	case extractor.ContentUrgentMessage:
		msg, err := toUrgentMessage(p.UrgentMessage, o.cfg.Location)
		if err != nil {
			return "", err
		}
		msg.CreatedBy = o.cfg.CreatedBy
		msg.SourceSession = sessionID
		if err := o.content.CreateUrgentMessage(ctx, msg); err != nil {
			return "", fmt.Errorf("failed to create urgent message: %w", err)
		}
		return msg.ID, nil
	default:
		return "", fmt.Errorf("unsupported payload type %q", p.Type)
	}
}

func toEvent(p *extractor.EventPayload, loc *time.Location) (*model.Event, error) {
	start, err := time.ParseInLocation(extractor.DatetimeLayout, p.StartDatetime, loc)
	if err != nil {
		return nil, fmt.Errorf("invalid start_datetime: %w", err)
	}
	ev := &model.Event{
		Title:         p.Title,
		TitleRu:       p.TitleRu,
		Description:   p.Description,
		DescriptionRu: p.DescriptionRu,
		StartDatetime: start,
		Location:      p.Location,
		LocationRu:    p.LocationRu,
		EventType:     p.EventType,
		Status:        "published",
	}
	if p.EndDatetime != "" {
		end, err := time.ParseInLocation(extractor.DatetimeLayout, p.EndDatetime, loc)
		if err != nil {
			return nil, fmt.Errorf("invalid end_datetime: %w", err)
		}
		ev.EndDatetime = &end
	}
	if ev.EventType == "" {
		ev.EventType = "general"
	}
	return ev, nil
}

func toUrgentMessage(p *extractor.UrgentMessagePayload, loc *time.Location) (*model.UrgentMessage, error) {
	msg := &model.UrgentMessage{
		Title:         p.Title,
		TitleRu:       p.TitleRu,
		Description:   p.Description,
		DescriptionRu: p.DescriptionRu,
		MessageType:   p.MessageType,
		IsActive:      true,
	}
	if msg.MessageType == "" {
		msg.MessageType = "info"
	}
	var err error
	if msg.StartDate, err = parseDate(p.StartDate, loc); err != nil {
		return nil, fmt.Errorf("invalid start_date: %w", err)
	}
	if msg.EndDate, err = parseDate(p.EndDate, loc); err != nil {
		return nil, fmt.Errorf("invalid end_date: %w", err)
	}
	return msg, nil
}

func parseDate(s string, loc *time.Location) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(extractor.DateLayout, s, loc)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
