package rest

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"

	"github.com/darkomike/bloggie-sub001/debug"
)

const streamBuffer = 64

type Debug struct {
	Panel *debug.Panel
	Bus   *debug.Bus
}

// EventJSON is the wire form of a debug event.
type EventJSON struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	Namespace string    `json:"namespace"`
	Key       string    `json:"key"`
	TTLMs     int64     `json:"ttl_ms,omitempty"`
	Origin    string    `json:"origin"`
	Time      time.Time `json:"time"`
}

func toEventJSON(ev debug.Event) EventJSON {
	return EventJSON{
		ID:        ev.ID(),
		Action:    string(ev.Action),
		Namespace: ev.Namespace,
		Key:       ev.Key,
		TTLMs:     ev.TTL.Milliseconds(),
		Origin:    string(ev.Origin),
		Time:      ev.Time,
	}
}

/*
InitRestDebug mounts the cache debug panel. Every route answers 404 while
the panel is disabled.
*/
func InitRestDebug(app fiber.Router, panel *debug.Panel, bus *debug.Bus) Debug {
	rest := Debug{Panel: panel, Bus: bus}

	app.Use("/debug/cache", rest.requireEnabled)
	app.Get("/debug/cache", rest.Entries)
	app.Get("/debug/cache/table", rest.Table)
	app.Delete("/debug/cache", rest.Clear)

	app.Use("/debug/cache/stream", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/debug/cache/stream", websocket.New(rest.Stream))

	return rest
}

func (handler *Debug) requireEnabled(c *fiber.Ctx) error {
	if handler.Panel == nil || !handler.Panel.Enabled() {
		return respond(c, ResponseData{
			Status:  fiber.StatusNotFound,
			Code:    "NOT_FOUND",
			Message: "Cache debug panel is disabled",
		})
	}
	return c.Next()
}

// Entries lists the retained events, most recent first.
func (handler *Debug) Entries(c *fiber.Ctx) error {
	entries := handler.Panel.Entries()
	out := make([]EventJSON, 0, len(entries))
	for _, ev := range entries {
		out = append(out, toEventJSON(ev))
	}
	return respond(c, ResponseData{
		Code:    "SUCCESS",
		Message: "Cache events retrieved",
		Results: fiber.Map{
			"max_entries": handler.Panel.MaxEntries(),
			"events":      out,
		},
	})
}

func (handler *Debug) Table(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return handler.Panel.Render(c.Response().BodyWriter())
}

func (handler *Debug) Clear(c *fiber.Ctx) error {
	handler.Panel.Clear()
	return respond(c, ResponseData{
		Code:    "SUCCESS",
		Message: "Cache events cleared",
	})
}

/*
Stream forwards live events to the websocket as JSON. A client that cannot
keep up loses events rather than slowing the cache down.
*/
func (handler *Debug) Stream(conn *websocket.Conn) {
	events := make(chan debug.Event, streamBuffer)
	unsubscribe := handler.Bus.Subscribe(func(ev debug.Event) {
		select {
		case events <- ev:
		default:
		}
	})
	defer unsubscribe()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logrus.WithError(err).Warn("[DEBUG] stream read failed")
				}
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case ev := <-events:
			if err := conn.WriteJSON(toEventJSON(ev)); err != nil {
				logrus.WithError(err).Debug("[DEBUG] stream write failed")
				return
			}
		}
	}
}
