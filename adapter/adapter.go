// Package adapter defines the launch notification boundary.
//
// When a launch is finished or stopped the reporter builds one
// LaunchFinishedEvent and hands it to the configured Adapter. Adapters
// decide how the event travels (webhook POST, Redis pub/sub) and how they
// key it; they never call back into the reporter.
package adapter

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// EventTypeLaunchFinished is the event_type of every notification.
const EventTypeLaunchFinished = "launch_finished"

// LaunchFinishedEvent is the payload published when a launch is finished
// or force-finished.
type LaunchFinishedEvent struct {
	Version    string `json:"version"`
	EventType  string `json:"event_type"`
	Host       string `json:"host,omitempty"`
	Project    string `json:"project"`
	LaunchID   string `json:"launch_id"`
	LaunchURL  string `json:"launch_url,omitempty"`
	Status     string `json:"status"`
	Forced     bool   `json:"forced"`
	HTTPStatus int    `json:"http_status"`
	Timestamp  string `json:"timestamp"`
}

// Action is "stop" for a forced finish and "finish" otherwise.
func (e *LaunchFinishedEvent) Action() string {
	if e.Forced {
		return "stop"
	}
	return "finish"
}

// Key identifies one launch outcome: <project>/<launch_id>/<action>.
// Republishing the same outcome yields the same key.
func (e *LaunchFinishedEvent) Key() string {
	return e.Project + "/" + e.LaunchID + "/" + e.Action()
}

// Summary is a one-line human description, with the UI link when known.
func (e *LaunchFinishedEvent) Summary() string {
	verb := "finished"
	if e.Forced {
		verb = "stopped"
	}
	s := fmt.Sprintf("Launch %s of %s %s: %s", e.LaunchID, e.Project, verb, e.Status)
	if e.LaunchURL != "" {
		s += " " + e.LaunchURL
	}
	return s
}

// LaunchURL returns the service UI page of a launch, e.g.
// https://rp.example.com/ui/#demo/launches/all/42. Empty when host is.
func LaunchURL(host, project, launchID string) string {
	host = strings.TrimRight(host, "/")
	if host == "" {
		return ""
	}
	return host + "/ui/#" + url.PathEscape(project) + "/launches/all/" + url.PathEscape(launchID)
}

// Adapter publishes launch notifications to a downstream system.
type Adapter interface {
	// Publish delivers the event. Must respect context cancellation.
	Publish(ctx context.Context, event *LaunchFinishedEvent) error

	// Close releases adapter resources.
	Close() error
}
