package discovery

import (
	"strings"

	"github.com/jpalmerr/hapulse/internal/metric"
	"github.com/jpalmerr/hapulse/internal/stats"
)

// defaultTitles are source titles too generic to prefix device names with.
var defaultTitles = map[string]bool{
	"":                    true,
	"HAProxy":             true,
	"HAProxy Stats":       true,
	"HAProxy Stats (CSV)": true,
}

// DeviceName returns the display name of the object behind key, prefixed
// with the source title unless the title is a default one.
//
//	DeviceName("HAProxy", {web, BACKEND})   // "web Backend"
//	DeviceName("Edge", {web, app1})         // "Edge web app1"
func DeviceName(title string, key stats.ObjectKey) string {
	suffix := key.Server
	switch key.Server {
	case metric.ServerFrontend, metric.ServerBackend, metric.ServerListener:
		suffix = titleCase(key.Server)
	}

	name := strings.TrimSpace(key.Proxy + " " + suffix)
	if defaultTitles[title] {
		return name
	}
	return strings.TrimSpace(title + " " + name)
}

// Model returns the kind of object a service name denotes.
func Model(server string) string {
	switch server {
	case metric.ServerFrontend:
		return "Frontend"
	case metric.ServerBackend:
		return "Backend"
	case metric.ServerListener:
		return "Listener"
	default:
		return "Server"
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
