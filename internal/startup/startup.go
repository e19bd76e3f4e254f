package startup

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"frame-viewer/internal/logging"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo describes one method/path pair served by the router.
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

const rule = "------------------------------------------------------------"

const banner = `
` + rule + `
  ___                       __   ___
 | __| _ __ _ _ __  ___     \ \ / (_)_____ __ _____ _ _
 | _| '_/ _' | '  \/ -_)     \ V /| / -_) V  V / -_) '_|
 |_||_| \__,_|_|_|_\___|      \_/ |_\___|\_/\_/\___|_|

` + rule

// section opens a titled block in the startup log.
func section(format string, args ...any) {
	logging.Info(rule)
	logging.Info(format, args...)
	logging.Info(rule)
}

// row logs an aligned "label: value" line inside a section.
func row(label, format string, args ...any) {
	logging.Info("  %-17s"+format, append([]any{label + ":"}, args...)...)
}

// PrintBanner prints the banner and build information.
func PrintBanner() {
	fmt.Fprintln(os.Stderr, banner)
	row("Version", "%s", Version)
	row("Commit", "%s", Commit)
	row("Build time", "%s", BuildTime)
	row("Started", "%s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

// LogSystemInfo logs runtime and host details.
func LogSystemInfo() {
	section("SYSTEM INFORMATION")
	procs, cpus := runtime.GOMAXPROCS(0), runtime.NumCPU()
	row("Go version", "%s", runtime.Version())
	row("OS/Arch", "%s/%s", runtime.GOOS, runtime.GOARCH)
	row("CPUs", "%d (GOMAXPROCS %d)", cpus, procs)
	if procs < cpus {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		host, _ := os.Hostname()
		wd, _ := os.Getwd()
		logging.Debug("  Host %s, working dir %s, %d goroutines", host, wd, runtime.NumGoroutine())
	}
	logging.Info("")
}

// LogDecoderInit logs which still-image fallbacks are usable and checks
// FFmpeg.
func LogDecoderInit(vipsAvailable bool) {
	section("DECODER INITIALIZATION")
	row("libvips", "%s", enabledString(vipsAvailable))

	if err := checkFFmpeg(); err != nil {
		logging.Warn("  FFmpeg check failed: %v", err)
		logging.Warn("  mp4 export and the ffmpeg still fallback will not work")
	} else {
		row("FFmpeg", "%s", enabledString(true))
	}
	logging.Info("")
}

// LogSessionOpened logs the source a session opened.
func LogSessionOpened(path string, first, last int, fps float64, took time.Duration) {
	section("SOURCE")
	row("Path", "%s", path)
	row("Frames", "%d-%d (%d)", first, last, last-first+1)
	row("FPS", "%.3f", fps)
	row("Opened in", "%v", took)
	logging.Info("")
}

// GetRoutes lists every method/path pair registered on router. Routes
// without a method matcher are reported as "*".
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo
	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		path, err := route.GetPathTemplate()
		if err != nil {
			return err
		}
		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}
		for _, m := range methods {
			routes = append(routes, RouteInfo{Method: m, Path: path, Name: route.GetName()})
		}
		return nil
	})
	return routes, err
}

// LogHTTPRoutes lists the routes grouped by prefix. The listing is only
// produced at debug level.
func LogHTTPRoutes(router *mux.Router) {
	section("HTTP SERVER SETUP")
	if !logging.IsDebugEnabled() {
		logging.Info("  Set LOG_LEVEL=debug to list routes")
		logging.Info("")
		return
	}

	routes, err := GetRoutes(router)
	if err != nil {
		logging.Warn("error walking routes: %v", err)
	}
	slices.SortStableFunc(routes, func(a, b RouteInfo) int {
		return cmp.Compare(getRouteGroup(a.Path), getRouteGroup(b.Path))
	})

	logging.Debug("  Registered routes (%d total):", len(routes))
	group := "\x00"
	for _, r := range routes {
		if g := getRouteGroup(r.Path); g != group {
			group = g
			logging.Debug("  [%s]", cmp.Or(g, "root"))
		}
		logging.Debug("    %-6s %s", r.Method, r.Path)
	}
	logging.Info("")
}

// getRouteGroup returns the first path segment, or "api/<resource>" for
// routes under /api.
func getRouteGroup(path string) string {
	first, rest, _ := strings.Cut(strings.TrimPrefix(path, "/"), "/")
	if first == "api" && rest != "" {
		resource, _, _ := strings.Cut(rest, "/")
		return "api/" + resource
	}
	return first
}

// LogServerStarted logs the status endpoint address.
func LogServerStarted(addr string, took time.Duration) {
	host := addr
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	}

	section("STATUS SERVER STARTED")
	row("Startup time", "%v", took)
	for _, ep := range []struct{ label, path string }{
		{"Health", "/healthz"},
		{"Metrics", "/metrics"},
		{"State", "/api/state"},
		{"Live view", "/api/stream"},
	} {
		row(ep.label, "http://%s%s", host, ep.path)
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop")
	logging.Info(rule)
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(reason string) {
	logging.Info("")
	section("SHUTDOWN INITIATED (%s)", reason)
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

// checkFFmpeg verifies ffmpeg runs and logs its version line at debug.
func checkFFmpeg() error {
	path, err := exec.LookPath("ffmpeg")
	if err != nil {
		return fmt.Errorf("ffmpeg not found in PATH")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, path, "-version").Output()
	if err != nil {
		return fmt.Errorf("failed to get ffmpeg version: %w", err)
	}
	line, _, _ := strings.Cut(string(out), "\n")
	logging.Debug("  FFmpeg: %s (%s)", strings.TrimSpace(line), path)
	return nil
}
