package logger

import (
	"fmt"
	"os"
	"time"
)

// ANSI color codes. Disabled when NO_COLOR is set.
const (
	colorReset  = "\033[0m"
	colorGray   = "\033[90m"
	colorCyan   = "\033[36m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorBold   = "\033[1m"
)

func colorsEnabled() bool {
	return os.Getenv("NO_COLOR") == ""
}

func paint(code, s string) string {
	if !colorsEnabled() {
		return s
	}
	return code + s + colorReset
}

func stamp() string {
	return time.Now().Format("15:04:05")
}

func logLine(level, color, tag, msg string) {
	fmt.Fprintf(os.Stdout, "%s %s %s %s\n",
		paint(colorGray, stamp()),
		paint(color, level),
		paint(colorBold, "["+tag+"]"),
		msg)
}

// Info logs a neutral progress message.
func Info(tag, msg string) {
	logLine("INFO", colorCyan, tag, msg)
}

// Success logs a completed step.
func Success(tag, msg string) {
	logLine(" OK ", colorGreen, tag, msg)
}

// Warn logs a recoverable problem.
func Warn(tag, msg string) {
	logLine("WARN", colorYellow, tag, msg)
}

// Error logs a failure.
func Error(tag, msg string) {
	logLine("FAIL", colorRed, tag, msg)
}

// Banner prints the startup banner with the build version.
func Banner(version string) {
	if version == "" {
		version = "dev"
	}
	fmt.Fprintln(os.Stdout, paint(colorCyan, `
  _                     _   _       _
 (_)_ ____   _____  ___| |_| | __ _| |__
 | | '_ \ \ / / _ \/ __| __| |/ _`+"`"+` | '_ \
 | | | | \ V /  __/\__ \ |_| | (_| | |_) |
 |_|_| |_|\_/ \___||___/\__|_|\__,_|_.__/`))
	fmt.Fprintf(os.Stdout, "  %s\n\n", paint(colorGray, "quantitative analytics engine "+version))
}

// Section prints a visual divider before a group of log lines.
func Section(name string) {
	fmt.Fprintf(os.Stdout, "%s\n", paint(colorBold, "── "+name+" ──"))
}

// Stats prints a single aligned key/value diagnostic line.
func Stats(key string, value interface{}) {
	fmt.Fprintf(os.Stdout, "   %s %v\n", paint(colorGray, key+":"), value)
}

// Server logs the listen address once the HTTP server is up.
func Server(addr string) {
	Success("Server", fmt.Sprintf("Listening on http://%s", addr))
}
