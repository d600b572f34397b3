package main

import (
	"fmt"
	"os"
	"strings"
	"time"
)

func main() {
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		os.Exit(1)
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	adminUser := strings.TrimSpace(os.Getenv("ADMIN_USERNAME"))
	adminPass := strings.TrimSpace(os.Getenv("ADMIN_PASSWORD"))
	addr := strings.TrimSpace(os.Getenv("ADDR"))
	db := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	origins := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS"))

	if adminUser == "" || adminPass == "" {
		fail("ADMIN_USERNAME/ADMIN_PASSWORD are empty (mutating routes will be wide open).")
	}
	if adminPass == "changeme123" {
		warn("ADMIN_PASSWORD is the documented placeholder; change it.")
	}

	for _, key := range []string{"PING_INTERVAL", "PING_TIMEOUT", "SESSION_TTL"} {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			fail(key + " is not a duration (use forms like 30s, 5m): " + v)
		}
		if d <= 0 {
			fail(key + " must be positive; the API will refuse to start.")
		}
		ok(key + "=" + v)
	}

	if addr == "" {
		warn("ADDR is empty; default 127.0.0.1:8080 will be used.")
	} else {
		ok("ADDR=" + addr)
	}

	if db == "" {
		warn("DATABASE_URL empty — probe history will live in memory and vanish on restart.")
	} else {
		ok("DATABASE_URL present")
	}

	if origins == "" {
		warn("ALLOWED_ORIGINS empty — CORS will allow every origin.")
	} else {
		ok("ALLOWED_ORIGINS=" + origins)
	}

	ok("preflight passed")
}
