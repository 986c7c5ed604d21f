package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dailypush/internal/app"
	"dailypush/internal/config"
)

func main() {
	var (
		o       config.Overrides
		opts    app.Options
		job     string
		daemon  bool
		history int
	)
	flag.StringVar(&o.SendKey, "send-key", "", "ServerChan send key")
	flag.StringVar(&o.TimeZone, "time-zone", "", "IANA timezone (default Asia/Shanghai)")
	flag.StringVar(&o.WeatherLocation, "weather-location", "", "city name for the weather lookup")
	flag.StringVar(&o.WeatherKey, "weather-key", "", "QWeather API key")
	flag.StringVar(&o.AlphaVantageKey, "alpha-vantage-key", "", "Alpha Vantage API key")
	flag.StringVar(&o.LogLevel, "log-level", "", "log level (trace|debug|info|warn|error)")
	flag.StringVar(&opts.ConfigPath, "config", "", "path to config json/yaml (optional)")
	flag.StringVar(&job, "job", "report", "job to run once: report|remind")
	flag.BoolVar(&daemon, "daemon", false, "run scheduled jobs from scheduler.jobs until stopped")
	flag.BoolVar(&opts.DryRun, "dry-run", false, "print the report instead of pushing it")
	flag.IntVar(&history, "history", 0, "print the last N deliveries from storage and exit")
	flag.Parse()
	opts.Overrides = o

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
	code := run(ctx, a, job, daemon, history)
	_ = a.Close()
	os.Exit(code)
}

func run(ctx context.Context, a *app.App, job string, daemon bool, history int) int {
	switch {
	case history > 0:
		entries, err := a.History(ctx, history)
		if err != nil {
			fmt.Fprintln(os.Stderr, "history:", err)
			return 1
		}
		for _, e := range entries {
			status := "ok"
			if !e.OK {
				status = "failed: " + e.Error
			}
			fmt.Printf("%s  %-7s %-10s #%d %5dms  %s  %s\n",
				e.At.Local().Format(time.DateTime), e.Job, e.Gateway, e.Attempt, e.TookMS, e.Title, status)
		}
		return 0

	case daemon:
		if err := a.Run(ctx); err != nil {
			fmt.Fprintln(os.Stderr, "fatal:", err)
			return 1
		}
		return 0
	}

	out, err := a.RunOnce(ctx, job)
	for _, r := range out.Results {
		fmt.Println(r.Error)
	}
	if out.Suppressed {
		fmt.Println("duplicate report suppressed")
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}
