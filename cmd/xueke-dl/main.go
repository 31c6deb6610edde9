package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/xueke/download-client/internal/api"
	"github.com/xueke/download-client/internal/config"
	"github.com/xueke/download-client/internal/download"
	"github.com/xueke/download-client/internal/model"
	"github.com/xueke/download-client/internal/session"
	"github.com/xueke/download-client/internal/store"
)

const (
	defaultConfigPath  = "client_config.json"
	defaultDevicePath  = "device_id.txt"
	defaultPendingPath = "pending_tasks.json"
	defaultHistoryPath = "download_history.json"
)

func main() {
	// Command line flags
	var (
		urlsFlag    = flag.String("url", "", "URL(s) to submit (comma-separated or newline-separated)")
		emailFlag   = flag.String("email", "", "Notification email (overrides config)")
		serverFlag  = flag.String("server", "", "Server URL (overrides config)")
		userFlag    = flag.String("user", "", "Username (overrides config)")
		passFlag    = flag.String("pass", "", "Password")
		licenseFlag = flag.String("license", "", "License key (overrides config)")
		configFlag  = flag.String("config", defaultConfigPath, "Path to config file")
		waitFlag    = flag.Bool("wait", false, "Wait for the task to complete")
		fetchFlag   = flag.String("fetch", "", "Download direct links into this directory (implies -wait)")
		statusFlag  = flag.Bool("status", false, "Show session and task status, then exit")
		logFlag     = flag.String("log", "", "Also write diagnostics to this file")
		verboseFlag = flag.Bool("verbose", false, "Show verbose output")
	)

	flag.Parse()

	// CLI mode - require URL unless just checking status
	if *urlsFlag == "" && flag.NArg() == 0 && !*statusFlag {
		fmt.Println("Xueke Download Client - Submit bulk download tasks")
		fmt.Println()
		fmt.Println("Usage:")
		fmt.Println("  xueke-dl -url <URL> -email <EMAIL> [options]")
		fmt.Println("  xueke-dl <URL> [options]")
		fmt.Println()
		fmt.Println("For interactive mode, use: xueke-tui")
		fmt.Println()
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Load config
	settings, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Apply flags
	if *serverFlag != "" {
		settings.Server.URL = *serverFlag
	}
	if *userFlag != "" {
		settings.User.Username = *userFlag
	}
	if *licenseFlag != "" {
		settings.User.LicenseKey = *licenseFlag
	}

	email := *emailFlag
	if email == "" {
		email = settings.User.Email
	}

	// Get URLs
	urls := *urlsFlag
	if urls == "" && flag.NArg() > 0 {
		urls = strings.Join(flag.Args(), ",")
	}

	// Handle interrupts
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nInterrupted, cancelling...")
		cancel()
	}()

	level := slog.LevelWarn
	if *verboseFlag {
		level = slog.LevelDebug
	}
	var logOut io.Writer = os.Stderr
	if *logFlag != "" {
		logFile, err := os.OpenFile(*logFlag, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
			os.Exit(1)
		}
		defer logFile.Close()
		logOut = io.MultiWriter(os.Stderr, logFile)
	}
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level}))

	client := api.NewClient(settings.Server.URL, settings.Timeout())

	sess := session.New(session.Options{
		Gateway:      client,
		Settings:     settings,
		SaveSettings: func(s *config.Settings) error { return s.Save(*configFlag) },
		Pending:      store.NewPendingStore(defaultPendingPath),
		History:      store.NewHistoryStore(defaultHistoryPath),
		DeviceID:     store.DeviceID(defaultDevicePath),
		Logger:       logger,
		OnDrainDrop: func(task *model.Task, err error) {
			fmt.Fprintf(os.Stderr, "Warning: dropped queued task %s: %v\n", task.TaskID, err)
		},
	})
	defer sess.Disconnect()

	sess.Notifier().RegisterStatus(session.StatusFunc(func(e session.StatusEvent) {
		printEvent(e, *verboseFlag)
	}))
	sess.Notifier().RegisterError(session.ErrorFunc(func(err error) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}))

	fmt.Println("Xueke Download Client")
	fmt.Println(strings.Repeat("-", 40))

	if !sess.Connect(ctx, "") {
		fmt.Fprintln(os.Stderr, "Error: server unreachable")
		os.Exit(1)
	}

	if !login(ctx, sess, settings, *passFlag) {
		os.Exit(1)
	}

	if !sess.Status().LicenseValid {
		key := settings.User.LicenseKey
		if key == "" {
			fmt.Fprintln(os.Stderr, "Error: no license key; pass -license or set it in the config")
			os.Exit(1)
		}
		if !sess.ValidateLicense(ctx, key) {
			os.Exit(1)
		}
	}

	if *statusFlag {
		printStatus(ctx, sess)
		return
	}

	taskID, ok := sess.SubmitDownloadTask(ctx, splitURLs(urls), email)
	if !ok {
		fmt.Fprintln(os.Stderr, "Error: submission failed")
		os.Exit(1)
	}

	if *fetchFlag == "" && !*waitFlag {
		return
	}

	task := waitForTask(ctx, sess, taskID)
	if task == nil {
		if ctx.Err() != nil {
			os.Exit(130)
		}
		fmt.Fprintln(os.Stderr, "Error: task did not complete")
		os.Exit(1)
	}

	if *fetchFlag != "" {
		if err := fetchLinks(ctx, sess, client, task, *fetchFlag, *verboseFlag); err != nil {
			if ctx.Err() != nil {
				fmt.Println("\nDownload cancelled.")
				os.Exit(130)
			}
			fmt.Fprintf(os.Stderr, "Error during download: %v\n", err)
			os.Exit(1)
		}
	}
}

func login(ctx context.Context, sess *session.Session, settings *config.Settings, pass string) bool {
	if pass != "" {
		return sess.Login(ctx, settings.User.Username, pass)
	}
	if settings.User.AutoLogin && settings.User.Password != "" {
		return sess.AutoLogin(ctx)
	}
	if settings.User.Password != "" {
		// Stored digest, replayed even with auto-login disabled since the
		// user invoked the command explicitly.
		return sess.Login(ctx, "", "")
	}
	fmt.Fprintln(os.Stderr, "Error: no password; pass -pass or log in once to store credentials")
	return false
}

// waitForTask polls until the submitted task reaches a terminal status.
func waitForTask(ctx context.Context, sess *session.Session, taskID string) *model.Task {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			task := sess.TaskInfo(ctx, taskID)
			if task == nil {
				continue
			}
			switch task.Status {
			case model.StatusCompleted:
				return task
			case model.StatusFailed:
				fmt.Fprintf(os.Stderr, "Error: task %s failed on the server\n", taskID)
				return nil
			}
		}
	}
}

func fetchLinks(ctx context.Context, sess *session.Session, client *api.Client, task *model.Task, dir string, verbose bool) error {
	if len(task.DirectLinks) == 0 {
		task.DirectLinks = sess.DownloadLinks(ctx, task.TaskID)
	}

	fetcher := download.NewFetcher(client, download.Options{Dir: dir}, func(event download.ProgressEvent) {
		if event.Level == download.LevelVerbose && !verbose {
			return
		}
		fmt.Println(event.Message)
	})

	fmt.Println("\nStarting downloads...")
	if err := fetcher.FetchTask(ctx, task); err != nil {
		return err
	}

	received, total, bytes := fetcher.Progress()
	fmt.Println()
	fmt.Println(strings.Repeat("-", 40))
	fmt.Printf("Complete! Downloaded %d/%d files (%.2f MB)\n", received, total, float64(bytes)/1024/1024)
	return nil
}

func printStatus(ctx context.Context, sess *session.Session) {
	status := sess.Status()
	fmt.Printf("Server:    %s\n", status.ServerURL)
	fmt.Printf("User:      %s (%s)\n", status.Username, status.Email)
	fmt.Printf("Licensed:  %v\n", status.LicenseValid)
	fmt.Printf("Queued:    %d\n", status.PendingTasks)
	fmt.Println()

	tasks := sess.AllTasks(ctx)
	if len(tasks) == 0 {
		fmt.Println("No tasks.")
		return
	}
	for _, task := range tasks {
		line := fmt.Sprintf("  %s  %-12s", task.TaskID, task.Status)
		if task.Status.Active() {
			line += fmt.Sprintf(" %3d%%", task.Progress)
		}
		fmt.Println(line)
	}
}

func printEvent(e session.StatusEvent, verbose bool) {
	switch e.Kind {
	case session.EventConnected:
		fmt.Println("Connected.")
	case session.EventLoginSuccess:
		fmt.Println("Logged in.")
	case session.EventLoginFailed:
		fmt.Fprintf(os.Stderr, "Login failed: %s\n", e.Reason)
	case session.EventLicenseValid:
		if e.License != nil && e.License.DaysLeft > 0 {
			fmt.Printf("License valid (%d days left).\n", e.License.DaysLeft)
		} else {
			fmt.Println("License valid.")
		}
	case session.EventLicenseInvalid:
		fmt.Fprintf(os.Stderr, "License rejected: %s\n", e.Reason)
	case session.EventTaskSubmitted:
		if e.Task != nil {
			fmt.Printf("Task submitted: %s\n", e.Task.TaskID)
		}
	case session.EventTaskOfflineSaved:
		if e.Task != nil {
			fmt.Printf("Task queued offline: %s\n", e.Task.TaskID)
		}
	case session.EventTaskComplete:
		if e.Task != nil {
			fmt.Printf("Task complete: %s\n", e.Task.TaskID)
		}
	case session.EventTaskStatus:
		if verbose && e.Task != nil {
			fmt.Printf("Task %s: %s %d%%\n", e.Task.TaskID, e.Task.Status, e.Task.Progress)
		}
	}
}

func splitURLs(input string) []string {
	var urls []string
	for _, part := range strings.FieldsFunc(input, func(r rune) bool {
		return r == ',' || r == '\n'
	}) {
		part = strings.TrimSpace(part)
		if part != "" {
			urls = append(urls, part)
		}
	}
	return urls
}
