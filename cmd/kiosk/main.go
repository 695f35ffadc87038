// Kiosk is the attendance client agent: it restores the persisted
// session, keeps the event snapshot fresh, and drives the face
// registration and clock-in capture flows against the backends.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"clockin/internal/api"
	"clockin/internal/app"
	"clockin/internal/config"
	"clockin/internal/event"
	"clockin/internal/faceapi"
	"clockin/internal/location"
	"clockin/internal/pipeline"
	"clockin/internal/session"
	"clockin/internal/store"
)

const usage = `usage: kiosk <command> [args]

commands:
  login <email> <password>      authenticate and persist the session
  logout                        clear the session
  whoami                        show the restored session
  refresh                       refetch events and location together
  events                        list events by category with eligibility
  stats                         show attendance totals
  check-face                    show face registration status
  register-face <image.jpg>     capture flow: enroll a face image
  clock-in <event-id> <image.jpg>  capture flow: mark attendance
`

func main() {
	cfg := config.Load()

	log, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer log.Sync() //nolint:errcheck

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err := run(cfg, log, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(cfg config.App, log *zap.Logger, command string, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var kv store.KV
	if cfg.RedisAddr != "" {
		kv = store.NewRedisKV(cfg.RedisAddr, "")
	} else {
		fileKV, err := store.NewFileKV(cfg.StateFile)
		if err != nil {
			return err
		}
		kv = fileKV
	}

	client := api.New(cfg.BaseURL)
	sessions := session.NewStore(kv, log)
	cache := event.NewCache(client, sessions, log)
	face := faceapi.New(cfg.FaceAPIURL, log)

	var provider location.Provider = location.Static{
		Pos: location.Position{Lat: cfg.KioskLat, Lng: cfg.KioskLng},
	}
	tracker := location.NewTracker(provider, location.NewGeocoder(cfg.GeocodeURL), log)

	a := app.New(sessions, cache, tracker, nil, client, log)

	notifier := consoleNotifier{}
	pipe := pipeline.New(pipeline.Config{
		Face:     face,
		Provider: provider,
		Tokens:   sessions,
		Events:   cache,
		Checker:  a,
		Notify:   notifier,
		Camera:   nil, // set per capture command from the image argument
		Detector: presenceDetector{},
		Log:      log,

		PingAttempts: cfg.PingAttempts,
		PingDelay:    cfg.PingDelay,
	})
	a.Pipeline = pipe

	// Everything except login needs the persisted session back first.
	if command != "login" {
		if _, err := sessions.Restore(ctx); err != nil {
			return err
		}
	}

	switch command {
	case "login":
		if len(args) != 2 {
			return fmt.Errorf("login needs <email> <password>")
		}
		sess, err := a.Login(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("logged in as %s (session valid until %s)\n",
			sess.User.Email, sess.ExpiresAt.Format(time.RFC3339))
		return nil

	case "logout":
		sessions.Logout(ctx)
		fmt.Println("logged out")
		return nil

	case "whoami":
		sess := sessions.Current()
		if sess == nil {
			fmt.Println("not logged in")
			return nil
		}
		fmt.Printf("%s (%s), session valid until %s\n",
			sess.User.Email, sess.User.Role, sess.ExpiresAt.Format(time.RFC3339))
		return nil

	case "refresh":
		if err := a.RefreshAll(ctx); err != nil {
			return err
		}
		fmt.Printf("%d events; location: %s\n", len(cache.Events()), tracker.Address())
		return nil

	case "events":
		return printEvents(ctx, cache)

	case "stats":
		stats, err := a.Stats(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("present: %d  late: %d  absent: %d\n", stats.Present, stats.Late, stats.Absent)
		return nil

	case "check-face":
		registered, err := a.CheckRegistered(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("face registered: %v\n", registered)
		return nil

	case "register-face":
		if len(args) != 1 {
			return fmt.Errorf("register-face needs <image.jpg>")
		}
		pipe.SetCamera(fileCamera{path: args[0]})
		return pipe.RegisterFace(ctx)

	case "clock-in":
		if len(args) != 2 {
			return fmt.Errorf("clock-in needs <event-id> <image.jpg>")
		}
		pipe.SetCamera(fileCamera{path: args[1]})
		return pipe.ClockIn(ctx, args[0])

	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func printEvents(ctx context.Context, cache *event.Cache) error {
	records, err := cache.Refresh(ctx)
	if err != nil {
		return err
	}
	now := time.Now()
	for _, cat := range []event.Category{event.Upcoming, event.Ongoing, event.Past} {
		fmt.Printf("%s:\n", cat)
		for _, e := range records {
			if event.Categorize(e, now) != cat {
				continue
			}
			eligibility := ""
			if event.CanClockIn(e, now) {
				eligibility = "  [clock-in available]"
			}
			fmt.Printf("  %s  %s  %s - %s  (%s)%s\n",
				e.ID, e.Name,
				e.StartTime.Format("15:04"), e.EndTime.Format("15:04"),
				e.AttendanceStatus, eligibility)
		}
	}
	return nil
}
