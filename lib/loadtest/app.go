package loadtest

import (
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"net/url"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ether/revlog/lib/cli"
	"github.com/ether/revlog/lib/models/record"
	"github.com/ether/revlog/lib/utils"
	ws2 "github.com/ether/revlog/lib/ws"
	"go.uber.org/zap"
)

func RunFromCLI(logger *zap.SugaredLogger, args []string) {
	host, writers, watchers, duration, untilFail, err := parseRunArgs(args)
	if err != nil {
		return
	}
	StartLoadTest(logger, host, writers, watchers, duration, untilFail)
}

func parseRunArgs(args []string) (string, int, int, int, bool, error) {
	fs := flag.NewFlagSet("loadtest", flag.ContinueOnError)
	host := fs.String("host", "http://127.0.0.1:9001", "The host to test")
	writers := fs.Int("writers", 0, "Number of writers")
	fs.IntVar(writers, "w", 0, "Number of writers (shorthand)")
	watchers := fs.Int("watchers", 0, "Number of watchers")
	duration := fs.Int("duration", 0, "Duration of the test in seconds")
	fs.IntVar(duration, "d", 0, "Duration of the test in seconds (shorthand)")
	untilFail := fs.Bool("loadUntilFail", false, "Load until the server fails")

	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		*host = args[0]
		args = args[1:]
	}

	err := fs.Parse(args)
	return *host, *writers, *watchers, *duration, *untilFail, err
}

func RunMultiFromCLI(logger *zap.SugaredLogger, args []string) {
	host, maxRecords, err := parseMultiRunArgs(args)
	if err != nil {
		return
	}
	StartMultiLoadTest(logger, host, maxRecords)
}

func parseMultiRunArgs(args []string) (string, int, error) {
	fs := flag.NewFlagSet("multiload", flag.ContinueOnError)
	host := fs.String("host", "http://127.0.0.1:9001", "The host to test")
	maxRecords := fs.Int("maxRecords", 10, "Maximum number of records")

	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		*host = args[0]
		args = args[1:]
	}

	err := fs.Parse(args)
	return *host, *maxRecords, err
}

type Metrics struct {
	ClientsConnected  int64
	WritersConnected  int64
	WatchersConnected int64
	SavesSent         int64
	SavesAccepted     int64
	Conflicts         int64
	ErrorCount        int64
	ChangesFromServer int64
	StartTime         time.Time
}

var stats Metrics
var maxPS float64
var statsLock sync.Mutex

func randomRecordName() string {
	const chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	const strLen = 10
	var b strings.Builder
	for i := 0; i < strLen; i++ {
		b.WriteByte(chars[rand.Intn(len(chars))])
	}
	return b.String()
}

func updateMetricsUI(host string) {
	if os.Getenv("SILENT_METRICS") == "true" {
		return
	}
	statsLock.Lock()
	defer statsLock.Unlock()

	testDuration := time.Since(stats.StartTime)

	// Clear screen and move cursor to top-left
	fmt.Print("\033[2J\033[0;0H")
	fmt.Printf("Load Test Metrics -- Target Record %s\n\n", host)

	fmt.Printf("Local Clients Connected: %d\n", atomic.LoadInt64(&stats.ClientsConnected))
	fmt.Printf("Writers Connected: %d\n", atomic.LoadInt64(&stats.WritersConnected))
	fmt.Printf("Watchers Connected: %d\n", atomic.LoadInt64(&stats.WatchersConnected))
	fmt.Printf("Saves sent: %d\n", atomic.LoadInt64(&stats.SavesSent))
	fmt.Printf("Versions accepted by server: %d\n", atomic.LoadInt64(&stats.SavesAccepted))
	fmt.Printf("Version conflicts: %d\n", atomic.LoadInt64(&stats.Conflicts))
	fmt.Printf("Errors: %d\n", atomic.LoadInt64(&stats.ErrorCount))

	changesFromServer := atomic.LoadInt64(&stats.ChangesFromServer)
	fmt.Printf("Change sets sent from Server to Client: %d\n", changesFromServer)

	durationSec := testDuration.Seconds()
	if durationSec > 0 {
		currentRate := float64(changesFromServer) / durationSec
		fmt.Printf("Mean(per second) of # of change sets sent from Server to Client: %.0f\n", currentRate)

		if currentRate > maxPS {
			maxPS = currentRate
		}
		fmt.Printf("Max(per second) of # of change sets: %.0f\n", maxPS)
	}

	fmt.Printf("Seconds test has been running for: %d\n", int(durationSec))
}

// newWriter saves a small mutation of the record every 400ms. Writers
// racing for the same next version is the point, conflicts are counted
// rather than treated as failures.
func newWriter(target string, logger *zap.SugaredLogger) {
	feed := cli.Connect(target, logger)

	feed.OnDisconnect(func(err interface{}) {
		fmt.Printf("connection error connecting to record: %v\n", err)
		if os.Getenv("GO_TEST_MODE") != "true" {
			os.Exit(1)
		}
	})

	feed.OnConnected(func(f *cli.Feed) {
		atomic.AddInt64(&stats.ClientsConnected, 1)
		atomic.AddInt64(&stats.WritersConnected, 1)
		updateMetricsUI(target)

		ticker := time.NewTicker(400 * time.Millisecond)
		go func() {
			for range ticker.C {
				doc := f.Document()
				if doc == nil {
					doc = record.Document{}
				}
				doc["note"] = utils.RandomString(10)

				atomic.AddInt64(&stats.SavesSent, 1)
				updateMetricsUI(target)
				switch err := f.Save(doc); {
				case err == nil:
					atomic.AddInt64(&stats.SavesAccepted, 1)
				case errors.Is(err, cli.ErrVersionConflict):
					atomic.AddInt64(&stats.Conflicts, 1)
				default:
					atomic.AddInt64(&stats.ErrorCount, 1)
				}
			}
		}()
	})

	feed.OnChangeSet(func(msg ws2.ChangeSetAppendedMessage) {
		atomic.AddInt64(&stats.ChangesFromServer, 1)
	})

	feed.On("outOfSync", func(data interface{}) {
		info, _ := data.(map[string]interface{})
		logger.Warnf("Client out of sync: %+v - reconnecting", info)
		atomic.AddInt64(&stats.ErrorCount, 1)
		atomic.AddInt64(&stats.ClientsConnected, -1)
		atomic.AddInt64(&stats.WritersConnected, -1)
		feed.Close()

		time.Sleep(500 * time.Millisecond)
		go newWriter(target, logger)
	})
}

func newWatcher(target string, logger *zap.SugaredLogger) {
	feed := cli.Connect(target, logger)

	feed.OnDisconnect(func(err interface{}) {
		fmt.Printf("connection error connecting to record: %v\n", err)
		if os.Getenv("GO_TEST_MODE") != "true" {
			os.Exit(1)
		}
	})

	feed.OnConnected(func(f *cli.Feed) {
		atomic.AddInt64(&stats.ClientsConnected, 1)
		atomic.AddInt64(&stats.WatchersConnected, 1)
		updateMetricsUI(target)
	})

	feed.OnChangeSet(func(msg ws2.ChangeSetAppendedMessage) {
		atomic.AddInt64(&stats.ChangesFromServer, 1)
	})
}

func StartLoadTest(logger *zap.SugaredLogger, host string, numWriters, numWatchers int, duration int, loadUntilFail bool) {
	stats.StartTime = time.Now()

	if host == "" {
		host = "http://127.0.0.1:9001"
	}

	if !strings.Contains(host, "/collections/") {
		host = fmt.Sprintf("%s/collections/loadtest/records/%s", strings.TrimSuffix(host, "/"), randomRecordName())
	} else {
		// Ensure it's a valid URL
		_, err := url.Parse(host)
		if err != nil {
			fmt.Printf("Invalid host: %v\n", err)
			os.Exit(1)
		}
	}

	var endTime time.Time
	if duration > 0 {
		endTime = stats.StartTime.Add(time.Duration(duration) * time.Second)
	}

	if numWriters > 0 || numWatchers > 0 {
		var users []string
		for i := 0; i < numWatchers; i++ {
			users = append(users, "l")
		}
		for i := 0; i < numWriters; i++ {
			users = append(users, "w")
		}

		go func() {
			for _, t := range users {
				if t == "l" {
					newWatcher(host, logger)
				} else {
					newWriter(host, logger)
				}
				time.Sleep(200 * time.Millisecond / time.Duration(len(users)))
			}
		}()
	} else {
		if duration > 0 {
			fmt.Printf("Creating load for %d seconds\n", duration)
		} else {
			fmt.Println("Creating load until the server stops responding in a timely fashion")
		}

		go func() {
			// Loads at ratio of 3(watchers):1(writer), every 1 second it adds more.
			users := []string{"w", "l", "l", "l"}
			ticker := time.NewTicker(1 * time.Second)
			for range ticker.C {
				for _, t := range users {
					if t == "l" {
						newWatcher(host, logger)
					} else {
						newWriter(host, logger)
					}
					time.Sleep(200 * time.Millisecond / time.Duration(len(users)))
				}
			}
		}()
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	for range ticker.C {
		if !endTime.IsZero() && time.Now().After(endTime) {
			fmt.Println("Test duration complete and Load Tests PASS")
			// Print final stats
			fmt.Printf("%+v\n", stats)
			if os.Getenv("GO_TEST_MODE") == "true" {
				return
			}
			os.Exit(0)
		}

		if loadUntilFail {
			if atomic.LoadInt64(&stats.ErrorCount) > 100 {
				fmt.Printf("Load test failed: too many save errors (%d)\n", atomic.LoadInt64(&stats.ErrorCount))
				if os.Getenv("GO_TEST_MODE") == "true" {
					return
				}
				os.Exit(1)
			}
		}
	}
}
