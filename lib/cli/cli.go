package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ether/revlog/lib/models/record"
	"github.com/ether/revlog/lib/patch"
	"github.com/ether/revlog/lib/utils"
	ws2 "github.com/ether/revlog/lib/ws"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ErrVersionConflict is returned by Save when another writer claimed the
// next version first.
var ErrVersionConflict = errors.New("version conflict")

// Feed is a live view of one record. It fetches the current state over
// the HTTP API, subscribes to the record's change stream and replays
// every incoming change set onto its local copy of the document.
type Feed struct {
	host       string
	collection string
	recordId   string
	httpClient *http.Client
	conn       *websocket.Conn
	connWrite  sync.Mutex
	stateLock  sync.RWMutex
	doc        record.Document
	version    int
	connected  bool
	eventsLock sync.Mutex
	events     map[string][]func(interface{})
	closeChan  chan struct{}
	closeOnce  sync.Once
}

func NewFeed(host, collection, recordId string, conn *websocket.Conn) *Feed {
	return &Feed{
		host:       host,
		collection: collection,
		recordId:   recordId,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		conn:       conn,
		events:     make(map[string][]func(interface{})),
		closeChan:  make(chan struct{}),
	}
}

func (f *Feed) On(event string, handler func(interface{})) {
	f.eventsLock.Lock()
	f.events[event] = append(f.events[event], handler)
	f.eventsLock.Unlock()
}

func (f *Feed) emit(event string, data interface{}) {
	f.eventsLock.Lock()
	handlers := f.events[event]
	f.eventsLock.Unlock()
	for _, handler := range handlers {
		go handler(data)
	}
}

func (f *Feed) Close() {
	f.closeOnce.Do(func() {
		close(f.closeChan)
		if f.conn != nil {
			_ = f.conn.Close()
		}
		f.emit("disconnect", nil)
	})
}

func (f *Feed) Collection() string {
	f.stateLock.RLock()
	defer f.stateLock.RUnlock()
	return f.collection
}

func (f *Feed) RecordId() string {
	f.stateLock.RLock()
	defer f.stateLock.RUnlock()
	return f.recordId
}

// Document returns a copy of the local replica.
func (f *Feed) Document() record.Document {
	f.stateLock.RLock()
	defer f.stateLock.RUnlock()
	return f.doc.Clone()
}

func (f *Feed) Version() int {
	f.stateLock.RLock()
	defer f.stateLock.RUnlock()
	return f.version
}

// Save writes doc as the next version of the record through the HTTP
// API. The local replica is not touched here, the new version comes back
// over the change stream like everybody else's.
func (f *Feed) Save(doc record.Document) error {
	if doc == nil {
		doc = record.Document{}
	}
	doc["id"] = f.RecordId()

	body, err := json.Marshal(map[string]any{"doc": doc})
	if err != nil {
		return err
	}

	saveUrl := fmt.Sprintf("%s/api/collections/%s/records", f.host, f.Collection())
	resp, err := f.httpClient.Post(saveUrl, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusConflict:
		return ErrVersionConflict
	default:
		responseBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("save failed with status %s: %s", resp.Status, string(responseBody))
	}
}

// SubscribeTo retargets the feed to another record without reconnecting.
func (f *Feed) SubscribeTo(collection, recordId string) error {
	f.connWrite.Lock()
	err := f.conn.WriteJSON(ws2.SubscribeMessage{
		Type:       "subscribe",
		Collection: collection,
		RecordId:   recordId,
	})
	f.connWrite.Unlock()
	if err != nil {
		return err
	}

	f.stateLock.Lock()
	f.collection = collection
	f.recordId = recordId
	f.doc = nil
	f.version = 0
	f.stateLock.Unlock()
	return f.resync()
}

// fetchRecord loads the live record over the HTTP API. A 404 means the
// record has no versions yet, which is fine for a watcher.
func (f *Feed) fetchRecord() (record.Document, int, error) {
	recordUrl := fmt.Sprintf("%s/api/collections/%s/records/%s", f.host, f.Collection(), f.RecordId())
	resp, err := f.httpClient.Get(recordUrl)
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotFound {
		return nil, 0, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, 0, fmt.Errorf("fetching record failed with status %s: %s", resp.Status, string(body))
	}

	var rec struct {
		Id      string          `json:"id"`
		Version *int            `json:"version"`
		Doc     record.Document `json:"doc"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return nil, 0, err
	}

	var version int
	if rec.Version != nil {
		version = *rec.Version
	}
	return rec.Doc, version, nil
}

// resync throws the local replica away and reloads it from the server.
func (f *Feed) resync() error {
	doc, version, err := f.fetchRecord()
	if err != nil {
		return err
	}
	f.stateLock.Lock()
	f.doc = doc
	f.version = version
	f.stateLock.Unlock()
	f.emit("newContents", f.Document())
	return nil
}

// applyChangeSet replays one incoming change set onto the local replica.
// Anything that is not exactly the next version means the replica can no
// longer follow the stream and has to resync.
func (f *Feed) applyChangeSet(msg ws2.ChangeSetAppendedMessage) {
	f.stateLock.Lock()
	if msg.Version <= f.version {
		f.stateLock.Unlock()
		return
	}
	if msg.Version != f.version+1 {
		expected := f.version + 1
		f.stateLock.Unlock()
		f.emit("outOfSync", map[string]interface{}{"expected": expected, "got": msg.Version})
		return
	}

	base := f.doc
	if base == nil {
		base = record.Document{}
	}
	doc, err := patch.Apply(base, msg.Operations)
	if err != nil {
		f.stateLock.Unlock()
		f.emit("outOfSync", map[string]interface{}{"error": err.Error(), "got": msg.Version})
		return
	}
	f.doc = doc
	f.version = msg.Version
	f.stateLock.Unlock()

	f.emit("changeSet", msg)
	f.emit("newContents", f.Document())
}

// handleRollback drops the local replica back to the server's state. The
// change stream only carries forward patches, so the previous document
// has to be fetched again.
func (f *Feed) handleRollback(msg ws2.RecordRolledBackMessage) {
	if msg.Deleted {
		f.stateLock.Lock()
		f.doc = nil
		f.version = 0
		f.stateLock.Unlock()
	} else if err := f.resync(); err != nil {
		f.emit("outOfSync", map[string]interface{}{"error": err.Error()})
	}
	f.emit("rolledBack", msg)
}

// FeedState is the parsed form of a record URL.
type FeedState struct {
	Host       string
	Collection string
	RecordId   string
}

func Connect(target string, logger *zap.SugaredLogger) *Feed {
	return connect(target, logger)
}

func connect(target string, logger *zap.SugaredLogger) *Feed {
	feedState, err := parseTarget(target)
	if err != nil {
		fmt.Println("Invalid record URL:", err)
		os.Exit(1)
	}

	wsUrl := fmt.Sprintf("%s/api/collections/%s/records/%s/changes",
		strings.Replace(feedState.Host, "http", "ws", 1), feedState.Collection, feedState.RecordId)
	connection, resp, err := websocket.DefaultDialer.Dial(wsUrl, nil)
	if err != nil {
		fmt.Printf("WebSocket connection failed: %v\n", err)
		if resp != nil {
			fmt.Printf("Response Status: %s\n", resp.Status)
		}
		os.Exit(1)
	}

	feed := NewFeed(feedState.Host, feedState.Collection, feedState.RecordId, connection)

	if err := feed.resync(); err != nil {
		fmt.Printf("Failed to load record %s/%s: %v\n", feedState.Collection, feedState.RecordId, err)
		os.Exit(1)
	}

	go func() {
		// Recover to avoid crashing the whole process on unexpected panics in the reader loop
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("panic in recv goroutine: %v", r)
				feed.emit("disconnect", r)
				_ = connection.Close()
			}
			feed.Close()
		}()

		for {
			select {
			case <-feed.closeChan:
				return
			default:
				_, message, err := connection.ReadMessage()
				if err != nil {
					if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
						logger.Errorf("error: %v", err)
					}
					feed.emit("disconnect", err)
					return
				}
				logger.Debugf("Received: %s", message)

				var envelope struct {
					Type string `json:"type"`
				}
				if err := json.Unmarshal(message, &envelope); err != nil {
					logger.Errorf("cannot parse incoming message: %v", err)
					continue
				}

				switch envelope.Type {
				case "changeSetAppended":
					var msg ws2.ChangeSetAppendedMessage
					if err := json.Unmarshal(message, &msg); err != nil {
						logger.Errorf("cannot parse change set message: %v", err)
						continue
					}
					feed.applyChangeSet(msg)
				case "recordRolledBack":
					var msg ws2.RecordRolledBackMessage
					if err := json.Unmarshal(message, &msg); err != nil {
						logger.Errorf("cannot parse rollback message: %v", err)
						continue
					}
					feed.handleRollback(msg)
				}
			}
		}
	}()

	feed.stateLock.Lock()
	feed.connected = true
	feed.stateLock.Unlock()
	feed.emit("connected", nil)
	return feed
}

// parseTarget splits a record URL like
// http://127.0.0.1:9001/collections/posts/records/doc-1 into its parts.
// A missing record path falls back to a fresh random record.
func parseTarget(target string) (FeedState, error) {
	feedState := FeedState{
		Host:       "http://127.0.0.1:9001",
		Collection: "records",
		RecordId:   utils.RandomString(5),
	}
	if target == "" {
		return feedState, nil
	}

	parsedUrl, err := url.Parse(target)
	if err != nil {
		return feedState, err
	}
	if parsedUrl.Scheme == "" || parsedUrl.Host == "" {
		return feedState, fmt.Errorf("record URL needs a scheme and a host: %s", target)
	}
	feedState.Host = fmt.Sprintf("%s://%s", parsedUrl.Scheme, parsedUrl.Host)

	path := strings.TrimPrefix(parsedUrl.Path, "/api")
	const collectionsParam = "/collections/"
	const recordsParam = "/records/"
	indexOfCollection := strings.Index(path, collectionsParam)
	if indexOfCollection == -1 {
		return feedState, nil
	}
	rest := path[indexOfCollection+len(collectionsParam):]
	indexOfRecord := strings.Index(rest, recordsParam)
	if indexOfRecord == -1 {
		return feedState, nil
	}
	feedState.Collection = rest[:indexOfRecord]
	feedState.RecordId = strings.TrimSuffix(rest[indexOfRecord+len(recordsParam):], "/changes")
	if feedState.Collection == "" || feedState.RecordId == "" {
		return feedState, fmt.Errorf("record URL is missing the collection or record id: %s", target)
	}
	return feedState, nil
}

// OnConnected fires once the initial state is loaded. A handler
// registered after that point still fires, connecting happens exactly
// once per feed.
func (f *Feed) OnConnected(callback func(feed *Feed)) {
	var once sync.Once
	fire := func(interface{}) {
		once.Do(func() { callback(f) })
	}
	f.On("connected", fire)

	f.stateLock.RLock()
	alreadyConnected := f.connected
	f.stateLock.RUnlock()
	if alreadyConnected {
		go fire(nil)
	}
}

func (f *Feed) OnChangeSet(callback func(msg ws2.ChangeSetAppendedMessage)) {
	f.On("changeSet", func(data interface{}) {
		if msg, ok := data.(ws2.ChangeSetAppendedMessage); ok {
			callback(msg)
		}
	})
}

func (f *Feed) OnRolledBack(callback func(msg ws2.RecordRolledBackMessage)) {
	f.On("rolledBack", func(data interface{}) {
		if msg, ok := data.(ws2.RecordRolledBackMessage); ok {
			callback(msg)
		}
	})
}

func (f *Feed) OnDisconnect(callback func(err interface{})) {
	f.On("disconnect", func(data interface{}) {
		callback(data)
	})
}

func (f *Feed) OnNewContents(callback func(doc record.Document)) {
	f.On("newContents", func(data interface{}) {
		if doc, ok := data.(record.Document); ok {
			callback(doc)
		}
	})
}

func renderRecord(feed *Feed) {
	fmt.Print("\u001b[2J\u001b[0;0H")
	fmt.Printf("Record %s/%s @ version %d\n\n", feed.Collection(), feed.RecordId(), feed.Version())
	doc := feed.Document()
	if doc == nil {
		fmt.Println("(no versions yet)")
		return
	}
	pretty, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		fmt.Printf("%v\n", doc)
		return
	}
	fmt.Println(string(pretty))
}

func RunFromCLI(logger *zap.SugaredLogger, args []string) {
	target, saveStr, err := parseCLIArgs(args)
	if err != nil {
		return
	}

	if target == "" {
		fmt.Println("No record URL specified..")
		return
	}

	if saveStr != "" {
		var doc record.Document
		if err := json.Unmarshal([]byte(saveStr), &doc); err != nil {
			fmt.Printf("-save expects a JSON object: %v\n", err)
			return
		}

		feed := connect(target, logger)

		// The listeners have to be in place before the save can finish.
		done := make(chan struct{})
		var doneOnce sync.Once
		feed.On("save_done", func(_ interface{}) {
			doneOnce.Do(func() { close(done) })
		})
		feed.On("save_error", func(_ interface{}) {
			doneOnce.Do(func() { close(done) })
		})

		feed.OnConnected(func(_ *Feed) {
			if err := feed.Save(doc); err != nil {
				fmt.Printf("Save failed: %v\n", err)
				feed.emit("save_error", err)
				return
			}
			fmt.Printf("Saved new version of %s/%s\n", feed.Collection(), feed.RecordId())
			if os.Getenv("GO_TEST_MODE") == "true" {
				feed.emit("save_done", nil)
			} else {
				os.Exit(0)
			}
		})

		if os.Getenv("GO_TEST_MODE") == "true" {
			select {
			case <-done:
				feed.Close()
				return
			case <-time.After(10 * time.Second):
				fmt.Println("Save timeout")
				feed.Close()
				return
			}
		} else {
			select {}
		}
	} else {
		feed := connect(target, logger)
		feed.OnConnected(func(f *Feed) {
			fmt.Printf("Connected to %s watching %s/%s\n", f.host, f.Collection(), f.RecordId())
			renderRecord(f)
		})
		feed.OnNewContents(func(doc record.Document) {
			renderRecord(feed)
		})
		feed.OnRolledBack(func(msg ws2.RecordRolledBackMessage) {
			if msg.Deleted {
				renderRecord(feed)
			}
		})
		feed.On("outOfSync", func(_ interface{}) {
			if err := feed.resync(); err != nil {
				logger.Warnf("resync failed: %v", err)
			}
		})

		done := make(chan struct{})
		feed.On("disconnect", func(_ interface{}) {
			close(done)
		})
		<-done
	}

	logger.Infof("Stopping CLI")
}

func parseCLIArgs(args []string) (string, string, error) {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	target := fs.String("host", "", "The record URL (e.g. http://127.0.0.1:9001/collections/posts/records/doc-1)")
	saveStr := fs.String("save", "", "Save a JSON document as the next version")
	fs.StringVar(saveStr, "s", "", "Save a JSON document as the next version (shorthand)")

	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		*target = args[0]
		args = args[1:]
	}

	err := fs.Parse(args)
	return *target, *saveStr, err
}
