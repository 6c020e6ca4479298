// roomdrop-client uploads a local file to a roomdrop room in resumable
// chunks, retrying failed chunk requests. With -batch it stages the file
// into an archive batch instead of the version store.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"mime/multipart"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-retryablehttp"
)

const (
	defaultServerURL = "http://127.0.0.1:8080"
	defaultChunkSize = 1 << 20 // 1 MiB
	defaultRetryMax  = 4
	httpTimeout      = 2 * time.Minute
)

type config struct {
	serverURL string
	room      string
	passcode  string
	filePath  string
	chunkSize int
	note      string
	batch     string
	fileCount int
}

type uploadResponse struct {
	Completed bool   `json:"completed"`
	Version   int    `json:"version"`
	Bundled   bool   `json:"bundled"`
	Error     string `json:"error"`
}

type client struct {
	cfg  config
	http *retryablehttp.Client
}

func newClient(cfg config) *client {
	c := retryablehttp.NewClient()
	c.RetryMax = defaultRetryMax
	c.HTTPClient.Timeout = httpTimeout
	c.Logger = nil
	return &client{cfg: cfg, http: c}
}

// join verifies room access before any chunk is sent.
func (c *client) join() error {
	form := url.Values{
		"room":     {c.cfg.room},
		"passcode": {c.cfg.passcode},
	}
	resp, err := c.http.PostForm(c.cfg.serverURL+"/room/join", form)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		var payload uploadResponse
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		return fmt.Errorf("join failed (%d): %s", resp.StatusCode, payload.Error)
	}
	return nil
}

// sendChunk posts one multipart chunk and decodes the tracker's result.
func (c *client) sendChunk(filename string, index, total int, offset int64, data []byte) (*uploadResponse, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}

	fields := map[string]string{
		"dzchunkindex":      fmt.Sprint(index),
		"dztotalchunkcount": fmt.Sprint(total),
		"dzchunkbyteoffset": fmt.Sprint(offset),
		"note":              c.cfg.note,
	}
	if c.cfg.batch != "" {
		fields["archive"] = "true"
		fields["batch"] = c.cfg.batch
		fields["filecount"] = fmt.Sprint(c.cfg.fileCount)
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	uploadURL := c.cfg.serverURL + "/room/" + c.cfg.room + "/upload"
	req, err := retryablehttp.NewRequest("POST", uploadURL, body.Bytes())
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("chunk %d rejected (%d): %s", index, resp.StatusCode, payload.Error)
	}
	return &payload, nil
}

// upload splits the file into chunks and sends them in index order.
func (c *client) upload() error {
	data, err := os.ReadFile(c.cfg.filePath)
	if err != nil {
		return err
	}
	filename := filepath.Base(c.cfg.filePath)

	total := (len(data) + c.cfg.chunkSize - 1) / c.cfg.chunkSize
	if total == 0 {
		total = 1
	}

	fmt.Printf("Uploading %s (%s) in %d chunk(s)\n",
		filename, humanize.Bytes(uint64(len(data))), total)

	var last *uploadResponse
	for index := 0; index < total; index++ {
		offset := index * c.cfg.chunkSize
		end := offset + c.cfg.chunkSize
		if end > len(data) {
			end = len(data)
		}

		last, err = c.sendChunk(filename, index, total, int64(offset), data[offset:end])
		if err != nil {
			return err
		}
		fmt.Printf("  chunk %d/%d sent (%s)\n", index+1, total, humanize.Bytes(uint64(end-offset)))
	}

	switch {
	case last.Bundled:
		fmt.Printf("Batch %q complete, archive materialized\n", c.cfg.batch)
	case c.cfg.batch != "":
		fmt.Printf("File staged in batch %q\n", c.cfg.batch)
	default:
		fmt.Printf("Stored as version %d\n", last.Version)
	}
	return nil
}

func main() {
	var cfg config
	flag.StringVar(&cfg.serverURL, "server", defaultServerURL, "roomdrop server URL")
	flag.StringVar(&cfg.room, "room", "", "Room name (required)")
	flag.StringVar(&cfg.passcode, "passcode", "", "Room passcode")
	flag.StringVar(&cfg.filePath, "file", "", "File to upload (required)")
	flag.IntVar(&cfg.chunkSize, "chunk-size", defaultChunkSize, "Chunk size in bytes")
	flag.StringVar(&cfg.note, "note", "", "Change note for this version")
	flag.StringVar(&cfg.batch, "batch", "", "Archive batch name (enables archive mode)")
	flag.IntVar(&cfg.fileCount, "filecount", 1, "Declared file count of the archive batch")
	flag.Parse()

	cfg.serverURL = strings.TrimRight(cfg.serverURL, "/")
	if cfg.room == "" || cfg.filePath == "" || cfg.chunkSize < 1 {
		flag.Usage()
		os.Exit(2)
	}

	c := newClient(cfg)
	if err := c.join(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	if err := c.upload(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
