package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/pkg/errors"
)

// HTTPSink posts chat commands to the telemetry relay's admin chat endpoint.
type HTTPSink struct {
	URL    string
	Client *http.Client
}

func NewHTTPSink(url string) *HTTPSink {
	return &HTTPSink{
		URL:    url,
		Client: http.DefaultClient,
	}
}

func (s *HTTPSink) Send(command string) error {
	payload, err := json.Marshal(map[string]string{"command": command})
	if err != nil {
		return errors.Wrap(err, "encoding chat command")
	}

	url := fmt.Sprintf("%s/rest/chat", s.URL)
	resp, err := s.Client.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return errors.Wrapf(err, "posting chat command to %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return errors.Errorf("chat endpoint returned %s", resp.Status)
	}
	return nil
}

// LogSink records commands instead of delivering them. Used for dry runs.
type LogSink struct {
	Sent []string
}

func (s *LogSink) Send(command string) error {
	log.Printf("dry-run: would send %q", command)
	s.Sent = append(s.Sent, command)
	return nil
}
